package logger

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledDiscards(t *testing.T) {
	l := New(Options{})
	assert.False(t, l.Enabled(t.Context(), slog.LevelError))
}

func TestInit_TextHandler(t *testing.T) {
	saved := L
	t.Cleanup(func() { L = saved })

	var out bytes.Buffer
	Init(Options{Enabled: true, Output: &out, Level: slog.LevelDebug})
	Debug("flip", "cycle", 3)

	assert.Contains(t, out.String(), "msg=flip")
	assert.Contains(t, out.String(), "cycle=3")
}

func TestInit_JSONHandlerRespectsLevel(t *testing.T) {
	saved := L
	t.Cleanup(func() { L = saved })

	var out bytes.Buffer
	Init(Options{Enabled: true, Output: &out, JSON: true})
	Debug("hidden")
	Warn("shown", "cells", 7)

	require.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), `"msg":"shown"`)
	assert.Contains(t, out.String(), `"cells":7`)
}

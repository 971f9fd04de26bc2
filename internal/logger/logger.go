// Package logger holds the process-wide structured logger used by the collector.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvVar enables debug logging to stderr when set to a non-empty value.
// A value of "json" selects the JSON handler.
const EnvVar = "TREADMILL_LOG"

// L is the global logger instance. It discards all output unless Init is called
// or EnvVar is set.
var L = fromEnv()

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Output  io.Writer  // Destination. Default: os.Stderr
	Level   slog.Level // Minimum log level. Default: LevelInfo when enabled
	JSON    bool       // Use the JSON handler instead of the text handler
}

// Init replaces L according to opts.
func Init(opts Options) {
	L = New(opts)
}

// New builds a logger without installing it.
func New(opts Options) *slog.Logger {
	if !opts.Enabled {
		return slog.New(slog.DiscardHandler)
	}
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := opts.Level
	if level == 0 {
		level = slog.LevelInfo
	}
	ho := &slog.HandlerOptions{Level: level}
	if opts.JSON {
		return slog.New(slog.NewJSONHandler(out, ho))
	}
	return slog.New(slog.NewTextHandler(out, ho))
}

func fromEnv() *slog.Logger {
	v := os.Getenv(EnvVar)
	if v == "" {
		return New(Options{})
	}
	return New(Options{
		Enabled: true,
		Level:   slog.LevelDebug,
		JSON:    strings.EqualFold(v, "json"),
	})
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }

//go:build !unix && !windows

// Package slab provides platform-specific anonymous memory for chunk payloads.
package slab

import "fmt"

// Alloc returns n bytes of heap memory when no mapping primitive is available.
func Alloc(n int) ([]byte, func() error, error) {
	if n < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrBadSize, n)
	}
	return make([]byte, n), noop, nil
}

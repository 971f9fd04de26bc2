package slab

import "errors"

var (
	// ErrNoMemory indicates the platform refused to provide the requested region.
	ErrNoMemory = errors.New("slab: out of memory")

	// ErrBadSize indicates a negative region size.
	ErrBadSize = errors.New("slab: negative size")
)

func noop() error { return nil }

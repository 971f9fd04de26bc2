package ring

import "errors"

var (
	// ErrBadSize indicates a chunk size below one cell or a negative object size.
	ErrBadSize = errors.New("ring: chunk size must be at least one cell")

	// ErrOutOfMemory indicates that payload memory for a chunk could not be obtained.
	ErrOutOfMemory = errors.New("ring: out of memory")

	// ErrClosed indicates use of a ring after Close.
	ErrClosed = errors.New("ring: closed")
)

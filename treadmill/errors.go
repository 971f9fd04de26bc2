package treadmill

import "errors"

var (
	// ErrInvalidConfig indicates a construction parameter out of range.
	ErrInvalidConfig = errors.New("treadmill: invalid config")

	// ErrBadSize indicates a growth request below one cell.
	ErrBadSize = errors.New("treadmill: size must be at least one cell")

	// ErrOutOfMemory indicates chunk memory could not be obtained.
	ErrOutOfMemory = errors.New("treadmill: out of memory")

	// ErrHeapExhausted indicates WHITE was still empty after a forced flip whose
	// growth succeeded. Config.Validate requires GrowthRate >= 1, and a
	// successful growth always leaves a spare WHITE cell, so a validated heap
	// never returns it; the check stays as the backstop of the flip contract.
	ErrHeapExhausted = errors.New("treadmill: heap exhausted")

	// ErrClosed indicates use of a heap after Close.
	ErrClosed = errors.New("treadmill: heap closed")

	// ErrForeignObject indicates an object that is not live in this heap.
	ErrForeignObject = errors.New("treadmill: object not owned by heap")
)

// IsRetryable reports whether err left the heap intact with only growth
// failing. The host may free memory elsewhere, call Grow, and allocate again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrOutOfMemory) && !errors.Is(err, ErrHeapExhausted)
}

// IsFatal reports whether err means the heap cannot satisfy allocations at all.
// Allocation failures of a validated heap are retryable instead (see
// ErrHeapExhausted).
func IsFatal(err error) bool {
	return errors.Is(err, ErrHeapExhausted)
}

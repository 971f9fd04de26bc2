package treadmill

// Throttle decides when Allocate injects an incremental scan step. Due is
// given the number of allocations since the last throttled step; the counter
// resets whenever a throttled step runs.
type Throttle interface {
	Due(sinceScan int) bool
}

// EveryN runs one scan step every N allocations.
type EveryN int

// Due reports whether n allocations have happened since the last step.
func (n EveryN) Due(sinceScan int) bool { return n > 0 && sinceScan >= int(n) }

// Never disables incremental scanning; all marking happens inside Flip.
type Never struct{}

// Due always returns false.
func (Never) Due(int) bool { return false }

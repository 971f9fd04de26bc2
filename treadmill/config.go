package treadmill

import (
	"fmt"
	"log/slog"

	"github.com/joshuapare/treadmill/treadmill/ring"
)

// Config holds the construction-time parameters of a heap.
type Config struct {
	InitialSize int `yaml:"initial_size" json:"initial_size"` // cells in the first chunk, minus the spare
	GrowthRate  int `yaml:"growth_rate" json:"growth_rate"`   // cells added to WHITE by each flip
	ScanEvery   int `yaml:"scan_every" json:"scan_every"`     // allocations per incremental scan step
	ObjectSize  int `yaml:"object_size" json:"object_size"`   // payload bytes per object
}

// DefaultConfig returns the configuration used when the host has no preference.
func DefaultConfig() Config {
	return Config{
		InitialSize: 100,
		GrowthRate:  100,
		ScanEvery:   5,
		ObjectSize:  64,
	}
}

// Validate reports the first out-of-range parameter.
func (c Config) Validate() error {
	switch {
	case c.InitialSize < 1:
		return fmt.Errorf("%w: initial size %d < 1", ErrInvalidConfig, c.InitialSize)
	case c.GrowthRate < 1:
		return fmt.Errorf("%w: growth rate %d < 1", ErrInvalidConfig, c.GrowthRate)
	case c.ScanEvery < 1:
		return fmt.Errorf("%w: scan every %d < 1", ErrInvalidConfig, c.ScanEvery)
	case c.ObjectSize < 0:
		return fmt.Errorf("%w: object size %d < 0", ErrInvalidConfig, c.ObjectSize)
	}
	return nil
}

// Option customizes a heap at construction.
type Option func(*Heap)

// WithLogger routes heap diagnostics to l instead of the package logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Heap) {
		if l != nil {
			h.log = l
		}
	}
}

// WithThrottle replaces the default EveryN(ScanEvery) scan pacing.
func WithThrottle(t Throttle) Option {
	return func(h *Heap) {
		if t != nil {
			h.throttle = t
		}
	}
}

// WithChunkAllocator makes the heap take chunk payload memory from fn instead
// of anonymous mappings.
func WithChunkAllocator(fn ring.Allocator) Option {
	return func(h *Heap) {
		h.ringOpts = append(h.ringOpts, ring.WithAllocator(fn))
	}
}

package treadmill

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/joshuapare/treadmill/internal/logger"
	"github.com/joshuapare/treadmill/treadmill/ring"
)

// Heap is a treadmill-collected heap of fixed-size objects.
type Heap struct {
	ring     *ring.Ring
	cfg      Config
	roots    RootSet
	host     Host
	throttle Throttle
	log      *slog.Logger
	ringOpts []ring.Option

	discover  func(*Object)
	sinceScan int
	warm      bool
	closed    bool

	stats Stats
}

// Stats counts heap activity since construction.
type Stats struct {
	Allocations    int `json:"allocations"`
	Scans          int `json:"scans"`           // scan steps that blackened a cell
	ThrottledScans int `json:"throttled_scans"` // scan steps injected by Allocate
	Flips          int `json:"flips"`
	ForcedFlips    int `json:"forced_flips"` // flips triggered by an exhausted WHITE
	Releases       int `json:"releases"`
	Growths        int `json:"growths"`
	Chunks         int `json:"chunks"`
	Cells          int `json:"cells"`
}

// New builds a heap with one chunk of cfg.InitialSize+1 cells, all WHITE. The
// spare cell lets Allocate tell "one slot left" from "none".
func New(roots RootSet, host Host, cfg Config, opts ...Option) (*Heap, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if roots == nil {
		return nil, fmt.Errorf("%w: nil root set", ErrInvalidConfig)
	}
	if host == nil {
		return nil, fmt.Errorf("%w: nil host", ErrInvalidConfig)
	}

	h := &Heap{
		cfg:      cfg,
		roots:    roots,
		host:     host,
		throttle: EveryN(cfg.ScanEvery),
		log:      logger.L,
	}
	h.discover = h.shade
	for _, opt := range opts {
		opt(h)
	}

	r, err := ring.New(cfg.InitialSize+1, cfg.ObjectSize, h.ringOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	h.ring = r
	h.stats.Chunks = 1

	h.log.Debug("heap created",
		"cells", cfg.InitialSize+1,
		"growth_rate", cfg.GrowthRate,
		"scan_every", cfg.ScanEvery,
		"object_size", cfg.ObjectSize)
	return h, nil
}

// Config returns the configuration the heap was built with.
func (h *Heap) Config() Config { return h.cfg }

// Ring exposes the underlying ring for diagnostics and invariant checks.
func (h *Heap) Ring() *ring.Ring { return h.ring }

// Warm reports whether anything has been allocated yet.
func (h *Heap) Warm() bool { return h.warm }

// Closed reports whether Close has been called.
func (h *Heap) Closed() bool { return h.closed }

// Stats returns a snapshot of the activity counters.
func (h *Heap) Stats() Stats {
	s := h.stats
	if !h.closed {
		s.Cells = h.ring.Cap()
	}
	return s
}

// Allocate hands out a zeroed object from WHITE. The new object is born black.
//
// Every ScanEvery allocations one scan step runs first. When WHITE is about to
// be exhausted a synchronous Flip runs; this is the only unbounded-latency
// path. If WHITE is still exhausted afterwards, Allocate fails (see
// IsRetryable and IsFatal).
func (h *Heap) Allocate() (*Object, error) {
	if h.closed {
		return nil, ErrClosed
	}

	if h.throttle.Due(h.sinceScan) {
		h.Scan()
		h.sinceScan = 0
		h.stats.ThrottledScans++
	}

	r := h.ring
	if r.Next(r.Free()) == r.Bottom() {
		h.stats.ForcedFlips++
		h.log.Debug("white exhausted, forcing flip", "cells", r.Cap())
		flipErr := h.Flip()
		if r.Next(r.Free()) == r.Bottom() {
			if flipErr != nil {
				return nil, flipErr
			}
			return nil, ErrHeapExhausted
		}
		if flipErr != nil {
			// Reclaim freed enough room; growth can be retried next flip.
			h.log.Warn("flip could not grow heap", "err", flipErr)
		}
	}

	c := r.AdvanceFree()
	data := r.Data(c)
	clear(data)
	obj := &Object{Header: Header{cell: c}, Data: data}
	r.SetValue(c, obj)

	h.sinceScan++
	h.stats.Allocations++
	h.warm = true
	return obj, nil
}

// Scan performs one incremental marking step: the last GREY cell becomes BLACK
// and the host scans its payload, promoting each ECRU child to GREY. It
// reports false when GREY was already empty.
func (h *Heap) Scan() bool {
	if h.closed {
		return false
	}
	c := h.ring.Retreat()
	if c == ring.Nil {
		return false
	}
	h.stats.Scans++
	if obj, ok := h.ring.Value(c).(*Object); ok {
		h.host.ScanPointers(obj, h.discover)
	}
	return true
}

// Drain runs Scan until GREY is empty and returns the number of steps taken.
func (h *Heap) Drain() int {
	n := 0
	for h.Scan() {
		n++
	}
	return n
}

// Shade promotes obj to GREY if it is ECRU. Hosts call it when they store a
// reference to obj after the referring object may already have been scanned.
// It reports whether obj moved.
func (h *Heap) Shade(obj *Object) bool {
	if h.closed || !h.owns(obj) {
		return false
	}
	return h.ring.MakeGreyIfEcru(obj.cell)
}

func (h *Heap) shade(obj *Object) {
	if h.owns(obj) {
		h.ring.MakeGreyIfEcru(obj.cell)
	}
}

// owns reports whether obj is live in this heap.
func (h *Heap) owns(obj *Object) bool {
	if obj == nil || !h.ring.Valid(obj.cell) {
		return false
	}
	v, _ := h.ring.Value(obj.cell).(*Object)
	return v == obj
}

// Flip ends the current cycle and starts the next one: drain GREY, release
// every ECRU object, grow WHITE by GrowthRate, recolor the survivors ECRU and
// reseed GREY from the root set.
//
// A growth failure does not interrupt the flip; it is reported as
// ErrOutOfMemory after the ring has been recolored and reseeded.
func (h *Heap) Flip() error {
	if h.closed {
		return ErrClosed
	}
	r := h.ring

	drained := h.Drain()

	released := 0
	r.Walk(r.Bottom(), r.Top(), func(c ring.CellID) {
		r.ClearEcru(c)
		if h.release(c) {
			released++
		}
	})
	r.SetBottom(r.Top())

	var growErr error
	if err := r.Grow(h.cfg.GrowthRate); err != nil {
		growErr = fmt.Errorf("%w: flip growth: %w", ErrOutOfMemory, err)
	} else {
		h.stats.Growths++
		h.stats.Chunks++
	}

	r.Walk(r.Scan(), r.Free(), r.MakeEcru)

	seeded := 0
	for _, root := range h.roots.Roots() {
		if h.owns(root) {
			r.MakeGrey(root.cell)
			seeded++
		}
	}

	h.stats.Flips++
	h.log.Debug("flip",
		"cycle", h.stats.Flips,
		"drained", drained,
		"released", released,
		"roots", seeded,
		"cells", r.Cap())
	return growErr
}

// release detaches the object held by c and hands it to the host.
func (h *Heap) release(c ring.CellID) bool {
	obj, ok := h.ring.Value(c).(*Object)
	if !ok {
		return false
	}
	h.ring.SetValue(c, nil)
	h.host.Release(obj)
	obj.cell = ring.Nil
	obj.Data = nil
	h.stats.Releases++
	return true
}

// Grow adds n cells to WHITE outside of a flip.
func (h *Heap) Grow(n int) error {
	if h.closed {
		return ErrClosed
	}
	if err := h.ring.Grow(n); err != nil {
		if errors.Is(err, ring.ErrBadSize) {
			return fmt.Errorf("%w: grow by %d", ErrBadSize, n)
		}
		return fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	h.stats.Growths++
	h.stats.Chunks++
	return nil
}

// Close tears the heap down. With the root set replaced by NoRoots it flips
// twice, which releases every object, then releases any payload still linked
// and frees every chunk. Calling Close twice is a no-op.
func (h *Heap) Close() error {
	if h.closed {
		return nil
	}
	h.roots = NoRoots
	for range 2 {
		if err := h.Flip(); err != nil {
			h.log.Debug("teardown flip could not grow", "err", err)
		}
	}

	r := h.ring
	r.Walk(r.Bottom(), r.Free(), func(c ring.CellID) { h.release(c) })

	h.stats.Cells = r.Cap()
	h.closed = true
	if err := r.Close(); err != nil {
		return fmt.Errorf("treadmill: close: %w", err)
	}
	h.log.Debug("heap closed", "releases", h.stats.Releases, "chunks", h.stats.Chunks)
	return nil
}

// Live returns every object currently allocated, in ring order from Bottom.
func (h *Heap) Live() []*Object {
	if h.closed {
		return nil
	}
	r := h.ring
	var out []*Object
	if r.Coincident() {
		return out
	}
	r.Walk(r.Bottom(), r.Free(), func(c ring.CellID) {
		if obj, ok := r.Value(c).(*Object); ok {
			out = append(out, obj)
		}
	})
	return out
}

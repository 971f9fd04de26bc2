package ring

import (
	"fmt"
	"math"

	"github.com/joshuapare/treadmill/internal/slab"
)

// CellID addresses a cell in the ring arena.
type CellID int32

// Nil is the CellID of no cell.
const Nil CellID = -1

type cell struct {
	next  CellID
	prev  CellID
	value any
	ecru  bool
	data  []byte
}

// Ring is the arena of cells plus the four boundary references.
type Ring struct {
	cells []cell

	bottom CellID
	top    CellID
	scan   CellID
	free   CellID

	objectSize int
	alloc      Allocator
	chunks     []chunk
	closed     bool
}

// Allocator supplies zeroed payload memory for one chunk together with a func
// that releases it. slab.Alloc is the default.
type Allocator func(n int) ([]byte, func() error, error)

// Option customizes a ring at construction.
type Option func(*Ring)

// WithAllocator makes the ring take chunk payload memory from fn.
func WithAllocator(fn Allocator) Option {
	return func(r *Ring) {
		if fn != nil {
			r.alloc = fn
		}
	}
}

// New builds a ring whose first chunk holds size cells, each with objectSize
// bytes of payload memory. All four boundaries are seated at the first cell.
func New(size, objectSize int, opts ...Option) (*Ring, error) {
	if objectSize < 0 {
		return nil, fmt.Errorf("%w: object size %d", ErrBadSize, objectSize)
	}
	r := &Ring{
		bottom:     Nil,
		top:        Nil,
		scan:       Nil,
		free:       Nil,
		objectSize: objectSize,
		alloc:      slab.Alloc,
	}
	for _, opt := range opts {
		opt(r)
	}
	if err := r.Grow(size); err != nil {
		return nil, err
	}
	return r, nil
}

// ObjectSize returns the payload size of every cell.
func (r *Ring) ObjectSize() int { return r.objectSize }

// Bottom returns the first ECRU cell (or the first GREY cell when ECRU is empty).
func (r *Ring) Bottom() CellID { return r.bottom }

// Top returns the first GREY cell.
func (r *Ring) Top() CellID { return r.top }

// Scan returns the first BLACK cell.
func (r *Ring) Scan() CellID { return r.scan }

// Free returns the next cell to be handed out.
func (r *Ring) Free() CellID { return r.free }

// SetBottom collapses or moves the ECRU head. Callers must keep the tiling valid.
func (r *Ring) SetBottom(c CellID) { r.bottom = c }

// Retreat moves Scan one cell toward Top, turning that cell black, and returns it.
// It returns Nil when GREY is empty.
func (r *Ring) Retreat() CellID {
	if r.scan == r.top {
		return Nil
	}
	r.scan = r.cells[r.scan].prev
	return r.scan
}

// AdvanceFree hands out the Free cell and moves Free to its successor.
func (r *Ring) AdvanceFree() CellID {
	c := r.free
	r.free = r.cells[c].next
	return c
}

// Next returns the successor of c.
func (r *Ring) Next(c CellID) CellID { return r.cells[c].next }

// Prev returns the predecessor of c.
func (r *Ring) Prev(c CellID) CellID { return r.cells[c].prev }

// Value returns the payload reference stored in c.
func (r *Ring) Value(c CellID) any { return r.cells[c].value }

// SetValue stores a payload reference in c.
func (r *Ring) SetValue(c CellID, v any) { r.cells[c].value = v }

// Data returns the payload memory owned by c.
func (r *Ring) Data(c CellID) []byte { return r.cells[c].data }

// IsEcru reports whether c carries the ecru tag.
func (r *Ring) IsEcru(c CellID) bool { return r.cells[c].ecru }

// ClearEcru removes the ecru tag from c.
func (r *Ring) ClearEcru(c CellID) { r.cells[c].ecru = false }

// Cap returns the number of cells in the arena.
func (r *Ring) Cap() int { return len(r.cells) }

// Valid reports whether c addresses a cell of this ring.
func (r *Ring) Valid(c CellID) bool { return c >= 0 && int(c) < len(r.cells) }

// Coincident reports whether all four boundaries alias one cell, which is the
// all-WHITE state.
func (r *Ring) Coincident() bool {
	return r.bottom == r.top && r.top == r.scan && r.scan == r.free
}

// Closed reports whether Close has been called.
func (r *Ring) Closed() bool { return r.closed }

func (r *Ring) checkCapacity(n int) error {
	if len(r.cells)+n > math.MaxInt32 {
		return fmt.Errorf("%w: arena would exceed %d cells", ErrOutOfMemory, math.MaxInt32)
	}
	return nil
}

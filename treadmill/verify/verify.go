package verify

import (
	"fmt"

	"github.com/joshuapare/treadmill/treadmill/ring"
)

// ValidationError describes one invariant violation.
type ValidationError struct {
	Type    string
	Message string
	Cell    ring.CellID // offending cell, ring.Nil if not cell-specific
	Details map[string]interface{}
}

func (e *ValidationError) Error() string {
	if e.Cell != ring.Nil {
		return fmt.Sprintf("%s at cell %d: %s", e.Type, e.Cell, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// backLinked is implemented by payloads whose header points at their cell.
type backLinked interface {
	Cell() ring.CellID
}

// All validates every invariant in one call and returns the first failure.
func All(r *ring.Ring) error {
	if err := Links(r); err != nil {
		return err
	}
	if err := Tiling(r); err != nil {
		return err
	}
	if err := Tags(r); err != nil {
		return err
	}
	return Occupancy(r)
}

// Links validates the doubly-linked structure reachable from Top.
func Links(r *ring.Ring) error {
	if r.Closed() {
		return &ValidationError{Type: "Links", Message: "ring is closed", Cell: ring.Nil}
	}
	for name, c := range boundaries(r) {
		if !r.Valid(c) {
			return &ValidationError{
				Type:    "Links",
				Message: fmt.Sprintf("boundary %s out of range", name),
				Cell:    c,
			}
		}
	}

	start := r.Top()
	c := start
	for steps := 0; ; steps++ {
		if steps > r.Cap() {
			return &ValidationError{
				Type:    "Links",
				Message: "ring does not close",
				Cell:    start,
				Details: map[string]interface{}{"cap": r.Cap()},
			}
		}
		next := r.Next(c)
		if !r.Valid(next) {
			return &ValidationError{Type: "Links", Message: "dangling next link", Cell: c}
		}
		if r.Prev(next) != c {
			return &ValidationError{
				Type:    "Links",
				Message: fmt.Sprintf("prev(next) = %d", r.Prev(next)),
				Cell:    c,
				Details: map[string]interface{}{"next": next},
			}
		}
		if c = next; c == start {
			return nil
		}
	}
}

// Tiling validates that the four arcs are contiguous, ordered and cover the ring.
func Tiling(r *ring.Ring) error {
	n := r.Len()
	for name, c := range boundaries(r) {
		if r.Distance(r.Top(), c) < 0 {
			return &ValidationError{
				Type:    "Tiling",
				Message: fmt.Sprintf("boundary %s is not on the ring", name),
				Cell:    c,
			}
		}
	}
	if r.Coincident() {
		return nil
	}
	a := r.Arcs()
	if a.Total() != n {
		return &ValidationError{
			Type:    "Tiling",
			Message: fmt.Sprintf("arcs sum to %d, ring has %d cells", a.Total(), n),
			Cell:    ring.Nil,
			Details: map[string]interface{}{"arcs": a},
		}
	}
	if a.White == 0 {
		return &ValidationError{
			Type:    "Tiling",
			Message: "WHITE is empty",
			Cell:    r.Free(),
			Details: map[string]interface{}{"arcs": a},
		}
	}
	return nil
}

// Tags validates that the ecru tag marks exactly the ECRU arc.
func Tags(r *ring.Ring) error {
	inEcru := make(map[ring.CellID]bool)
	if !r.Coincident() {
		r.Walk(r.Bottom(), r.Top(), func(c ring.CellID) { inEcru[c] = true })
	}
	return each(r, func(c ring.CellID) error {
		if r.IsEcru(c) == inEcru[c] {
			return nil
		}
		return &ValidationError{
			Type:    "Tags",
			Message: fmt.Sprintf("ecru tag %v outside matching arc", r.IsEcru(c)),
			Cell:    c,
		}
	})
}

// Occupancy validates which cells hold objects and that objects link back.
func Occupancy(r *ring.Ring) error {
	allocated := make(map[ring.CellID]bool)
	if !r.Coincident() {
		r.Walk(r.Bottom(), r.Free(), func(c ring.CellID) { allocated[c] = true })
	}
	return each(r, func(c ring.CellID) error {
		v := r.Value(c)
		switch {
		case allocated[c] && v == nil:
			return &ValidationError{Type: "Occupancy", Message: "allocated cell holds no object", Cell: c}
		case !allocated[c] && v != nil:
			return &ValidationError{Type: "Occupancy", Message: "white cell holds an object", Cell: c}
		}
		if bl, ok := v.(backLinked); ok && bl.Cell() != c {
			return &ValidationError{
				Type:    "Occupancy",
				Message: fmt.Sprintf("object header points at cell %d", bl.Cell()),
				Cell:    c,
			}
		}
		return nil
	})
}

func boundaries(r *ring.Ring) map[string]ring.CellID {
	return map[string]ring.CellID{
		"bottom": r.Bottom(),
		"top":    r.Top(),
		"scan":   r.Scan(),
		"free":   r.Free(),
	}
}

func each(r *ring.Ring, fn func(ring.CellID) error) error {
	start := r.Top()
	c := start
	for {
		if err := fn(c); err != nil {
			return err
		}
		if c = r.Next(c); c == start {
			return nil
		}
	}
}

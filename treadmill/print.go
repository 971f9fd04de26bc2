package treadmill

import (
	"fmt"
	"io"

	"github.com/joshuapare/treadmill/treadmill/ring"
)

// Print writes a one-line arc summary:
//
//	[HEAP] (7) (ECRU 3 | GREY 0 | BLACK 1 | WHITE 3)
func (h *Heap) Print(w io.Writer) error {
	a := h.Sizes()
	_, err := fmt.Fprintf(w, "[HEAP] (%d) (ECRU %d | GREY %d | BLACK %d | WHITE %d)\n",
		a.Total(), a.Ecru, a.Grey, a.Black, a.White)
	return err
}

// PrintAll writes the summary followed by one line per cell, starting at Top,
// labelled with the boundaries that alias it.
func (h *Heap) PrintAll(w io.Writer) error {
	if err := h.Print(w); err != nil {
		return err
	}
	if h.closed {
		_, err := fmt.Fprintln(w, "[END HEAP]")
		return err
	}
	r := h.ring
	c := r.Top()
	for {
		line := fmt.Sprintf("* %d", c)
		if r.IsEcru(c) {
			line += " ecru"
		}
		if c == r.Top() {
			line += " (TOP)"
		}
		if c == r.Bottom() {
			line += " (BOTTOM)"
		}
		if c == r.Free() {
			line += " (FREE)"
		}
		if c == r.Scan() {
			line += " (SCAN)"
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
		if c = r.Next(c); c == r.Top() || c == ring.Nil {
			break
		}
	}
	_, err := fmt.Fprintln(w, "[END HEAP]")
	return err
}

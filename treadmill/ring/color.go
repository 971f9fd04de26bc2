package ring

// Unsnap removes c from the ring and repairs its neighbors. Any boundary that
// aliased c advances to c's former successor.
func (r *Ring) Unsnap(c CellID) {
	cells := r.cells
	prev, next := cells[c].prev, cells[c].next

	if r.bottom == c {
		r.bottom = next
	}
	if r.top == c {
		r.top = next
	}
	if r.scan == c {
		r.scan = next
	}
	if r.free == c {
		r.free = next
	}

	cells[prev].next = next
	cells[next].prev = prev
	cells[c].next, cells[c].prev = Nil, Nil
}

// InsertBefore unsnaps c and splices it just before anchor. Every boundary that
// aliased anchor is retargeted to c. It does nothing when c == anchor.
//
// MakeEcru and MakeGrey do not use it: when the arc in front of anchor is empty,
// retargeting would pull a boundary of that arc along with c.
func (r *Ring) InsertBefore(c, anchor CellID) {
	if c == anchor {
		return
	}
	r.Unsnap(c)
	r.link(c, anchor)

	if r.bottom == anchor {
		r.bottom = c
	}
	if r.top == anchor {
		r.top = c
	}
	if r.scan == anchor {
		r.scan = c
	}
	if r.free == anchor {
		r.free = c
	}
}

// link splices a detached cell before anchor without touching any boundary.
func (r *Ring) link(c, anchor CellID) {
	cells := r.cells
	prev := cells[anchor].prev
	cells[prev].next = c
	cells[anchor].prev = c
	cells[c].prev = prev
	cells[c].next = anchor
}

// MakeEcru moves c to the head of ECRU and sets its ecru tag. When c already is
// Bottom it stays in place and only the boundaries still aliasing it step past.
func (r *Ring) MakeEcru(c CellID) {
	if c == r.bottom {
		next := r.cells[c].next
		if r.top == c {
			r.top = next
		}
		if r.scan == c {
			r.scan = next
		}
		if r.free == c {
			r.free = next
		}
	} else {
		r.Unsnap(c)
		anchor := r.bottom
		r.link(c, anchor)
		r.bottom = c
		// An empty WHITE ends where ECRU begins.
		if r.free == anchor {
			r.free = c
		}
	}
	r.cells[c].ecru = true
}

// MakeGrey moves c to the head of GREY and clears its ecru tag. If Scan or Free
// aliased c they advance past it first.
func (r *Ring) MakeGrey(c CellID) {
	r.Unsnap(c)
	anchor := r.top
	r.link(c, anchor)
	r.top = c
	// An empty ECRU ends where GREY begins.
	if r.bottom == anchor {
		r.bottom = c
	}
	r.cells[c].ecru = false
}

// MakeGreyIfEcru promotes c to GREY only when it carries the ecru tag, so
// rediscovering a grey or black cell has no effect. It reports whether c moved.
func (r *Ring) MakeGreyIfEcru(c CellID) bool {
	if !r.cells[c].ecru {
		return false
	}
	r.MakeGrey(c)
	return true
}

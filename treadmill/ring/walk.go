package ring

// Distance counts the steps from a forward to b. It is zero when a == b.
// Distance is O(ring length) and meant for diagnostics.
func (r *Ring) Distance(a, b CellID) int {
	n := 0
	for c := a; c != b; c = r.cells[c].next {
		n++
		if n > len(r.cells) {
			// b is not on a's ring.
			return -1
		}
	}
	return n
}

// Len counts the cells linked into the ring.
func (r *Ring) Len() int {
	if r.top == Nil {
		return 0
	}
	n := 1
	for c := r.cells[r.top].next; c != r.top; c = r.cells[c].next {
		n++
	}
	return n
}

// Walk calls fn for every cell in [from, to). The successor is read before fn
// runs, so fn may relocate the cell it is given.
func (r *Ring) Walk(from, to CellID, fn func(CellID)) {
	for c := from; c != to; {
		next := r.cells[c].next
		fn(c)
		c = next
	}
}

// Arcs holds the length of each colored arc.
type Arcs struct {
	Ecru  int `json:"ecru"`
	Grey  int `json:"grey"`
	Black int `json:"black"`
	White int `json:"white"`
}

// Total returns the sum of the four arc lengths.
func (a Arcs) Total() int { return a.Ecru + a.Grey + a.Black + a.White }

// Arcs measures the four arcs by walking between boundaries.
func (r *Ring) Arcs() Arcs {
	if r.top == Nil {
		return Arcs{}
	}
	if r.Coincident() {
		return Arcs{White: r.Len()}
	}
	return Arcs{
		Ecru:  r.Distance(r.bottom, r.top),
		Grey:  r.Distance(r.top, r.scan),
		Black: r.Distance(r.scan, r.free),
		White: r.Distance(r.free, r.bottom),
	}
}

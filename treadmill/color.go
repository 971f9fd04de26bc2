package treadmill

// Color is an object's arc membership.
type Color uint8

const (
	White Color = iota
	Ecru
	Grey
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Ecru:
		return "ecru"
	case Grey:
		return "grey"
	case Black:
		return "black"
	}
	return "unknown"
}

// Color computes obj's color from its position on the ring. It walks the ring
// and is O(heap size).
func (h *Heap) Color(obj *Object) (Color, error) {
	if h.closed {
		return White, ErrClosed
	}
	if !h.owns(obj) {
		return White, ErrForeignObject
	}
	r := h.ring
	if r.Coincident() {
		return White, nil
	}
	arcs := r.Arcs()
	switch d := r.Distance(r.Bottom(), obj.cell); {
	case d < arcs.Ecru:
		return Ecru, nil
	case d < arcs.Ecru+arcs.Grey:
		return Grey, nil
	case d < arcs.Ecru+arcs.Grey+arcs.Black:
		return Black, nil
	}
	return White, nil
}

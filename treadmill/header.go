package treadmill

import "github.com/joshuapare/treadmill/treadmill/ring"

// Header is the first field of every managed object. It links the object back
// to the ring cell that owns it.
type Header struct {
	cell ring.CellID
}

// Cell returns the ring cell holding the object, or ring.Nil once released.
func (h *Header) Cell() ring.CellID { return h.cell }

// Object is a managed allocation: a header plus ObjectSize bytes of zeroed
// payload. Data is only valid until the object is released.
type Object struct {
	Header
	Data []byte
}

// RootSet is the collector-visible state of the host. Roots must return every
// object the host holds directly; any omitted object is not retained past the
// next flip.
type RootSet interface {
	Roots() []*Object
}

// RootSetFunc adapts a function to RootSet.
type RootSetFunc func() []*Object

// Roots calls f.
func (f RootSetFunc) Roots() []*Object { return f() }

// NoRoots is a RootSet with no roots.
var NoRoots RootSet = RootSetFunc(func() []*Object { return nil })

// Host is the capability the heap uses to reach host code.
type Host interface {
	// Release finalizes obj. It is called exactly once per object.
	Release(obj *Object)

	// ScanPointers calls discover once for every object obj points to.
	ScanPointers(obj *Object, discover func(*Object))
}

// HostFuncs adapts a pair of functions to Host. Nil funcs are no-ops.
type HostFuncs struct {
	ReleaseFunc func(obj *Object)
	ScanFunc    func(obj *Object, discover func(*Object))
}

// Release calls ReleaseFunc.
func (f HostFuncs) Release(obj *Object) {
	if f.ReleaseFunc != nil {
		f.ReleaseFunc(obj)
	}
}

// ScanPointers calls ScanFunc.
func (f HostFuncs) ScanPointers(obj *Object, discover func(*Object)) {
	if f.ScanFunc != nil {
		f.ScanFunc(obj, discover)
	}
}

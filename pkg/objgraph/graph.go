package objgraph

import (
	"fmt"
	"slices"

	"github.com/joshuapare/treadmill/internal/buf"
	"github.com/joshuapare/treadmill/treadmill"
)

const (
	idOffset       = 0
	countOffset    = 4
	childrenOffset = 8
	idSize         = 4
)

// Graph owns a heap and acts as its host and root set.
type Graph struct {
	heap *treadmill.Heap

	names  map[string]uint32
	byID   map[uint32]*treadmill.Object
	roots  map[uint32]int // id -> root count
	nextID uint32

	released map[uint32]int
	onFree   func(id uint32)
	heapOpts []treadmill.Option
}

// Option customizes a Graph.
type Option func(*Graph)

// OnRelease registers fn to be called with the id of every reclaimed object.
func OnRelease(fn func(id uint32)) Option {
	return func(g *Graph) { g.onFree = fn }
}

// WithHeapOptions passes opts through to treadmill.New.
func WithHeapOptions(opts ...treadmill.Option) Option {
	return func(g *Graph) { g.heapOpts = append(g.heapOpts, opts...) }
}

// New builds a graph over a fresh heap.
func New(cfg treadmill.Config, opts ...Option) (*Graph, error) {
	if cfg.ObjectSize < childrenOffset {
		return nil, fmt.Errorf("%w: got %d", ErrPayloadTooSmall, cfg.ObjectSize)
	}
	g := &Graph{
		names:    make(map[string]uint32),
		byID:     make(map[uint32]*treadmill.Object),
		roots:    make(map[uint32]int),
		released: make(map[uint32]int),
		nextID:   1,
	}
	for _, opt := range opts {
		opt(g)
	}
	h, err := treadmill.New(g, g, cfg, g.heapOpts...)
	if err != nil {
		return nil, err
	}
	g.heap = h
	return g, nil
}

// Heap returns the underlying heap.
func (g *Graph) Heap() *treadmill.Heap { return g.heap }

// MaxChildren returns how many children one payload can hold.
func (g *Graph) MaxChildren() int {
	return (g.heap.Config().ObjectSize - childrenOffset) / idSize
}

// Roots implements treadmill.RootSet. Roots are returned in id order.
func (g *Graph) Roots() []*treadmill.Object {
	ids := make([]uint32, 0, len(g.roots))
	for id := range g.roots {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]*treadmill.Object, 0, len(ids))
	for _, id := range ids {
		if obj, ok := g.byID[id]; ok {
			out = append(out, obj)
		}
	}
	return out
}

// Release implements treadmill.Host.
func (g *Graph) Release(obj *treadmill.Object) {
	id := buf.U32At(obj.Data, idOffset)
	g.released[id]++
	delete(g.byID, id)
	delete(g.roots, id)
	if g.onFree != nil {
		g.onFree(id)
	}
}

// ScanPointers implements treadmill.Host.
func (g *Graph) ScanPointers(obj *treadmill.Object, discover func(*treadmill.Object)) {
	for _, id := range children(obj.Data) {
		if child, ok := g.byID[id]; ok {
			discover(child)
		}
	}
}

// Alloc allocates a new object under name.
func (g *Graph) Alloc(name string) error {
	if _, ok := g.names[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	obj, err := g.heap.Allocate()
	if err != nil {
		return fmt.Errorf("alloc %q: %w", name, err)
	}
	id := g.nextID
	g.nextID++
	buf.PutU32At(obj.Data, idOffset, id)

	g.names[name] = id
	g.byID[id] = obj
	return nil
}

// Get returns the live object named name.
func (g *Graph) Get(name string) (*treadmill.Object, error) {
	id, ok := g.names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObject, name)
	}
	obj, ok := g.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrReleased, name)
	}
	return obj, nil
}

// ID returns the id assigned to name, whether or not it is still live.
func (g *Graph) ID(name string) (uint32, bool) {
	id, ok := g.names[name]
	return id, ok
}

// Link stores a reference to child in parent's payload.
func (g *Graph) Link(parent, child string) error {
	p, err := g.Get(parent)
	if err != nil {
		return err
	}
	c, err := g.Get(child)
	if err != nil {
		return err
	}
	count := int(buf.U32At(p.Data, countOffset))
	if count >= g.MaxChildren() {
		return fmt.Errorf("%w: %q has %d children", ErrTooManyChildren, parent, count)
	}
	buf.PutU32At(p.Data, childrenOffset+count*idSize, buf.U32At(c.Data, idOffset))
	buf.PutU32At(p.Data, countOffset, uint32(count+1))
	g.heap.Shade(c)
	return nil
}

// Unlink removes one reference to child from parent's payload.
func (g *Graph) Unlink(parent, child string) error {
	p, err := g.Get(parent)
	if err != nil {
		return err
	}
	cid, ok := g.names[child]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownObject, child)
	}
	i := slices.Index(children(p.Data), cid)
	if i < 0 {
		return fmt.Errorf("%w: %q is not a child of %q", ErrUnknownObject, child, parent)
	}
	removeChild(p, i)
	return nil
}

// UnlinkAt removes the i'th reference in parent's payload. It works even when
// the child's handle has been dropped.
func (g *Graph) UnlinkAt(parent string, i int) error {
	p, err := g.Get(parent)
	if err != nil {
		return err
	}
	if n := int(buf.U32At(p.Data, countOffset)); i < 0 || i >= n {
		return fmt.Errorf("%w: child %d of %q (has %d)", ErrUnknownObject, i, parent, n)
	}
	removeChild(p, i)
	return nil
}

func removeChild(p *treadmill.Object, i int) {
	kids := slices.Delete(children(p.Data), i, i+1)
	for j, id := range kids {
		buf.PutU32At(p.Data, childrenOffset+j*idSize, id)
	}
	buf.PutU32At(p.Data, childrenOffset+len(kids)*idSize, 0)
	buf.PutU32At(p.Data, countOffset, uint32(len(kids)))
}

// Children returns the names of name's children, in link order.
func (g *Graph) Children(name string) ([]string, error) {
	obj, err := g.Get(name)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint32]string, len(g.names))
	for n, id := range g.names {
		byID[id] = n
	}
	var out []string
	for _, id := range children(obj.Data) {
		out = append(out, byID[id])
	}
	return out, nil
}

// Root adds name to the root set. Roots nest: each Root needs an Unroot.
func (g *Graph) Root(name string) error {
	obj, err := g.Get(name)
	if err != nil {
		return err
	}
	g.roots[g.names[name]]++
	g.heap.Shade(obj)
	return nil
}

// Unroot removes one root reference to name.
func (g *Graph) Unroot(name string) error {
	id, ok := g.names[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownObject, name)
	}
	if g.roots[id] <= 1 {
		delete(g.roots, id)
		return nil
	}
	g.roots[id]--
	return nil
}

// Drop forgets the handle name. The object itself stays until unreachable.
func (g *Graph) Drop(name string) error {
	if _, ok := g.names[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownObject, name)
	}
	delete(g.names, name)
	return nil
}

// Names returns every known handle, sorted.
func (g *Graph) Names() []string {
	out := make([]string, 0, len(g.names))
	for n := range g.names {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Live reports whether name's object has not been reclaimed.
func (g *Graph) Live(name string) bool {
	_, err := g.Get(name)
	return err == nil
}

// Released returns how many times each id has been released.
func (g *Graph) Released() map[uint32]int {
	out := make(map[uint32]int, len(g.released))
	for id, n := range g.released {
		out[id] = n
	}
	return out
}

// DoubleReleases returns the ids released more than once, sorted.
func (g *Graph) DoubleReleases() []uint32 {
	var out []uint32
	for id, n := range g.released {
		if n > 1 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Reachable returns the ids reachable from the root set, following payloads.
func (g *Graph) Reachable() map[uint32]bool {
	seen := make(map[uint32]bool)
	var stack []uint32
	for id := range g.roots {
		if _, ok := g.byID[id]; ok {
			stack = append(stack, id)
		}
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		obj, ok := g.byID[id]
		if !ok {
			continue
		}
		for _, kid := range children(obj.Data) {
			if !seen[kid] {
				stack = append(stack, kid)
			}
		}
	}
	return seen
}

// Close tears down the heap, releasing every object.
func (g *Graph) Close() error {
	return g.heap.Close()
}

func children(data []byte) []uint32 {
	count := int(buf.U32At(data, countOffset))
	if _, err := buf.CheckListBounds(len(data), childrenOffset, count, idSize); err != nil {
		return nil
	}
	out := make([]uint32, count)
	for i := range out {
		out[i] = buf.U32At(data, childrenOffset+i*idSize)
	}
	return out
}

package treadmill

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/treadmill/treadmill/verify"
)

// testHost is an in-memory pointer graph with a root list.
type testHost struct {
	edges    map[*Object][]*Object
	roots    []*Object
	released map[*Object]int
	order    []*Object
}

func newTestHost() *testHost {
	return &testHost{
		edges:    make(map[*Object][]*Object),
		released: make(map[*Object]int),
	}
}

func (th *testHost) Roots() []*Object { return th.roots }

func (th *testHost) Release(obj *Object) {
	th.released[obj]++
	th.order = append(th.order, obj)
	delete(th.edges, obj)
}

func (th *testHost) ScanPointers(obj *Object, discover func(*Object)) {
	for _, child := range th.edges[obj] {
		discover(child)
	}
}

func (th *testHost) link(parent, child *Object) {
	th.edges[parent] = append(th.edges[parent], child)
}

func (th *testHost) unlink(parent, child *Object) {
	kids := th.edges[parent]
	for i, k := range kids {
		if k == child {
			th.edges[parent] = append(kids[:i], kids[i+1:]...)
			return
		}
	}
}

func newTestHeap(t *testing.T, th *testHost, cfg Config, opts ...Option) *Heap {
	t.Helper()
	h, err := New(th, th, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, h.Close()) })
	return h
}

func cfg(size, growth, scanEvery int) Config {
	return Config{InitialSize: size, GrowthRate: growth, ScanEvery: scanEvery, ObjectSize: 16}
}

func mustAlloc(t *testing.T, h *Heap) *Object {
	t.Helper()
	obj, err := h.Allocate()
	require.NoError(t, err)
	return obj
}

func requireValid(t *testing.T, h *Heap) {
	t.Helper()
	require.NoError(t, verify.All(h.Ring()))
}

func requireColor(t *testing.T, h *Heap, obj *Object, want Color) {
	t.Helper()
	got, err := h.Color(obj)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

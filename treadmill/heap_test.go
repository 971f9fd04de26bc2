package treadmill

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/treadmill/treadmill/ring"
)

func TestHeap_New(t *testing.T) {
	h := newTestHeap(t, newTestHost(), cfg(10, 10, 5))

	assert.Equal(t, 11, h.Size())
	assert.Equal(t, ring.Arcs{White: 11}, h.Sizes())
	assert.Equal(t, 11, h.WhiteSize())
	assert.False(t, h.Warm())
	requireValid(t, h)
}

func TestHeap_NewRejectsInvalidConfig(t *testing.T) {
	th := newTestHost()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero initial size", cfg(0, 1, 1)},
		{"negative initial size", cfg(-4, 1, 1)},
		{"zero growth", cfg(4, 0, 1)},
		{"zero scan every", cfg(4, 1, 0)},
		{"negative object size", Config{InitialSize: 4, GrowthRate: 1, ScanEvery: 1, ObjectSize: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(th, th, tt.cfg)
			require.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := New(nil, th, cfg(4, 1, 1))
	require.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New(th, nil, cfg(4, 1, 1))
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestHeap_DefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestHeap_AllocateGrowsBlack(t *testing.T) {
	h := newTestHeap(t, newTestHost(), cfg(10, 10, 100))

	for k := 1; k <= 6; k++ {
		obj := mustAlloc(t, h)
		assert.Len(t, obj.Data, 16)
		requireColor(t, h, obj, Black)
		assert.Equal(t, ring.Arcs{Black: k, White: 11 - k}, h.Sizes())
	}
	assert.True(t, h.Warm())
	assert.Equal(t, 6, h.Stats().Allocations)
	requireValid(t, h)
}

func TestHeap_AllocateLinksHeaderAndCell(t *testing.T) {
	h := newTestHeap(t, newTestHost(), cfg(4, 4, 100))
	obj := mustAlloc(t, h)

	require.NotEqual(t, ring.Nil, obj.Cell())
	assert.Same(t, obj, h.Ring().Value(obj.Cell()))
}

func TestHeap_FlipEmpty(t *testing.T) {
	h := newTestHeap(t, newTestHost(), cfg(5, 7, 100))

	require.NoError(t, h.Flip())

	assert.Equal(t, ring.Arcs{White: 13}, h.Sizes())
	assert.Equal(t, 1, h.Stats().Flips)
	assert.Equal(t, 2, h.Stats().Chunks)
	requireValid(t, h)
}

// TestHeap_FourthAllocationFlips: size 3, growth 3, scan every 3; the fourth
// allocation finds WHITE exhausted and flips.
func TestHeap_FourthAllocationFlips(t *testing.T) {
	th := newTestHost()
	h := newTestHeap(t, th, cfg(3, 3, 3))

	for range 3 {
		mustAlloc(t, h)
	}
	require.Equal(t, ring.Arcs{Black: 3, White: 1}, h.Sizes())

	mustAlloc(t, h)

	assert.Equal(t, ring.Arcs{Ecru: 3, Grey: 0, Black: 1, White: 3}, h.Sizes())
	assert.Equal(t, 7, h.Size())
	assert.Equal(t, 1, h.Stats().ForcedFlips)
	assert.Empty(t, th.order)
	requireValid(t, h)
}

func TestHeap_CloseFreshHeapReleasesNothing(t *testing.T) {
	th := newTestHost()
	h, err := New(th, th, cfg(10, 10, 5))
	require.NoError(t, err)

	require.NoError(t, h.Close())
	assert.Empty(t, th.order)
	assert.True(t, h.Closed())
	require.NoError(t, h.Close(), "second close is a no-op")
}

func TestHeap_CloseReleasesEveryObjectOnce(t *testing.T) {
	th := newTestHost()
	h, err := New(th, th, cfg(4, 4, 2))
	require.NoError(t, err)

	var objs []*Object
	for range 20 {
		objs = append(objs, mustAlloc(t, h))
	}
	th.roots = objs[:3]
	th.link(objs[0], objs[5])

	require.NoError(t, h.Close())

	require.Len(t, th.released, 20)
	for _, obj := range objs {
		assert.Equal(t, 1, th.released[obj])
		assert.Equal(t, ring.Nil, obj.Cell())
		assert.Nil(t, obj.Data)
	}
}

func TestHeap_UseAfterClose(t *testing.T) {
	th := newTestHost()
	h, err := New(th, th, cfg(4, 4, 2))
	require.NoError(t, err)
	require.NoError(t, h.Close())

	_, err = h.Allocate()
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, h.Flip(), ErrClosed)
	require.ErrorIs(t, h.Grow(3), ErrClosed)
	assert.False(t, h.Scan())
	assert.Equal(t, 0, h.Size())
	assert.Nil(t, h.Live())
}

func TestHeap_UnreachableReleasedOnceAfterTwoFlips(t *testing.T) {
	th := newTestHost()
	h := newTestHeap(t, th, cfg(8, 8, 100))

	garbage := mustAlloc(t, h)

	require.NoError(t, h.Flip())
	requireColor(t, h, garbage, Ecru)
	assert.Zero(t, th.released[garbage], "born black, survives its first flip")

	require.NoError(t, h.Flip())
	assert.Equal(t, 1, th.released[garbage])

	for range 3 {
		require.NoError(t, h.Flip())
	}
	assert.Equal(t, 1, th.released[garbage], "never released twice")
	requireValid(t, h)
}

func TestHeap_RootedCycleSurvives(t *testing.T) {
	th := newTestHost()
	h := newTestHeap(t, th, cfg(6, 6, 2))

	a := mustAlloc(t, h)
	b := mustAlloc(t, h)
	th.link(a, b)
	th.link(b, a)
	th.roots = []*Object{a}

	for i := range 25 {
		require.NoError(t, h.Flip(), "flip %d", i)
		// Churn garbage between flips.
		mustAlloc(t, h)
		requireValid(t, h)
	}
	assert.Zero(t, th.released[a])
	assert.Zero(t, th.released[b])
	assert.Contains(t, h.Live(), a)
	assert.Contains(t, h.Live(), b)
}

func TestHeap_RootScanDiscoversChild(t *testing.T) {
	th := newTestHost()
	h := newTestHeap(t, th, cfg(8, 8, 100))

	root := mustAlloc(t, h)
	th.roots = []*Object{root}
	child := mustAlloc(t, h)
	th.link(root, child)

	require.NoError(t, h.Flip())
	requireColor(t, h, root, Grey)
	requireColor(t, h, child, Ecru)

	require.True(t, h.Scan())
	requireColor(t, h, root, Black)
	requireColor(t, h, child, Grey)

	assert.Equal(t, 1, h.Drain())
	requireColor(t, h, child, Black)

	require.NoError(t, h.Flip())
	assert.Zero(t, th.released[child])
	requireValid(t, h)
}

func TestHeap_ScanOnEmptyGreyIsNoop(t *testing.T) {
	h := newTestHeap(t, newTestHost(), cfg(4, 4, 100))
	mustAlloc(t, h)
	before := h.Sizes()

	assert.False(t, h.Scan())
	assert.Equal(t, before, h.Sizes())
	assert.Zero(t, h.Stats().Scans)
}

func TestHeap_SharedChildDiscoveredOnce(t *testing.T) {
	th := newTestHost()
	h := newTestHeap(t, th, cfg(8, 8, 100))

	a := mustAlloc(t, h)
	b := mustAlloc(t, h)
	shared := mustAlloc(t, h)
	th.link(a, shared)
	th.link(b, shared)
	th.link(shared, shared)
	th.roots = []*Object{a, b}

	require.NoError(t, h.Flip())
	assert.Equal(t, 3, h.Drain())
	assert.Equal(t, ring.Arcs{Black: 3, White: h.Size() - 3}, h.Sizes())
	requireValid(t, h)
}

func TestHeap_ShadeProtectsMovedPointer(t *testing.T) {
	run := func(t *testing.T, barrier bool) *testHost {
		th := newTestHost()
		h := newTestHeap(t, th, cfg(8, 8, 100))

		x := mustAlloc(t, h)
		z := mustAlloc(t, h)
		y := mustAlloc(t, h)
		th.link(z, y)
		th.roots = []*Object{x, z}

		require.NoError(t, h.Flip())
		require.True(t, h.Scan())
		requireColor(t, h, x, Black)

		// Move the only reference to y from the unscanned z into the scanned x.
		th.link(x, y)
		if barrier {
			assert.True(t, h.Shade(y))
		}
		th.unlink(z, y)

		require.NoError(t, h.Flip())
		return th
	}

	t.Run("without barrier", func(t *testing.T) {
		th := run(t, false)
		assert.Len(t, th.order, 1, "y is lost")
	})
	t.Run("with barrier", func(t *testing.T) {
		th := run(t, true)
		assert.Empty(t, th.order)
	})
}

func TestHeap_ShadeIgnoresForeignObjects(t *testing.T) {
	h := newTestHeap(t, newTestHost(), cfg(4, 4, 100))
	assert.False(t, h.Shade(nil))
	assert.False(t, h.Shade(&Object{Header: Header{cell: 2}}))

	_, err := h.Color(&Object{Header: Header{cell: 2}})
	require.ErrorIs(t, err, ErrForeignObject)
}

func TestHeap_ThrottlePacing(t *testing.T) {
	h := newTestHeap(t, newTestHost(), cfg(20, 20, 3))
	for range 10 {
		mustAlloc(t, h)
	}
	// Steps are injected before allocations 4, 7 and 10.
	assert.Equal(t, 3, h.Stats().ThrottledScans)
	assert.Zero(t, h.Stats().Scans, "grey was empty")
}

func TestHeap_ThrottleNever(t *testing.T) {
	h := newTestHeap(t, newTestHost(), cfg(20, 20, 1), WithThrottle(Never{}))
	for range 10 {
		mustAlloc(t, h)
	}
	assert.Zero(t, h.Stats().ThrottledScans)
}

func TestHeap_ThrottledScanMarksIncrementally(t *testing.T) {
	th := newTestHost()
	h := newTestHeap(t, th, cfg(10, 10, 1))

	var chain []*Object
	for range 4 {
		chain = append(chain, mustAlloc(t, h))
	}
	for i := range 3 {
		th.link(chain[i], chain[i+1])
	}
	th.roots = chain[:1]
	require.NoError(t, h.Flip())
	require.Equal(t, 1, h.GreySize())

	// Each allocation injects one scan step and moves one link down the chain.
	for i := range 4 {
		mustAlloc(t, h)
		requireColor(t, h, chain[i], Black)
	}
	assert.Zero(t, h.GreySize())
	assert.Zero(t, h.EcruSize())
}

func TestHeap_EveryN(t *testing.T) {
	assert.False(t, EveryN(3).Due(2))
	assert.True(t, EveryN(3).Due(3))
	assert.False(t, EveryN(0).Due(10))
}

func TestHeap_Grow(t *testing.T) {
	h := newTestHeap(t, newTestHost(), cfg(4, 4, 100))
	require.NoError(t, h.Grow(6))
	assert.Equal(t, 11, h.WhiteSize())

	require.ErrorIs(t, h.Grow(0), ErrBadSize)
	assert.Equal(t, 11, h.Size())
}

func TestHeap_ReusedCellsAreZeroed(t *testing.T) {
	th := newTestHost()
	h := newTestHeap(t, th, cfg(2, 1, 100))

	seen := map[ring.CellID]bool{}
	reused := false
	for range 30 {
		obj := mustAlloc(t, h)
		for i, b := range obj.Data {
			require.Zerof(t, b, "byte %d of cell %d", i, obj.Cell())
		}
		for i := range obj.Data {
			obj.Data[i] = 0xFF
		}
		reused = reused || seen[obj.Cell()]
		seen[obj.Cell()] = true
	}
	assert.True(t, reused, "expected cells to be recycled")
	assert.NotEmpty(t, th.order)
}

func TestHeap_ReleaseCallbackSeesPayload(t *testing.T) {
	var got []byte
	host := HostFuncs{ReleaseFunc: func(obj *Object) { got = append([]byte(nil), obj.Data...) }}
	h, err := New(NoRoots, host, cfg(4, 4, 100))
	require.NoError(t, err)

	obj := mustAlloc(t, h)
	copy(obj.Data, "payload")
	require.NoError(t, h.Close())

	assert.Equal(t, "payload", string(got[:7]))
}

func TestHeap_Print(t *testing.T) {
	h := newTestHeap(t, newTestHost(), cfg(3, 3, 3))
	for range 4 {
		mustAlloc(t, h)
	}

	var out bytes.Buffer
	require.NoError(t, h.Print(&out))
	assert.Equal(t, "[HEAP] (7) (ECRU 3 | GREY 0 | BLACK 1 | WHITE 3)\n", out.String())

	out.Reset()
	require.NoError(t, h.PrintAll(&out))
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	assert.Len(t, lines, 1+7+1)
	assert.Contains(t, out.String(), "(TOP)")
	assert.Contains(t, out.String(), "(BOTTOM)")
	assert.Contains(t, out.String(), "ecru")
}

func TestHeap_ErrorClasses(t *testing.T) {
	oom := fmt.Errorf("%w: flip growth: %w", ErrOutOfMemory, ring.ErrOutOfMemory)
	assert.True(t, IsRetryable(oom))
	assert.False(t, IsFatal(oom))

	assert.True(t, IsFatal(ErrHeapExhausted))
	assert.False(t, IsRetryable(ErrHeapExhausted))

	assert.False(t, IsFatal(ErrClosed))
	assert.False(t, IsRetryable(ErrClosed))
	assert.False(t, IsFatal(nil))
	assert.False(t, IsRetryable(nil))
}

func TestColor_String(t *testing.T) {
	assert.Equal(t, "white", White.String())
	assert.Equal(t, "ecru", Ecru.String())
	assert.Equal(t, "grey", Grey.String())
	assert.Equal(t, "black", Black.String())
	assert.Equal(t, "unknown", Color(9).String())
}

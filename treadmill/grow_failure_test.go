package treadmill

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/treadmill/internal/logger"
	"github.com/joshuapare/treadmill/treadmill/ring"
)

// memSource hands out chunk memory until refuse is set.
type memSource struct {
	refuse bool
	calls  int
}

func (m *memSource) alloc(n int) ([]byte, func() error, error) {
	m.calls++
	if m.refuse {
		return nil, nil, errors.New("mapping refused")
	}
	return make([]byte, n), func() error { return nil }, nil
}

func TestHeap_NewChunkAllocatorFailure(t *testing.T) {
	src := &memSource{refuse: true}
	th := newTestHost()
	_, err := New(th, th, cfg(4, 4, 5), WithChunkAllocator(src.alloc))
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.True(t, IsRetryable(err))
	assert.Equal(t, 1, src.calls)
}

func TestHeap_FlipRecolorsAndReseedsWhenGrowthFails(t *testing.T) {
	src := &memSource{}
	th := newTestHost()
	h := newTestHeap(t, th, cfg(4, 4, 100), WithChunkAllocator(src.alloc))

	a, b, c := mustAlloc(t, h), mustAlloc(t, h), mustAlloc(t, h)
	th.link(a, b)
	th.roots = []*Object{a}
	src.refuse = true

	err := h.Flip()
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsFatal(err))

	requireValid(t, h)
	assert.Equal(t, ring.Arcs{Ecru: 2, Grey: 1, White: 2}, h.Sizes())
	requireColor(t, h, a, Grey)
	requireColor(t, h, b, Ecru)
	requireColor(t, h, c, Ecru)
	st := h.Stats()
	assert.Equal(t, 1, st.Flips)
	assert.Zero(t, st.Growths)
	assert.Equal(t, 1, st.Chunks)

	assert.Equal(t, 2, h.Drain())
	require.ErrorIs(t, h.Flip(), ErrOutOfMemory)

	requireValid(t, h)
	assert.Equal(t, ring.Arcs{Ecru: 1, Grey: 1, White: 3}, h.Sizes())
	assert.Equal(t, 1, th.released[c])
	assert.Zero(t, th.released[a])
	assert.Zero(t, th.released[b])
	assert.Equal(t, 5, h.Size())
}

func TestHeap_AllocateRetryableAfterGrowthFailure(t *testing.T) {
	src := &memSource{}
	th := newTestHost()
	h := newTestHeap(t, th, cfg(2, 2, 100), WithChunkAllocator(src.alloc))

	a, b := mustAlloc(t, h), mustAlloc(t, h)
	th.roots = []*Object{a}
	src.refuse = true

	// WHITE is down to its spare cell and the flip reclaims nothing.
	obj, err := h.Allocate()
	require.Nil(t, obj)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.True(t, IsRetryable(err))
	assert.False(t, IsFatal(err))
	assert.Contains(t, err.Error(), "mapping refused")

	requireValid(t, h)
	assert.Equal(t, ring.Arcs{Ecru: 1, Grey: 1, White: 1}, h.Sizes())
	requireColor(t, h, a, Grey)
	requireColor(t, h, b, Ecru)
	st := h.Stats()
	assert.Equal(t, 2, st.Allocations)
	assert.Equal(t, 1, st.ForcedFlips)

	// Once memory is back the host grows and retries.
	src.refuse = false
	require.NoError(t, h.Grow(4))
	c := mustAlloc(t, h)
	requireColor(t, h, c, Black)
	requireValid(t, h)
}

func TestHeap_AllocateSucceedsWhenReclaimFreesRoom(t *testing.T) {
	src := &memSource{}
	th := newTestHost()
	var logs bytes.Buffer
	h := newTestHeap(t, th, cfg(2, 2, 100),
		WithChunkAllocator(src.alloc),
		WithLogger(logger.New(logger.Options{Enabled: true, Output: &logs})))

	a, b := mustAlloc(t, h), mustAlloc(t, h)
	th.roots = []*Object{a}
	src.refuse = true

	_, err := h.Allocate()
	require.True(t, IsRetryable(err))

	// The second forced flip reclaims b, which was left ECRU by the first.
	c, err := h.Allocate()
	require.NoError(t, err)
	require.NotNil(t, c)

	requireValid(t, h)
	assert.Equal(t, 1, th.released[b])
	assert.Zero(t, th.released[a])
	requireColor(t, h, a, Grey)
	requireColor(t, h, c, Black)
	assert.Equal(t, ring.Arcs{Grey: 1, Black: 1, White: 1}, h.Sizes())

	st := h.Stats()
	assert.Equal(t, 2, st.Flips)
	assert.Equal(t, 2, st.ForcedFlips)
	assert.Zero(t, st.Growths)
	assert.Equal(t, 1, st.Releases)

	assert.Contains(t, logs.String(), "flip could not grow heap")
	assert.Contains(t, logs.String(), "mapping refused")
}

func TestHeap_GrowthAlwaysResolvesExhaustion(t *testing.T) {
	th := newTestHost()
	h := newTestHeap(t, th, cfg(1, 1, 1))

	for range 50 {
		obj, err := h.Allocate()
		require.NoError(t, err)
		require.False(t, IsFatal(err))
		th.roots = append(th.roots, obj)
	}
	requireValid(t, h)
	assert.Positive(t, h.Stats().ForcedFlips)
	assert.Empty(t, th.released)
	assert.GreaterOrEqual(t, h.Size(), 51)
}

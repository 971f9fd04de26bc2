package ring

import (
	"errors"
	"fmt"
)

type chunk struct {
	base    CellID
	n       int
	bytes   int
	release func() error
}

// ChunkInfo describes one registered chunk.
type ChunkInfo struct {
	Base  CellID // first cell of the chunk
	Len   int    // number of cells
	Bytes int    // payload bytes mapped for the chunk
}

// Chain is an open run of freshly allocated cells, linked head to tail.
type Chain struct {
	Head CellID
	Tail CellID
}

// NewChunk allocates size contiguous cells, links them into an open chain and
// registers the chunk for release by Close. The chain is not yet part of the ring.
func (r *Ring) NewChunk(size int) (Chain, error) {
	if r.closed {
		return Chain{}, ErrClosed
	}
	if size < 1 {
		return Chain{}, fmt.Errorf("%w: got %d", ErrBadSize, size)
	}
	if err := r.checkCapacity(size); err != nil {
		return Chain{}, err
	}

	mem, release, err := r.alloc(size * r.objectSize)
	if err != nil {
		return Chain{}, fmt.Errorf("%w: chunk of %d cells: %w", ErrOutOfMemory, size, err)
	}

	base := CellID(len(r.cells))
	for i := range size {
		id := base + CellID(i)
		c := cell{next: id + 1, prev: id - 1}
		if r.objectSize > 0 {
			off := i * r.objectSize
			c.data = mem[off : off+r.objectSize : off+r.objectSize]
		}
		r.cells = append(r.cells, c)
	}
	tail := base + CellID(size-1)
	r.cells[base].prev = Nil
	r.cells[tail].next = Nil

	r.chunks = append(r.chunks, chunk{base: base, n: size, bytes: len(mem), release: release})
	return Chain{Head: base, Tail: tail}, nil
}

// Grow allocates a chunk of size cells and splices it immediately before Free,
// extending WHITE. The first chunk of an empty ring is closed into a circle with
// all four boundaries seated at its head.
func (r *Ring) Grow(size int) error {
	ch, err := r.NewChunk(size)
	if err != nil {
		return err
	}
	r.splice(ch)
	return nil
}

func (r *Ring) splice(ch Chain) {
	if r.free == Nil {
		r.cells[ch.Tail].next = ch.Head
		r.cells[ch.Head].prev = ch.Tail
		r.bottom, r.top, r.scan, r.free = ch.Head, ch.Head, ch.Head, ch.Head
		return
	}

	at := r.free
	before := r.cells[at].prev

	r.cells[at].prev = ch.Tail
	r.cells[ch.Tail].next = at
	r.cells[before].next = ch.Head
	r.cells[ch.Head].prev = before

	if r.bottom == at {
		r.bottom = ch.Head
	}
	if r.top == at {
		r.top = ch.Head
	}
	if r.scan == at {
		r.scan = ch.Head
	}
	r.free = ch.Head
}

// Chunks returns the chunk registry in allocation order.
func (r *Ring) Chunks() []ChunkInfo {
	out := make([]ChunkInfo, len(r.chunks))
	for i, c := range r.chunks {
		out[i] = ChunkInfo{Base: c.base, Len: c.n, Bytes: c.bytes}
	}
	return out
}

// Close releases every chunk's payload memory and drops the arena. Payload views
// handed out by Data are invalid afterwards. Calling Close twice is a no-op.
func (r *Ring) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	for _, c := range r.chunks {
		if err := c.release(); err != nil {
			errs = append(errs, fmt.Errorf("release chunk at cell %d: %w", c.base, err))
		}
	}
	r.chunks = nil
	r.cells = nil
	r.bottom, r.top, r.scan, r.free = Nil, Nil, Nil, Nil
	return errors.Join(errs...)
}

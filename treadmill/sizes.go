package treadmill

import "github.com/joshuapare/treadmill/treadmill/ring"

// Sizes measures the four arcs. It walks the ring and is O(heap size).
func (h *Heap) Sizes() ring.Arcs {
	if h.closed {
		return ring.Arcs{}
	}
	return h.ring.Arcs()
}

// Size returns the number of cells in the ring.
func (h *Heap) Size() int {
	if h.closed {
		return 0
	}
	return h.ring.Len()
}

// WhiteSize returns the number of unallocated cells.
func (h *Heap) WhiteSize() int { return h.Sizes().White }

// EcruSize returns the number of objects not yet proven reachable this cycle.
func (h *Heap) EcruSize() int { return h.Sizes().Ecru }

// GreySize returns the number of reachable objects awaiting a scan.
func (h *Heap) GreySize() int { return h.Sizes().Grey }

// BlackSize returns the number of reachable, scanned objects.
func (h *Heap) BlackSize() int { return h.Sizes().Black }

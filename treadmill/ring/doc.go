// Package ring implements the cell ring underlying the treadmill collector.
//
// # Overview
//
// The ring is a circular doubly-linked list of fixed-size cells, partitioned into
// four contiguous arcs by four movable boundary references:
//
//	-(bottom)- ECRU -(top)- GREY -(scan)- BLACK -(free)- WHITE -(bottom)-
//
// so that ECRU=[Bottom,Top), GREY=[Top,Scan), BLACK=[Scan,Free) and
// WHITE=[Free,Bottom). Arcs may be empty when two boundaries coincide. When all
// four boundaries coincide the whole ring is WHITE.
//
// # Cells
//
// Cells live in an arena and are addressed by stable CellID indices. Links and
// boundaries are indices, so splicing and unsnapping are index rewrites. Cells
// are created in bulk, one chunk at a time, and are never individually freed: a
// cell's slot is recycled until the ring is closed.
//
// Every cell owns a view of its chunk's payload slab (ObjectSize bytes). The slab
// is mapped once per chunk and released once per chunk by Close.
//
// # Color Transitions
//
// Color is positional: a cell's color is the arc it currently sits in. The
// primitives below are the only operations that rewrite links:
//
//   - Unsnap(c): remove c, advancing any boundary that aliased it
//   - InsertBefore(c, anchor): splice c before anchor, retargeting anchor's aliases
//   - MakeEcru(c): move c to the head of ECRU
//   - MakeGrey(c): move c to the head of GREY
//   - MakeGreyIfEcru(c): MakeGrey only when c carries the ecru tag
//
// The ecru tag is a fast-path marker kept in step with ECRU membership by
// MakeEcru, MakeGrey and ClearEcru.
//
// # Thread Safety
//
// A Ring is not safe for concurrent use.
package ring

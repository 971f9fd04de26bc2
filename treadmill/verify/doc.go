// Package verify checks the structural invariants of a treadmill ring.
//
// # Overview
//
// These checks walk the whole ring and are meant for tests, fuzzing and the
// tmctl tool, not for hot paths.
//
// Validation categories:
//   - Links: every cell's successor points back at it and the ring closes
//   - Tiling: the four boundaries lie on the ring, in order, and the arc
//     lengths sum to the ring length
//   - Tags: a cell carries the ecru tag exactly when it sits in ECRU
//   - Occupancy: ECRU, GREY and BLACK cells hold an object, WHITE cells do not,
//     and each object's header links back to its cell
//
// # Quick Start
//
//	if err := verify.All(h.Ring()); err != nil {
//	    var verr *verify.ValidationError
//	    if errors.As(err, &verr) {
//	        fmt.Printf("%s at cell %d: %s\n", verr.Type, verr.Cell, verr.Message)
//	    }
//	}
package verify

// Package treadmill implements an embeddable incremental tracing garbage
// collector based on Baker's Treadmill.
//
// # Overview
//
// All managed objects live in cells of a single circular ring (see package
// ring). Allocation, marking and reclamation are all position changes on that
// ring, so the work the collector does per allocation is bounded:
//
//	-(bottom)- ECRU -(top)- GREY -(scan)- BLACK -(free)- WHITE -(bottom)-
//
//   - ECRU: allocated in an earlier cycle, not yet proven reachable this cycle
//   - GREY: known reachable, children not yet scanned
//   - BLACK: known reachable and scanned (new objects are born black)
//   - WHITE: unallocated
//
// # Heap
//
// A Heap is created with New and driven by the host through Allocate. Every
// ScanEvery allocations, Allocate performs one incremental Scan step. When WHITE
// is about to run out, Allocate forces a synchronous Flip, which drains GREY,
// releases every ECRU object, grows WHITE by GrowthRate cells, recolors the
// survivors ECRU and reseeds GREY from the host's roots.
//
//	h, err := treadmill.New(state, host, treadmill.Config{
//	    InitialSize: 1024,
//	    GrowthRate:  1024,
//	    ScanEvery:   5,
//	    ObjectSize:  64,
//	})
//	if err != nil {
//	    return err
//	}
//	defer h.Close()
//
//	obj, err := h.Allocate()
//
// # Host Contract
//
// The host supplies a RootSet and a Host at construction:
//
//   - Roots() must return the complete root set; it is called once per flip
//   - ScanPointers(obj, discover) must call discover once per live out-pointer
//   - Release(obj) is called exactly once per object, when it is proven
//     unreachable or at Close
//
// Callbacks must not call back into the heap. A scan callback that omits a
// pointer silently breaks the liveness proof; the heap cannot detect this.
// Hosts that store a pointer to an object after it was allocated must call
// Shade on the target so an ECRU object is not lost mid-cycle.
//
// # Errors
//
// An allocation that fails because chunk memory could not be obtained returns
// ErrOutOfMemory. The ring is still consistent, so IsRetryable reports true:
// the host may call Grow once memory is available and allocate again.
// ErrHeapExhausted means WHITE was empty after a flip that did grow; IsFatal
// reports it. Misuse returns ErrInvalidConfig or ErrBadSize.
//
// # Thread Safety
//
// A Heap is not safe for concurrent use. Multi-threaded hosts must serialize
// access or use one heap per goroutine.
//
// # Related Packages
//
//   - github.com/joshuapare/treadmill/treadmill/ring: cell arena and color primitives
//   - github.com/joshuapare/treadmill/treadmill/verify: invariant checks
//   - github.com/joshuapare/treadmill/pkg/objgraph: reference host
package treadmill

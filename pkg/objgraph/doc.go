// Package objgraph is a reference host for the treadmill collector: a graph of
// named objects whose out-pointers are stored inside their fixed-size payloads.
//
// # Payload Layout
//
// Every object payload is encoded little-endian:
//
//	[0:4]   object id
//	[4:8]   child count
//	[8:...] child ids, 4 bytes each
//
// so an object can hold at most (ObjectSize-8)/4 children.
//
// # Usage
//
//	g, err := objgraph.New(treadmill.Config{InitialSize: 64, GrowthRate: 64, ScanEvery: 4, ObjectSize: 64})
//	if err != nil {
//	    return err
//	}
//	defer g.Close()
//
//	_ = g.Alloc("a")
//	_ = g.Alloc("b")
//	_ = g.Link("a", "b")
//	_ = g.Root("a")
//
// Link and Root shade their target, so references stored mid-cycle are never
// lost. Names are host handles only: an object that is neither rooted nor
// reachable from a root is reclaimed even while its name is still known.
package objgraph

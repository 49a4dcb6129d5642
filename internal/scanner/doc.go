// Package scanner implements incremental detection of convertible text in a
// live document tree.
//
// A [State] owns two insertion-ordered queues: elements whose subtrees need
// a re-walk, and text nodes that were edited in place. Mutation records
// flow in through [ProcessMutations], which classifies them into the queues
// and arms a trailing-edge debounce trigger. When the mutation burst goes
// quiet, [ProcessPendingNodes] drains both queues in one pass, walking each
// queued element with [Walk] and handing every eligible text node to the
// conversion callback.
//
// Nodes that already sit inside converted output, identified by a marker
// class on an ancestor element, are filtered at every enqueue point and
// skipped during walks. The converter's own writes therefore never feed
// back into new work.
//
// [StartObserver] wires the pieces to an observation facility and
// [StopObserver] tears everything down; both are safe to call at any point
// in the lifecycle.
//
// Usage:
//
//	st := scanner.NewState(scanner.StateConfig{Marker: "plens-converted"})
//	scanner.StartObserver(st, scanner.ObserverConfig{
//	    Root:     doc.Body(),
//	    Convert:  conv.Convert,
//	    Interval: 150 * time.Millisecond,
//	    Facility: doc.ObserverFactory(),
//	})
//	defer scanner.StopObserver(st)
package scanner

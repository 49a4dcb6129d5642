// Package dom provides a mutable HTML document tree with change
// notification, backed by golang.org/x/net/html.
//
// A [Document] owns a parsed tree and exposes a small mutation API
// (AppendChild, InsertBefore, RemoveChild, ReplaceChildren, ReplaceWith,
// SetText). Every mutation produces [MutationRecord]s that are delivered
// synchronously, after the structural change is applied, to observers
// attached through the [Observer] interface.
//
// Observers are created through an [ObserverFactory] so that consumers can
// substitute a fake during tests; [Document.ObserverFactory] returns the
// real one. Records are filtered per observer by root and by
// [ObserveOptions] before delivery.
//
// Usage:
//
//	doc, err := dom.ParseString(markup)
//	factory := doc.ObserverFactory()
//	obs := factory(func(recs []dom.MutationRecord) {
//	    // classify records
//	})
//	obs.Observe(doc.Body(), dom.ObserveOptions{
//	    Subtree:       true,
//	    ChildList:     true,
//	    CharacterData: true,
//	})
//	defer obs.Disconnect()
//
//	doc.AppendChild(parent, child) // observer callback runs before return
package dom

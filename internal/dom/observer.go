package dom

import (
	"sync"

	"golang.org/x/net/html"
)

// ObserveOptions selects which changes an observer receives.
type ObserveOptions struct {
	// Subtree extends observation from the root to its whole subtree.
	Subtree bool

	// ChildList delivers node additions and removals.
	ChildList bool

	// CharacterData delivers text node edits.
	CharacterData bool
}

// Observer receives mutation records for a subtree. Implementations other
// than the Document-backed one exist only in tests.
type Observer interface {
	// Observe starts delivery of matching records for root.
	Observe(root *html.Node, opts ObserveOptions)

	// Disconnect stops delivery. Idempotent.
	Disconnect() error
}

// ObserverFactory constructs an Observer that will feed records to deliver.
// Injecting the factory, rather than a concrete observer, lets the engine
// own the callback wiring while tests substitute fakes.
type ObserverFactory func(deliver func([]MutationRecord)) Observer

// TreeObserver is the Document-backed Observer.
type TreeObserver struct {
	doc     *Document
	deliver func([]MutationRecord)

	mu     sync.Mutex
	root   *html.Node
	opts   ObserveOptions
	active bool
}

// ObserverFactory returns a factory producing observers attached to this
// document.
func (d *Document) ObserverFactory() ObserverFactory {
	return func(deliver func([]MutationRecord)) Observer {
		return &TreeObserver{doc: d, deliver: deliver}
	}
}

// Observe registers the observer with its document. Calling it again
// rebinds the root and options.
func (o *TreeObserver) Observe(root *html.Node, opts ObserveOptions) {
	o.mu.Lock()
	o.root = root
	o.opts = opts
	o.active = true
	o.mu.Unlock()

	o.doc.attach(o)
}

// Disconnect detaches the observer from its document. Safe to call more
// than once.
func (o *TreeObserver) Disconnect() error {
	o.mu.Lock()
	if !o.active {
		o.mu.Unlock()
		return nil
	}
	o.active = false
	o.mu.Unlock()

	o.doc.detach(o)
	return nil
}

// filter returns the subset of recs this observer should receive.
func (o *TreeObserver) filter(recs []MutationRecord) []MutationRecord {
	o.mu.Lock()
	root, opts, active := o.root, o.opts, o.active
	o.mu.Unlock()

	if !active || root == nil {
		return nil
	}

	var matched []MutationRecord
	for _, rec := range recs {
		switch rec.Type {
		case MutationChildList:
			if !opts.ChildList {
				continue
			}
		case MutationCharacterData:
			if !opts.CharacterData {
				continue
			}
		}
		if opts.Subtree {
			if !Contains(root, rec.Target) {
				continue
			}
		} else if rec.Target != root {
			continue
		}
		matched = append(matched, rec)
	}
	return matched
}

package dom

import (
	"io"
	"log"
	"os"
	"runtime/debug"
	"strings"
	"sync"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/pricelens/pricelens/internal/errors"
)

// Document owns a parsed HTML tree and notifies attached observers of every
// change applied through its mutation methods. Changes made by reaching into
// the underlying nodes directly are applied but never observed; all writers
// are expected to go through the Document.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	observers []*TreeObserver
}

// Parse reads and parses an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root}, nil
}

// ParseString parses markup held in a string.
func ParseString(markup string) (*Document, error) {
	return Parse(strings.NewReader(markup))
}

// ParseFile parses the HTML document at path.
func ParseFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewDocumentError("failed to open document", err).WithPath(path).WithOp("open")
	}
	defer f.Close()

	doc, err := Parse(f)
	if err != nil {
		return nil, errors.NewDocumentError("failed to parse document", err).WithPath(path).WithOp("parse")
	}
	return doc, nil
}

// Root returns the document root node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the document's body element. The parser always synthesizes
// one, so this is nil only for a Document constructed around a bare subtree.
func (d *Document) Body() *html.Node {
	return findElement(d.root, atom.Body)
}

// Head returns the document's head element, under the same synthesis
// guarantee as Body.
func (d *Document) Head() *html.Node {
	return findElement(d.root, atom.Head)
}

// Render writes the serialized document to w.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}

// RenderString returns the serialized document.
func (d *Document) RenderString() (string, error) {
	var sb strings.Builder
	if err := d.Render(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// AppendChild appends child to parent and notifies observers.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.mu.Lock()
	parent.AppendChild(child)
	recs := []MutationRecord{{
		Type:   MutationChildList,
		Target: parent,
		Added:  []*html.Node{child},
	}}
	d.mu.Unlock()

	d.dispatch(recs)
}

// InsertBefore inserts child under parent immediately before ref and
// notifies observers. A nil ref appends.
func (d *Document) InsertBefore(parent, child, ref *html.Node) {
	d.mu.Lock()
	if ref == nil {
		parent.AppendChild(child)
	} else {
		parent.InsertBefore(child, ref)
	}
	recs := []MutationRecord{{
		Type:   MutationChildList,
		Target: parent,
		Added:  []*html.Node{child},
	}}
	d.mu.Unlock()

	d.dispatch(recs)
}

// RemoveChild detaches child from parent and notifies observers.
func (d *Document) RemoveChild(parent, child *html.Node) {
	d.mu.Lock()
	parent.RemoveChild(child)
	recs := []MutationRecord{{
		Type:    MutationChildList,
		Target:  parent,
		Removed: []*html.Node{child},
	}}
	d.mu.Unlock()

	d.dispatch(recs)
}

// ReplaceChildren removes every existing child of parent and appends the
// given nodes, producing a single childList record. Used for wholesale
// subtree refresh, such as reloading a document body from disk.
func (d *Document) ReplaceChildren(parent *html.Node, children ...*html.Node) {
	d.mu.Lock()
	var removed []*html.Node
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		parent.RemoveChild(c)
		removed = append(removed, c)
		c = next
	}
	for _, c := range children {
		parent.AppendChild(c)
	}
	recs := []MutationRecord{{
		Type:    MutationChildList,
		Target:  parent,
		Added:   children,
		Removed: removed,
	}}
	d.mu.Unlock()

	d.dispatch(recs)
}

// ReplaceWith swaps old for the given replacement nodes in place and
// notifies observers with one childList record against old's parent.
func (d *Document) ReplaceWith(old *html.Node, replacements ...*html.Node) {
	d.mu.Lock()
	parent := old.Parent
	for _, r := range replacements {
		parent.InsertBefore(r, old)
	}
	parent.RemoveChild(old)
	recs := []MutationRecord{{
		Type:    MutationChildList,
		Target:  parent,
		Added:   replacements,
		Removed: []*html.Node{old},
	}}
	d.mu.Unlock()

	d.dispatch(recs)
}

// SetText replaces the contents of a text node and notifies observers with
// a characterData record carrying the previous value.
func (d *Document) SetText(textNode *html.Node, data string) {
	d.mu.Lock()
	old := textNode.Data
	textNode.Data = data
	recs := []MutationRecord{{
		Type:     MutationCharacterData,
		Target:   textNode,
		OldValue: old,
	}}
	d.mu.Unlock()

	d.dispatch(recs)
}

// dispatch delivers records to every attached observer whose root and
// options match. The document lock is released before delivery so that
// observer callbacks may themselves mutate the document.
func (d *Document) dispatch(recs []MutationRecord) {
	d.mu.Lock()
	observers := make([]*TreeObserver, len(d.observers))
	copy(observers, d.observers)
	d.mu.Unlock()

	for _, obs := range observers {
		matched := obs.filter(recs)
		if len(matched) == 0 {
			continue
		}
		safeDeliver(obs, matched)
	}
}

// safeDeliver invokes an observer callback and recovers from any panic, so
// one misbehaving observer cannot poison mutation delivery for the rest.
func safeDeliver(obs *TreeObserver, recs []MutationRecord) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: mutation observer panicked: %v\n%s", r, debug.Stack())
		}
	}()
	obs.deliver(recs)
}

func (d *Document) attach(obs *TreeObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, existing := range d.observers {
		if existing == obs {
			return
		}
	}
	d.observers = append(d.observers, obs)
}

func (d *Document) detach(obs *TreeObserver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, existing := range d.observers {
		if existing == obs {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			return
		}
	}
}

// ObserverCount returns the number of attached observers.
func (d *Document) ObserverCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.observers)
}

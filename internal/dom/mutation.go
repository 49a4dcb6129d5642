package dom

import "golang.org/x/net/html"

// MutationType identifies what kind of change a record describes.
type MutationType string

const (
	// MutationChildList records nodes added to or removed from a parent.
	// Target is the parent whose child list changed.
	MutationChildList MutationType = "childList"

	// MutationCharacterData records an edit to a text node's contents.
	// Target is the text node itself.
	MutationCharacterData MutationType = "characterData"
)

// MutationRecord describes one applied change to the document tree.
type MutationRecord struct {
	Type    MutationType
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node

	// OldValue holds the previous text for characterData records.
	OldValue string
}

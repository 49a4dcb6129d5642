package scanner

import (
	"golang.org/x/net/html"

	"github.com/pricelens/pricelens/internal/dom"
)

// Walk traverses root's subtree depth-first in document order, invoking
// processor for every text node it reaches. Subtrees rooted at an element
// carrying the marker class are skipped entirely, including when root
// itself is marked. Returns the number of text nodes visited.
//
// Walk has no side effects beyond what processor does, so it is safe to
// re-enter from a processor that walks another subtree.
func Walk(root *html.Node, marker string, processor func(*html.Node)) int {
	if root == nil {
		return 0
	}
	return walk(root, marker, processor)
}

func walk(n *html.Node, marker string, processor func(*html.Node)) int {
	if dom.HasClass(n, marker) {
		return 0
	}
	if n.Type == html.TextNode {
		processor(n)
		return 1
	}

	visited := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visited += walk(c, marker, processor)
	}
	return visited
}

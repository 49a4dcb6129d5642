package dom

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Element reports whether n is an element node.
func Element(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// Text reports whether n is a text node.
func Text(n *html.Node) bool {
	return n != nil && n.Type == html.TextNode
}

// Attr returns the value of the named attribute, or "" if absent.
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets the named attribute, replacing any existing value.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// HasClass reports whether element n carries the given class token.
func HasClass(n *html.Node, class string) bool {
	if !Element(n) || class == "" {
		return false
	}
	for _, c := range strings.Fields(Attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// AddClass appends a class token to element n if not already present.
func AddClass(n *html.Node, class string) {
	if !Element(n) || class == "" || HasClass(n, class) {
		return
	}
	existing := Attr(n, "class")
	if existing == "" {
		SetAttr(n, "class", class)
		return
	}
	SetAttr(n, "class", existing+" "+class)
}

// ClosestClass returns the nearest node in n's self-or-ancestor chain that
// is an element carrying the given class, or nil if none does. This is the
// primitive behind marker filtering: a node sits inside converted output
// exactly when ClosestClass(n, marker) != nil.
func ClosestClass(n *html.Node, class string) *html.Node {
	for cur := n; cur != nil; cur = cur.Parent {
		if HasClass(cur, class) {
			return cur
		}
	}
	return nil
}

// Contains reports whether n is root itself or a descendant of root.
func Contains(root, n *html.Node) bool {
	for cur := n; cur != nil; cur = cur.Parent {
		if cur == root {
			return true
		}
	}
	return false
}

// TextContent returns the concatenated text of n's subtree.
func TextContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(cur *html.Node) {
		if cur.Type == html.TextNode {
			sb.WriteString(cur.Data)
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	if n != nil {
		visit(n)
	}
	return sb.String()
}

// NewElement creates a detached element node with the given tag and
// optional attributes.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

// NewText creates a detached text node.
func NewText(data string) *html.Node {
	return &html.Node{
		Type: html.TextNode,
		Data: data,
	}
}

// DetachChildren unlinks and returns the children of n, leaving n empty.
// The returned nodes are parentless and can be grafted into another tree.
func DetachChildren(n *html.Node) []*html.Node {
	if n == nil {
		return nil
	}
	var out []*html.Node
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		out = append(out, c)
		c = next
	}
	return out
}

// FindClass returns the first element in root's subtree (depth-first,
// including root) carrying the given class, or nil.
func FindClass(root *html.Node, class string) *html.Node {
	if HasClass(root, class) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := FindClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

// findElement returns the first element node with the given atom in root's
// subtree, or nil.
func findElement(root *html.Node, a atom.Atom) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode && root.DataAtom == a {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

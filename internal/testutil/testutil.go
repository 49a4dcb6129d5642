// Package testutil provides testing utilities for Pricelens tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/pricelens/pricelens/internal/dom"
)

// ParseDoc parses an HTML fragment into a Document. The fragment is
// wrapped into a full page by the parser, so passing just a body is fine.
func ParseDoc(t *testing.T, markup string) *dom.Document {
	t.Helper()

	doc, err := dom.ParseString(markup)
	if err != nil {
		t.Fatalf("failed to parse document: %v", err)
	}
	return doc
}

// WriteHTMLFile writes an HTML file into dir and returns its path.
func WriteHTMLFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

// PricePage returns a small but realistic product page containing the
// given price strings, one per list item.
func PricePage(prices ...string) string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>Catalog</title></head><body><ul>")
	for _, p := range prices {
		sb.WriteString("<li><span class=\"price\">")
		sb.WriteString(p)
		sb.WriteString("</span></li>")
	}
	sb.WriteString("</ul></body></html>")
	return sb.String()
}

// FindText returns the first text node whose content contains substr.
func FindText(t *testing.T, doc *dom.Document, substr string) *html.Node {
	t.Helper()

	var found *html.Node
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.TextNode && strings.Contains(n.Data, substr) {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc.Root())

	if found == nil {
		t.Fatalf("no text node containing %q", substr)
	}
	return found
}

// FindByClass returns the first element carrying the given class.
func FindByClass(t *testing.T, doc *dom.Document, class string) *html.Node {
	t.Helper()

	n := dom.FindClass(doc.Root(), class)
	if n == nil {
		t.Fatalf("no element with class %q", class)
	}
	return n
}

// CountClass returns how many elements under the document root carry
// the given class.
func CountClass(doc *dom.Document, class string) int {
	count := 0
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && dom.HasClass(n, class) {
			count++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc.Root())
	return count
}

// WaitUntil polls cond until it returns true or the timeout elapses.
// The test fails with msg on timeout.
func WaitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

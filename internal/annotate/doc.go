// Package annotate rewrites matched text inside documents into marked
// spans.
//
// An Annotator pairs a user-supplied regular expression with a rendering
// template. Each match found in a text node is replaced by a span carrying
// the marker class; surrounding text is preserved as sibling text nodes.
// Because emitted spans carry the marker, traversal and classification
// skip them and a rewrite never feeds itself.
//
// The package has no opinion about what the pattern matches. Price
// formats, currencies, and display arithmetic live entirely in the
// configured pattern and template.
//
// # Usage
//
//	a, err := annotate.New(annotate.Config{
//	    Pattern: `\$\d+(\.\d{2})?`,
//	    Marker:  "plens-converted",
//	})
//	if err != nil {
//	    return err
//	}
//
//	doc, err := dom.ParseFile("store.html")
//	if err != nil {
//	    return err
//	}
//
//	// One-shot sweep of the whole body.
//	visited, rewritten := a.AnnotateDocument(doc)
//
//	// Or as the conversion callback of an observing scanner.
//	scanner.StartObserver(st, scanner.ObserverConfig{
//	    Root:     doc.Body(),
//	    Convert:  a.Converter(doc),
//	    Facility: doc.ObserverFactory(),
//	})
package annotate

package annotate

import (
	"regexp"
	"strings"
	"text/template"

	"golang.org/x/net/html"

	"github.com/pricelens/pricelens/internal/dom"
	"github.com/pricelens/pricelens/internal/errors"
	"github.com/pricelens/pricelens/internal/logging"
	"github.com/pricelens/pricelens/internal/scanner"
	"github.com/pricelens/pricelens/internal/util"
)

// DefaultTemplate reproduces the matched text unchanged inside the span.
const DefaultTemplate = "{{.Match}}"

// OriginalAttr is the attribute that carries the raw matched text when
// Config.KeepOriginal is set, so rewrites stay reversible.
const OriginalAttr = "data-plens-original"

// Match is the data handed to the annotation template for one pattern hit.
type Match struct {
	// Match is the full matched text.
	Match string

	// Groups holds the capture groups, if the pattern has any. An
	// unmatched optional group is the empty string.
	Groups []string
}

// Config configures an Annotator.
type Config struct {
	// Pattern is the regular expression applied to text node content.
	// Required.
	Pattern string

	// Template renders the replacement text for each match. It receives a
	// [Match]. Empty means DefaultTemplate.
	Template string

	// Marker is the class stamped on every emitted span. Required; it is
	// what keeps rewritten output from being rewritten again.
	Marker string

	// KeepOriginal stores the raw matched text in OriginalAttr on each
	// span.
	KeepOriginal bool

	// Logger receives template failures. Nil means no logging.
	Logger *logging.Logger
}

// Annotator rewrites pattern matches inside text nodes into marked spans.
// It is safe for concurrent use once constructed.
type Annotator struct {
	pattern      *regexp.Regexp
	tmpl         *template.Template
	marker       string
	keepOriginal bool
	log          *logging.Logger
}

// New validates cfg and builds an Annotator.
func New(cfg Config) (*Annotator, error) {
	if strings.TrimSpace(cfg.Pattern) == "" {
		return nil, errors.ErrEmptyPattern
	}
	if strings.TrimSpace(cfg.Marker) == "" {
		return nil, errors.ErrEmptyMarker
	}

	pattern, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return nil, errors.NewValidationError("invalid match pattern").
			WithField("rewrite.pattern").
			WithValue(cfg.Pattern).
			WithCause(err)
	}

	text := cfg.Template
	if text == "" {
		text = DefaultTemplate
	}
	tmpl, err := template.New("annotation").Parse(text)
	if err != nil {
		return nil, errors.NewValidationError("invalid annotation template").
			WithField("rewrite.template").
			WithValue(cfg.Template).
			WithCause(err)
	}

	log := cfg.Logger
	if log == nil {
		log = logging.NopLogger()
	}

	return &Annotator{
		pattern:      pattern,
		tmpl:         tmpl,
		marker:       cfg.Marker,
		keepOriginal: cfg.KeepOriginal,
		log:          log.WithComponent("annotate"),
	}, nil
}

// Marker returns the class stamped on emitted spans.
func (a *Annotator) Marker() string {
	return a.marker
}

// Pattern returns the source text of the compiled pattern.
func (a *Annotator) Pattern() string {
	return a.pattern.String()
}

// Annotate rewrites every pattern match inside one text node. The node is
// replaced by an interleaving of plain text and marked spans; text without
// a match is left untouched. Reports whether the document changed.
func (a *Annotator) Annotate(doc *dom.Document, n *html.Node) bool {
	if !dom.Text(n) {
		return false
	}

	idx := a.pattern.FindAllStringSubmatchIndex(n.Data, -1)
	if len(idx) == 0 {
		return false
	}
	a.log.Debug("rewriting text node", "matches", len(idx), "text", util.Excerpt(n.Data, 60))

	var out []*html.Node
	last := 0
	for _, m := range idx {
		start, end := m[0], m[1]
		if start > last {
			out = append(out, dom.NewText(n.Data[last:start]))
		}
		out = append(out, a.span(matchAt(n.Data, m)))
		last = end
	}
	if last < len(n.Data) {
		out = append(out, dom.NewText(n.Data[last:]))
	}

	doc.ReplaceWith(n, out...)
	return true
}

// Converter adapts the annotator to the scanner's conversion callback
// shape, binding it to the document the observed tree belongs to.
func (a *Annotator) Converter(doc *dom.Document) scanner.Converter {
	return func(n *html.Node, _ scanner.Settings) bool {
		return a.Annotate(doc, n)
	}
}

// AnnotateDocument rewrites every eligible text node under the document
// body in one sweep, for one-shot scans without an observer. Returns the
// number of text nodes visited and the number rewritten.
func (a *Annotator) AnnotateDocument(doc *dom.Document) (visited, rewritten int) {
	root := doc.Body()
	if root == nil {
		root = doc.Root()
	}

	// Collect first: annotation splices siblings, which would corrupt an
	// in-flight traversal.
	var texts []*html.Node
	visited = scanner.Walk(root, a.marker, func(n *html.Node) {
		texts = append(texts, n)
	})

	for _, n := range texts {
		if a.Annotate(doc, n) {
			rewritten++
		}
	}
	return visited, rewritten
}

// span builds the marked replacement element for one match.
func (a *Annotator) span(m Match) *html.Node {
	rendered, err := a.render(m)
	if err != nil {
		a.log.Warn("annotation template failed; using raw match", "error", err)
		rendered = m.Match
	}

	span := dom.NewElement("span", html.Attribute{Key: "class", Val: a.marker})
	if a.keepOriginal {
		dom.SetAttr(span, OriginalAttr, m.Match)
	}
	span.AppendChild(dom.NewText(rendered))
	return span
}

func (a *Annotator) render(m Match) (string, error) {
	var b strings.Builder
	if err := a.tmpl.Execute(&b, m); err != nil {
		return "", err
	}
	return b.String(), nil
}

// matchAt builds the template data for one FindAllStringSubmatchIndex hit.
func matchAt(s string, m []int) Match {
	out := Match{Match: s[m[0]:m[1]]}
	for i := 2; i < len(m); i += 2 {
		if m[i] < 0 {
			out.Groups = append(out.Groups, "")
			continue
		}
		out.Groups = append(out.Groups, s[m[i]:m[i+1]])
	}
	return out
}

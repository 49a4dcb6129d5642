// Package report aggregates conversion pass statistics across documents and
// renders terminal summaries.
package report

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pricelens/pricelens/internal/scanner"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))
)

var printer = message.NewPrinter(language.English)

// FormatCount renders n with thousands separators.
func FormatCount(n int) string {
	return printer.Sprintf("%d", n)
}

// FormatDuration renders d at millisecond precision.
func FormatDuration(d time.Duration) string {
	return d.Round(time.Millisecond).String()
}

// DocumentStats summarizes the processing of one document.
type DocumentStats struct {
	Path        string
	Passes      int
	TextVisited int
	Conversions int
	Duration    time.Duration

	// Err marks the document as failed; the counters of a failed document
	// are excluded from totals.
	Err error
}

// Observe folds one pass into the document's counters.
func (d *DocumentStats) Observe(s scanner.PassStats) {
	d.Passes++
	d.TextVisited += s.TextVisited
	d.Conversions += s.Conversions
	d.Duration += s.Duration
}

// Totals aggregates counters across documents.
type Totals struct {
	Documents   int
	Failed      int
	Passes      int
	TextVisited int
	Conversions int
	Duration    time.Duration
}

// Report collects per-document statistics. Add is safe to call from
// concurrent workers.
type Report struct {
	mu      sync.Mutex
	started time.Time
	docs    []DocumentStats
}

// New creates an empty report. Elapsed time in the rendered summary is
// measured from this call.
func New() *Report {
	return &Report{started: time.Now()}
}

// Add records one document's statistics.
func (r *Report) Add(d DocumentStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, d)
}

// Documents returns the recorded statistics sorted by path.
func (r *Report) Documents() []DocumentStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]DocumentStats, len(r.docs))
	copy(out, r.docs)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Totals aggregates all recorded documents.
func (r *Report) Totals() Totals {
	var t Totals
	for _, d := range r.Documents() {
		t.Documents++
		if d.Err != nil {
			t.Failed++
			continue
		}
		t.Passes += d.Passes
		t.TextVisited += d.TextVisited
		t.Conversions += d.Conversions
		t.Duration += d.Duration
	}
	return t
}

// Render formats the summary block printed after a scan or watch session.
func (r *Report) Render() string {
	docs := r.Documents()
	t := r.Totals()

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("CONVERSION SUMMARY") + "\n")
	b.WriteString(strings.Repeat("─", 50) + "\n")
	if t.Failed > 0 {
		b.WriteString(fmt.Sprintf("Documents: %s (%s)\n",
			FormatCount(t.Documents),
			errorStyle.Render(FormatCount(t.Failed)+" failed")))
	} else {
		b.WriteString(fmt.Sprintf("Documents: %s\n", FormatCount(t.Documents)))
	}
	b.WriteString(fmt.Sprintf("Text nodes visited: %s\n", FormatCount(t.TextVisited)))
	b.WriteString(fmt.Sprintf("Prices converted: %s\n", FormatCount(t.Conversions)))
	b.WriteString(fmt.Sprintf("Elapsed: %s\n", FormatDuration(time.Since(r.started))))

	if len(docs) > 1 || t.Failed > 0 {
		b.WriteString("\n")
		b.WriteString(headerStyle.Render("PER DOCUMENT") + "\n")
		b.WriteString(strings.Repeat("─", 50) + "\n")
		for _, d := range docs {
			b.WriteString(documentLine(d) + "\n")
		}
	}
	return b.String()
}

func documentLine(d DocumentStats) string {
	if d.Err != nil {
		return errorStyle.Render("✗ ") + d.Path + "  " + errorStyle.Render(d.Err.Error())
	}
	line := fmt.Sprintf("  %s  %s converted  %s", d.Path, FormatCount(d.Conversions), FormatDuration(d.Duration))
	if d.Conversions == 0 {
		return mutedStyle.Render(line)
	}
	return line
}

// PassLine formats one pass for the plain watch log stream.
func PassLine(path string, s scanner.PassStats) string {
	return fmt.Sprintf("[%s] pass %d: %s converted of %s visited (%s)",
		path, s.Pass, FormatCount(s.Conversions), FormatCount(s.TextVisited), FormatDuration(s.Duration))
}

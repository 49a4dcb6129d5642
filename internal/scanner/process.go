package scanner

import (
	"time"

	"golang.org/x/net/html"
)

// PassStats describes one batch pass. Purely informational; nothing in the
// engine branches on it.
type PassStats struct {
	// Pass is the 1-based sequence number of non-empty passes.
	Pass int

	// QueuedElements and QueuedTexts are the queue sizes at drain time.
	QueuedElements int
	QueuedTexts    int

	// TextVisited counts text nodes handed to the converter, both from
	// element walks and from the direct text queue.
	TextVisited int

	// Conversions counts converter invocations that returned true.
	Conversions int

	Duration time.Duration
}

// Empty reports whether the pass had nothing to do.
func (s PassStats) Empty() bool {
	return s.QueuedElements == 0 && s.QueuedTexts == 0
}

// ProcessPendingNodes drains both queues in one pass. Each queued element's
// subtree is walked with the converter as processor; each queued text node
// is handed to the converter directly. With both queues empty it returns
// immediately without touching the processing flag.
//
// The queues are snapshotted and cleared before any converter call, so
// mutations performed during the pass are classified into fresh queues and
// handled by the next pass.
func ProcessPendingNodes(convert Converter, settings Settings, st *State) PassStats {
	st.mu.Lock()
	if st.totalPendingLocked() == 0 {
		st.mu.Unlock()
		return PassStats{}
	}

	st.isProcessing = true
	st.passes++
	stats := PassStats{
		Pass:           st.passes,
		QueuedElements: st.pendingNodes.len(),
		QueuedTexts:    st.pendingTextNodes.len(),
	}
	elements := st.pendingNodes.drain()
	texts := st.pendingTextNodes.drain()
	marker := st.marker
	st.mu.Unlock()

	start := time.Now()

	for _, el := range elements {
		stats.TextVisited += Walk(el, marker, func(tn *html.Node) {
			if convert(tn, settings) {
				stats.Conversions++
			}
		})
	}
	for _, tn := range texts {
		if convert(tn, settings) {
			stats.Conversions++
		}
		stats.TextVisited++
	}

	stats.Duration = time.Since(start)

	st.mu.Lock()
	st.isProcessing = false
	st.mu.Unlock()

	st.log.Debug("pass complete",
		"pass", stats.Pass,
		"elements", stats.QueuedElements,
		"texts", stats.QueuedTexts,
		"visited", stats.TextVisited,
		"conversions", stats.Conversions,
		"duration", stats.Duration)

	return stats
}

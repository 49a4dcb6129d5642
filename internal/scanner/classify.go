package scanner

import (
	"github.com/pricelens/pricelens/internal/dom"
)

// ProcessMutations classifies a batch of mutation records into the pending
// queues and arms the debounce trigger.
//
// Added element nodes from childList records land in the element queue;
// non-element additions and removals are ignored. Edited text nodes from
// characterData records land in the text queue. A node that is, or sits
// inside, an element carrying the marker class is discarded at this point
// and never queued.
//
// When at least one record is supplied, armed is called exactly once after
// classification, even if every node was filtered out. The conversion
// callback and settings are carried along for the trigger's eventual pass
// but are never invoked here.
func ProcessMutations(records []dom.MutationRecord, convert Converter, settings Settings, st *State, armed func()) {
	if len(records) == 0 {
		return
	}

	st.mu.Lock()
	queuedElements, queuedTexts, dropped := 0, 0, 0
	for _, rec := range records {
		switch rec.Type {
		case dom.MutationChildList:
			for _, n := range rec.Added {
				if !dom.Element(n) {
					continue
				}
				if dom.ClosestClass(n, st.marker) != nil {
					continue
				}
				if st.overflow == OverflowDrop && st.totalPendingLocked() >= st.maxPending {
					dropped++
					continue
				}
				if st.pendingNodes.add(n) {
					queuedElements++
				}
			}
		case dom.MutationCharacterData:
			n := rec.Target
			if !dom.Text(n) {
				continue
			}
			if dom.ClosestClass(n, st.marker) != nil {
				continue
			}
			if st.overflow == OverflowDrop && st.totalPendingLocked() >= st.maxPending {
				dropped++
				continue
			}
			if st.pendingTextNodes.add(n) {
				queuedTexts++
			}
		}
	}

	total := st.totalPendingLocked()
	overLimit := total > st.maxPending
	st.mu.Unlock()

	if dropped > 0 {
		st.log.Warn("pending queue full; dropping mutations",
			"dropped", dropped,
			"pending", total,
			"limit", st.maxPending)
	} else if overLimit {
		st.log.Warn("pending queue exceeds limit",
			"pending", total,
			"limit", st.maxPending)
	}

	if queuedElements > 0 || queuedTexts > 0 {
		st.log.Debug("classified mutations",
			"records", len(records),
			"queued_elements", queuedElements,
			"queued_texts", queuedTexts,
			"pending", total)
	}

	if armed != nil {
		armed()
	}
}

// totalPendingLocked returns the combined queue size. Caller holds st.mu.
func (st *State) totalPendingLocked() int {
	return st.pendingNodes.len() + st.pendingTextNodes.len()
}

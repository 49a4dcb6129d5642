package scanner

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/net/html"

	"github.com/pricelens/pricelens/internal/debounce"
	"github.com/pricelens/pricelens/internal/dom"
	"github.com/pricelens/pricelens/internal/logging"
)

// Settings is the opaque options bag forwarded to the conversion callback.
// The scanner never inspects it.
type Settings map[string]any

// Converter is the conversion callback. It receives one text node per
// invocation together with the current settings, and reports whether it
// changed anything. The return value is counted for statistics and
// otherwise ignored.
type Converter func(n *html.Node, settings Settings) bool

// OverflowPolicy selects what happens when the combined pending queues
// exceed the configured maximum.
type OverflowPolicy string

const (
	// OverflowWarn logs a warning and keeps queueing. Work is never lost;
	// the next pass simply has more to do.
	OverflowWarn OverflowPolicy = "warn"

	// OverflowDrop logs and rejects further enqueues until the queues
	// drain. Bounds memory under mutation storms at the cost of missed
	// conversions.
	OverflowDrop OverflowPolicy = "drop"
)

// Default configuration values applied by NewState.
const (
	DefaultMarker     = "plens-converted"
	DefaultMaxPending = 5000
)

// StateConfig configures a scanner State. Zero values fall back to the
// defaults above, a NopLogger, and OverflowWarn.
type StateConfig struct {
	// Marker is the class identifying converted output. Nodes inside a
	// marked element are never queued and never walked.
	Marker string

	// MaxPending bounds the combined size of the two pending queues.
	MaxPending int

	// Overflow selects the behavior when MaxPending is exceeded.
	Overflow OverflowPolicy

	// Logger receives queue warnings and pass diagnostics.
	Logger *logging.Logger
}

// State carries everything one observed root needs: the pending queues,
// the active observer handle, the debounce trigger, and the processing
// flag. Each State is owned by a single observation lifecycle; nothing is
// shared between instances.
type State struct {
	mu sync.Mutex

	id         string
	marker     string
	maxPending int
	overflow   OverflowPolicy
	log        *logging.Logger

	pendingNodes     *nodeSet
	pendingTextNodes *nodeSet

	observer     dom.Observer
	debouncer    *debounce.Debouncer
	isProcessing bool
	passes       int
}

// NewState creates a State ready for StartObserver.
func NewState(cfg StateConfig) *State {
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	if cfg.MaxPending <= 0 {
		cfg.MaxPending = DefaultMaxPending
	}
	if cfg.Overflow == "" {
		cfg.Overflow = OverflowWarn
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NopLogger()
	}

	id := uuid.New().String()[:8]
	return &State{
		id:               id,
		marker:           cfg.Marker,
		maxPending:       cfg.MaxPending,
		overflow:         cfg.Overflow,
		log:              cfg.Logger.WithScanner(id),
		pendingNodes:     newNodeSet(),
		pendingTextNodes: newNodeSet(),
	}
}

// ID returns the short identifier used in log lines for this scanner.
func (st *State) ID() string {
	return st.id
}

// Marker returns the converted-output marker class.
func (st *State) Marker() string {
	return st.marker
}

// Observing reports whether an observer handle is currently stored.
func (st *State) Observing() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.observer != nil
}

// IsProcessing reports whether a batch pass is in flight.
func (st *State) IsProcessing() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.isProcessing
}

// PendingElementCount returns the number of queued elements.
func (st *State) PendingElementCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.pendingNodes.len()
}

// PendingTextCount returns the number of queued text nodes.
func (st *State) PendingTextCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.pendingTextNodes.len()
}

// Passes returns how many non-empty passes have run.
func (st *State) Passes() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.passes
}

// DebouncePending reports whether a debounce fire is scheduled.
func (st *State) DebouncePending() bool {
	st.mu.Lock()
	deb := st.debouncer
	st.mu.Unlock()
	return deb != nil && deb.Pending()
}

// nodeSet is an insertion-ordered set of nodes. Adds are idempotent;
// drain returns members in first-add order.
type nodeSet struct {
	members map[*html.Node]struct{}
	order   []*html.Node
}

func newNodeSet() *nodeSet {
	return &nodeSet{members: make(map[*html.Node]struct{})}
}

// add inserts n, reporting whether it was newly added.
func (s *nodeSet) add(n *html.Node) bool {
	if _, ok := s.members[n]; ok {
		return false
	}
	s.members[n] = struct{}{}
	s.order = append(s.order, n)
	return true
}

func (s *nodeSet) len() int {
	return len(s.order)
}

// drain returns the members in insertion order and resets the set.
func (s *nodeSet) drain() []*html.Node {
	out := s.order
	s.members = make(map[*html.Node]struct{})
	s.order = nil
	return out
}

func (s *nodeSet) clear() {
	s.members = make(map[*html.Node]struct{})
	s.order = nil
}

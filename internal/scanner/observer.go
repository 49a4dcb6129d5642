package scanner

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/net/html"

	"github.com/pricelens/pricelens/internal/debounce"
	"github.com/pricelens/pricelens/internal/dom"
)

// DefaultInterval is the debounce quiet period applied when ObserverConfig
// leaves Interval unset.
const DefaultInterval = 150 * time.Millisecond

// ObserverConfig wires an observation lifecycle together.
type ObserverConfig struct {
	// Root is the subtree to observe.
	Root *html.Node

	// Convert receives eligible text nodes during each pass.
	Convert Converter

	// Settings is forwarded to Convert unmodified.
	Settings Settings

	// Interval is the debounce quiet period. Zero means DefaultInterval.
	Interval time.Duration

	// Facility constructs the observer. Production code passes
	// Document.ObserverFactory(); tests substitute fakes.
	Facility dom.ObserverFactory

	// SettingsFunc, when set, is resolved once at the start of each pass
	// and its result replaces Settings for that pass. A resolution error
	// is logged and the pass falls back to Settings.
	SettingsFunc func(ctx context.Context) (Settings, error)

	// OnPass, when set, receives the statistics of every non-empty pass.
	// A panicking hook is recovered and logged; it never aborts
	// processing.
	OnPass func(PassStats)

	// Gate, when set, is held for the duration of each debounce-fired
	// pass, OnPass included. Callers that mutate the observed tree from
	// other goroutines share this lock to serialize tree access against
	// the pass.
	Gate sync.Locker
}

// StartObserver builds the debounced trigger, constructs an observer from
// the facility with ProcessMutations as its callback, begins observing
// root for subtree structure changes and text edits, and stores the
// handle.
//
// Calling StartObserver on a state that already holds a handle replaces
// the stored reference without disconnecting the old observer; callers
// that want the old lifecycle ended must stop it first.
func StartObserver(st *State, cfg ObserverConfig) dom.Observer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	trigger := debounce.New(func() {
		if cfg.Gate != nil {
			cfg.Gate.Lock()
			defer cfg.Gate.Unlock()
		}
		st.runPass(cfg)
	}, cfg.Interval)

	obs := cfg.Facility(func(records []dom.MutationRecord) {
		ProcessMutations(records, cfg.Convert, cfg.Settings, st, trigger.Trigger)
	})
	obs.Observe(cfg.Root, dom.ObserveOptions{
		Subtree:       true,
		ChildList:     true,
		CharacterData: true,
	})

	st.mu.Lock()
	replaced := st.observer != nil
	st.observer = obs
	st.debouncer = trigger
	st.mu.Unlock()

	if replaced {
		st.log.Warn("observer handle replaced without disconnect")
	}
	st.log.Info("observer started", "interval", cfg.Interval)
	return obs
}

// StopObserver ends the observation lifecycle. With no stored handle it
// returns false. Otherwise it attempts to disconnect the observer, logging
// and swallowing any failure, then unconditionally clears both queues,
// cancels the debounce trigger, and resets the processing flag and handle
// before returning true. Queued work is discarded.
func StopObserver(st *State) bool {
	st.mu.Lock()
	obs := st.observer
	st.mu.Unlock()

	if obs == nil {
		return false
	}

	if err := obs.Disconnect(); err != nil {
		st.log.Warn("observer disconnect failed; clearing state anyway", "error", err)
	}

	st.mu.Lock()
	deb := st.debouncer
	st.observer = nil
	st.debouncer = nil
	st.isProcessing = false
	st.pendingNodes.clear()
	st.pendingTextNodes.clear()
	st.mu.Unlock()

	if deb != nil {
		deb.Stop()
	}

	st.log.Info("observer stopped")
	return true
}

// runPass executes one debounce-fired batch pass: resolve settings, drain
// the queues, and notify the pass hook.
func (st *State) runPass(cfg ObserverConfig) {
	settings := cfg.Settings
	if cfg.SettingsFunc != nil {
		fresh, err := cfg.SettingsFunc(context.Background())
		if err != nil {
			st.log.Warn("settings refresh failed; using base settings", "error", err)
		} else {
			settings = fresh
		}
	}

	stats := ProcessPendingNodes(cfg.Convert, settings, st)
	if stats.Empty() {
		return
	}
	if cfg.OnPass != nil {
		st.notifyPass(cfg.OnPass, stats)
	}
}

// notifyPass invokes the pass hook and recovers from any panic, so a
// misbehaving hook cannot abort the engine.
func (st *State) notifyPass(hook func(PassStats), stats PassStats) {
	defer func() {
		if r := recover(); r != nil {
			st.log.Error("pass hook panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	hook(stats)
}

// Package debounce provides a trailing-edge debouncer: a burst of Trigger
// calls collapses into a single invocation of the wrapped function once the
// burst goes quiet for the configured interval.
package debounce

import (
	"sync"
	"time"
)

// Debouncer wraps a function so that rapid repeated triggers produce one
// call. Only the trailing edge fires: each Trigger pushes the pending
// invocation out by the full interval.
type Debouncer struct {
	mu       sync.Mutex
	interval time.Duration
	fn       func()
	timer    *time.Timer

	// gen invalidates timer callbacks that lost a race with Trigger or
	// Stop: a callback only runs fn if its generation is still current.
	gen uint64
}

// New creates a Debouncer around fn. The function is invoked on a timer
// goroutine; it must do its own locking if it touches shared state.
func New(fn func(), interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		fn:       fn,
	}
}

// Trigger schedules fn to run after the quiet interval, cancelling any
// invocation already pending. Safe to call from any goroutine.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.interval, func() {
		d.fire(gen)
	})
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		// A later Trigger or a Stop superseded this timer.
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}

// Stop cancels any pending invocation and reports whether one was pending.
// The Debouncer remains usable; a later Trigger schedules normally.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	pending := d.timer != nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
	return pending
}

// Pending reports whether an invocation is currently scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Interval returns the configured quiet interval.
func (d *Debouncer) Interval() time.Duration {
	return d.interval
}

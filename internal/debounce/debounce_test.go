package debounce

import (
	"sync/atomic"
	"testing"
	"time"
)

// waitForCount polls until the counter reaches want or the deadline passes.
func waitForCount(t *testing.T, counter *atomic.Int64, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if counter.Load() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("counter = %d, want %d", counter.Load(), want)
}

func TestBurstCollapsesToOneCall(t *testing.T) {
	var calls atomic.Int64
	d := New(func() { calls.Add(1) }, 30*time.Millisecond)

	for i := 0; i < 10; i++ {
		d.Trigger()
		time.Sleep(2 * time.Millisecond)
	}

	waitForCount(t, &calls, 1)

	// No further calls arrive after the single trailing-edge fire.
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d after quiet period, want 1", got)
	}
}

func TestSeparateBurstsFireSeparately(t *testing.T) {
	var calls atomic.Int64
	d := New(func() { calls.Add(1) }, 20*time.Millisecond)

	d.Trigger()
	waitForCount(t, &calls, 1)

	d.Trigger()
	waitForCount(t, &calls, 2)
}

func TestStopCancelsPending(t *testing.T) {
	var calls atomic.Int64
	d := New(func() { calls.Add(1) }, 50*time.Millisecond)

	d.Trigger()
	if !d.Pending() {
		t.Fatal("expected a pending invocation after Trigger")
	}
	if !d.Stop() {
		t.Error("Stop() = false with an invocation pending, want true")
	}

	time.Sleep(120 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("calls = %d after Stop, want 0", got)
	}
	if d.Pending() {
		t.Error("Pending() = true after Stop, want false")
	}
}

func TestStopWithNothingPending(t *testing.T) {
	d := New(func() {}, 20*time.Millisecond)
	if d.Stop() {
		t.Error("Stop() = true with nothing pending, want false")
	}
}

func TestTriggerAfterStop(t *testing.T) {
	var calls atomic.Int64
	d := New(func() { calls.Add(1) }, 20*time.Millisecond)

	d.Trigger()
	d.Stop()

	d.Trigger()
	waitForCount(t, &calls, 1)
}

func TestInterval(t *testing.T) {
	d := New(func() {}, 75*time.Millisecond)
	if got := d.Interval(); got != 75*time.Millisecond {
		t.Errorf("Interval() = %v, want 75ms", got)
	}
}

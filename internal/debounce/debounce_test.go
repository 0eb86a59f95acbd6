package debounce

import (
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	clock   *fakeClock
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasActive := !t.stopped && !t.fired
	t.stopped = true
	return wasActive
}

// fakeClock only fires timers when the test asks it to.
type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, f: f}
	c.timers = append(c.timers, t)
	return t
}

// elapse fires every timer that is still armed, the way real time would after the delay.
func (c *fakeClock) elapse() {
	c.mu.Lock()
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

// fireStale runs the callback of every timer, stopped or not, to simulate a timer
// that fired concurrently with Stop/Set.
func (c *fakeClock) fireStale() {
	c.mu.Lock()
	all := append([]*fakeTimer(nil), c.timers...)
	c.mu.Unlock()
	for _, t := range all {
		t.f()
	}
}

func newTestDebouncer(initial string) (*Debouncer[string], *fakeClock, *[]string) {
	clock := &fakeClock{}
	var settles []string
	d := New(initial, 300*time.Millisecond, func(v string) {
		settles = append(settles, v)
	}, WithAfterFunc[string](clock.AfterFunc))
	return d, clock, &settles
}

func TestSettlesAfterDelay(t *testing.T) {
	d, clock, settles := newTestDebouncer("")
	d.Set("Lon")
	if got := d.Value(); got != "" {
		t.Fatalf("value settled before delay: %q", got)
	}
	if !d.Pending() {
		t.Fatalf("expected a pending settle")
	}
	clock.elapse()
	if got := d.Value(); got != "Lon" {
		t.Fatalf("expected Lon, got %q", got)
	}
	if len(*settles) != 1 || (*settles)[0] != "Lon" {
		t.Fatalf("expected exactly one settle, got %v", *settles)
	}
	if d.Pending() {
		t.Fatalf("nothing should be pending after settle")
	}
}

func TestRapidChangesOnlySettleFinalValue(t *testing.T) {
	d, clock, settles := newTestDebouncer("")
	for _, v := range []string{"L", "Lo", "Lon", "Lond"} {
		d.Set(v)
	}
	clock.elapse()
	if len(*settles) != 1 || (*settles)[0] != "Lond" {
		t.Fatalf("expected only the final value, got %v", *settles)
	}
}

func TestStaleTimerCallbackIsIgnored(t *testing.T) {
	d, clock, settles := newTestDebouncer("")
	d.Set("L")
	d.Set("Lo")
	// Both callbacks run; only the one belonging to the latest Set may settle.
	clock.fireStale()
	if len(*settles) != 1 || (*settles)[0] != "Lo" {
		t.Fatalf("expected a single settle to Lo, got %v", *settles)
	}
}

func TestNoDuplicateSettleForSameValue(t *testing.T) {
	d, clock, settles := newTestDebouncer("")
	d.Set("Lon")
	clock.elapse()
	d.Set("Lond")
	d.Set("Lon")
	clock.elapse()
	if len(*settles) != 1 {
		t.Fatalf("expected one settle per stable period, got %v", *settles)
	}
}

func TestSettleBackToInitialIsSilent(t *testing.T) {
	d, clock, settles := newTestDebouncer("")
	d.Set("a")
	d.Set("")
	clock.elapse()
	if len(*settles) != 0 {
		t.Fatalf("expected no settle, got %v", *settles)
	}
}

func TestStopCancelsPendingSettle(t *testing.T) {
	d, clock, settles := newTestDebouncer("")
	d.Set("Lon")
	d.Stop()
	clock.fireStale()
	if len(*settles) != 0 {
		t.Fatalf("expected no settle after Stop, got %v", *settles)
	}
	d.Set("Paris")
	clock.elapse()
	if len(*settles) != 0 || d.Value() != "" {
		t.Fatalf("Set after Stop must be a no-op, settles=%v value=%q", *settles, d.Value())
	}
}

func TestRealTimer(t *testing.T) {
	done := make(chan int, 4)
	d := New(0, 10*time.Millisecond, func(v int) { done <- v })
	defer d.Stop()
	d.Set(1)
	d.Set(2)
	select {
	case v := <-done:
		if v != 2 {
			t.Fatalf("expected 2, got %d", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for settle")
	}
	select {
	case v := <-done:
		t.Fatalf("unexpected extra settle %d", v)
	case <-time.After(50 * time.Millisecond):
	}
}

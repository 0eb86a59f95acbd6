// Package debounce settles a changing value once it has stopped changing for a delay.
package debounce

import (
	"sync"
	"time"
)

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through a small adapter.
type AfterFunc func(d time.Duration, f func()) Timer

func systemAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type Option[T comparable] func(*Debouncer[T])

// WithAfterFunc replaces the timer source, mainly for tests.
func WithAfterFunc[T comparable](fn AfterFunc) Option[T] {
	return func(d *Debouncer[T]) {
		d.afterFunc = fn
	}
}

// Debouncer holds the latest value and publishes it through onSettle only after
// it stayed unchanged for the full delay. Every Set restarts the timer.
// A settle to the value that is already settled is not published again.
type Debouncer[T comparable] struct {
	delay     time.Duration
	onSettle  func(T)
	afterFunc AfterFunc

	mu      sync.Mutex
	timer   Timer
	seq     uint64
	pending T
	settled T
	stopped bool
}

func New[T comparable](initial T, delay time.Duration, onSettle func(T), opts ...Option[T]) *Debouncer[T] {
	d := &Debouncer[T]{
		delay:     delay,
		onSettle:  onSettle,
		afterFunc: systemAfterFunc,
		pending:   initial,
		settled:   initial,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Set records v as the newest source value and restarts the delay.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = v
	d.timer = d.afterFunc(d.delay, func() { d.fire(seq) })
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	// A newer Set or Stop raced with this timer.
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	v := d.pending
	changed := v != d.settled
	d.settled = v
	d.mu.Unlock()

	if changed && d.onSettle != nil {
		d.onSettle(v)
	}
}

// Value returns the last settled value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Pending reports whether a settle is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any scheduled settle. The debouncer is unusable afterwards.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

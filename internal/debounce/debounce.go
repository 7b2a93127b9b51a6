// Package debounce delays a call until its argument has stopped changing for a quiet period.
package debounce

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of calls into a single call of fn with the latest argument.
//
// Each Debouncer owns one timer; use one per operation. All methods are safe for concurrent use.
type Debouncer[T any] struct {
	wait time.Duration
	fn   func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	value   T
	gen     uint64
}

// New returns a debouncer that runs fn wait after the last [Debouncer.Call].
// A non-positive wait runs fn synchronously on every call.
func New[T any](wait time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{wait: wait, fn: fn}
}

// Call replaces any pending argument with v and restarts the quiet period.
func (d *Debouncer[T]) Call(v T) {
	if d.wait <= 0 {
		d.fn(v)
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.value = v
	d.pending = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

// fire runs fn unless a later Call, Flush or Stop superseded generation gen.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.mu.Unlock()

	d.fn(v)
}

// Flush runs a pending call immediately. It reports whether anything was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return false
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	v := d.value
	d.pending = false
	d.gen++
	d.mu.Unlock()

	d.fn(v)
	return true
}

// Stop cancels a pending call without running it.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending = false
	d.gen++
}

// Pending reports whether a call is scheduled.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

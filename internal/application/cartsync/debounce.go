// internal/application/cartsync/debounce.go
package cartsync

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a cart write is issued.
const DefaultDebounce = 400 * time.Millisecond

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Tests substitute a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is backed by time.AfterFunc.
func SystemClock() Clock { return systemClock{} }

// Debouncer runs only the most recently triggered func, once the delay has
// elapsed without another Trigger. Every Trigger, Cancel, Flush or Stop bumps
// a generation counter; a timer whose generation is stale never runs its func,
// even if it already fired and is waiting on the lock.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	clock   Clock
	timer   Timer
	gen     uint64
	pending func()
	stopped bool
}

func NewDebouncer(delay time.Duration, clock Clock) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Debouncer{delay: delay, clock: clock}
}

// Trigger replaces any pending func with fn and restarts the delay.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || fn == nil {
		return
	}
	d.resetLocked()
	d.pending = fn

	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
}

// Flush runs the pending func now, in the caller's goroutine.
// It reports whether there was one.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.pending
	d.resetLocked()
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Cancel drops the pending func and reports whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	had := d.pending != nil
	d.resetLocked()
	return had
}

// Stop cancels and refuses all later Triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.resetLocked()
	d.stopped = true
}

// Pending reports whether a func is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer) resetLocked() {
	d.gen++
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

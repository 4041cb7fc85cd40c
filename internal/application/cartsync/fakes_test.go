package cartsync

import (
	"context"
	"sort"
	"sync"
	"time"

	cartdom "storefront/internal/domain/cart"
)

// manualClock fires timers only when Advance is called.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs due timers in deadline order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.fn()
	}
}

// fireStale runs every timer callback, including stopped ones, to simulate a
// timer that fired concurrently with its cancellation.
func (c *manualClock) fireStale() {
	c.mu.Lock()
	all := append([]*manualTimer(nil), c.timers...)
	c.mu.Unlock()
	for _, t := range all {
		t.fn()
	}
}

type fakeLocal struct {
	mu     sync.Mutex
	items  []cartdom.CartItem
	saves  [][]cartdom.CartItem
	clears int
	SaveFn func([]cartdom.CartItem) error
}

func (f *fakeLocal) Load(context.Context) []cartdom.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cartdom.Clone(f.items)
}

func (f *fakeLocal) Save(_ context.Context, items []cartdom.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SaveFn != nil {
		if err := f.SaveFn(items); err != nil {
			return err
		}
	}
	if len(items) == 0 {
		return nil
	}
	f.items = cartdom.Clone(items)
	f.saves = append(f.saves, cartdom.Clone(items))
	return nil
}

func (f *fakeLocal) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	f.clears++
	return nil
}

func (f *fakeLocal) snapshot() (items []cartdom.CartItem, saves int, clears int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return cartdom.Clone(f.items), len(f.saves), f.clears
}

type persistCall struct {
	userID string
	items  []cartdom.CartItem
}

type fakeRemote struct {
	mu        sync.Mutex
	carts     map[string][]cartdom.CartItem
	persisted []persistCall
	FetchFn   func(userID string) ([]cartdom.CartItem, error)
	PersistFn func(userID string, items []cartdom.CartItem) error
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{carts: map[string][]cartdom.CartItem{}}
}

func (f *fakeRemote) Fetch(_ context.Context, userID string) ([]cartdom.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchFn != nil {
		return f.FetchFn(userID)
	}
	return cartdom.Clone(f.carts[userID]), nil
}

func (f *fakeRemote) Persist(_ context.Context, userID string, items []cartdom.CartItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PersistFn != nil {
		if err := f.PersistFn(userID, items); err != nil {
			return err
		}
	}
	f.carts[userID] = cartdom.Clone(items)
	f.persisted = append(f.persisted, persistCall{userID: userID, items: cartdom.Clone(items)})
	return nil
}

func (f *fakeRemote) calls() []persistCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]persistCall(nil), f.persisted...)
}

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *recordingNotifier) add(kind string) {
	n.mu.Lock()
	n.kinds = append(n.kinds, kind)
	n.mu.Unlock()
}

func (n *recordingNotifier) Success(string) { n.add("success") }
func (n *recordingNotifier) Info(string)    { n.add("info") }
func (n *recordingNotifier) Warn(string)    { n.add("warn") }

func (n *recordingNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, k := range n.kinds {
		if k == kind {
			c++
		}
	}
	return c
}

// internal/application/cartsync/provider.go
package cartsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	cartdom "storefront/internal/domain/cart"
)

var (
	ErrNotInitialized = errors.New("cartsync: provider not initialized")
	ErrDisposed       = errors.New("cartsync: provider disposed")
)

// Options wires a Provider. Local, Remote and Auth are required.
type Options struct {
	Local    LocalStore
	Remote   RemoteStore
	Auth     AuthSource
	Notifier Notifier
	Logger   *zap.Logger

	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	Clock    Clock
}

// Provider owns the in-memory cart, follows the auth source and persists
// mutations through the strategy matching the current auth state.
//
// mu guards in-memory state and is never held across I/O.
// ioMu serializes writes and auth transitions so a write never interleaves
// with a merge.
type Provider struct {
	local    LocalStore
	remote   RemoteStore
	auth     AuthSource
	notifier Notifier
	log      *zap.Logger
	debounce *Debouncer

	ioMu sync.Mutex

	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	disposed    bool

	state       State
	userID      string
	items       []cartdom.CartItem
	persistence CartPersistence
	lastErr     error
	// set when merged items could not be pushed; local is cleared on the
	// next successful remote write instead
	localStale bool
	// mutations made while a load or merge is in flight, replayed on its result
	deferred []mutation
}

type mutation func([]cartdom.CartItem) []cartdom.CartItem

func NewProvider(opts Options) (*Provider, error) {
	if opts.Local == nil || opts.Remote == nil || opts.Auth == nil {
		return nil, errors.New("cartsync: local, remote and auth are required")
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.L()
	}

	return &Provider{
		local:    opts.Local,
		remote:   opts.Remote,
		auth:     opts.Auth,
		notifier: opts.Notifier,
		log:      opts.Logger.With(zap.String("namespace", "cart")),
		debounce: NewDebouncer(opts.Debounce, opts.Clock),
		items:    []cartdom.CartItem{},
	}, nil
}

// Init subscribes to the auth source and applies its current state.
// ctx bounds every later fetch and write.
func (p *Provider) Init(ctx context.Context) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	if p.state != Uninitialized {
		p.mu.Unlock()
		return nil
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	p.state = Loading
	p.mu.Unlock()

	unsub := p.auth.Subscribe(p.onAuthChange)

	p.mu.Lock()
	p.unsubscribe = unsub
	p.mu.Unlock()

	p.onAuthChange(p.auth.Current())
	return nil
}

// Dispose drops any pending write and stops following the auth source.
func (p *Provider) Dispose() {
	p.debounce.Stop()

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	p.disposed = true
	unsub, cancel := p.unsubscribe, p.cancel
	p.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	if cancel != nil {
		cancel()
	}
}

// ---------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------

func (p *Provider) Items() []cartdom.CartItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cartdom.Clone(p.items)
}

func (p *Provider) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cartdom.Count(p.items)
}

func (p *Provider) Subtotal() decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cartdom.Subtotal(p.items)
}

func (p *Provider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// UserID is the user whose cart is active, or "".
func (p *Provider) UserID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.userID
}

// LastSyncError is the error of the most recent failed write, cleared by the
// next successful one.
func (p *Provider) LastSyncError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// ---------------------------------------------------------------------
// Mutations
// ---------------------------------------------------------------------

// AddItem adds product with sel. A product without an id is rejected and the
// cart is left untouched.
func (p *Provider) AddItem(product cartdom.Product, sel cartdom.Selection) error {
	p.mu.Lock()
	if _, err := cartdom.Add(p.items, product, sel); err != nil {
		p.mu.Unlock()
		p.log.Warn("add item rejected", zap.Error(err))
		p.notifier.Warn("This product can't be added to the cart")
		return err
	}
	p.mutateLocked(func(in []cartdom.CartItem) []cartdom.CartItem {
		out, _ := cartdom.Add(in, product, sel)
		return out
	})
	p.mu.Unlock()

	p.schedule()

	name := strings.TrimSpace(product.Name)
	if name == "" {
		name = "Item"
	}
	p.notifier.Success(name + " added to cart")
	return nil
}

func (p *Provider) RemoveItem(key string) {
	p.mu.Lock()
	removed := cartdom.IndexOf(p.items, key) >= 0
	p.mutateLocked(func(in []cartdom.CartItem) []cartdom.CartItem {
		return cartdom.Remove(in, key)
	})
	p.mu.Unlock()

	p.schedule()
	if removed {
		p.notifier.Info("Item removed from cart")
	}
}

// UpdateQty sets an absolute quantity; qty <= 0 removes the item.
func (p *Provider) UpdateQty(key string, qty int) {
	p.mu.Lock()
	p.mutateLocked(func(in []cartdom.CartItem) []cartdom.CartItem {
		return cartdom.SetQty(in, key, qty)
	})
	p.mu.Unlock()

	p.schedule()
}

// ClearCart empties the cart and clears the active backend right away.
// Any pending write is cancelled.
func (p *Provider) ClearCart() {
	p.debounce.Cancel()

	p.ioMu.Lock()
	defer p.ioMu.Unlock()

	p.mu.Lock()
	p.items = []cartdom.CartItem{}
	p.deferred = nil
	persistence, ctx := p.persistence, p.ctx
	p.mu.Unlock()

	if persistence != nil && ctx != nil {
		err := persistence.Clear(ctx)
		p.recordWrite(persistence, "clear", err)
	}
	p.notifier.Info("Cart cleared")
}

// Flush runs a pending write now and returns its outcome.
func (p *Provider) Flush() error {
	if !p.debounce.Flush() {
		return nil
	}
	return p.LastSyncError()
}

// RetrySync schedules a write of the current cart, typically after
// LastSyncError reported a failure.
func (p *Provider) RetrySync() {
	p.schedule()
}

// mutateLocked requires mu.
func (p *Provider) mutateLocked(fn mutation) {
	p.items = fn(p.items)
	if !p.state.Active() {
		p.deferred = append(p.deferred, fn)
	}
}

// replayLocked applies deferred mutations to items and reports whether any ran.
// Requires mu.
func (p *Provider) replayLocked(items []cartdom.CartItem) ([]cartdom.CartItem, bool) {
	replayed := len(p.deferred) > 0
	for _, fn := range p.deferred {
		items = fn(items)
	}
	p.deferred = nil
	return items, replayed
}

func (p *Provider) schedule() {
	p.debounce.Trigger(p.persistNow)
}

// persistNow writes the cart as it is at fire time.
func (p *Provider) persistNow() {
	p.ioMu.Lock()
	defer p.ioMu.Unlock()
	p.writeLocked()
}

// writeLocked requires ioMu.
func (p *Provider) writeLocked() {
	p.mu.Lock()
	if !p.state.Active() || p.persistence == nil || p.ctx == nil {
		st := p.state
		p.mu.Unlock()
		p.log.Debug("write skipped", zap.Stringer("state", st))
		return
	}
	persistence, ctx := p.persistence, p.ctx
	items := cartdom.Clone(p.items)
	p.mu.Unlock()

	err := persistence.Save(ctx, items)
	p.recordWrite(persistence, "save", err)
}

func (p *Provider) recordWrite(persistence CartPersistence, op string, err error) {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		p.log.Warn("cart write failed",
			zap.String("backend", persistence.Name()),
			zap.String("op", op),
			zap.Error(err),
		)
		p.mu.Lock()
		p.lastErr = err
		p.mu.Unlock()
		p.notifier.Warn("We couldn't save your cart. It will be retried.")
		return
	}

	p.mu.Lock()
	p.lastErr = nil
	clearLocal := p.localStale && persistence.Name() == "remote"
	if clearLocal {
		p.localStale = false
	}
	ctx := p.ctx
	p.mu.Unlock()

	if clearLocal {
		if err := p.local.Clear(ctx); err != nil {
			p.log.Warn("local cart clear failed", zap.Error(err))
		}
	}
}

// ---------------------------------------------------------------------
// Auth transitions
// ---------------------------------------------------------------------

func (p *Provider) onAuthChange(st AuthState) {
	p.ioMu.Lock()
	defer p.ioMu.Unlock()

	p.mu.Lock()
	if p.disposed || p.ctx == nil {
		p.mu.Unlock()
		return
	}
	ctx := p.ctx
	state, prev := p.state, p.userID
	p.mu.Unlock()

	uid := strings.TrimSpace(st.UserID)

	switch {
	case st.Resolving:
		if state == Uninitialized || state == Loading {
			p.setState(Loading)
		}

	case uid == "" && prev != "":
		p.logout(ctx, prev)

	case uid == "":
		if state == Loading {
			p.loadAnonymous(ctx)
		}

	case uid == prev:
		// token refresh for the same user

	default:
		p.login(ctx, prev, uid)
	}
}

func (p *Provider) loadAnonymous(ctx context.Context) {
	items := p.local.Load(ctx)

	p.mu.Lock()
	items, replayed := p.replayLocked(items)
	p.items = items
	p.persistence = LocalPersistence{Store: p.local}
	p.state = AnonymousActive
	p.mu.Unlock()

	if replayed {
		p.schedule()
	}
	p.log.Info("anonymous cart loaded", zap.Int("items", len(items)))
}

// flushPendingLocked writes a pending debounced write through the strategy
// of the state being left. Requires ioMu.
func (p *Provider) flushPendingLocked() {
	if p.debounce.Cancel() {
		p.writeLocked()
	}
}

func (p *Provider) logout(ctx context.Context, prev string) {
	// the last edit of prev still belongs to prev's remote cart
	p.flushPendingLocked()

	p.mu.Lock()
	p.items = []cartdom.CartItem{}
	p.deferred = nil
	p.userID = ""
	p.persistence = LocalPersistence{Store: p.local}
	p.state = AnonymousActive
	p.lastErr = nil
	p.localStale = false
	p.mu.Unlock()

	if err := p.local.Clear(ctx); err != nil {
		p.log.Warn("local cart clear failed", zap.Error(err))
	}
	p.log.Info("signed out, cart cleared", zap.String("user", prev))
}

// login reconciles the local cart into the remote cart of uid.
func (p *Provider) login(ctx context.Context, prev, uid string) {
	// a pending write lands with the cart it was made for: local before local
	// is read, or prev's remote before switching away
	p.flushPendingLocked()

	if prev != "" {
		p.settleStaleLocal(prev)
	}

	p.mu.Lock()
	p.state = Merging
	p.userID = uid
	p.persistence = nil
	p.mu.Unlock()

	log := p.log.With(zap.String("user", uid))
	log.Info("merging cart", zap.String("previousUser", prev))

	remote, err := p.remote.Fetch(ctx, uid)
	if err != nil {
		log.Warn("remote cart fetch failed, using empty cart", zap.Error(err))
		p.notifier.Warn("We couldn't load your saved cart.")
		remote = []cartdom.CartItem{}
	}

	// only a guest cart is merged; an account switch starts from the new remote
	var local []cartdom.CartItem
	if prev == "" {
		local = p.local.Load(ctx)
	}
	merged := cartdom.Merge(remote, local)

	localStale := false
	var pushErr error
	if len(local) > 0 {
		if pushErr = p.remote.Persist(ctx, uid, merged); pushErr != nil {
			log.Warn("merged cart push failed", zap.Error(pushErr))
			p.notifier.Warn("We couldn't save your cart. It will be retried.")
			localStale = true
		} else if err := p.local.Clear(ctx); err != nil {
			log.Warn("local cart clear failed", zap.Error(err))
		}
	}

	p.mu.Lock()
	if p.userID != uid || p.disposed {
		p.mu.Unlock()
		return
	}
	items, replayed := p.replayLocked(merged)
	p.items = items
	p.persistence = RemotePersistence{Client: p.remote, UserID: uid}
	p.state = AuthenticatedActive
	p.localStale = localStale
	p.lastErr = pushErr
	p.mu.Unlock()

	if replayed {
		p.schedule()
	}
	log.Info("cart merged",
		zap.Int("remote", len(remote)),
		zap.Int("local", len(local)),
		zap.Int("merged", len(merged)),
		zap.Bool("replayed", replayed),
	)
}

// settleStaleLocal retries the write of prev when guest items merged into
// prev's cart never reached its remote. They are never carried to another
// user: if the retry fails local storage is cleared anyway.
// Requires ioMu.
func (p *Provider) settleStaleLocal(prev string) {
	p.mu.Lock()
	stale := p.localStale
	p.mu.Unlock()
	if !stale {
		return
	}

	p.writeLocked()

	p.mu.Lock()
	stale = p.localStale
	p.localStale = false
	ctx := p.ctx
	p.mu.Unlock()
	if !stale {
		return
	}

	p.log.Warn("guest items not saved before account switch", zap.String("user", prev))
	if err := p.local.Clear(ctx); err != nil {
		p.log.Warn("local cart clear failed", zap.Error(err))
	}
}

func (p *Provider) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// String is a one-line summary for shells and logs.
func (p *Provider) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fmt.Sprintf("state=%s user=%q items=%d count=%d subtotal=%s",
		p.state, p.userID, len(p.items), cartdom.Count(p.items), cartdom.Subtotal(p.items).StringFixed(2))
}

// internal/application/cartsync/persistence.go
package cartsync

import (
	"context"

	cartdom "storefront/internal/domain/cart"
)

// LocalStore is the anonymous cart slot (localstore.Store).
type LocalStore interface {
	Load(ctx context.Context) []cartdom.CartItem
	Save(ctx context.Context, items []cartdom.CartItem) error
	Clear(ctx context.Context) error
}

// RemoteStore is the authenticated cart API (cartapi.Client).
type RemoteStore interface {
	Fetch(ctx context.Context, userID string) ([]cartdom.CartItem, error)
	Persist(ctx context.Context, userID string, items []cartdom.CartItem) error
}

// CartPersistence is the write strategy chosen for the current auth state.
type CartPersistence interface {
	Name() string
	Save(ctx context.Context, items []cartdom.CartItem) error
	Clear(ctx context.Context) error
}

// LocalPersistence writes to the local slot. An empty cart removes the slot
// since LocalStore.Save ignores empty input.
type LocalPersistence struct {
	Store LocalStore
}

func (LocalPersistence) Name() string { return "local" }

func (p LocalPersistence) Save(ctx context.Context, items []cartdom.CartItem) error {
	if len(items) == 0 {
		return p.Store.Clear(ctx)
	}
	return p.Store.Save(ctx, items)
}

func (p LocalPersistence) Clear(ctx context.Context) error {
	return p.Store.Clear(ctx)
}

// RemotePersistence replaces the remote cart of UserID on every write.
type RemotePersistence struct {
	Client RemoteStore
	UserID string
}

func (RemotePersistence) Name() string { return "remote" }

func (p RemotePersistence) Save(ctx context.Context, items []cartdom.CartItem) error {
	if items == nil {
		items = []cartdom.CartItem{}
	}
	return p.Client.Persist(ctx, p.UserID, items)
}

func (p RemotePersistence) Clear(ctx context.Context) error {
	return p.Client.Persist(ctx, p.UserID, []cartdom.CartItem{})
}

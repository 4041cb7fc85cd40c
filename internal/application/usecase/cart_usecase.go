// internal/application/usecase/cart_usecase.go
package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	cartdom "storefront/internal/domain/cart"
)

var ErrCartInvalidArgument = errors.New("cart_usecase: invalid argument")

// Clock provides current time (for testability).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// CartUsecase serves the remote side of cart synchronization: read a user's
// cart and replace it wholesale.
type CartUsecase struct {
	repo  cartdom.Repository
	clock Clock
}

func NewCartUsecase(repo cartdom.Repository) *CartUsecase {
	return NewCartUsecaseWithClock(repo, nil)
}

func NewCartUsecaseWithClock(repo cartdom.Repository, clock Clock) *CartUsecase {
	if clock == nil {
		clock = systemClock{}
	}
	return &CartUsecase{repo: repo, clock: clock}
}

// Get returns the stored cart. A missing cart is returned as an empty,
// unsaved document so callers always see {items: []}.
func (uc *CartUsecase) Get(ctx context.Context, userID string) (*cartdom.Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, ErrCartInvalidArgument
	}

	c, err := uc.repo.GetByUserID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}
	return &cartdom.Cart{UserID: uid, Items: []cartdom.CartItem{}}, nil
}

// Replace stores items as the user's entire cart.
func (uc *CartUsecase) Replace(ctx context.Context, userID string, items []cartdom.CartItem) (*cartdom.Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, ErrCartInvalidArgument
	}

	now := uc.clock.Now()

	c, err := uc.repo.GetByUserID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c, err = cartdom.NewCart(uid, items, now)
		if err != nil {
			return nil, err
		}
	} else if err := c.Replace(items, now); err != nil {
		return nil, err
	}

	if err := uc.repo.Upsert(ctx, c); err != nil {
		return nil, err
	}

	zap.L().Debug("cart replaced",
		zap.String("namespace", "cart"),
		zap.String("user_id", uid),
		zap.Int("items", len(c.Items)),
	)
	return c, nil
}

// Clear deletes the stored cart.
func (uc *CartUsecase) Clear(ctx context.Context, userID string) error {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return ErrCartInvalidArgument
	}
	return uc.repo.DeleteByUserID(ctx, uid)
}

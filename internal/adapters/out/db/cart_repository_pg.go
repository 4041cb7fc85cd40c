// internal/adapters/out/db/cart_repository_pg.go
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	cartdom "storefront/internal/domain/cart"
)

const cartsSchema = `
CREATE TABLE IF NOT EXISTS carts (
	user_id    TEXT PRIMARY KEY,
	items      JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
)`

const (
	selectCartSQL = `SELECT items, created_at, updated_at, expires_at FROM carts WHERE user_id = $1`
	upsertCartSQL = `
		INSERT INTO carts (user_id, items, created_at, updated_at, expires_at) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (user_id)
		DO UPDATE SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at, expires_at = EXCLUDED.expires_at
	`
	deleteCartSQL = `DELETE FROM carts WHERE user_id = $1`
)

// CartRepositoryPG implements cart.Repository on a single carts table.
// Items are stored as one ordered jsonb array so a write is a full replace.
type CartRepositoryPG struct {
	DB *sql.DB
}

func NewCartRepositoryPG(db *sql.DB) *CartRepositoryPG {
	return &CartRepositoryPG{DB: db}
}

// EnsureSchema creates the carts table when missing.
func (r *CartRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, cartsSchema); err != nil {
		return fmt.Errorf("cart_repository_pg: ensure schema: %w", err)
	}
	return nil
}

// GetByUserID returns (nil, nil) if not found.
func (r *CartRepositoryPG) GetByUserID(ctx context.Context, userID string) (*cartdom.Cart, error) {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("cart_repository_pg: userID is empty")
	}

	var (
		raw []byte
		c   = cartdom.Cart{UserID: uid}
	)
	err := r.DB.QueryRowContext(ctx, selectCartSQL, uid).Scan(&raw, &c.CreatedAt, &c.UpdatedAt, &c.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart_repository_pg: select: %w", err)
	}

	var items []cartdom.CartItem
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("cart_repository_pg: decode items: %w", err)
		}
	}
	c.Items = cartdom.Normalize(items)
	return &c, nil
}

func (r *CartRepositoryPG) Upsert(ctx context.Context, c *cartdom.Cart) error {
	if c == nil {
		return errors.New("cart_repository_pg: cart is nil")
	}
	uid := strings.TrimSpace(c.UserID)
	if uid == "" {
		return errors.New("cart_repository_pg: Upsert requires cart.UserID")
	}

	raw, err := json.Marshal(cartdom.Normalize(c.Items))
	if err != nil {
		return fmt.Errorf("cart_repository_pg: encode items: %w", err)
	}

	if _, err := r.DB.ExecContext(ctx, upsertCartSQL, uid, raw, c.CreatedAt, c.UpdatedAt, c.ExpiresAt); err != nil {
		return fmt.Errorf("cart_repository_pg: upsert: %w", err)
	}
	return nil
}

// DeleteByUserID is idempotent; deleting a missing cart is not an error.
func (r *CartRepositoryPG) DeleteByUserID(ctx context.Context, userID string) error {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return errors.New("cart_repository_pg: userID is empty")
	}
	if _, err := r.DB.ExecContext(ctx, deleteCartSQL, uid); err != nil {
		return fmt.Errorf("cart_repository_pg: delete: %w", err)
	}
	return nil
}

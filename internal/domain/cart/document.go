// internal/domain/cart/document.go
package cart

import (
	"strings"
	"time"
)

// Cart is the durable cart of an authenticated user.
//   - UserID is the document id (Firestore) / primary key (postgres)
//   - Items is replaced wholesale on every write
//   - ExpiresAt is refreshed on each write for TTL reclamation
type Cart struct {
	UserID    string     `json:"userId"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}

// NewCart creates a cart document. items may be nil.
func NewCart(userID string, items []CartItem, now time.Time) (*Cart, error) {
	c := &Cart{
		UserID:    strings.TrimSpace(userID),
		Items:     Normalize(items),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(DefaultCartTTL),
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Replace swaps the full item list.
func (c *Cart) Replace(items []CartItem, now time.Time) error {
	if c == nil {
		return ErrInvalidCart
	}
	c.Items = Normalize(items)
	c.touch(now)
	return c.validate()
}

func (c *Cart) touch(now time.Time) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(DefaultCartTTL)
}

func (c *Cart) validate() error {
	if c == nil || c.UserID == "" {
		return ErrInvalidCart
	}
	if c.CreatedAt.IsZero() || c.UpdatedAt.IsZero() || c.UpdatedAt.Before(c.CreatedAt) {
		return ErrInvalidCart
	}
	if c.ExpiresAt.Before(c.UpdatedAt) {
		return ErrInvalidCart
	}
	for _, it := range c.Items {
		if it.Key == "" || it.Qty <= 0 {
			return ErrInvalidCart
		}
	}
	return nil
}

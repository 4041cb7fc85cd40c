// internal/domain/cart/repository_port.go
package cart

import "context"

// Repository is the persistence port for remote carts.
//
// Not-found policy: GetByUserID returns (nil, nil) and the application layer
// treats nil as an empty cart.
type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*Cart, error)

	// Upsert writes the whole document (full replace, not a patch).
	Upsert(ctx context.Context, c *Cart) error

	DeleteByUserID(ctx context.Context, userID string) error
}

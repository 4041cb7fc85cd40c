// internal/adapters/out/firestore/cart_repository_fs.go
package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	cartdom "storefront/internal/domain/cart"
)

const cartsCollection = "carts"

// CartRepositoryFS implements cart.Repository using Firestore.
//
// Collection design:
//   - collection: carts
//   - docId: userId (docId is the source of truth)
//   - fields: items(array, display order), createdAt, updatedAt, expiresAt
//
// TTL: configure Firestore TTL on "expiresAt".
type CartRepositoryFS struct {
	Client *firestore.Client
}

func NewCartRepositoryFS(client *firestore.Client) *CartRepositoryFS {
	return &CartRepositoryFS{Client: client}
}

func (r *CartRepositoryFS) col() *firestore.CollectionRef {
	return r.Client.Collection(cartsCollection)
}

// GetByUserID returns (nil, nil) if not found.
func (r *CartRepositoryFS) GetByUserID(ctx context.Context, userID string) (*cartdom.Cart, error) {
	if r == nil || r.Client == nil {
		return nil, errors.New("cart_repository_fs: firestore client is nil")
	}

	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("cart_repository_fs: userID is empty")
	}

	snap, err := r.col().Doc(uid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}

	doc := cartDocFromData(snap.Data())
	c := doc.toDomain()
	c.UserID = uid
	return c, nil
}

// Upsert overwrites the full document keyed by cart.UserID.
func (r *CartRepositoryFS) Upsert(ctx context.Context, c *cartdom.Cart) error {
	if r == nil || r.Client == nil {
		return errors.New("cart_repository_fs: firestore client is nil")
	}
	if c == nil {
		return errors.New("cart_repository_fs: cart is nil")
	}

	uid := strings.TrimSpace(c.UserID)
	if uid == "" {
		return errors.New("cart_repository_fs: Upsert requires cart.UserID as docId")
	}

	_, err := r.col().Doc(uid).Set(ctx, cartDocFromDomain(c))
	return err
}

func (r *CartRepositoryFS) DeleteByUserID(ctx context.Context, userID string) error {
	if r == nil || r.Client == nil {
		return errors.New("cart_repository_fs: firestore client is nil")
	}

	uid := strings.TrimSpace(userID)
	if uid == "" {
		return errors.New("cart_repository_fs: userID is empty")
	}

	_, err := r.col().Doc(uid).Delete(ctx)
	return err
}

// -----------------------------------------
// Firestore DTO
// -----------------------------------------

type cartDoc struct {
	Items     []cartItemDoc `firestore:"items"`
	CreatedAt time.Time     `firestore:"createdAt"`
	UpdatedAt time.Time     `firestore:"updatedAt"`
	ExpiresAt time.Time     `firestore:"expiresAt"`
}

// prices are stored as decimal strings; Firestore has no decimal type
type cartItemDoc struct {
	Key       string  `firestore:"key"`
	ProductID string  `firestore:"productId"`
	SKU       string  `firestore:"sku"`
	Name      string  `firestore:"name"`
	Price     string  `firestore:"price"`
	OldPrice  *string `firestore:"oldPrice"`
	Image     string  `firestore:"image"`
	Size      *string `firestore:"size"`
	Color     *string `firestore:"color"`
	Qty       int     `firestore:"qty"`
}

// cartDocFromData parses document data with backward compatibility.
//
// Supported items shapes:
//  1. items: [ {key, productId, ..., qty} ] (current)
//  2. items: { itemKey: {productId, ..., qty} } (legacy map, re-ordered by key)
func cartDocFromData(raw map[string]any) cartDoc {
	out := cartDoc{Items: []cartItemDoc{}}
	if raw == nil {
		return out
	}

	out.CreatedAt = asTime(raw["createdAt"])
	out.UpdatedAt = asTime(raw["updatedAt"])
	out.ExpiresAt = asTime(raw["expiresAt"])

	switch items := raw["items"].(type) {
	case []any:
		for _, v := range items {
			if m, ok := v.(map[string]any); ok {
				if it, ok := itemDocFromMap("", m); ok {
					out.Items = append(out.Items, it)
				}
			}
		}
	case map[string]any:
		keys := make([]string, 0, len(items))
		for k := range items {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if m, ok := items[k].(map[string]any); ok {
				if it, ok := itemDocFromMap(k, m); ok {
					out.Items = append(out.Items, it)
				}
			}
		}
	}
	return out
}

func itemDocFromMap(fallbackKey string, m map[string]any) (cartItemDoc, bool) {
	it := cartItemDoc{
		Key:       strings.TrimSpace(cast.ToString(m["key"])),
		ProductID: strings.TrimSpace(cast.ToString(m["productId"])),
		SKU:       cast.ToString(m["sku"]),
		Name:      cast.ToString(m["name"]),
		Price:     cast.ToString(m["price"]),
		OldPrice:  asStringPtr(m["oldPrice"]),
		Image:     cast.ToString(m["image"]),
		Size:      asStringPtr(m["size"]),
		Color:     asStringPtr(m["color"]),
		Qty:       cast.ToInt(m["qty"]),
	}
	if it.Key == "" {
		it.Key = strings.TrimSpace(fallbackKey)
	}
	if it.Qty <= 0 || (it.Key == "" && it.ProductID == "") {
		return cartItemDoc{}, false
	}
	return it, true
}

func cartDocFromDomain(c *cartdom.Cart) cartDoc {
	items := make([]cartItemDoc, 0, len(c.Items))
	for _, it := range cartdom.Normalize(c.Items) {
		doc := cartItemDoc{
			Key:       it.Key,
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Price:     it.Price.String(),
			Image:     it.Image,
			Size:      it.Size,
			Color:     it.Color,
			Qty:       it.Qty,
		}
		if it.OldPrice.Valid {
			s := it.OldPrice.Decimal.String()
			doc.OldPrice = &s
		}
		items = append(items, doc)
	}

	return cartDoc{
		Items:     items,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		ExpiresAt: c.ExpiresAt,
	}
}

func (d cartDoc) toDomain() *cartdom.Cart {
	items := make([]cartdom.CartItem, 0, len(d.Items))
	for _, it := range d.Items {
		item := cartdom.CartItem{
			Key:       it.Key,
			ProductID: it.ProductID,
			SKU:       it.SKU,
			Name:      it.Name,
			Price:     parseDecimal(it.Price),
			Image:     it.Image,
			Size:      it.Size,
			Color:     it.Color,
			Qty:       it.Qty,
		}
		if it.OldPrice != nil {
			if v, err := decimal.NewFromString(strings.TrimSpace(*it.OldPrice)); err == nil {
				item.OldPrice = decimal.NewNullDecimal(v)
			}
		}
		items = append(items, item)
	}

	// ID is filled by caller (docId)
	return &cartdom.Cart{
		Items:     cartdom.Normalize(items),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		ExpiresAt: d.ExpiresAt,
	}
}

// ----------------------------
// Helpers
// ----------------------------

func asTime(v any) time.Time {
	if t, ok := v.(time.Time); ok {
		return t
	}
	return time.Time{}
}

func asStringPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(cast.ToString(v))
	if s == "" {
		return nil
	}
	return &s
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

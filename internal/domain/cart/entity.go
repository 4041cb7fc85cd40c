// internal/domain/cart/entity.go
package cart

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCart    = errors.New("cart: invalid")
	ErrInvalidProduct = errors.New("cart: invalid product")
)

const (
	// NoSize / NoColor stand in for an absent selection inside an item key.
	NoSize  = "NOSIZE"
	NoColor = "NOCOLOR"

	keySep = "__"

	// DefaultCartTTL is the inactivity window after which a stored cart may be
	// reclaimed (Firestore TTL on expiresAt, expires_at column on postgres).
	DefaultCartTTL = 30 * 24 * time.Hour
)

// CartItem is one line item. Display fields are a snapshot taken when the
// item was added and are never refreshed from the live product.
type CartItem struct {
	Key       string              `json:"key"`
	ProductID string              `json:"productId"`
	SKU       string              `json:"sku"`
	Name      string              `json:"name"`
	Price     decimal.Decimal     `json:"price"`
	OldPrice  decimal.NullDecimal `json:"oldPrice"`
	Image     string              `json:"image"`
	Size      *string             `json:"size"`
	Color     *string             `json:"color"`
	Qty       int                 `json:"qty"`
}

// MarshalJSON writes prices as JSON numbers, which is what the storefront
// wire carries. decimal's package-level quoting switch is left alone.
func (it CartItem) MarshalJSON() ([]byte, error) {
	type wire CartItem

	var oldPrice *json.Number
	if it.OldPrice.Valid {
		n := json.Number(it.OldPrice.Decimal.String())
		oldPrice = &n
	}
	return json.Marshal(struct {
		wire
		Price    json.Number  `json:"price"`
		OldPrice *json.Number `json:"oldPrice"`
	}{
		wire:     wire(it),
		Price:    json.Number(it.Price.String()),
		OldPrice: oldPrice,
	})
}

// Product is the subset of catalog data copied into a line item.
type Product struct {
	ID       string
	SKU      string
	Name     string
	Price    decimal.Decimal
	OldPrice decimal.NullDecimal
	Image    string
}

// Selection carries the optional attributes of an add. Qty <= 0 means 1.
type Selection struct {
	Size  *string
	Color *string
	Qty   int
}

// Key builds the composite line-item key productId__size__color.
func Key(productID string, size, color *string) string {
	return strings.TrimSpace(productID) + keySep + orSentinel(size, NoSize) + keySep + orSentinel(color, NoColor)
}

func orSentinel(v *string, sentinel string) string {
	if v == nil {
		return sentinel
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return sentinel
	}
	return s
}

// ItemKey returns the stored key, or derives it from the item fields when empty.
func (it CartItem) ItemKey() string {
	if k := strings.TrimSpace(it.Key); k != "" {
		return k
	}
	if strings.TrimSpace(it.ProductID) == "" {
		return ""
	}
	return Key(it.ProductID, it.Size, it.Color)
}

// LineTotal is price * qty.
func (it CartItem) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Qty)))
}

// Add returns items with the product added. An existing key has its qty
// incremented; otherwise a new item is appended.
func Add(items []CartItem, p Product, sel Selection) ([]CartItem, error) {
	pid := strings.TrimSpace(p.ID)
	if pid == "" {
		return Clone(items), ErrInvalidProduct
	}

	qty := sel.Qty
	if qty <= 0 {
		qty = 1
	}

	key := Key(pid, sel.Size, sel.Color)
	out := Clone(items)

	if idx := IndexOf(out, key); idx >= 0 {
		out[idx].Qty += qty
		return out, nil
	}

	return append(out, CartItem{
		Key:       key,
		ProductID: pid,
		SKU:       p.SKU,
		Name:      p.Name,
		Price:     p.Price,
		OldPrice:  p.OldPrice,
		Image:     p.Image,
		Size:      cloneStr(sel.Size),
		Color:     cloneStr(sel.Color),
		Qty:       qty,
	}), nil
}

// Remove drops the item with key. Unknown keys are a no-op.
func Remove(items []CartItem, key string) []CartItem {
	out := Clone(items)
	idx := IndexOf(out, key)
	if idx < 0 {
		return out
	}
	return append(out[:idx], out[idx+1:]...)
}

// SetQty sets an absolute quantity. qty <= 0 removes the item.
func SetQty(items []CartItem, key string, qty int) []CartItem {
	if qty <= 0 {
		return Remove(items, key)
	}
	out := Clone(items)
	if idx := IndexOf(out, key); idx >= 0 {
		out[idx].Qty = qty
	}
	return out
}

// Merge folds local into remote. Remote order is kept; local items whose key
// already exists add their qty, the rest are appended in local order.
func Merge(remote, local []CartItem) []CartItem {
	merged := Normalize(remote)
	index := make(map[string]int, len(merged)+len(local))
	for i, it := range merged {
		index[it.Key] = i
	}

	for _, it := range Normalize(local) {
		if i, ok := index[it.Key]; ok {
			merged[i].Qty += it.Qty
			continue
		}
		index[it.Key] = len(merged)
		merged = append(merged, it)
	}
	return merged
}

// Normalize fills missing keys, drops invalid entries (no key, qty <= 0) and
// folds duplicate keys by summing qty. First-seen order is preserved.
func Normalize(items []CartItem) []CartItem {
	out := make([]CartItem, 0, len(items))
	index := make(map[string]int, len(items))

	for _, it := range items {
		key := it.ItemKey()
		if key == "" || it.Qty <= 0 {
			continue
		}
		if i, ok := index[key]; ok {
			out[i].Qty += it.Qty
			continue
		}
		cp := cloneItem(it)
		cp.Key = key
		index[key] = len(out)
		out = append(out, cp)
	}
	return out
}

// IndexOf returns the position of key in items, or -1.
func IndexOf(items []CartItem, key string) int {
	k := strings.TrimSpace(key)
	for i := range items {
		if items[i].Key == k {
			return i
		}
	}
	return -1
}

// Count is the total number of units across line items.
func Count(items []CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Qty
	}
	return n
}

// Subtotal sums price * qty over all items.
func Subtotal(items []CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Clone deep-copies items so callers never share pointer fields.
func Clone(items []CartItem) []CartItem {
	out := make([]CartItem, 0, len(items))
	for _, it := range items {
		out = append(out, cloneItem(it))
	}
	return out
}

func cloneItem(it CartItem) CartItem {
	it.Size = cloneStr(it.Size)
	it.Color = cloneStr(it.Color)
	return it
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

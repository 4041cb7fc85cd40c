// internal/adapters/out/localstore/store.go
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	cartdom "storefront/internal/domain/cart"
)

const (
	// Bucket and key mirror the browser storage slot the storefront used.
	BucketName = "localStorage"
	CartKey    = "abaya_cart"
)

var ErrClosed = errors.New("localstore: closed")

// Store keeps the anonymous cart in a single bbolt key.
type Store struct {
	db  *bolt.DB
	log *zap.Logger
}

// Open creates or opens the bbolt file at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("localstore: path is empty")
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("localstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("localstore: create bucket: %w", err)
	}

	return &Store{db: db, log: zap.L().With(zap.String("namespace", "cart"))}, nil
}

// Load returns the stored cart. A missing key, a read failure or malformed
// JSON all yield an empty cart; the latter two are logged as warnings.
func (s *Store) Load(_ context.Context) []cartdom.CartItem {
	if s == nil || s.db == nil {
		return []cartdom.CartItem{}
	}

	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(CartKey)); v != nil {
			// v is only valid inside the transaction
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		s.log.Warn("local cart read failed", zap.Error(err))
		return []cartdom.CartItem{}
	}
	if len(raw) == 0 {
		return []cartdom.CartItem{}
	}

	var items []cartdom.CartItem
	if err := json.Unmarshal(raw, &items); err != nil {
		s.log.Warn("local cart is malformed, starting empty", zap.Error(err))
		return []cartdom.CartItem{}
	}
	return cartdom.Normalize(items)
}

// Save writes items. An empty cart is a no-op: callers clear explicitly.
func (s *Store) Save(_ context.Context, items []cartdom.CartItem) error {
	if len(items) == 0 {
		return nil
	}
	if s == nil || s.db == nil {
		return ErrClosed
	}

	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("localstore: encode: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(BucketName))
		if err != nil {
			return err
		}
		return b.Put([]byte(CartKey), raw)
	})
}

// Clear removes the stored cart.
func (s *Store) Clear(_ context.Context) error {
	if s == nil || s.db == nil {
		return ErrClosed
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(BucketName))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(CartKey))
	})
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

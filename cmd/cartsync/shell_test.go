package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	httpin "storefront/internal/adapters/in/http"
	"storefront/internal/adapters/out/cartapi"
	"storefront/internal/adapters/out/localstore"
	"storefront/internal/application/cartsync"
	"storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
)

type memRepo struct {
	mu    sync.Mutex
	carts map[string]*cartdom.Cart
}

func (m *memRepo) GetByUserID(_ context.Context, uid string) (*cartdom.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[uid]
	if !ok {
		return nil, nil
	}
	cp := *c
	cp.Items = cartdom.Clone(c.Items)
	return &cp, nil
}

func (m *memRepo) Upsert(_ context.Context, c *cartdom.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	cp.Items = cartdom.Clone(c.Items)
	m.carts[c.UserID] = &cp
	return nil
}

func (m *memRepo) DeleteByUserID(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, uid)
	return nil
}

func (m *memRepo) items(uid string) []cartdom.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[uid]; ok {
		return cartdom.Clone(c.Items)
	}
	return nil
}

func TestShellGuestThenLogin(t *testing.T) {
	repo := &memRepo{carts: map[string]*cartdom.Cart{}}
	srv := httptest.NewServer(httpin.NewRouter(httpin.RouterDeps{CartUC: usecase.NewCartUsecase(repo)}))
	defer srv.Close()

	store, err := localstore.Open(filepath.Join(t.TempDir(), "cart.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	session, err := cartsync.NewSession(nil, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer session.Close()

	provider, err := cartsync.NewProvider(cartsync.Options{
		Local:    store,
		Remote:   cartapi.NewClient(srv.URL, session, time.Second),
		Auth:     session,
		Debounce: time.Hour, // writes happen only through flush and transitions
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	if err := provider.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer provider.Dispose()
	session.Resolve()

	var out bytes.Buffer
	sh := &shell{provider: provider, session: session, out: &out}
	script := strings.Join([]string{
		"add P1 Abaya 49.90 M Red",
		"add P1 Abaya 49.90 M Red",
		"qty P1__M__Red 3",
		"add P2 Hijab 12 - - 2",
		"flush",
		"login u1 tok",
		"ls",
		"quit",
		"add never reached 1",
	}, "\n")
	if err := sh.run(strings.NewReader(script)); err != nil {
		t.Fatalf("run: %v", err)
	}

	if got := store.Load(context.Background()); len(got) != 0 {
		t.Fatalf("local cart should be cleared after login, got %+v", got)
	}
	remote := repo.items("u1")
	if len(remote) != 2 || remote[0].Key != "P1__M__Red" || remote[0].Qty != 3 || remote[1].Key != "P2__NOSIZE__NOCOLOR" || remote[1].Qty != 2 {
		t.Fatalf("unexpected remote cart %+v", remote)
	}
	if provider.State() != cartsync.AuthenticatedActive {
		t.Fatalf("unexpected state %s", provider.State())
	}
	if !strings.Contains(out.String(), "subtotal=173.70") {
		t.Fatalf("ls output missing subtotal:\n%s", out.String())
	}
}

func TestShellRejectsBadInput(t *testing.T) {
	session, _ := cartsync.NewSession(nil, nil)
	defer session.Close()

	var out bytes.Buffer
	sh := &shell{session: session, out: &out}
	for _, line := range []string{"add P1", "qty K x", "login", "bogus"} {
		sh.exec(strings.Fields(line))
	}

	got := out.String()
	for _, want := range []string{"usage: add", "invalid qty", "usage: login", "unknown command"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

package cartsync

import (
	"context"
	"errors"
	"testing"

	"github.com/asaskevich/EventBus"
)

func TestSessionPublishesOnBus(t *testing.T) {
	bus := EventBus.New()
	s, err := NewSession(bus, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	if !s.Current().Resolving {
		t.Fatalf("session should start resolving")
	}

	var seen []AuthState
	if err := bus.Subscribe(TopicAuthChanged, func(st AuthState) { seen = append(seen, st) }); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	s.Resolve()
	if err := s.SignIn(" u1 ", "tok"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	s.SignOut()

	if len(seen) != 3 {
		t.Fatalf("expected 3 events, got %+v", seen)
	}
	if seen[0].Resolving || seen[0].UserID != "" {
		t.Fatalf("unexpected resolve event %+v", seen[0])
	}
	if !seen[1].Authenticated() || seen[1].UserID != "u1" {
		t.Fatalf("unexpected sign-in event %+v", seen[1])
	}
	if seen[2].Authenticated() {
		t.Fatalf("unexpected sign-out event %+v", seen[2])
	}
}

func TestSessionSubscribeAndUnsubscribe(t *testing.T) {
	s, _ := NewSession(nil, nil)
	defer s.Close()

	calls := 0
	unsub := s.Subscribe(func(AuthState) { calls++ })
	s.Resolve()
	unsub()
	unsub()
	s.Resolve()

	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestSessionSignInRejectsEmptyUser(t *testing.T) {
	s, _ := NewSession(nil, nil)
	defer s.Close()
	if err := s.SignIn("  ", "tok"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSessionTokens(t *testing.T) {
	ctx := context.Background()
	s, _ := NewSession(nil, func(_ context.Context, uid string) (string, error) {
		return "fresh-" + uid, nil
	})
	defer s.Close()

	if tok, _ := s.Token(ctx); tok != "" {
		t.Fatalf("anonymous token should be empty, got %q", tok)
	}

	_ = s.SignIn("u1", "stale")
	if tok, _ := s.Token(ctx); tok != "stale" {
		t.Fatalf("unexpected token %q", tok)
	}
	if tok, err := s.Refresh(ctx); err != nil || tok != "fresh-u1" {
		t.Fatalf("Refresh = %q, %v", tok, err)
	}
	if tok, _ := s.Token(ctx); tok != "fresh-u1" {
		t.Fatalf("refreshed token not stored: %q", tok)
	}
}

func TestSessionRefreshError(t *testing.T) {
	boom := errors.New("idp down")
	s, _ := NewSession(nil, func(context.Context, string) (string, error) { return "", boom })
	defer s.Close()

	_ = s.SignIn("u1", "stale")
	if _, err := s.Refresh(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected refresh error, got %v", err)
	}
	if tok, _ := s.Token(context.Background()); tok != "stale" {
		t.Fatalf("failed refresh must keep the old token")
	}
}

func TestLocalPersistenceEmptyClears(t *testing.T) {
	local := &fakeLocal{}
	p := LocalPersistence{Store: local}
	if err := p.Save(context.Background(), nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, saves, clears := local.snapshot(); saves != 0 || clears != 1 {
		t.Fatalf("empty save should clear, saves=%d clears=%d", saves, clears)
	}
}

func TestRemotePersistenceClearSendsEmptyCart(t *testing.T) {
	remote := newFakeRemote()
	p := RemotePersistence{Client: remote, UserID: "u1"}
	if err := p.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	calls := remote.calls()
	if len(calls) != 1 || calls[0].userID != "u1" || calls[0].items == nil || len(calls[0].items) != 0 {
		t.Fatalf("unexpected calls %+v", calls)
	}
}

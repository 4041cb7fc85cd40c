// internal/application/cartsync/auth.go
package cartsync

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/asaskevich/EventBus"
)

// TopicAuthChanged carries an AuthState on every sign-in, sign-out or resolution.
const TopicAuthChanged = "auth:changed"

// AuthState is a snapshot of the identity collaborator.
// Resolving is true until the identity provider has answered once.
type AuthState struct {
	UserID    string
	Resolving bool
}

func (a AuthState) Authenticated() bool {
	return !a.Resolving && strings.TrimSpace(a.UserID) != ""
}

// AuthSource is what the provider observes.
type AuthSource interface {
	Current() AuthState
	// Subscribe registers fn for later changes and returns its cancel func.
	Subscribe(fn func(AuthState)) (unsubscribe func())
}

// TokenRefresher obtains a fresh ID token for userID.
type TokenRefresher func(ctx context.Context, userID string) (string, error)

type subscriber struct {
	id uint64
	fn func(AuthState)
}

// Session is the in-process identity holder. State changes are published on
// an EventBus topic so other components can observe them too; handlers run
// synchronously in the publisher's goroutine. Use one Session per bus.
//
// Session also satisfies cartapi.TokenSource.
type Session struct {
	bus     EventBus.Bus
	refresh TokenRefresher

	mu    sync.RWMutex
	state AuthState
	token string

	subMu  sync.Mutex
	subs   []subscriber
	nextID uint64
}

// NewSession starts in the resolving state. bus may be nil.
func NewSession(bus EventBus.Bus, refresh TokenRefresher) (*Session, error) {
	if bus == nil {
		bus = EventBus.New()
	}
	s := &Session{
		bus:     bus,
		refresh: refresh,
		state:   AuthState{Resolving: true},
	}
	if err := bus.Subscribe(TopicAuthChanged, s.dispatch); err != nil {
		return nil, fmt.Errorf("cartsync: subscribe %s: %w", TopicAuthChanged, err)
	}
	return s, nil
}

func (s *Session) Current() AuthState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) Subscribe(fn func(AuthState)) func() {
	s.subMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Resolve ends the resolving phase with no signed-in user.
func (s *Session) Resolve() {
	s.mu.Lock()
	s.state.Resolving = false
	st := s.state
	s.mu.Unlock()

	s.bus.Publish(TopicAuthChanged, st)
}

// SignIn sets the current user and its token.
func (s *Session) SignIn(userID, token string) error {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return fmt.Errorf("cartsync: sign in: user id is empty")
	}

	s.mu.Lock()
	s.state = AuthState{UserID: uid}
	s.token = strings.TrimSpace(token)
	st := s.state
	s.mu.Unlock()

	s.bus.Publish(TopicAuthChanged, st)
	return nil
}

// SignOut forgets the user and its token.
func (s *Session) SignOut() {
	s.mu.Lock()
	s.state = AuthState{}
	s.token = ""
	st := s.state
	s.mu.Unlock()

	s.bus.Publish(TopicAuthChanged, st)
}

// Token returns the bearer token of the signed-in user, or "".
func (s *Session) Token(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, nil
}

// Refresh asks the refresher for a new token. Without one the current token
// is returned unchanged.
func (s *Session) Refresh(ctx context.Context) (string, error) {
	s.mu.RLock()
	uid, tok := s.state.UserID, s.token
	s.mu.RUnlock()

	if s.refresh == nil || uid == "" {
		return tok, nil
	}

	fresh, err := s.refresh(ctx, uid)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	// user may have changed while refreshing
	if s.state.UserID == uid {
		s.token = strings.TrimSpace(fresh)
	}
	s.mu.Unlock()
	return strings.TrimSpace(fresh), nil
}

// Close detaches the session from its bus.
func (s *Session) Close() error {
	return s.bus.Unsubscribe(TopicAuthChanged, s.dispatch)
}

func (s *Session) dispatch(st AuthState) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(st)
	}
}

// internal/adapters/in/http/middleware/auth.go
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
)

// TokenVerifier is satisfied by *fbauth.Client.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

type ctxKey struct{ name string }

var (
	ctxKeyUID       = ctxKey{name: "uid"}
	ctxKeyRequestID = ctxKey{name: "requestId"}
)

// UserAuth verifies Firebase ID tokens and stores the uid in the context.
// With Required=false a request without Authorization, or any request when
// no Verifier is configured, passes through anonymously; a present but
// invalid token is still rejected when a Verifier exists.
type UserAuth struct {
	Verifier TokenVerifier
	Required bool
}

func (m *UserAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if authHeader == "" && !m.Required {
			next.ServeHTTP(w, r)
			return
		}

		if m.Verifier == nil {
			if !m.Required {
				// nothing to verify against; treat as anonymous
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, http.StatusServiceUnavailable, "user auth middleware not initialized")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized: missing bearer token")
			return
		}
		idToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if idToken == "" {
			writeError(w, http.StatusUnauthorized, "unauthorized: empty bearer token")
			return
		}

		token, err := m.Verifier.VerifyIDToken(r.Context(), idToken)
		if err != nil {
			zap.L().Debug("id token rejected", zap.String("namespace", "http"), zap.Error(err))
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		uid := strings.TrimSpace(token.UID)
		if uid == "" {
			writeError(w, http.StatusUnauthorized, "invalid uid in token")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUID, uid)))
	})
}

// CurrentUserUID returns the verified Firebase UID, if any.
func CurrentUserUID(r *http.Request) (string, bool) {
	u, ok := r.Context().Value(ctxKeyUID).(string)
	if !ok || strings.TrimSpace(u) == "" {
		return "", false
	}
	return u, true
}

// WithUID is used by tests and internal callers to impersonate a verified user.
func WithUID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKeyUID, strings.TrimSpace(uid))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

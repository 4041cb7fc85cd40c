package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
)

type fakeVerifier struct {
	VerifyFn func(ctx context.Context, token string) (*fbauth.Token, error)
}

func (f fakeVerifier) VerifyIDToken(ctx context.Context, token string) (*fbauth.Token, error) {
	return f.VerifyFn(ctx, token)
}

func okVerifier(uid string) fakeVerifier {
	return fakeVerifier{VerifyFn: func(_ context.Context, token string) (*fbauth.Token, error) {
		if token != "good" {
			return nil, errors.New("bad token")
		}
		return &fbauth.Token{UID: uid, Claims: map[string]interface{}{"email": "a@example.com"}}, nil
	}}
}

func echoUID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := CurrentUserUID(r)
		_, _ = w.Write([]byte(uid))
	})
}

func TestUserAuth(t *testing.T) {
	tests := []struct {
		name     string
		required bool
		header   string
		wantCode int
		wantBody string
	}{
		{"optional anonymous", false, "", http.StatusOK, ""},
		{"optional valid", false, "Bearer good", http.StatusOK, "u1"},
		{"optional invalid", false, "Bearer bad", http.StatusUnauthorized, ""},
		{"required missing", true, "", http.StatusUnauthorized, ""},
		{"required wrong scheme", true, "Basic abc", http.StatusUnauthorized, ""},
		{"required valid", true, "Bearer good", http.StatusOK, "u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &UserAuth{Verifier: okVerifier("u1"), Required: tt.required}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			m.Handler(echoUID()).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK && rr.Body.String() != tt.wantBody {
				t.Fatalf("body = %q, want %q", rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestUserAuthWithoutVerifier(t *testing.T) {
	m := &UserAuth{Required: true}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rr := httptest.NewRecorder()
	m.Handler(echoUID()).ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
}

func TestRecover(t *testing.T) {
	h := RequestLog(Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
	if rr.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("expected a request id header")
	}
}

func TestRequestLogKeepsIncomingID(t *testing.T) {
	var seen string
	h := RequestLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r)
		w.WriteHeader(http.StatusNoContent)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if seen != "abc" || rr.Header().Get(RequestIDHeader) != "abc" {
		t.Fatalf("request id not propagated: ctx=%q header=%q", seen, rr.Header().Get(RequestIDHeader))
	}
	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://shop.example.com"})(echoUID())
	req := httptest.NewRequest(http.MethodOptions, "/api/cart/u1", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

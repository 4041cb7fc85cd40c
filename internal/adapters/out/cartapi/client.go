// internal/adapters/out/cartapi/client.go
package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	cartdom "storefront/internal/domain/cart"
)

const DefaultTimeout = 30 * time.Second

var ErrNotConfigured = errors.New("cartapi: baseURL is empty")

// TokenSource supplies bearer tokens for the cart API.
// Refresh is called once after a 401 and must return a fresh token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("cartapi: %s %s: status=%d body=%s", e.Method, e.Path, e.Code, e.Body)
}

// IsUnauthorized reports whether err is a 401 StatusError.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

type cartPayload struct {
	Items []cartdom.CartItem `json:"items"`
}

// Client talks to GET/POST {base}/api/cart/{userId}.
type Client struct {
	http    *http.Client
	baseURL string
	tokens  TokenSource
	log     *zap.Logger
}

// NewClient builds a client. tokens may be nil for unauthenticated backends.
func NewClient(baseURL string, tokens TokenSource, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		tokens:  tokens,
		log:     zap.L().With(zap.String("namespace", "cartapi")),
	}
}

// Fetch returns the remote cart of userID. An empty remote cart is an empty slice.
func (c *Client) Fetch(ctx context.Context, userID string) ([]cartdom.CartItem, error) {
	body, err := c.do(ctx, http.MethodGet, userID, nil)
	if err != nil {
		return nil, err
	}

	var res cartPayload
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &res); err != nil {
			return nil, fmt.Errorf("cartapi: decode cart: %w", err)
		}
	}
	return cartdom.Normalize(res.Items), nil
}

// Persist replaces the remote cart of userID with items.
func (c *Client) Persist(ctx context.Context, userID string, items []cartdom.CartItem) error {
	if items == nil {
		items = []cartdom.CartItem{}
	}
	payload, err := json.Marshal(cartPayload{Items: items})
	if err != nil {
		return fmt.Errorf("cartapi: encode cart: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, userID, payload)
	return err
}

func (c *Client) do(ctx context.Context, method, userID string, payload []byte) ([]byte, error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, errors.New("cartapi: userID is empty")
	}
	path := "/api/cart/" + url.PathEscape(uid)

	token, err := c.token(ctx, false)
	if err != nil {
		return nil, err
	}

	body, err := c.send(ctx, method, path, payload, token)
	if !IsUnauthorized(err) || c.tokens == nil {
		return body, err
	}

	c.log.Info("token rejected, refreshing", zap.String("method", method), zap.String("path", path))
	token, rerr := c.token(ctx, true)
	if rerr != nil {
		return nil, rerr
	}
	return c.send(ctx, method, path, payload, token)
}

func (c *Client) token(ctx context.Context, refresh bool) (string, error) {
	if c.tokens == nil {
		return "", nil
	}
	var (
		tok string
		err error
	)
	if refresh {
		tok, err = c.tokens.Refresh(ctx)
	} else {
		tok, err = c.tokens.Token(ctx)
	}
	if err != nil {
		return "", fmt.Errorf("cartapi: token: %w", err)
	}
	return strings.TrimSpace(tok), nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, token string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("cartapi: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// a partial body is still worth reporting
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if readErr != nil {
		return nil, fmt.Errorf("cartapi: read %s %s response: %w", method, path, readErr)
	}
	return body, nil
}

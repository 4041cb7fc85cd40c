// internal/adapters/in/http/handlers/cart_handler.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storefront/internal/adapters/in/http/middleware"
	usecase "storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
)

const maxCartBody = 1 << 20

// CartService is the usecase surface the handler needs.
type CartService interface {
	Get(ctx context.Context, userID string) (*cartdom.Cart, error)
	Replace(ctx context.Context, userID string, items []cartdom.CartItem) (*cartdom.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// CartHandler serves /api/cart/{userId}.
type CartHandler struct {
	uc CartService
}

func NewCartHandler(uc CartService) *CartHandler {
	return &CartHandler{uc: uc}
}

// Mount registers the cart routes on r.
func (h *CartHandler) Mount(r chi.Router) {
	r.Route("/api/cart/{userId}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Post("/", h.replace)
		r.Delete("/", h.clear)
	})
}

type replaceRequest struct {
	Items []cartdom.CartItem `json:"items"`
}

type cartResponse struct {
	UserID    string             `json:"userId"`
	Items     []cartdom.CartItem `json:"items"`
	CreatedAt *time.Time         `json:"createdAt"`
	UpdatedAt *time.Time         `json:"updatedAt"`
	ExpiresAt *time.Time         `json:"expiresAt"`
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	c, err := h.uc.Get(r.Context(), uid)
	if err != nil {
		writeUsecaseErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(c))
}

func (h *CartHandler) replace(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req replaceRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCartBody))
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	c, err := h.uc.Replace(r.Context(), uid, req.Items)
	if err != nil {
		writeUsecaseErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(c))
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	uid, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.uc.Clear(r.Context(), uid); err != nil {
		writeUsecaseErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// userID reads {userId} and enforces ownership when a verified uid exists.
func (h *CartHandler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.uc == nil {
		writeErr(w, http.StatusInternalServerError, "cart handler is not configured")
		return "", false
	}

	uid := strings.TrimSpace(chi.URLParam(r, "userId"))
	if uid == "" {
		writeErr(w, http.StatusBadRequest, "userId is required")
		return "", false
	}

	if authUID, ok := middleware.CurrentUserUID(r); ok && authUID != uid {
		writeErr(w, http.StatusForbidden, "forbidden")
		return "", false
	}
	return uid, true
}

func toResponse(c *cartdom.Cart) cartResponse {
	items := c.Items
	if items == nil {
		items = []cartdom.CartItem{}
	}
	return cartResponse{
		UserID:    c.UserID,
		Items:     items,
		CreatedAt: timePtr(c.CreatedAt),
		UpdatedAt: timePtr(c.UpdatedAt),
		ExpiresAt: timePtr(c.ExpiresAt),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

func writeUsecaseErr(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, usecase.ErrCartInvalidArgument) ||
		errors.Is(err, cartdom.ErrInvalidCart) ||
		errors.Is(err, cartdom.ErrInvalidProduct) {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}

	zap.L().Error("cart request failed",
		zap.String("namespace", "http"),
		zap.String("request_id", middleware.RequestID(r)),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeErr(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

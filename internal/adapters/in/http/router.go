// internal/adapters/in/http/router.go
package httpin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"storefront/internal/adapters/in/http/handlers"
	"storefront/internal/adapters/in/http/middleware"
)

// RouterDeps collects what NewRouter wires.
type RouterDeps struct {
	CartUC handlers.CartService

	// Verifier may be nil when AuthRequired is false.
	Verifier     middleware.TokenVerifier
	AuthRequired bool

	AllowedOrigins []string
}

// NewRouter builds the cart API. Middleware order, outermost first:
// request log, CORS, recover, auth.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLog)
	r.Use(middleware.CORS(deps.AllowedOrigins))
	r.Use(middleware.Recover)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Group(func(r chi.Router) {
		auth := &middleware.UserAuth{Verifier: deps.Verifier, Required: deps.AuthRequired}
		r.Use(auth.Handler)
		handlers.NewCartHandler(deps.CartUC).Mount(r)
	})

	return r
}

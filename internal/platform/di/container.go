// internal/platform/di/container.go
package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	httpin "storefront/internal/adapters/in/http"
	"storefront/internal/adapters/in/http/middleware"
	dbadapter "storefront/internal/adapters/out/db"
	fsadapter "storefront/internal/adapters/out/firestore"
	"storefront/internal/application/usecase"
	cartdom "storefront/internal/domain/cart"
	appcfg "storefront/internal/infra/config"
	"storefront/internal/infra/database"
	firestoreinfra "storefront/internal/infra/firestore"
)

// Container owns the cart API's clients and its HTTP handler.
type Container struct {
	Config *appcfg.Config

	// at most one of Firestore / DB is set, per CART_STORE
	Firestore    *firestoreinfra.ClientWrapper
	DB           *database.DB
	FirebaseAuth *firebaseauth.Client

	CartRepo cartdom.Repository
	CartUC   *usecase.CartUsecase
	Handler  http.Handler
}

// NewContainer connects the configured cart store and builds the router.
// Firebase Auth is strict when AUTH_REQUIRED is set, best-effort otherwise.
func NewContainer(ctx context.Context, cfg *appcfg.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("di: config is nil")
	}
	log := zap.L().With(zap.String("namespace", "boot"))
	c := &Container{Config: cfg}

	var clientOpts []option.ClientOption
	if f := strings.TrimSpace(cfg.FirestoreCredentialsFile); f != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(f))
	}

	// 1) cart store (strict)
	switch cfg.CartStore {
	case appcfg.StorePostgres:
		db, err := database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		repo := dbadapter.NewCartRepositoryPG(db.Client)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		c.DB, c.CartRepo = db, repo

	case appcfg.StoreFirestore:
		cw, err := firestoreinfra.NewClient(ctx, cfg.FirestoreProjectID, cfg.FirestoreCredentialsFile)
		if err != nil {
			return nil, err
		}
		c.Firestore = cw
		c.CartRepo = fsadapter.NewCartRepositoryFS(cw.Client)

	default:
		return nil, fmt.Errorf("di: unknown CART_STORE %q", cfg.CartStore)
	}

	// 2) Firebase Auth
	if cfg.AuthRequired || strings.TrimSpace(cfg.FirebaseProjectID) != "" {
		authClient, err := newFirebaseAuth(ctx, cfg.FirebaseProjectID, clientOpts)
		switch {
		case err == nil:
			c.FirebaseAuth = authClient
			log.Info("firebase auth initialized")
		case cfg.AuthRequired:
			_ = c.Close()
			return nil, err
		default:
			log.Warn("firebase auth init failed, tokens will be rejected", zap.Error(err))
		}
	}

	c.CartUC = usecase.NewCartUsecase(c.CartRepo)

	deps := httpin.RouterDeps{
		CartUC:         c.CartUC,
		AuthRequired:   cfg.AuthRequired,
		AllowedOrigins: cfg.CORSOrigins,
	}
	if c.FirebaseAuth != nil {
		deps.Verifier = c.FirebaseAuth
	}
	c.Handler = httpin.NewRouter(deps)

	log.Info("cart api container ready", zap.String("store", cfg.CartStore), zap.Bool("auth_required", cfg.AuthRequired))
	return c, nil
}

func newFirebaseAuth(ctx context.Context, projectID string, opts []option.ClientOption) (*firebaseauth.Client, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: strings.TrimSpace(projectID)}, opts...)
	if err != nil {
		return nil, fmt.Errorf("di: firebase app: %w", err)
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("di: firebase auth: %w", err)
	}
	return authClient, nil
}

// Close releases the store clients. Safe on a partially built container.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Firestore != nil {
		errs = append(errs, c.Firestore.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}

var _ middleware.TokenVerifier = (*firebaseauth.Client)(nil)

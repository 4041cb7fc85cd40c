// cmd/cartsync/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/asaskevich/EventBus"
	"go.uber.org/zap"

	"storefront/internal/adapters/out/cartapi"
	"storefront/internal/adapters/out/localstore"
	"storefront/internal/application/cartsync"
	appcfg "storefront/internal/infra/config"
	"storefront/internal/infra/logging"
)

func main() {
	cfg := appcfg.Load()

	logger, err := logging.Init(cfg.LogMode, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.With(zap.String("namespace", "boot"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		log.Error("cartsync failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *appcfg.Config, logger *zap.Logger) error {
	store, err := localstore.Open(cfg.CartLocalDB)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := EventBus.New()
	_ = bus.Subscribe(cartsync.TopicAuthChanged, func(st cartsync.AuthState) {
		logger.Debug("auth changed",
			zap.String("namespace", "auth"),
			zap.String("user", st.UserID),
			zap.Bool("resolving", st.Resolving),
		)
	})

	session, err := cartsync.NewSession(bus, nil)
	if err != nil {
		return err
	}
	defer session.Close()

	provider, err := cartsync.NewProvider(cartsync.Options{
		Local:    store,
		Remote:   cartapi.NewClient(cfg.CartAPIBaseURL, session, cfg.CartHTTPTimeout),
		Auth:     session,
		Notifier: cartsync.NewLogNotifier(logger),
		Logger:   logger,
		Debounce: cfg.CartDebounce,
	})
	if err != nil {
		return err
	}
	// writes must outlive the signal so the final flush can run
	if err := provider.Init(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	defer provider.Dispose()

	// no persisted identity in the shell: start anonymous
	session.Resolve()

	sh := &shell{provider: provider, session: session, out: os.Stdout}
	done := make(chan error, 1)
	go func() { done <- sh.run(os.Stdin) }()

	select {
	case err = <-done:
	case <-ctx.Done():
	}

	if ferr := provider.Flush(); ferr != nil {
		logger.Warn("final sync failed", zap.String("namespace", "cart"), zap.Error(ferr))
	}
	return err
}

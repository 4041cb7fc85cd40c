// cmd/cartapi/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"storefront/internal/adapters/in/http/middleware"
	appcfg "storefront/internal/infra/config"
	"storefront/internal/infra/logging"
	"storefront/internal/platform/di"
)

// atomicHandler swaps the served handler once DI is ready.
type atomicHandler struct {
	v atomic.Value // http.Handler
}

func newAtomicHandler(initial http.Handler) *atomicHandler {
	ah := &atomicHandler{}
	if initial == nil {
		initial = http.NotFoundHandler()
	}
	ah.v.Store(initial)
	return ah
}

func (h *atomicHandler) Store(next http.Handler) {
	if next != nil {
		h.v.Store(next)
	}
}

func (h *atomicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.v.Load().(http.Handler).ServeHTTP(w, r)
}

func main() {
	cfg := appcfg.Load()

	logger, err := logging.Init(cfg.LogMode, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.With(zap.String("namespace", "boot"))

	// Listen right away with /healthz only; the cart routes arrive after DI.
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	switcher := newAtomicHandler(middleware.CORS(cfg.CORSOrigins)(healthMux))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      switcher,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	var container atomic.Pointer[di.Container]
	shuttingDown := make(chan struct{})
	idleConnsClosed := make(chan struct{})

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		sig := <-c

		close(shuttingDown)
		log.Info("shutting down", zap.String("signal", sig.String()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("server shutdown error", zap.Error(err))
		}
		if cont := container.Swap(nil); cont != nil {
			if err := cont.Close(); err != nil {
				log.Warn("container close error", zap.Error(err))
			}
		}
		close(idleConnsClosed)
	}()

	go func() {
		log.Info("listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	go func() {
		initCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		cont, err := di.NewContainer(initCtx, cfg)
		if err != nil {
			log.Error("di init failed, serving /healthz only", zap.Error(err))
			return
		}

		select {
		case <-shuttingDown:
			_ = cont.Close()
			return
		default:
		}

		container.Store(cont)
		switcher.Store(cont.Handler)
		log.Info("cart api ready")
	}()

	<-idleConnsClosed
	log.Info("bye")
}

// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/matthewbaird/fieldops/internal/activity"
	"github.com/matthewbaird/fieldops/internal/eventbus"
	"github.com/matthewbaird/fieldops/internal/handler"
	"github.com/matthewbaird/fieldops/internal/logging"
	"github.com/matthewbaird/fieldops/internal/preview"
	"github.com/matthewbaird/fieldops/internal/rules"
	"github.com/matthewbaird/fieldops/internal/store"
)

// shutdownTimeout bounds how long in-flight requests may run after the
// context is cancelled.
const shutdownTimeout = 10 * time.Second

// Config holds server configuration.
type Config struct {
	Port  int
	Store store.Store
	// Rules validates API writes; nil disables rule checks.
	Rules  *rules.RuleSet
	Logger *zap.Logger

	// Events receives record change events. Run builds a bus feeding the
	// log and the activity indexer when nil.
	Events handler.Publisher

	// Activity serves the per-record feeds. Run uses a MemoryStore when nil.
	Activity activity.Store
}

// NewEventBus returns a bus that logs every event and indexes it into feed.
// The caller starts and stops it.
func NewEventBus(feed activity.Store, logger *zap.Logger) *eventbus.Bus {
	bus := eventbus.New(0, logger)
	bus.Subscribe("log", eventbus.NewLogConsumer(logging.OrNop(logger).Named("events")))
	bus.Subscribe("activity", activity.NewIndexer(feed))
	return bus
}

// NewRouter returns the HTTP handler serving the health check, the resource
// API under /v1 and the preview WebSocket.
func NewRouter(cfg Config) http.Handler {
	logger := logging.OrNop(cfg.Logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, handler.Recovery(logger), handler.Logging(logger))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	var opts []handler.Option
	if cfg.Events != nil {
		opts = append(opts, handler.WithEvents(cfg.Events))
	}
	if cfg.Activity != nil {
		opts = append(opts, handler.WithActivity(cfg.Activity))
	}

	r.Route("/v1", func(r chi.Router) {
		handler.RegisterRoutes(r, cfg.Store, cfg.Rules, logger, opts...)
		r.Get("/preview/ws", preview.NewHandler(logger).ServeHTTP)
	})
	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// fails.
func Run(ctx context.Context, cfg Config) error {
	logger := logging.OrNop(cfg.Logger)
	addr := fmt.Sprintf(":%d", cfg.Port)

	if cfg.Events == nil {
		if cfg.Activity == nil {
			cfg.Activity = activity.NewMemoryStore()
		}
		bus := NewEventBus(cfg.Activity, logger)
		// Detached from ctx: requests finishing during shutdown still
		// publish, and Stop drains the buffer.
		bus.Start(context.Background())
		defer bus.Stop()
		cfg.Events = bus
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", addr), zap.Int("resources", len(store.Tables)))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

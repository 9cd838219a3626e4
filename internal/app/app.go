// Package app wires together all dependencies and runs the storefront.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/k1shan-k/lsspoing/pkg/health"
	"github.com/k1shan-k/lsspoing/pkg/httpclient"

	"github.com/k1shan-k/lsspoing/internal/catalog"
	"github.com/k1shan-k/lsspoing/internal/commerce"
	"github.com/k1shan-k/lsspoing/internal/config"
	handler "github.com/k1shan-k/lsspoing/internal/handler/http"
	"github.com/k1shan-k/lsspoing/internal/identity"
	"github.com/k1shan-k/lsspoing/internal/session"
	"github.com/k1shan-k/lsspoing/internal/store"
	memorystore "github.com/k1shan-k/lsspoing/internal/store/memory"
	redisstore "github.com/k1shan-k/lsspoing/internal/store/redis"
	sqlitestore "github.com/k1shan-k/lsspoing/internal/store/sqlite"
)

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	backend    store.Backend
	sessions   *session.Manager
	engine     *commerce.Engine
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	backend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	st := store.New(backend, logger)

	// Upstream HTTP clients share a retrying transport; each upstream gets
	// its own circuit breaker so a failing identity provider does not open
	// the catalog's circuit.
	clientCfg := httpclient.DefaultConfig()
	clientCfg.Timeout = time.Duration(cfg.UpstreamTimeoutSec) * time.Second
	baseClient := httpclient.New(clientCfg)

	identityHTTP := httpclient.NewCircuitBreakerClient(baseClient, httpclient.DefaultCircuitBreakerConfig("identity"), logger)
	catalogHTTP := httpclient.NewCircuitBreakerClient(baseClient, httpclient.DefaultCircuitBreakerConfig("catalog"), logger)

	identityClient := identity.NewHTTPClient(identityHTTP, cfg.IdentityBaseURL, cfg.TokenExpiryMins, logger)
	catalogClient := catalog.NewClient(catalogHTTP, cfg.CatalogBaseURL, logger)

	sessions := session.NewManager(identityClient, st, logger)
	engine := commerce.NewEngine(st, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("store", func(ctx context.Context) error {
		return st.Ping(ctx)
	})

	router := handler.NewRouter(sessions, engine, catalogClient, healthHandler, logger)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		backend:    backend,
		sessions:   sessions,
		engine:     engine,
		httpServer: httpServer,
	}, nil
}

func newBackend(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Backend, error) {
	switch cfg.StateBackend {
	case "sqlite":
		backend, err := sqlitestore.New(cfg.StatePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite state store: %w", err)
		}
		logger.Info("using sqlite state store", slog.String("path", cfg.StatePath))
		return backend, nil

	case "redis":
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("using redis state store", slog.String("addr", cfg.RedisAddr))
		return redisstore.New(rdb), nil

	case "memory":
		logger.Warn("using in-memory state store, nothing will survive a restart")
		return memorystore.New(), nil

	default:
		return nil, fmt.Errorf("unknown state backend: %q", cfg.StateBackend)
	}
}

// Run verifies any persisted session, starts the HTTP server, and blocks
// until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	// One-time verification of whatever session survived the last run.
	a.sessions.Bootstrap(ctx)
	if user := a.sessions.CurrentUser(); user != nil {
		a.engine.Activate(ctx, user.ID)
	}

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
	}

	if err := a.backend.Close(); err != nil {
		a.logger.Error("state store close error", slog.String("error", err.Error()))
	}

	a.logger.Info("application shutdown complete")
	return nil
}

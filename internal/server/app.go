// Package server wires configuration, storage, the user directory and the
// HTTP endpoints into a runnable application.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iudanet/nautilus/internal/server/config"
	"github.com/iudanet/nautilus/internal/server/directory"
	"github.com/iudanet/nautilus/internal/server/handlers"
	"github.com/iudanet/nautilus/internal/server/jwt"
	"github.com/iudanet/nautilus/internal/server/middleware"
	"github.com/iudanet/nautilus/internal/server/revocation"
	"github.com/iudanet/nautilus/internal/server/storage"
	"github.com/iudanet/nautilus/internal/server/storage/boltdb"
	"github.com/iudanet/nautilus/internal/server/storage/memory"
	"github.com/iudanet/nautilus/internal/server/storage/redis"
	"github.com/iudanet/nautilus/internal/server/storage/sqlite"
)

// App is the assembled server
type App struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     storage.Store
	directory *directory.Directory
	denylist  *revocation.Denylist
	tokens    *jwt.Service
	limiter   *middleware.RateLimiter
	handler   http.Handler
}

// OpenStore opens the backend selected by cfg.Storage
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)

	switch cfg.Storage {
	case config.StorageBolt:
		store, err = openStore(boltdb.New(ctx, cfg.BoltPath))
	case config.StorageSQLite:
		store, err = openStore(sqlite.New(ctx, cfg.SQLitePath))
	case config.StorageRedis:
		store, err = openStore(redis.New(ctx, redis.Options{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			Namespace: cfg.RedisNamespace,
		}))
	case config.StorageMemory:
		store = memory.New()
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.Storage)
	}

	return store, err
}

// openStore не даёт типизированному nil попасть в интерфейс
func openStore[S storage.Store](s S, err error) (storage.Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// New opens the store and builds every component on top of it
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, version string) (*App, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage, err)
	}

	app, err := NewWithStore(cfg, logger, store, version)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return app, nil
}

// NewWithStore builds the application over an already opened store.
// The App takes ownership of store.
func NewWithStore(cfg *config.Config, logger *slog.Logger, store storage.Store, version string) (*App, error) {
	dir := directory.New(store, logger.With(slog.String("component", "directory")),
		directory.WithDefaultAdminPin(cfg.AdminDefaultPin))
	denylist := revocation.New(store, nil)

	tokens, err := jwt.NewService([]byte(cfg.JWTSecret), cfg.TokenTTL, jwt.WithDenylist(denylist))
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.LoginRate, cfg.LoginWindow, logger).
		TrustProxyHeaders(cfg.TrustProxy)

	handler := NewRouter(logger,
		handlers.NewAuthHandler(logger, dir, tokens),
		handlers.NewAdminHandler(logger, dir, tokens),
		handlers.NewHealthHandler(logger, version),
		limiter,
	)

	return &App{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		directory: dir,
		denylist:  denylist,
		tokens:    tokens,
		limiter:   limiter,
		handler:   handler,
	}, nil
}

// Handler returns the root HTTP handler
func (a *App) Handler() http.Handler {
	return a.handler
}

// Repair reconciles the user directory
func (a *App) Repair(ctx context.Context) (directory.RepairReport, error) {
	return a.directory.Repair(ctx)
}

// Run repairs the directory, serves HTTP until ctx is cancelled and then
// shuts down gracefully
func (a *App) Run(ctx context.Context) error {
	if _, err := a.Repair(ctx); err != nil {
		return fmt.Errorf("startup repair failed: %w", err)
	}
	if _, err := a.directory.EnsureAdmin(ctx); err != nil {
		return fmt.Errorf("failed to seed admin: %w", err)
	}

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errC := make(chan error, 1)
	go func() {
		a.logger.InfoContext(ctx, "http server listening", slog.String("addr", a.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
		close(errC)
	}()

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go a.purgeLoop(purgeCtx)

	select {
	case err, ok := <-errC:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}

// purgeLoop удаляет истёкшие записи denylist до отмены ctx
func (a *App) purgeLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.PurgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.purge(ctx)
		}
	}
}

func (a *App) purge(ctx context.Context) {
	n, err := a.denylist.Purge(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "failed to purge denylist", slog.Any("error", err))
		return
	}
	if n > 0 {
		a.logger.InfoContext(ctx, "denylist purged", slog.Int("removed", n))
	}
}

// Close stops background work and closes the store
func (a *App) Close() error {
	a.limiter.Stop()
	return a.store.Close()
}

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/lingua-api/internal/config"
	"github.com/phrazzld/lingua-api/internal/platform/postgres"
	"github.com/phrazzld/lingua-api/internal/platform/redis"
	"github.com/phrazzld/lingua-api/internal/service/assessment"
	"github.com/phrazzld/lingua-api/internal/service/auth"
	"github.com/phrazzld/lingua-api/internal/service/ledger"
	"github.com/phrazzld/lingua-api/internal/store"
)

// application holds the shared dependencies and releases them on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB
	cache  *redis.Cache

	userStore store.UserStore

	jwtService        auth.JWTService
	passwordVerifier  auth.PasswordVerifier
	ledgerService     ledger.Service
	assessmentService assessment.Service
}

// newApplication wires stores and services on top of an open database.
// A configured but unreachable Redis fails startup.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	app.passwordVerifier = auth.NewBcryptVerifier()

	var cache store.Cache = store.NopCache{}
	if cfg.Cache.Enabled() {
		app.cache, err = redis.NewCache(ctx, cfg.Cache.RedisURL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to cache: %w", err)
		}
		cache = app.cache
		logger.Info("redis cache enabled", slog.Int("ttl_seconds", cfg.Cache.TTLSeconds))
	}
	ttl := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost)
	voucherStore := postgres.NewPostgresVoucherStore(db)
	purchaseStore := postgres.NewPostgresPurchaseStore(db)
	examStore := postgres.NewPostgresExamStore(db)

	app.ledgerService = ledger.NewService(
		store.NewSQLTransactor(db),
		app.userStore,
		voucherStore,
		purchaseStore,
		cache,
		ledger.Config{
			MaxConflictRetries: cfg.Ledger.MaxConflictRetries,
			RetryBackoff:       time.Duration(cfg.Ledger.RetryBackoffMillis) * time.Millisecond,
			PremiumMonths:      cfg.Ledger.PremiumMonths,
			CacheTTL:           ttl,
		},
		logger,
	)
	app.assessmentService = assessment.NewService(examStore, cache, ttl, logger)

	logger.Info("application initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes),
		slog.Int("max_conflict_retries", cfg.Ledger.MaxConflictRetries))
	return app, nil
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases the cache and database connections.
func (app *application) cleanup() {
	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			app.logger.Error("error closing cache", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		closeDB(app.db, app.logger)
	}
	app.logger.Info("application shutdown completed")
}

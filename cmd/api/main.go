// Command api runs the lead lifecycle HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	accountshandler "leadngn_backend/internal/accounts/handler"
	leadshandler "leadngn_backend/internal/leads/handler"

	"leadngn_backend/internal/accounts"
	"leadngn_backend/internal/http/router"
	"leadngn_backend/internal/leads/audit"
	"leadngn_backend/internal/leads/management"
	"leadngn_backend/internal/leads/repository"
	"leadngn_backend/internal/leads/scoring"
	"leadngn_backend/internal/revalidation"
	"leadngn_backend/platform/clock"
	"leadngn_backend/platform/config"
	"leadngn_backend/platform/db"
	"leadngn_backend/platform/events"
	"leadngn_backend/platform/logger"
	"leadngn_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := withRetry(ctx, log, "database connect", func() (*pgxpool.Pool, error) {
		return db.NewPool(ctx, cfg)
	})
	if err != nil {
		log.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := db.RunMigrations(ctx, cfg, migrationsDir); err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	clk := clock.Real()
	bus := events.NewInMemoryBus(log)
	validate := validator.New()

	repo := repository.New(pool, log)
	engine := scoring.NewEngine()
	policy := revalidation.NewPolicy(cfg)

	auditSvc := audit.NewService(repo, engine, policy, bus, clk, log)
	leadSvc := management.NewService(repo, auditSvc, engine, policy, bus, clk, log)

	var accountCache accounts.AccountCache
	if cfg.GetRedisURL() != "" {
		opts, err := redis.ParseURL(cfg.GetRedisURL())
		if err != nil {
			log.Error("invalid redis url", "error", err)
			os.Exit(1)
		}
		accountCache = accounts.NewRedisCache(redis.NewClient(opts), cfg.GetAccountCacheTTL(), log)
	}
	accountSvc := accounts.NewService(repo, accountCache, cfg, clk, log)
	accountSvc.SubscribeInvalidation(bus)

	engineHTTP := router.New(cfg, log,
		leadshandler.New(leadSvc, validate, log),
		accountshandler.New(accountSvc, log),
		revalidation.NewHandler(repo, clk, log),
	)

	server := &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           engineHTTP,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("http server listening", "addr", cfg.GetHTTPAddr())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", "error", err)
	}
}

// withRetry retries startup dependencies a few times before giving up,
// so container orchestration restarts are not needed for slow sidecars.
func withRetry[T any](ctx context.Context, log *logger.Logger, op string, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		value, err := fn()
		if err == nil {
			return value, nil
		}
		lastErr = err
		log.Warn("startup dependency not ready", "op", op, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(time.Duration(attempt) * 2 * time.Second):
		}
	}
	return zero, lastErr
}

// Command scheduler runs the revalidation dispatcher and worker pool.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadngn_backend/internal/enrichment"
	"leadngn_backend/internal/leads/audit"
	"leadngn_backend/internal/leads/repository"
	"leadngn_backend/internal/leads/scoring"
	"leadngn_backend/internal/revalidation"
	"leadngn_backend/platform/ai/moonshot"
	"leadngn_backend/platform/clock"
	"leadngn_backend/platform/config"
	"leadngn_backend/platform/db"
	"leadngn_backend/platform/events"
	"leadngn_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
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

	redisOpt, err := asynq.ParseRedisURI(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid redis url", "error", err)
		os.Exit(1)
	}
	client := asynq.NewClient(redisOpt)
	defer client.Close()

	clk := clock.Real()
	bus := events.NewInMemoryBus(log)

	repo := repository.New(pool, log)
	engine := scoring.NewEngine()
	policy := revalidation.NewPolicy(cfg)
	auditSvc := audit.NewService(repo, engine, policy, bus, clk, log)

	var insights revalidation.InsightProvider
	if cfg.IsAIEnabled() {
		insights = enrichment.NewMoonshotInsights(moonshot.NewClient(moonshot.Config{
			APIKey: cfg.GetMoonshotAPIKey(),
			Model:  cfg.GetMoonshotModel(),
		}), log)
	}

	runner := revalidation.NewRunner(
		repo, auditSvc, repo, policy,
		enrichment.NewEmailVerifier(),
		enrichment.NewPhoneChecker(),
		enrichment.NewWebsiteProber(),
		insights,
		bus, clk, log,
		revalidation.RunnerConfig{
			MaxAttempts:      cfg.GetMaxValidationAttempts(),
			ValidatorTimeout: cfg.GetValidatorTimeout(),
			RetryInterval:    cfg.GetRetryInterval(),
			RetryBackoffBase: 2 * time.Second,
		},
	)

	dispatcher := revalidation.NewDispatcher(
		repo, client, cfg.GetAsynqQueueName(),
		cfg.GetPollInterval(), cfg.GetClaimBatchSize(),
		clk, log,
	)
	worker := revalidation.NewWorker(redisOpt, cfg, runner, log)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		err := dispatcher.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		return worker.Start()
	})
	group.Go(func() error {
		<-groupCtx.Done()
		worker.Shutdown()
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("scheduler stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("scheduler stopped")
}

// withRetry retries startup dependencies a few times before giving up.
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

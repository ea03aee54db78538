package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-fooddist/internal/audit"
	"github.com/noah-isme/backend-fooddist/internal/config"
	"github.com/noah-isme/backend-fooddist/internal/lock"
	"github.com/noah-isme/backend-fooddist/internal/obs"
	"github.com/noah-isme/backend-fooddist/internal/queue"
	"github.com/noah-isme/backend-fooddist/internal/rates"
)

const ratesSweepLockKey = "fooddist:lock:rates:sweep"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger("json", "info").With().Str("component", "worker").Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	auditService := audit.Service{
		Store:   audit.NewStore(pool),
		Enabled: cfg.AuditEnabled,
		Logger:  logger,
	}

	rateService, err := rates.NewService(rates.ServiceConfig{
		Store:  rates.NewStore(pool),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rates service")
	}

	worker := queue.Worker{
		R:                 redisClient,
		Prefix:            cfg.QueueRedisPrefix,
		Kind:              audit.TaskKind,
		Concurrency:       4,
		VisibilityTimeout: 30 * time.Second,
		Handler:           auditService.HandleTask,
		RetryBase:         500 * time.Millisecond,
		RetryJitter:       0.2,
	}

	workerDone := make(chan error, 1)
	go func() {
		logger.Info().Str("kind", audit.TaskKind).Msg("audit worker starting")
		workerDone <- worker.Run(ctx)
	}()

	locker := lock.Locker{R: redisClient}
	go func() {
		ticker := time.NewTicker(cfg.RateSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweepCtx, sweepCancel := context.WithTimeout(ctx, cfg.RateSweepLockTTL)
				err := locker.WithLock(sweepCtx, ratesSweepLockKey, cfg.RateSweepLockTTL, func(c context.Context) error {
					revoked, err := rateService.SweepExpired(c)
					if err != nil {
						return err
					}
					if revoked > 0 {
						logger.Info().Int64("revoked", revoked).Msg("expired rates swept")
					}
					return nil
				})
				sweepCancel()
				if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					logger.Warn().Err(err).Msg("rate sweep failed")
				}
			}
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info().Msg("shutdown signal received")
		cancel()
		select {
		case err := <-workerDone:
			if err != nil {
				logger.Error().Err(err).Msg("worker stopped with error")
			}
		case <-time.After(30 * time.Second):
			logger.Warn().Msg("worker shutdown timed out")
		}
	case err := <-workerDone:
		if err != nil {
			logger.Fatal().Err(err).Msg("worker exited unexpectedly")
		}
	}
	logger.Info().Msg("worker stopped")
}

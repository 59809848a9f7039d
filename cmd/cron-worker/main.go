package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cafe-backend/internal/cart"
	"github.com/angelmondragon/cafe-backend/internal/cron"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/db"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
	"github.com/angelmondragon/cafe-backend/pkg/metrics"
	"github.com/angelmondragon/cafe-backend/pkg/migrate"
	"github.com/angelmondragon/cafe-backend/pkg/outbox"
	"github.com/angelmondragon/cafe-backend/pkg/redis"
)

const serviceKind = "cron-worker"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: serviceKind})
	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceKind

	logg = logger.New(logger.Options{
		ServiceName: serviceKind,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Console:     cfg.App.LogFormat == "console",
	})
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": serviceKind,
	})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(serviceKind, cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		return err
	}

	jobs, err := buildJobs(cfg, logg, dbClient)
	if err != nil {
		return err
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: jobs,
		Lock:     lock,
		Metrics:  metrics.NewCronMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	metrics.Serve(ctx, cfg.Cron.MetricsAddr, prometheus.DefaultGatherer, func(err error) {
		logg.Error(ctx, "metrics server stopped", err)
	})

	logg.Info(ctx, "starting cron worker")
	return service.Run(ctx)
}

// buildJobs registers the retention sweeps; order here is run order.
func buildJobs(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	outboxRetention, err := cron.NewRetentionJob(
		cron.OutboxRetentionJobName,
		cfg.Cron.OutboxRetention(),
		cron.OutboxPurge(dbClient, outbox.NewRepository(dbClient.DB()), cfg.Outbox.MaxAttempts),
		logg,
	)
	if err != nil {
		return nil, err
	}
	cartRetention, err := cron.NewRetentionJob(
		cron.CartRetentionJobName,
		cfg.Cron.CartRetention(),
		cart.NewRepository(dbClient.DB()).DeleteUpdatedBefore,
		logg,
	)
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(outboxRetention, cartRetention)
}

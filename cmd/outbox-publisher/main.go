package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cafe-backend/internal/relay"
	"github.com/angelmondragon/cafe-backend/pkg/config"
	"github.com/angelmondragon/cafe-backend/pkg/db"
	"github.com/angelmondragon/cafe-backend/pkg/logger"
	"github.com/angelmondragon/cafe-backend/pkg/metrics"
	"github.com/angelmondragon/cafe-backend/pkg/migrate"
	"github.com/angelmondragon/cafe-backend/pkg/outbox"
	"github.com/angelmondragon/cafe-backend/pkg/outbox/registry"
	"github.com/angelmondragon/cafe-backend/pkg/pubsub"
)

const serviceKind = "outbox-publisher"

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
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
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

	routes, err := registry.NewRegistry(cfg.PubSub)
	if err != nil {
		return err
	}

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		return err
	}
	defer pubsubClient.Close()

	r, err := relay.New(relay.Params{
		Config:   cfg.Outbox,
		Logger:   logg,
		Tx:       dbClient,
		Store:    outbox.NewRepository(dbClient.DB()),
		Resolver: routes,
		Sink:     pubsubClient,
		Metrics:  metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
		Probes: map[string]db.Pinger{
			"postgres": dbClient,
			"pubsub":   pubsubClient,
		},
	})
	if err != nil {
		return err
	}

	metrics.Serve(ctx, cfg.Outbox.MetricsAddr, prometheus.DefaultGatherer, func(err error) {
		logg.Error(ctx, "metrics server stopped", err)
	})

	logg.Info(logg.WithField(ctx, "topics", routes.Topics()), "starting outbox publisher")
	return r.Run(ctx)
}

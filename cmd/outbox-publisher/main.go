package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/tradehub/tradehub-backend/pkg/config"
	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/kafka"
	"github.com/tradehub/tradehub-backend/pkg/logger"
	"github.com/tradehub/tradehub-backend/pkg/metrics"
	"github.com/tradehub/tradehub-backend/pkg/migrate"
	"github.com/tradehub/tradehub-backend/pkg/outbox"
	"github.com/tradehub/tradehub-backend/pkg/pubsub"
)

const serviceName = "outbox-publisher"

type closingBroker interface {
	Broker
	Close() error
}

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}
}

// run owns every resource the publisher opens; close failures are folded
// into the returned error.
func run(cfg *config.Config, logg *logger.Logger) (err error) {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	broker, err := newBroker(bootCtx, cfg, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, broker.Close())
	}()

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Broker:     broker,
		Repository: outbox.NewRepository(dbClient.DB()).WithLease(cfg.Outbox.ClaimLease),
		Metrics:    metrics.NewPublisherMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"broker":      broker.Name(),
		"claim_lease": cfg.Outbox.ClaimLease.String(),
	})
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logg.Info(ctx, "outbox publisher shutting down gracefully")
	return nil
}

func newBroker(ctx context.Context, cfg *config.Config, logg *logger.Logger) (closingBroker, error) {
	if cfg.Eventing.UsesKafka() {
		return kafka.NewProducer(cfg.Kafka, logg)
	}
	return pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
}

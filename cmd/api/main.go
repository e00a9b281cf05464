package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/tradehub/tradehub-backend/api/controllers"
	"github.com/tradehub/tradehub-backend/api/routes"
	"github.com/tradehub/tradehub-backend/internal/inquiries"
	"github.com/tradehub/tradehub-backend/internal/inventory"
	"github.com/tradehub/tradehub-backend/internal/orders"
	"github.com/tradehub/tradehub-backend/internal/otp"
	"github.com/tradehub/tradehub-backend/internal/payments"
	"github.com/tradehub/tradehub-backend/internal/shipments"
	"github.com/tradehub/tradehub-backend/pkg/config"
	"github.com/tradehub/tradehub-backend/pkg/db"
	"github.com/tradehub/tradehub-backend/pkg/logger"
	"github.com/tradehub/tradehub-backend/pkg/metrics"
	"github.com/tradehub/tradehub-backend/pkg/migrate"
	"github.com/tradehub/tradehub-backend/pkg/outbox"
	"github.com/tradehub/tradehub-backend/pkg/redis"
	"github.com/tradehub/tradehub-backend/pkg/security"
	"github.com/tradehub/tradehub-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

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

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	stripeClient, err := stripe.NewClient(bootCtx, cfg.Stripe, logg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	commerceMetrics := metrics.NewCommerceMetrics(registry)

	deps, err := buildDeps(cfg, logg, dbClient, redisClient, stripeClient, commerceMetrics)
	if err != nil {
		return err
	}
	deps.Metrics = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildDeps(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	stripeClient *stripe.Client,
	m *metrics.CommerceMetrics,
) (routes.Deps, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	processor, err := payments.NewStripeProcessor(stripeClient)
	if err != nil {
		return routes.Deps{}, err
	}
	gate, err := payments.NewGate(processor, payments.GateConfig{
		Currency:      stripeClient.Currency(),
		VerifyTimeout: cfg.Payments.VerifyTimeout,
		DefaultCustomer: payments.CustomerInfo{
			Name:       cfg.Payments.CustomerName,
			Line1:      cfg.Payments.BillingLine1,
			City:       cfg.Payments.BillingCity,
			State:      cfg.Payments.BillingState,
			PostalCode: cfg.Payments.BillingZip,
			Country:    cfg.Payments.BillingCountry,
		},
	}, logg, m)
	if err != nil {
		return routes.Deps{}, err
	}

	inventorySvc, err := inventory.NewService(inventory.NewRepository(conn), dbClient, emitter, m)
	if err != nil {
		return routes.Deps{}, err
	}

	ordersRepo := orders.NewRepository(conn)
	gigSvc, err := orders.NewGigService(ordersRepo, dbClient, emitter, gate, logg, m)
	if err != nil {
		return routes.Deps{}, err
	}
	warehouseSvc, err := orders.NewWarehouseService(ordersRepo, dbClient, emitter, gate, inventorySvc, logg, m)
	if err != nil {
		return routes.Deps{}, err
	}

	inquirySvc, err := inquiries.NewService(inquiries.NewRepository(conn), dbClient, emitter, logg)
	if err != nil {
		return routes.Deps{}, err
	}

	shipmentSvc, err := shipments.NewService(shipments.NewRepository(conn), dbClient, warehouseSvc, emitter, logg)
	if err != nil {
		return routes.Deps{}, err
	}

	otpSvc, err := otp.NewService(redisClient, otp.NewLogMailer(logg, cfg.OTP.RevealCodes && cfg.App.IsDev()), otp.Config{
		TTL:         cfg.OTP.TTL,
		CodeLength:  cfg.OTP.CodeLength,
		MaxAttempts: cfg.OTP.MaxAttempts,
		Hash: security.ArgonParams{
			MemoryKB: cfg.OTP.HashMemoryKB,
			Time:     cfg.OTP.HashTime,
		},
	}, logg)
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Ready: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
		Idempotency:     redisClient,
		RateLimiter:     redisClient,
		GigOrders:       gigSvc,
		WarehouseOrders: warehouseSvc,
		Inquiries:       inquirySvc,
		Shipments:       shipmentSvc,
		Inventory:       inventorySvc,
		OTP:             otpSvc,
	}, nil
}

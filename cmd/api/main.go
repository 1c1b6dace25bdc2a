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

	"github.com/zedexpress/zedexpress-backend/api/controllers"
	"github.com/zedexpress/zedexpress-backend/api/routes"
	"github.com/zedexpress/zedexpress-backend/internal/deliveries"
	"github.com/zedexpress/zedexpress-backend/internal/paymentmethods"
	"github.com/zedexpress/zedexpress-backend/internal/payments"
	"github.com/zedexpress/zedexpress-backend/internal/payments/adapters"
	"github.com/zedexpress/zedexpress-backend/internal/pricing"
	"github.com/zedexpress/zedexpress-backend/pkg/config"
	"github.com/zedexpress/zedexpress-backend/pkg/db"
	"github.com/zedexpress/zedexpress-backend/pkg/db/models"
	"github.com/zedexpress/zedexpress-backend/pkg/logger"
	"github.com/zedexpress/zedexpress-backend/pkg/metrics"
	"github.com/zedexpress/zedexpress-backend/pkg/migrate"
	"github.com/zedexpress/zedexpress-backend/pkg/redis"
	"github.com/zedexpress/zedexpress-backend/pkg/signature"
)

const shutdownGrace = 15 * time.Second

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

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	signer, err := signature.New(signature.Params{
		Secret: cfg.Pricing.HMACSecret,
		KeyID:  cfg.Pricing.KeyID,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quote signer", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	paymentMetrics := metrics.NewPaymentMetrics(registry)

	airtel, err := adapters.NewMobileMoney(adapters.MobileMoneyConfig{
		Provider:   "airtel_zm",
		Endpoint:   cfg.Payments.AirtelEndpoint,
		APIKey:     cfg.Payments.AirtelAPIKey,
		PushExpiry: cfg.Payments.PushExpiry,
		RefStore:   redisClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create airtel adapter", err)
		os.Exit(1)
	}
	mtn, err := adapters.NewMobileMoney(adapters.MobileMoneyConfig{
		Provider:   "mtn_zm",
		Endpoint:   cfg.Payments.MTNEndpoint,
		APIKey:     cfg.Payments.MTNAPIKey,
		PushExpiry: cfg.Payments.PushExpiry,
		RefStore:   redisClient,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create mtn adapter", err)
		os.Exit(1)
	}
	adapterRegistry, err := adapters.NewRegistry(map[string]adapters.Adapter{
		models.MethodKeyCashOnDelivery: adapters.NewCashOnDelivery(),
		models.MethodKeyAirtelMoney:    airtel,
		models.MethodKeyMTNMoney:       mtn,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build adapter registry", err)
		os.Exit(1)
	}

	pricingService, err := pricing.NewService(pricing.ServiceParams{
		Repo:    pricing.NewRepository(dbClient.DB()),
		Signer:  signer,
		Metrics: paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create pricing service", err)
		os.Exit(1)
	}

	methodsService, err := paymentmethods.NewService(paymentmethods.ServiceParams{
		Repo: paymentmethods.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment methods service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(dbClient.DB()),
		Methods:  methodsService,
		Adapters: adapterRegistry,
		Signer:   signer,
		Metrics:  paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	deliveriesService, err := deliveries.NewService(deliveries.ServiceParams{
		Repo:    deliveries.NewRepository(dbClient.DB()),
		Signer:  signer,
		Metrics: paymentMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create deliveries service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config: cfg,
		Logger: logg,
		Redis:  redisClient,
		Deps: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		HTTPMetrics: httpMetrics,
		Gatherer:    registry,
		Pricing:     pricingService,
		Methods:     methodsService,
		Payments:    paymentsService,
		Deliveries:  deliveriesService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithFields(ctx, map[string]any{"signal": sig.String()}), "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}

package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/pisakart/pisakart-backend/api/routes"
	"github.com/pisakart/pisakart-backend/internal/addresshistory"
	"github.com/pisakart/pisakart-backend/internal/carts"
	"github.com/pisakart/pisakart-backend/internal/customers"
	"github.com/pisakart/pisakart-backend/internal/orders"
	"github.com/pisakart/pisakart-backend/internal/payments"
	"github.com/pisakart/pisakart-backend/pkg/config"
	"github.com/pisakart/pisakart-backend/pkg/docstore"
	"github.com/pisakart/pisakart-backend/pkg/instamojo"
	"github.com/pisakart/pisakart-backend/pkg/logger"
	"github.com/pisakart/pisakart-backend/pkg/metrics"
)

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

	store, err := docstore.New(context.Background(), cfg.Mongo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap document store", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logg.Error(context.Background(), "error closing document store", err)
		}
	}()

	if err := store.EnsureIndexes(context.Background()); err != nil {
		logg.Error(context.Background(), "failed to ensure indexes", err)
		os.Exit(1)
	}

	historyService, err := addresshistory.NewService(store)
	if err != nil {
		logg.Error(context.Background(), "failed to create address history service", err)
		os.Exit(1)
	}

	customersService, err := customers.NewService(store, historyService)
	if err != nil {
		logg.Error(context.Background(), "failed to create customers service", err)
		os.Exit(1)
	}

	cartsService, err := carts.NewService(store, customersService)
	if err != nil {
		logg.Error(context.Background(), "failed to create carts service", err)
		os.Exit(1)
	}

	var gateway payments.Gateway
	if cfg.Gateway.APIKey != "" && cfg.Gateway.AuthToken != "" {
		client, err := instamojo.NewClient(context.Background(), cfg.Gateway, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create payment gateway client", err)
			os.Exit(1)
		}
		gateway = client
	} else {
		logg.Warn(context.Background(), "payment gateway credentials missing, checkout URLs disabled")
	}

	paymentsService, err := payments.NewService(store, customersService, gateway)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(store, customersService)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)

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
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			store,
			registry,
			httpMetrics,
			customersService,
			historyService,
			cartsService,
			paymentsService,
			ordersService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

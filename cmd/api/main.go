package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/HuuNghia-2123110281/storefront-checkout/api/routes"
	"github.com/HuuNghia-2123110281/storefront-checkout/internal/cartsync"
	checkoutsvc "github.com/HuuNghia-2123110281/storefront-checkout/internal/checkout"
	"github.com/HuuNghia-2123110281/storefront-checkout/internal/gateway"
	paymentsvc "github.com/HuuNghia-2123110281/storefront-checkout/internal/payment"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/config"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/logger"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/metrics"
	pkgredis "github.com/HuuNghia-2123110281/storefront-checkout/pkg/redis"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/sched"
	"github.com/HuuNghia-2123110281/storefront-checkout/pkg/types"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "checkout-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "checkout-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(promRegistry)

	backend, err := gateway.NewClient(cfg.Gateway.BaseURL,
		gateway.WithCallTimeout(cfg.Gateway.CallTimeout),
		gateway.WithMetrics(checkoutMetrics),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to build commerce gateway client", err)
		os.Exit(1)
	}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = pkgredis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured, idempotency middleware disabled")
	}

	verifier, err := cartsync.NewVerifier(cartsync.VerifierParams{
		Cart:    backend,
		Config:  cfg.CartSync,
		Logger:  logg,
		Metrics: checkoutMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build cart verifier", err)
		os.Exit(1)
	}

	paymentRegistry, err := paymentsvc.NewRegistry(paymentsvc.RegistryParams{
		Backend:   backend,
		Scheduler: sched.System(),
		Config:    cfg.Payment,
		Logger:    logg,
		Metrics:   checkoutMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build payment registry", err)
		os.Exit(1)
	}
	defer paymentRegistry.Shutdown()

	starter := checkoutsvc.PaymentStarterFunc(func(ctx context.Context, order *types.Order, intent *types.PaymentIntent) (*checkoutsvc.PaymentRef, error) {
		session, err := paymentRegistry.Open(ctx, order, intent)
		if err != nil {
			return nil, err
		}
		status := session.Status()
		return &checkoutsvc.PaymentRef{
			SessionID: status.SessionID,
			OrderCode: status.OrderCode,
			QRPayload: status.QRPayload,
			Deadline:  status.Deadline,
		}, nil
	})

	checkoutService, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Gateway:     backend,
		Verifier:    verifier,
		Payments:    starter,
		ShippingFee: cfg.Checkout.ShippingFee(),
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to build checkout service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting checkout api server")

	var idempotencyStore pkgredis.IdempotencyStore
	var cachePinger pkgredis.Pinger
	if redisClient != nil {
		idempotencyStore = redisClient
		cachePinger = redisClient
	}

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			backend,
			cachePinger,
			idempotencyStore,
			checkoutService,
			paymentRegistry,
			promRegistry,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "checkout api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

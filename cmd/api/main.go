package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dropmart/dropmart-backend/api/routes"
	"github.com/dropmart/dropmart-backend/internal/affiliate"
	"github.com/dropmart/dropmart-backend/internal/catalog"
	"github.com/dropmart/dropmart-backend/internal/categories"
	"github.com/dropmart/dropmart-backend/internal/checkout"
	"github.com/dropmart/dropmart-backend/internal/orders"
	"github.com/dropmart/dropmart-backend/internal/payouts"
	products "github.com/dropmart/dropmart-backend/internal/products"
	"github.com/dropmart/dropmart-backend/internal/settlement"
	"github.com/dropmart/dropmart-backend/internal/suppliers"
	"github.com/dropmart/dropmart-backend/internal/users"
	stripewebhook "github.com/dropmart/dropmart-backend/internal/webhooks/stripe"
	supplierwebhook "github.com/dropmart/dropmart-backend/internal/webhooks/supplier"
	"github.com/dropmart/dropmart-backend/pkg/aliexpress"
	"github.com/dropmart/dropmart-backend/pkg/config"
	"github.com/dropmart/dropmart-backend/pkg/db"
	"github.com/dropmart/dropmart-backend/pkg/instance"
	"github.com/dropmart/dropmart-backend/pkg/logger"
	"github.com/dropmart/dropmart-backend/pkg/metrics"
	"github.com/dropmart/dropmart-backend/pkg/migrate"
	"github.com/dropmart/dropmart-backend/pkg/outbox"
	"github.com/dropmart/dropmart-backend/pkg/redis"
	"github.com/dropmart/dropmart-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	must(context.Background(), logg, "failed to load config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	must(ctx, logg, "failed to bootstrap database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	must(ctx, logg, "failed to run dev migrations", err)

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	must(ctx, logg, "failed to bootstrap redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	must(ctx, logg, "failed to bootstrap stripe", err)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	gormDB := dbClient.DB()
	publisher := outbox.NewService(outbox.NewRepository(gormDB), logg)
	ordersRepo := orders.NewRepository(gormDB)
	payoutsRepo := payouts.NewRepository(gormDB)

	catalogSvc, err := catalog.NewService(catalog.ServiceParams{
		Repository:      catalog.NewRepository(gormDB),
		Tx:              dbClient,
		Logger:          logg,
		SlugMaxAttempts: cfg.Catalog.SlugMaxAttempts,
	})
	must(ctx, logg, "failed to create catalog service", err)

	supplierSvc, err := suppliers.NewService(suppliers.NewRepository(gormDB), dbClient, catalogSvc, logg)
	must(ctx, logg, "failed to create supplier service", err)

	categorySvc, err := categories.NewService(categories.NewRepository(gormDB), dbClient, catalogSvc, logg)
	must(ctx, logg, "failed to create category service", err)

	productSvc, err := products.NewService(products.NewRepository(gormDB))
	must(ctx, logg, "failed to create product service", err)

	ordersSvc, err := orders.NewService(ordersRepo, dbClient, publisher, stripeClient, logg)
	must(ctx, logg, "failed to create orders service", err)

	payoutSvc, err := payouts.NewService(payoutsRepo)
	must(ctx, logg, "failed to create payouts service", err)

	checkoutSvc, err := checkout.NewService(dbClient, checkout.NewRepository(gormDB), ordersRepo, stripeClient, publisher, cfg.Stripe.Currency, logg)
	must(ctx, logg, "failed to create checkout service", err)

	settlementSvc, err := settlement.NewService(settlement.Deps{
		Tx:          dbClient,
		Orders:      ordersRepo,
		Payouts:     payoutsRepo,
		Transfers:   stripeClient,
		Outbox:      publisher,
		Metrics:     settlementMetrics,
		Concurrency: cfg.Settlement.PayoutConcurrency,
		Logger:      logg,
	})
	must(ctx, logg, "failed to create settlement service", err)

	stripeHooks, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Settlement: settlementSvc,
		Metrics:    settlementMetrics,
		Logger:     logg,
	})
	must(ctx, logg, "failed to create stripe webhook service", err)

	stripeGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Webhooks.IdempotencyTTL)
	must(ctx, logg, "failed to create stripe webhook guard", err)

	supplierHooks, err := supplierwebhook.NewService(suppliers.NewRepository(gormDB), catalogSvc, settlementMetrics, logg)
	must(ctx, logg, "failed to create supplier webhook service", err)

	affiliateSvc, err := affiliate.NewService(affiliateClient(ctx, cfg, logg), supplierSvc, catalogSvc, logg)
	must(ctx, logg, "failed to create affiliate service", err)

	usersSvc, err := users.NewService(users.NewRepository(gormDB), dbClient, logg)
	must(ctx, logg, "failed to create users service", err)
	if cfg.Admin.Email != "" {
		_, err = usersSvc.EnsureAdmin(ctx, cfg.Admin.Email)
		must(ctx, logg, "failed to ensure admin user", err)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		Idempotency:     redisClient,
		RateLimiter:     redisClient,
		MetricsGather:   registry,
		Categories:      categorySvc,
		Products:        productSvc,
		Catalog:         catalogSvc,
		Suppliers:       supplierSvc,
		Checkout:        checkoutSvc,
		Orders:          ordersSvc,
		Payouts:         payoutSvc,
		Settlement:      settlementSvc,
		Affiliate:       affiliateSvc,
		SupplierWebhook: supplierHooks,
		StripeWebhook:   stripeHooks,
		StripeGuard:     stripeGuard,
		StripeSigner:    stripeClient,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	runCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(runCtx, "starting api server")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(runCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "api server shut down gracefully")
}

// affiliateClient returns nil when credentials are absent so the affiliate
// service reports the integration as unconfigured.
func affiliateClient(ctx context.Context, cfg *config.Config, logg *logger.Logger) affiliate.Searcher {
	if !cfg.AliExpress.Enabled() {
		logg.Warn(ctx, "aliexpress credentials missing, affiliate import disabled")
		return nil
	}
	client, err := aliexpress.NewClient(cfg.AliExpress)
	must(ctx, logg, "failed to create aliexpress client", err)
	return client
}

func must(ctx context.Context, logg *logger.Logger, msg string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, msg, err)
	os.Exit(1)
}

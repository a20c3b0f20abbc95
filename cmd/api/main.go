package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nocturne-labs/ghostpass-backend/api/routes"
	"github.com/nocturne-labs/ghostpass-backend/internal/audit"
	"github.com/nocturne-labs/ghostpass-backend/internal/feesplit"
	"github.com/nocturne-labs/ghostpass-backend/internal/passes"
	"github.com/nocturne-labs/ghostpass-backend/internal/pricing"
	"github.com/nocturne-labs/ghostpass-backend/internal/purchase"
	"github.com/nocturne-labs/ghostpass-backend/internal/sensory"
	"github.com/nocturne-labs/ghostpass-backend/internal/wallet"
	"github.com/nocturne-labs/ghostpass-backend/pkg/config"
	"github.com/nocturne-labs/ghostpass-backend/pkg/db"
	"github.com/nocturne-labs/ghostpass-backend/pkg/logger"
	"github.com/nocturne-labs/ghostpass-backend/pkg/metrics"
	"github.com/nocturne-labs/ghostpass-backend/pkg/migrate"
	"github.com/nocturne-labs/ghostpass-backend/pkg/outbox"
	"github.com/nocturne-labs/ghostpass-backend/pkg/pubsub"
	"github.com/nocturne-labs/ghostpass-backend/pkg/redis"
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

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	var pubsubClient *pubsub.Client
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err = pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer pubsubClient.Close()
	}

	gormDB := dbClient.DB()

	auditSvc, err := audit.NewService(audit.NewRepository(gormDB))
	if err != nil {
		fatal(logg, "failed to create audit service", err)
	}

	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	walletRepo := wallet.NewRepository(gormDB)
	walletSvc, err := wallet.NewService(walletRepo, dbClient, auditSvc, outboxSvc)
	if err != nil {
		fatal(logg, "failed to create wallet service", err)
	}

	feeRepo := feesplit.NewRepository(gormDB)
	feeSvc, err := feesplit.NewService(feeRepo, dbClient, auditSvc, outboxSvc)
	if err != nil {
		fatal(logg, "failed to create fee split service", err)
	}

	pricingRepo := pricing.NewRepository(gormDB)
	pricingSvc, err := pricing.NewService(pricingRepo)
	if err != nil {
		fatal(logg, "failed to create pricing service", err)
	}

	passRepo := passes.NewRepository(gormDB)
	passSvc, err := passes.NewService(passRepo, dbClient, auditSvc, outboxSvc)
	if err != nil {
		fatal(logg, "failed to create pass service", err)
	}

	operationMetrics := metrics.NewOperationMetrics(prometheus.DefaultRegisterer)

	purchaseSvc, err := purchase.NewService(purchase.Params{
		Passes:      passRepo,
		Wallets:     walletRepo,
		WalletSvc:   walletSvc,
		Pricing:     pricingRepo,
		PricingSvc:  pricingSvc,
		FeeConfigs:  feeRepo,
		FeeSplitSvc: feeSvc,
		Tx:          dbClient,
		Audit:       auditSvc,
		Outbox:      outboxSvc,
		Metrics:     operationMetrics,
		Logger:      logg,
	})
	if err != nil {
		fatal(logg, "failed to create purchase service", err)
	}

	mode, err := cfg.Sensory.Mode()
	if err != nil {
		fatal(logg, "invalid environment mode", err)
	}
	sensorySvc, err := sensory.NewService(sensory.Params{
		Repo:   sensory.NewRepository(gormDB),
		Mode:   mode,
		Tx:     dbClient,
		Audit:  auditSvc,
		Logger: logg,
	})
	if err != nil {
		fatal(logg, "failed to create sensory service", err)
	}
	if err := sensorySvc.Load(context.Background()); err != nil {
		fatal(logg, "failed to load authority policies", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"mode": mode,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			PubSub:   pubsubPinger(pubsubClient),
			Wallets:  walletSvc,
			Passes:   passSvc,
			Purchase: purchaseSvc,
			Fees:     feeSvc,
			Pricing:  pricingSvc,
			Sensory:  sensorySvc,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func fatal(logg *logger.Logger, msg string, err error) {
	logg.Error(context.Background(), msg, err)
	os.Exit(1)
}

// pubsubPinger keeps a nil client from becoming a non-nil interface.
func pubsubPinger(client *pubsub.Client) interface{ Ping(context.Context) error } {
	if client == nil {
		return nil
	}
	return client
}

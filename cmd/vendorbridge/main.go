package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/vendorbridge/vendorbridge/internal/app"
	"github.com/vendorbridge/vendorbridge/internal/audit"
	"github.com/vendorbridge/vendorbridge/internal/billing"
	"github.com/vendorbridge/vendorbridge/internal/linkage"
	"github.com/vendorbridge/vendorbridge/internal/notify"
	"github.com/vendorbridge/vendorbridge/internal/observability"
	"github.com/vendorbridge/vendorbridge/internal/platform/cache"
	"github.com/vendorbridge/vendorbridge/internal/platform/db"
	"github.com/vendorbridge/vendorbridge/internal/purchasing"
	"github.com/vendorbridge/vendorbridge/internal/shared"
	"github.com/vendorbridge/vendorbridge/internal/vendors"
	"github.com/vendorbridge/vendorbridge/jobs"
	"github.com/vendorbridge/vendorbridge/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	queueClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	artifactStore, err := report.NewStore(cfg.DocumentDir)
	if err != nil {
		logger.Error("init document store", slog.Any("error", err))
		os.Exit(1)
	}

	auditLogger := shared.NewAuditLogger(pool)
	dedup := notify.NewDedup(redisClient, cfg.NotifyDedupWindow)
	dispatcher := notify.NewDispatcher(queueClient, dedup, logger)

	vendorRepo := vendors.NewRepository(pool)
	vendorService := vendors.NewService(vendorRepo)
	vendorHandler := vendors.NewHandler(logger, vendorService)

	poRepo := purchasing.NewRepository(pool)
	billRepo := billing.NewRepository(pool)
	coordinator := linkage.NewCoordinator(poRepo, billRepo, logger)

	purchasingService := purchasing.NewService(poRepo, vendorService, dispatcher, queueClient, auditLogger, logger)
	purchasingHandler := purchasing.NewHandler(logger, purchasingService)

	billingService := billing.NewService(billRepo, coordinator, queueClient, artifactStore, auditLogger, logger)
	billingHandler := billing.NewHandler(logger, billingService)

	linkageHandler := linkage.NewHandler(logger, coordinator)

	auditRepo := audit.NewRepository(pool)
	auditService := audit.NewService(auditRepo)
	auditHandler := audit.NewHandler(logger, auditService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		VendorHandler:     vendorHandler,
		PurchasingHandler: purchasingHandler,
		BillingHandler:    billingHandler,
		LinkageHandler:    linkageHandler,
		AuditHandler:      auditHandler,
		JobHandler:        jobHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
	}
}

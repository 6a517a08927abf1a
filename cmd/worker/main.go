package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/vendorbridge/vendorbridge/internal/app"
	"github.com/vendorbridge/vendorbridge/internal/billing"
	"github.com/vendorbridge/vendorbridge/internal/linkage"
	"github.com/vendorbridge/vendorbridge/internal/platform/db"
	"github.com/vendorbridge/vendorbridge/internal/purchasing"
	"github.com/vendorbridge/vendorbridge/internal/vendors"
	"github.com/vendorbridge/vendorbridge/jobs"
	"github.com/vendorbridge/vendorbridge/report"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	vendorRepo := vendors.NewRepository(pool)
	poRepo := purchasing.NewRepository(pool)
	billRepo := billing.NewRepository(pool)
	coordinator := linkage.NewCoordinator(poRepo, billRepo, logger)

	renderClient := report.NewClient(cfg.GotenbergURL)
	artifactStore, err := report.NewStore(cfg.DocumentDir)
	if err != nil {
		logger.Error("init document store", slog.Any("error", err))
		os.Exit(1)
	}

	renderHandler := jobs.NewRenderDocumentHandler(billRepo, poRepo, vendorRepo, renderClient, artifactStore, logger)
	notifyHandler := jobs.NewNotifyVendorHandler(vendorRepo, logger)
	repairHandler := jobs.NewLinkageRepairHandler(coordinator, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeRenderDocument, Handler: renderHandler},
			{Type: jobs.TaskTypeNotifyVendor, Handler: notifyHandler},
			{Type: jobs.TaskTypeLinkageRepair, Handler: repairHandler},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LinkageRepairCron, Task: jobs.NewLinkageRepairTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

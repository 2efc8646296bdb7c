package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/acero-crm/acero-crm/internal/agents"
	"github.com/acero-crm/acero-crm/internal/app"
	jobmetrics "github.com/acero-crm/acero-crm/internal/jobs"
	"github.com/acero-crm/acero-crm/internal/platform/cache"
	"github.com/acero-crm/acero-crm/internal/platform/db"
	"github.com/acero-crm/acero-crm/internal/quotes"
	"github.com/acero-crm/acero-crm/internal/reports"
	"github.com/acero-crm/acero-crm/internal/shared"
	"github.com/acero-crm/acero-crm/jobs"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	quotesRepo := quotes.NewRepository(pool)
	quotesService := quotes.NewService(quotesRepo, auditLogger, logger)

	reportsRepo := reports.NewRepository(pool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reportsRepo, reportsCache, logger)

	agentsRepo := agents.NewRepository(pool)
	agentsService := agents.NewService(agentsRepo, logger)

	metrics := jobmetrics.NewMetrics(nil)

	expiryJob := jobs.NewQuoteExpiryJob(quotesService, logger, metrics)
	notifyJob := jobs.NewWebhookNotifyJob(agentsService, logger, metrics)
	warmupJob := jobs.NewDashboardWarmupJob(reportsService, logger, metrics)
	probeJob := jobs.NewAgentProbeJob(agentsService, logger, metrics)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskQuoteExpiry, Handler: expiryJob.Handle},
			{Type: jobs.TaskWebhookNotify, Handler: notifyJob.Handle},
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskAgentProbe, Handler: probeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			// 07:00 UTC is 01:00 in Monterrey, well before office hours.
			{Spec: "0 7 * * *", Task: jobs.NewQuoteExpiryTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 7 * * *", Task: jobs.NewDashboardWarmupTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "*/15 * * * *", Task: jobs.NewAgentProbeTask()},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/acero-crm/acero-crm/internal/agents"
	"github.com/acero-crm/acero-crm/internal/app"
	"github.com/acero-crm/acero-crm/internal/auth"
	"github.com/acero-crm/acero-crm/internal/catalog"
	"github.com/acero-crm/acero-crm/internal/crm/clients"
	"github.com/acero-crm/acero-crm/internal/crm/pipeline"
	"github.com/acero-crm/acero-crm/internal/integration"
	"github.com/acero-crm/acero-crm/internal/invoices"
	"github.com/acero-crm/acero-crm/internal/observability"
	"github.com/acero-crm/acero-crm/internal/platform/cache"
	"github.com/acero-crm/acero-crm/internal/platform/db"
	"github.com/acero-crm/acero-crm/internal/profile"
	"github.com/acero-crm/acero-crm/internal/quotes"
	"github.com/acero-crm/acero-crm/internal/rbac"
	"github.com/acero-crm/acero-crm/internal/reports"
	"github.com/acero-crm/acero-crm/internal/reports/export"
	"github.com/acero-crm/acero-crm/internal/shared"
	"github.com/acero-crm/acero-crm/internal/users"
	"github.com/acero-crm/acero-crm/jobs"
	"github.com/acero-crm/acero-crm/report"
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "acero_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)
	auditLogger := shared.NewAuditLogger(pool)

	rbacService := rbac.NewService(pool)
	rbacMiddleware := rbac.Middleware{Source: rbacService, Logger: logger}
	rbacHandler := rbac.NewHandler(logger, rbacService)

	profileClient := profile.NewClient(cfg.ProfileEndpoint, cfg.ProfileTimeout, logger)

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager, profileClient)

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(usersRepo, rbacService, auditLogger, logger)
	usersHandler := users.NewHandler(logger, usersService)

	quotesRepo := quotes.NewRepository(pool)
	quotesService := quotes.NewService(quotesRepo, auditLogger, logger)
	quotesHandler := quotes.NewHandler(logger, quotesService, usersService)

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo, logger)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	clientsRepo := clients.NewRepository(pool)
	clientsService := clients.NewService(clientsRepo, auditLogger, logger)
	clientsHandler := clients.NewHandler(logger, clientsService)

	pipelineRepo := pipeline.NewRepository(pool)
	pipelineService := pipeline.NewService(pipelineRepo, auditLogger, logger)
	pipelineHandler := pipeline.NewHandler(logger, pipelineService)

	reportsRepo := reports.NewRepository(pool)
	reportsCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	reportsService := reports.NewService(reportsRepo, reportsCache, logger)
	go reportsCache.ListenForInvalidation(ctx)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	reportsHandler := reports.NewHandler(logger, reportsService, export.WriteDashboardCSV,
		func(ctx context.Context, dash reports.Dashboard) ([]byte, error) {
			return export.RenderDashboardPDF(ctx, pdfClient, dash)
		})

	invoicesRepo := invoices.NewRepository(pool)
	invoicesService := invoices.NewService(invoicesRepo, quotesService, auditLogger, logger)
	invoicesService.SetCacheInvalidator(reportsService)
	invoicesHandler := invoices.NewHandler(logger, invoicesService)

	agentsRepo := agents.NewRepository(pool)
	agentsService := agents.NewService(agentsRepo, logger)
	agentsHandler := agents.NewHandler(logger, agentsService)

	queueClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	hooks := integration.NewHooks(reportsService, queueClient, agentsService, logger)
	quotesService.SetEventSink(hooks)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		SessionManager:  sessionManager,
		CSRFManager:     csrfManager,
		Metrics:         metrics,
		RBACMiddleware:  rbacMiddleware,
		AuthHandler:     authHandler,
		UsersHandler:    usersHandler,
		RBACHandler:     rbacHandler,
		QuotesHandler:   quotesHandler,
		CatalogHandler:  catalogHandler,
		ClientsHandler:  clientsHandler,
		PipelineHandler: pipelineHandler,
		InvoicesHandler: invoicesHandler,
		ReportsHandler:  reportsHandler,
		AgentsHandler:   agentsHandler,
		JobsHandler:     jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

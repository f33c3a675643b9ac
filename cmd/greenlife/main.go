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

	"github.com/greenlife/greenlife-admin/internal/app"
	"github.com/greenlife/greenlife-admin/internal/auth"
	"github.com/greenlife/greenlife-admin/internal/dashboard"
	"github.com/greenlife/greenlife-admin/internal/groups"
	"github.com/greenlife/greenlife-admin/internal/live"
	"github.com/greenlife/greenlife-admin/internal/lookup"
	"github.com/greenlife/greenlife-admin/internal/masterdata"
	"github.com/greenlife/greenlife-admin/internal/observability"
	"github.com/greenlife/greenlife-admin/internal/platform/cache"
	"github.com/greenlife/greenlife-admin/internal/platform/db"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/rbac"
	"github.com/greenlife/greenlife-admin/internal/sales"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
	"github.com/greenlife/greenlife-admin/jobs"
	"github.com/greenlife/greenlife-admin/report"
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
	slog.SetDefault(logger)

	shutdownTracer, err := observability.InitTracer(ctx, cfg.OTLPEndpoint, "greenlife-admin")
	if err != nil {
		logger.Error("init tracer", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracer(flushCtx)
	}()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	upstream := greenlife.New(greenlife.Config{
		BaseURL:        cfg.APIURL,
		Timeout:        cfg.APITimeout,
		MaxRetries:     cfg.APIMaxRetries,
		InitialBackoff: cfg.APIInitialBackoff,
	}, greenlife.WithRecorder(metrics))

	sessionManager := shared.NewSessionManager(redisClient, "greenlife_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	guard := &auth.Guard{Sessions: sessionManager, Logger: logger, Recorder: metrics}
	rbacMiddleware := rbac.Middleware{Templates: templates, CSRF: csrfManager, Logger: logger}
	lookups := lookup.NewCache(redisClient, upstream, cfg.LookupCacheTTL)

	authService := auth.NewService(upstream, auth.NewRepository(pool))
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager)

	dashboardHandler := dashboard.NewHandler(logger, dashboard.NewService(upstream, logger), templates, csrfManager, guard)

	masterdataHandler := masterdata.NewHandler(logger, masterdata.NewService(upstream, lookups), lookups, templates, csrfManager, rbacMiddleware, guard, cfg.PageSize)
	groupsHandler := groups.NewHandler(logger, groups.NewService(upstream, lookups), templates, csrfManager, rbacMiddleware, guard, cfg.PageSize)

	hub := live.NewHub()
	go hub.Run(ctx)
	go func() {
		if err := live.Relay(ctx, redisClient, hub); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("live relay", slog.Any("error", err))
		}
	}()
	publisher := live.NewPublisher(redisClient)

	reportClient := report.NewClient(cfg.GotenbergURL, cfg.GotenbergTimeout)
	var statements sales.Renderer
	if reportClient.Configured() {
		statements = reportClient
	}
	salesService := sales.NewService(upstream, sales.NewApprovalLog(pool), publisher, logger)
	salesHandler := sales.NewHandler(logger, salesService, templates, csrfManager, rbacMiddleware, guard, statements, cfg.PageSize)

	inspector := asynq.NewInspector(cache.QueueOptions(redisClient))
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		Metrics:            metrics,
		Guard:              guard,
		AuthHandler:        authHandler,
		DashboardHandler:   dashboardHandler,
		MasterDataHandler:  masterdataHandler,
		GroupsHandler:      groupsHandler,
		SalesHandler:       salesHandler,
		PermissionsHandler: rbac.NewPermissionsHandler(logger, templates, csrfManager),
		LiveHandler:        live.NewHandler(hub, logger),
		ReportHandler:      report.NewHandler(reportClient, logger),
		JobHandler:         jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
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

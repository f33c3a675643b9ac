package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/greenlife/greenlife-admin/internal/app"
	jobmetrics "github.com/greenlife/greenlife-admin/internal/jobs"
	"github.com/greenlife/greenlife-admin/internal/live"
	"github.com/greenlife/greenlife-admin/internal/lookup"
	"github.com/greenlife/greenlife-admin/internal/platform/cache"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/jobs"
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

	upstream := greenlife.New(greenlife.Config{
		BaseURL:        cfg.APIURL,
		Timeout:        cfg.APITimeout,
		MaxRetries:     cfg.APIMaxRetries,
		InitialBackoff: cfg.APIInitialBackoff,
	})
	metrics := jobmetrics.NewMetrics(nil)

	lookupJob := &jobs.LookupRefreshJob{Cache: lookup.NewCache(redisClient, upstream, cfg.LookupCacheTTL), Metrics: metrics}
	handlers := []jobs.TaskHandler{{Type: jobs.TaskLookupRefresh, Handler: lookupJob.Handle}}
	cron := []jobs.CronRegistration{{Spec: "0 3 * * *", Task: jobs.NewLookupRefreshTask()}}

	if cfg.HasServiceAccount() {
		loginPath := greenlife.AdminLoginPath
		if cfg.ServiceRole != shared.RoleAdmin {
			loginPath = greenlife.ManagerLoginPath
		}
		watch := &jobs.SalesWatchJob{
			Backend:   upstream,
			Redis:     redisClient,
			Publisher: live.NewPublisher(redisClient),
			Creds:     greenlife.Credentials{Username: cfg.ServiceUsername, Password: cfg.ServicePassword},
			LoginPath: loginPath,
			Logger:    logger,
			Metrics:   metrics,
		}
		watchTask, err := jobs.NewSalesWatchTask(jobs.SalesWatchPayload{})
		if err != nil {
			logger.Error("build sales watch task", slog.Any("error", err))
			os.Exit(1)
		}
		handlers = append(handlers, jobs.TaskHandler{Type: jobs.TaskSalesWatch, Handler: watch.Handle})
		cron = append(cron, jobs.CronRegistration{Spec: cfg.SalesWatchSpec, Task: watchTask, Options: []asynq.Option{asynq.MaxRetry(0)}})
	} else {
		logger.Warn("no service account configured, sales watcher disabled")
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cache.QueueOptions(redisClient),
		Logger:    logger,
		Handlers:  handlers,
		Cron:      cron,
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

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/kaucher/gatehouse/internal/app"
	"github.com/kaucher/gatehouse/internal/auth"
	"github.com/kaucher/gatehouse/internal/platform/db"
	"github.com/kaucher/gatehouse/internal/roles"
	"github.com/kaucher/gatehouse/internal/scopes"
	"github.com/kaucher/gatehouse/jobs"
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
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	catalog := scopes.DefaultCatalog()
	if cfg.RoleCatalogPath != "" {
		catalog, err = scopes.LoadCatalog(cfg.RoleCatalogPath)
		if err != nil {
			logger.Error("load role catalog", slog.Any("error", err))
			os.Exit(1)
		}
	}
	store := scopes.NewStore(catalog)

	rolesRepo := roles.NewRepository(pool)
	rolesService := roles.NewService(rolesRepo, store)
	authRepo := auth.NewRepository(pool)

	syncTask, err := jobs.NewRoleScopeSyncTask(jobs.RoleScopeSyncPayload{Reason: "scheduled"})
	if err != nil {
		logger.Error("build sync task", slog.Any("error", err))
		os.Exit(1)
	}
	purgeTask, err := jobs.NewLoginAuditPurgeTask(jobs.LoginAuditPurgePayload{
		RetentionHours: int(cfg.LoginAuditRetention.Hours()),
	})
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRoleScopeSync, Handler: jobs.NewRoleScopeSyncHandler(rolesService, logger)},
			{Type: jobs.TaskLoginAuditPurge, Handler: jobs.NewLoginAuditPurgeHandler(authRepo, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: syncTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 1 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
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

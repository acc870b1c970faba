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
	"github.com/redis/go-redis/v9"

	"github.com/kaucher/gatehouse/internal/app"
	"github.com/kaucher/gatehouse/internal/auth"
	"github.com/kaucher/gatehouse/internal/authz"
	"github.com/kaucher/gatehouse/internal/platform/cache"
	"github.com/kaucher/gatehouse/internal/platform/db"
	"github.com/kaucher/gatehouse/internal/roles"
	"github.com/kaucher/gatehouse/internal/scopes"
	"github.com/kaucher/gatehouse/internal/token"
	"github.com/kaucher/gatehouse/internal/users"
	"github.com/kaucher/gatehouse/jobs"
)

// Build is stamped via -ldflags at release time.
var Build = "dev"

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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		// The entitlement cache degrades to direct resolution when redis
		// is unreachable, so a failed ping is not fatal.
		logger.Warn("redis unavailable", slog.Any("error", err))
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalog := scopes.DefaultCatalog()
	if cfg.RoleCatalogPath != "" {
		catalog, err = scopes.LoadCatalog(cfg.RoleCatalogPath)
		if err != nil {
			logger.Error("load role catalog", slog.Any("error", err))
			os.Exit(1)
		}
	}
	store := scopes.NewStore(catalog)

	if invalid, err := store.Resolver().InvalidExclusions(); err == nil {
		for _, ex := range invalid {
			logger.Warn("role excludes scope it never receives",
				slog.String("role", ex.Role),
				slog.String("scope", ex.Scope))
		}
	}

	entitlementCache := authz.NewCache(redisClient, cfg.EntitlementCacheTTL)
	engine := authz.NewEngine(store, entitlementCache)

	tokenService := token.NewService(token.Config{
		AccessSecret:  []byte(cfg.AccessTokenSecret),
		RefreshSecret: []byte(cfg.RefreshTokenSecret),
		AccessTTL:     cfg.AccessTokenTTL,
		RefreshTTL:    cfg.RefreshTokenTTL,
		Issuer:        cfg.TokenIssuer,
	})

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo, engine, tokenService)
	authHandler := auth.NewHandler(logger, authService, cfg.AccessTokenTTL, cfg.IsProduction())
	guard := auth.Guard{Service: authService, Logger: logger}

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, guard)

	rolesRepo := roles.NewRepository(dbpool)
	rolesService := roles.NewService(rolesRepo, store)
	rolesHandler := roles.NewHandler(logger, rolesService, guard)

	if _, err := rolesService.SyncAll(ctx); err != nil {
		logger.Warn("initial role scope sync", slog.Any("error", err))
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobsClient, guard.RequireScopes("roles:manage"), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:       logger,
		Config:       cfg,
		AuthHandler:  authHandler,
		UsersHandler: usersHandler,
		RolesHandler: rolesHandler,
		JobsHandler:  jobHandler,
		Build:        app.BuildInfo{Version: "v1", Build: Build},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

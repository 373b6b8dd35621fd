package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warden-rbac/warden/internal/actions"
	"github.com/warden-rbac/warden/internal/app"
	"github.com/warden-rbac/warden/internal/auth"
	"github.com/warden-rbac/warden/internal/modules"
	"github.com/warden-rbac/warden/internal/observability"
	"github.com/warden-rbac/warden/internal/permissions"
	"github.com/warden-rbac/warden/internal/platform/db"
	"github.com/warden-rbac/warden/internal/rbac"
	"github.com/warden-rbac/warden/internal/roles"
	"github.com/warden-rbac/warden/internal/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Login throttling degrades to fail-open without Redis.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping", slog.Any("error", err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		logger.Error("token manager", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	resolver := rbac.NewResolver(pool)
	gate := rbac.Middleware{Verifier: tokens, Logger: logger}

	if err := rbac.VerifyTaxonomy(ctx, pool, logger); err != nil {
		logger.Warn("verify scope taxonomy", slog.Any("error", err))
	}

	throttle := auth.NewLoginThrottle(redisClient, cfg.LoginAttemptLimit, cfg.LoginAttemptWindow)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, resolver, tokens, throttle, metrics, logger)
	authHandler := auth.NewHandler(logger, authService)

	modulesHandler := modules.NewHandler(logger, modules.NewService(modules.NewRepository(pool), logger), gate)
	actionsHandler := actions.NewHandler(logger, actions.NewService(actions.NewRepository(pool), logger), gate)
	rolesHandler := roles.NewHandler(logger, roles.NewService(roles.NewRepository(pool), logger), gate)
	usersHandler := users.NewHandler(logger, users.NewService(users.NewRepository(pool), logger), gate)
	permissionsHandler := permissions.NewHandler(logger, permissions.NewService(permissions.NewRepository(pool), logger), gate)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Pool:               pool,
		AuthHandler:        authHandler,
		ModulesHandler:     modulesHandler,
		ActionsHandler:     actionsHandler,
		RolesHandler:       rolesHandler,
		UsersHandler:       usersHandler,
		PermissionsHandler: permissionsHandler,
		Gate:               gate,
		Metrics:            metrics,
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

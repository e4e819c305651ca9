package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mortarline/notify-backend/api/controllers"
	"github.com/mortarline/notify-backend/api/routes"
	"github.com/mortarline/notify-backend/internal/dispatch"
	"github.com/mortarline/notify-backend/internal/notifications"
	"github.com/mortarline/notify-backend/internal/sse"
	"github.com/mortarline/notify-backend/internal/subscriptions"
	"github.com/mortarline/notify-backend/pkg/auth/session"
	"github.com/mortarline/notify-backend/pkg/config"
	"github.com/mortarline/notify-backend/pkg/db"
	"github.com/mortarline/notify-backend/pkg/logger"
	"github.com/mortarline/notify-backend/pkg/metrics"
	"github.com/mortarline/notify-backend/pkg/migrate"
	"github.com/mortarline/notify-backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	subscriptionsService, err := subscriptions.NewService(subscriptions.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create subscriptions service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	hub := sse.NewHub(cfg.SSE.ClientBuffer)

	transport := dispatch.NewDisabledTransport()
	if cfg.WebPush.Enabled() {
		webPush, err := dispatch.NewWebPushTransport(cfg.WebPush)
		if err != nil {
			logg.Error(context.Background(), "failed to create web push transport", err)
			os.Exit(1)
		}
		transport = webPush
	} else {
		logg.Warn(context.Background(), "VAPID keys not configured; web push delivery disabled")
	}

	dispatcher, err := dispatch.NewService(dispatch.ServiceParams{
		Store:     subscriptions.NewRepository(dbClient.DB()),
		Transport: transport,
		Hub:       hub,
		Metrics:   metrics.NewDispatchMetrics(registry),
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatch service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			Sessions:      sessionManager,
			Subscriptions: subscriptionsService,
			Notifications: notificationsService,
			Dispatcher:    dispatcher,
			Hub:           hub,
			HealthChecks: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			Metrics: registry,
		}),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	}
}

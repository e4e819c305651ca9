package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/mortarline/notify-backend/pkg/config"
	"github.com/mortarline/notify-backend/pkg/env"
	"github.com/mortarline/notify-backend/pkg/hooks"
	"github.com/mortarline/notify-backend/pkg/logger"
	"github.com/mortarline/notify-backend/pkg/types"
)

// notify-agent is the polling-fallback client: it watches the counts endpoint
// for each feature and surfaces new activity locally when web push and SSE
// are unavailable.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "notify-agent"})

	_ = godotenv.Load()

	var cfg config.HooksConfig
	if err := envconfig.Process(config.EnvPrefix, &cfg); err != nil {
		requireResource(ctx, logg, "config", err)
	}

	logg = logger.New(logger.Options{
		ServiceName: "notify-agent",
		Level:       logger.ParseLevel(env.Get("MORTARLINE_LOG_LEVEL", "info")),
	})

	if cfg.APIToken == "" {
		requireResource(ctx, logg, "api token", fmt.Errorf("MORTARLINE_HOOKS_API_TOKEN is required"))
	}

	source, err := hooks.NewCountsAPISource(cfg.APIBaseURL, func() string { return cfg.APIToken }, nil)
	requireResource(ctx, logg, "counts source", err)

	set := hooks.NewSet(cfg, source, &logNotifier{logg: logg}, logg)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithField(runCtx, "api", cfg.APIBaseURL)
	logg.Info(runCtx, "notify agent watching")

	set.Start(runCtx)
	<-runCtx.Done()
	set.Stop()

	logg.Info(runCtx, "notify agent shutting down gracefully")
}

// logNotifier surfaces watcher activity on the agent's log output.
type logNotifier struct {
	logg *logger.Logger
}

func (n *logNotifier) Notify(ctx context.Context, payload types.NotificationPayload) {
	ctx = n.logg.WithFields(ctx, map[string]any{
		"title": payload.Title,
		"url":   payload.Data.URL,
		"type":  string(payload.Data.Type),
	})
	n.logg.Info(ctx, payload.Body)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

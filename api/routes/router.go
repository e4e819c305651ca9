package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mortarline/notify-backend/api/controllers"
	"github.com/mortarline/notify-backend/api/middleware"
	"github.com/mortarline/notify-backend/internal/dispatch"
	"github.com/mortarline/notify-backend/internal/notifications"
	"github.com/mortarline/notify-backend/internal/sse"
	"github.com/mortarline/notify-backend/internal/subscriptions"
	"github.com/mortarline/notify-backend/pkg/auth/session"
	"github.com/mortarline/notify-backend/pkg/config"
	"github.com/mortarline/notify-backend/pkg/logger"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker

	Subscriptions subscriptions.Service
	Notifications notifications.Service
	Dispatcher    dispatch.Service
	Hub           *sse.Hub

	HealthChecks map[string]controllers.Pinger
	Metrics      prometheus.Gatherer
}

// NewRouter assembles the notify API.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.HealthChecks))
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/v1/push/vapid-key", controllers.VAPIDPublicKey(cfg.WebPush, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, params.Sessions, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1", func(r chi.Router) {
			r.Post("/strategy", controllers.SelectStrategy(logg))

			r.Route("/push/subscriptions", func(r chi.Router) {
				r.Post("/", controllers.RegisterPushSubscription(params.Subscriptions, logg))
				r.Delete("/", controllers.RemovePushSubscription(params.Subscriptions, logg))
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(params.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(params.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(params.Notifications, logg))
			})

			r.Get("/counts/{feature}", controllers.UnreadCount(params.Notifications, logg))
			r.Get("/events/stream", controllers.EventStream(params.Hub, cfg.SSE, logg))
		})

		r.Route("/internal/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole("admin", logg))
			r.Post("/dispatch", controllers.DispatchNotification(params.Dispatcher, logg))
		})
	})

	return r
}

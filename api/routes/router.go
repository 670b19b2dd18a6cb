package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/pushrelay-backend/api/controllers"
	"github.com/angelmondragon/pushrelay-backend/api/middleware"
	"github.com/angelmondragon/pushrelay-backend/internal/devices"
	"github.com/angelmondragon/pushrelay-backend/internal/notifications"
	"github.com/angelmondragon/pushrelay-backend/internal/preferences"
	"github.com/angelmondragon/pushrelay-backend/internal/topics"
	"github.com/angelmondragon/pushrelay-backend/pkg/config"
	"github.com/angelmondragon/pushrelay-backend/pkg/logger"
	"github.com/angelmondragon/pushrelay-backend/pkg/metrics"
	"github.com/angelmondragon/pushrelay-backend/pkg/redis"
)

// requestStore backs idempotency replay and send rate limiting.
type requestStore interface {
	redis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	store requestStore,
	gatherer prometheus.Gatherer,
	httpMetrics *metrics.HTTPMetrics,
	readiness []controllers.ReadinessCheck,
	deviceService devices.Service,
	topicService topics.Service,
	pushService notifications.Service,
	preferencesService preferences.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})

	r.Route("/api/public", func(r chi.Router) {
		if cfg.App.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(cfg.App.RequestTimeout))
		}
		r.Post("/devices/register", controllers.RegisterDevice(deviceService, logg))
		r.Post("/devices/deactivate", controllers.DeactivateDevice(deviceService, logg))
		r.Get("/devices/{token}/subscriptions", controllers.ListDeviceSubscriptions(topicService, logg))
		r.Post("/topics/subscribe", controllers.SubscribeTopic(topicService, logg))
		r.Post("/topics/unsubscribe", controllers.UnsubscribeTopic(topicService, logg))
		r.Get("/topics", controllers.ListTopics(topicService, logg))
	})

	sendPolicy := middleware.NewRateLimitPolicy("send", cfg.RateLimit.SendWindow, cfg.RateLimit.SendLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if cfg.App.RequestTimeout > 0 {
			r.Use(chimiddleware.Timeout(cfg.App.RequestTimeout))
		}

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", controllers.ListActiveDevices(deviceService, logg))
			r.Get("/me", controllers.ListMyDevices(deviceService, logg))
			r.Post("/register", controllers.RegisterMyDevice(deviceService, logg))
		})

		r.Route("/preferences", func(r chi.Router) {
			r.Get("/", controllers.GetPreferences(preferencesService, logg))
			r.Put("/", controllers.UpdatePreferences(preferencesService, logg))
		})

		r.Route("/push", func(r chi.Router) {
			r.Get("/stats", controllers.PushStats(pushService, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimit(sendPolicy, store, logg))
				r.Use(middleware.Idempotency(store, cfg.Eventing.HTTPIdempotencyTTL, logg))
				r.Post("/send", controllers.SendPush(pushService, logg))
				r.Post("/users/{userId}", controllers.SendPushToUser(pushService, logg))
				r.Post("/tokens", controllers.SendPushToTokens(pushService, logg))
				r.Post("/topics/{topic}", controllers.SendPushToTopic(pushService, logg))
				r.Post("/platforms/{platform}", controllers.SendPushToPlatform(pushService, logg))
				r.Post("/all", controllers.SendPushToAll(pushService, logg))
			})
		})
	})

	return r
}

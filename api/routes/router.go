package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/blogwatch/backend/api/controllers"
	"github.com/blogwatch/backend/api/middleware"
	"github.com/blogwatch/backend/internal/fanout"
	"github.com/blogwatch/backend/internal/notifications"
	"github.com/blogwatch/backend/internal/posts"
	"github.com/blogwatch/backend/internal/settings"
	"github.com/blogwatch/backend/internal/subscriptions"
	"github.com/blogwatch/backend/pkg/config"
	"github.com/blogwatch/backend/pkg/db"
	"github.com/blogwatch/backend/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            db.Pinger
	Posts         posts.Repository
	Settings      settings.Service
	Notifications notifications.Service
	Subscriptions subscriptions.Service
	Fanout        fanout.Service
	Scheduler     controllers.PollControl
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.ExtraCORSOrigins...),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB))
	})
	r.Get("/healthz", controllers.HealthLive(cfg))

	// Public surface: no caller identity required.
	r.Route("/api/v1/push", func(r chi.Router) {
		r.Get("/key", controllers.PushPublicKey(cfg.Push))
	})
	r.Get("/api/v1/locations", controllers.Locations(deps.Posts, logg))
	r.Get("/api/v1/keywords", controllers.Keywords(deps.Settings, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.UserKey(logg))

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.GetSettings(deps.Settings, logg))
			r.Put("/", controllers.UpdateSettings(deps.Settings, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Get("/count", controllers.NotificationCount(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
			r.Post("/test", controllers.SendTestNotification(deps.Fanout, logg))
		})

		r.Route("/push/subscription", func(r chi.Router) {
			r.Post("/", controllers.Subscribe(deps.Subscriptions, logg))
			r.Delete("/", controllers.Unsubscribe(deps.Subscriptions, logg))
		})

		r.Route("/poll", func(r chi.Router) {
			r.Post("/", controllers.TriggerPoll(deps.Scheduler, logg))
			r.Get("/status", controllers.PollStatus(deps.Scheduler, logg))
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", controllers.ListPosts(deps.Posts, logg))
			r.Get("/{postId}", controllers.GetPost(deps.Posts, logg))
		})
	})

	return r
}

// Package routes собирает HTTP роутер сервера
package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/iudanet/authd/internal/fail"
	"github.com/iudanet/authd/internal/server/auth"
	"github.com/iudanet/authd/internal/server/handlers"
	"github.com/iudanet/authd/internal/server/metrics"
	"github.com/iudanet/authd/internal/server/middleware"
)

// Options - зависимости роутера
type Options struct {
	Logger  *slog.Logger
	Service *auth.Service
	Metrics *metrics.Metrics
	// LoginLimiter ограничивает POST /v1/sessions/password, nil - без ограничения
	LoginLimiter *middleware.RateLimiter
	Version      string
}

// NewRouter creates the router with the common middleware chain and every
// route registered
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.LoggingWithSkip(logger, []string{"/health", "/metrics"}))
	router.Use(middleware.RecoveryMiddleware(logger))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Instrument)
	}

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(logger, w, r, fail.NotFound(""))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(logger, w, r, &fail.Failure{
			Message: "Method Not Allowed",
			Status:  http.StatusMethodNotAllowed,
		})
	})

	var authMetrics handlers.AuthMetrics
	if opts.Metrics != nil {
		authMetrics = opts.Metrics
	}

	RegisterRoutes(router, opts, Handlers{
		Session:  handlers.NewSessionHandler(logger, opts.Service, authMetrics),
		User:     handlers.NewUserHandler(logger, opts.Service),
		Settings: handlers.NewSettingsHandler(logger, opts.Service),
		Health:   handlers.NewHealthHandler(logger, opts.Service, opts.Version),
	})

	return router
}

// Handlers - обработчики, которые регистрирует RegisterRoutes
type Handlers struct {
	Session  *handlers.SessionHandler
	User     *handlers.UserHandler
	Settings *handlers.SettingsHandler
	Health   *handlers.HealthHandler
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, opts Options, h Handlers) {
	logger := opts.Logger

	router.Get("/health", h.Health.Health)
	if opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	router.Route("/v1", func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(logger, opts.Service))

		// Public routes - no session required
		login := r.With()
		if opts.LoginLimiter != nil {
			var onLimited func()
			if opts.Metrics != nil {
				onLimited = func() { opts.Metrics.Login(metrics.LoginLimited) }
			}
			login = r.With(opts.LoginLimiter.Middleware(onLimited))
		}
		login.Post("/sessions/password", h.Session.Login)

		// Protected routes - session required
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(logger))

			r.Get("/sessions", h.Session.Get)
			r.Delete("/sessions", h.Session.Logout)

			r.Put("/password", h.User.TestPassword)

			r.Get("/users", h.User.Get)
			r.Post("/users", h.User.Create)
			r.Get("/users/{username}", h.User.Get)
			r.Put("/users/{username}", h.User.Update)
			r.Put("/users/{username}/password", h.User.SetPassword)
			r.Get("/users/{username}/sessions", h.Session.History)

			// Admin checks are done by the service
			r.Get("/admin/users", h.User.List)

			r.Get("/settings", h.Settings.List)
			r.Put("/settings", h.Settings.Set)
			r.Delete("/settings", h.Settings.Reset)
		})
	})
}

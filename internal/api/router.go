package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"taskflow/internal/middleware"
)

// RouterConfig holds everything the router needs besides the handler.
type RouterConfig struct {
	CORSAllowedOrigins []string
	RateLimit          middleware.RateLimitConfig
	// LoginRateLimit applies to POST /auth/login on top of RateLimit.
	// Zero RequestsPerSecond disables it.
	LoginRateLimit middleware.RateLimitConfig
	Resolver           middleware.PrincipalResolver
	Validators         []middleware.JWTValidator
	// WebSocket serves GET /ws behind authentication.
	WebSocket http.Handler
	// Health reports whether the store is reachable.
	Health func(ctx context.Context) error
	Logger *slog.Logger
}

// NewRouter builds the HTTP routes. ctx bounds background work started by
// middleware such as the rate limiter's sweeper.
func NewRouter(ctx context.Context, h *APIHandler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RequestLogger(&chimw.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(corsOptions(cfg.CORSAllowedOrigins)))
	r.Use(middleware.RateLimiter(ctx, cfg.RateLimit))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Public endpoints.
	r.Get("/healthz", healthHandler(cfg.Health))
	if cfg.LoginRateLimit.RequestsPerSecond > 0 {
		r.With(middleware.RateLimiter(ctx, cfg.LoginRateLimit)).Post("/auth/login", h.Login)
	} else {
		r.Post("/auth/login", h.Login)
	}
	r.Post("/auth/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(cfg.Resolver, cfg.Logger, cfg.Validators...))

		r.Route("/task", func(r chi.Router) {
			r.Post("/", h.CreateTask)
			r.Get("/", h.ListTasks)
			r.Get("/{id}", h.GetTask)
			r.Patch("/update-status/{id}", h.UpdateTaskStatus)
			r.Patch("/update/{id}", h.UpdateTask)
			r.Delete("/{id}", h.DeleteTask)
		})
		r.Route("/notification", func(r chi.Router) {
			r.Get("/in-app-notifications", h.ListInAppNotifications)
			r.Get("/unread-notifications-count", h.UnreadNotificationsCount)
		})
		r.Route("/user", func(r chi.Router) {
			r.Post("/", h.CreateUser)
			r.Get("/", h.ListUsers)
			r.Get("/me", h.Me)
		})
		r.Route("/role", func(r chi.Router) {
			r.Post("/", h.CreateRole)
			r.Get("/", h.ListRoles)
		})
		r.Get("/audit", h.ListAudit)
		if cfg.WebSocket != nil {
			r.Method(http.MethodGet, "/ws", cfg.WebSocket)
		}
	})
	return r
}

func corsOptions(origins []string) cors.Options {
	wildcard := len(origins) == 1 && origins[0] == "*"
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

func healthHandler(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				writeStatus(w, http.StatusServiceUnavailable, "database unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}

package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Shivanand-hulikatti/clinic-checkin/internal/auth"
	"github.com/Shivanand-hulikatti/clinic-checkin/pkg/logging"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Clinic         *ClinicHandler
	Auth           *AuthHandler
	Health         *HealthHandler
	Sessions       *auth.Sessions
	Metrics        http.Handler
	Logger         *logging.Logger
	AllowedOrigins []string
	WebDir         string
}

// NewRouter builds the chi router with the global middleware stack.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(CORS(cfg.AllowedOrigins))

	r.Get("/health", cfg.Health.Health)
	r.Get("/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/pin", cfg.Auth.Login)
		r.Post("/logout", cfg.Auth.Logout)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireSession(cfg.Sessions))
		r.Post("/clients", cfg.Clinic.RegisterClient)
		r.Get("/clients/{id}", cfg.Clinic.GetClient)
		r.Post("/checkin", cfg.Clinic.CheckIn)
		r.Get("/queue", cfg.Clinic.Queue)
		r.Patch("/visit-services/{id}", cfg.Clinic.AdvanceVisitService)
	})

	if cfg.WebDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.WebDir)))
	}
	return r
}

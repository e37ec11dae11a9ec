package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/portmail/portmail/internal/templates"
	"github.com/portmail/portmail/pkg/health"
)

// Config wires the router.
type Config struct {
	Jobs      JobService
	Templates []templates.Template

	// Auth protects /api. Required when Jobs is set.
	Auth *Authenticator

	// Sweep serves /cron/send-mails.
	Sweep http.Handler

	// Readiness checks served at /health/ready.
	Readiness health.Checks

	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler

	CORSOrigins    []string
	MaxUploadBytes int64
	// RequestTimeout bounds /api requests. Zero uses DefaultRequestTimeout.
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter builds the HTTP surface.
func NewRouter(cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimw.RealIP)
	r.Use(Recover(log))
	r.Use(AccessLog(log))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(corsHandler(cfg.CORSOrigins))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, log, ErrNotFound("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, r, log, NewError(http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed"))
	})

	r.Get("/health/live", health.LivenessHandler())
	r.Get("/health/ready", health.ReadinessHandler(cfg.Readiness, health.WithLogger(log)))

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	if cfg.Sweep != nil {
		r.Method(http.MethodGet, "/cron/send-mails", cfg.Sweep)
		r.Method(http.MethodPost, "/cron/send-mails", cfg.Sweep)
	}

	if cfg.Jobs != nil && cfg.Auth != nil {
		jh := &jobHandler{svc: cfg.Jobs, maxUpload: cfg.MaxUploadBytes, logger: log}
		th := &templateHandler{templates: cfg.Templates}

		r.Route("/api", func(r chi.Router) {
			r.Use(Timeout(cfg.RequestTimeout))
			r.Use(cfg.Auth.Middleware)

			r.Get("/templates", th.list)

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", jh.list)
				r.Post("/", jh.create)
				r.Get("/{id}", jh.get)
				r.Patch("/{id}", jh.update)
				r.Delete("/{id}", jh.delete)
				r.Post("/{id}/attachments", jh.upload)
			})
		})
	}

	return r
}

func corsHandler(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

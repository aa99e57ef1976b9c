package api

import (
	"net/http"

	"github.com/auditai/insight-engine/internal/auth"
	"github.com/auditai/insight-engine/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes. Everything under /v1 passes the
// access guard; health, crawl and suggest are open.
func SetupRoutes(h *Handlers, hc *HealthChecker, guard *auth.Guard, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", WorkspaceHeader},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", hc.HandleHealth)
	r.Get("/health/live", hc.HandleLiveness)
	r.Get("/health/ready", hc.HandleReadiness)

	r.Post("/crawl", h.Crawl)
	r.Post("/suggest", h.Suggest)

	r.Route("/v1", func(r chi.Router) {
		r.Use(guard.Middleware)

		r.Get("/service/ping", h.Ping)

		r.Post("/suggestions/import", h.ImportSuggestions)
		r.Get("/suggestions", h.ListSuggestions)
		r.Post("/suggestions/{uniqueKey}/state", h.SetSuggestionState)

		r.Post("/data/upsert/campaign_metrics", h.UpsertCampaignMetrics)

		r.Route("/jobs", func(r chi.Router) {
			r.Post("/ack", h.RecordJobEvent(domain.JobAck))
			r.Post("/done", h.RecordJobEvent(domain.JobDone))
			r.Post("/fail", h.RecordJobEvent(domain.JobFail))
			r.Get("/{jobId}/events", h.JobEvents)
		})
	})

	return r
}

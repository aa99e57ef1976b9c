package api

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/auditai/insight-engine/internal/auth"
	"github.com/auditai/insight-engine/internal/config"
	"github.com/auditai/insight-engine/internal/service/ingest"
	"github.com/auditai/insight-engine/internal/service/insight"
	"github.com/auditai/insight-engine/internal/service/jobledger"
	"github.com/redis/go-redis/v9"
)

// Deps are the services and probes the server routes to. DB, Redis and
// Snapshots are only used for health checks and may be nil.
type Deps struct {
	Ingest    *ingest.Service
	Jobs      *jobledger.Service
	Insight   *insight.Service
	Guard     *auth.Guard
	DB        *sql.DB
	Redis     *redis.Client
	Snapshots BucketPinger
}

// Server represents the API server
type Server struct {
	config  config.ServerConfig
	handler http.Handler
	server  *http.Server
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, deps Deps) (*Server, error) {
	handlers, err := NewHandlers(deps.Ingest, deps.Jobs, deps.Insight, cfg.MaxBodyBytes)
	if err != nil {
		return nil, err
	}
	guard := deps.Guard
	if guard == nil {
		guard = auth.NewGuard("")
	}
	hc := NewHealthChecker(deps.DB, deps.Redis, deps.Snapshots)

	return &Server{
		config:  cfg,
		handler: SetupRoutes(handlers, hc, guard, cfg.AllowedOrigins),
	}, nil
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	s.server = &http.Server{
		Addr:    s.config.Addr(),
		Handler: s.handler,
		// Suggest waits on the model, which can take most of a minute.
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}

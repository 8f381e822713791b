// Package server exposes the sync submission and status HTTP API.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ia-ops/docsync/internal/coordinator"
	"github.com/ia-ops/docsync/internal/store"
)

// SyncService is the coordinator surface the API exposes.
type SyncService interface {
	RequestSync(ctx context.Context, repoName, repoURL, branch string) (coordinator.Admission, error)
	GetJobStatus(ctx context.Context, jobID string) (*store.SyncJob, error)
	ListJobs(ctx context.Context, limit int) ([]*store.SyncJob, error)
	ActiveRuns() int
}

// Options tunes the server beyond its collaborators.
type Options struct {
	// PublicBasePath prefixes docs_url values, e.g. "/techdocs". Empty
	// means sites are served from the root.
	PublicBasePath string

	// MetricsRegistry, when set, mounts /metrics for it.
	MetricsRegistry *prometheus.Registry

	// Health, when set, is probed by /healthz; a failing probe reports
	// the service as degraded.
	Health interface {
		Ping(ctx context.Context) error
	}
}

// Server represents the API server.
type Server struct {
	Addr    string
	router  *chi.Mux
	server  *http.Server
	service SyncService
	opts    Options
}

// NewServer creates a new API server.
func NewServer(addr string, service SyncService, opts Options) *Server {
	s := &Server{
		Addr:    addr,
		router:  chi.NewRouter(),
		service: service,
		opts:    opts,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/healthz", s.handleHealth)

	s.router.Post("/api/v1/sync", s.handleSubmitSync)
	s.router.Get("/api/v1/jobs", s.handleListJobs)
	s.router.Get("/api/v1/jobs/{id}", s.handleGetJob)

	if s.opts.MetricsRegistry != nil {
		s.router.Get("/metrics", promhttp.HandlerFor(
			s.opts.MetricsRegistry,
			promhttp.HandlerOpts{},
		).ServeHTTP)
	}
}

// Handler returns the route tree, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, errorResponse{Error: message})
}

func statusURL(jobID string) string {
	return fmt.Sprintf("/api/v1/jobs/%s", jobID)
}

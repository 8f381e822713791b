package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ia-ops/docsync/internal/coordinator"
	"github.com/ia-ops/docsync/internal/logfields"
	"github.com/ia-ops/docsync/internal/store"
)

// syncRequest is the submission payload.
type syncRequest struct {
	RepositoryName string `json:"repository_name"`
	RepositoryURL  string `json:"repository_url"`
	Branch         string `json:"branch"`
}

// syncAccepted is returned on admission.
type syncAccepted struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	StatusURL string `json:"status_url"`
}

// syncConflict is returned when a run is already active for the repository.
type syncConflict struct {
	JobID     string `json:"job_id"`
	Message   string `json:"message"`
	StatusURL string `json:"status_url"`
}

// jobResponse is the status payload for one job.
type jobResponse struct {
	JobID          string                `json:"job_id"`
	RepositoryName string                `json:"repository_name"`
	RepositoryURL  string                `json:"repository_url"`
	Branch         string                `json:"branch"`
	Status         string                `json:"status"`
	Progress       int                   `json:"progress"`
	StartedAt      *string               `json:"started_at"`
	CompletedAt    *string               `json:"completed_at"`
	ErrorMessage   string                `json:"error_message,omitempty"`
	ResultMetadata *store.ResultMetadata `json:"result_metadata,omitempty"`
	DocsURL        string                `json:"docs_url,omitempty"`
}

func (s *Server) handleSubmitSync(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.RepositoryName == "" || req.RepositoryURL == "" {
		s.writeError(w, http.StatusBadRequest, "repository_name and repository_url are required")
		return
	}

	adm, err := s.service.RequestSync(r.Context(), req.RepositoryName, req.RepositoryURL, req.Branch)
	switch {
	case errors.Is(err, coordinator.ErrTooManyRuns):
		s.writeError(w, http.StatusTooManyRequests, err.Error())
		return
	case err != nil:
		slog.Error("Sync submission failed",
			logfields.Repository(req.RepositoryName),
			logfields.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to submit sync")
		return
	}

	if !adm.Accepted {
		s.writeJSON(w, http.StatusConflict, syncConflict{
			JobID:     adm.JobID,
			Message:   "a sync run is already active for this repository",
			StatusURL: statusURL(adm.JobID),
		})
		return
	}

	s.writeJSON(w, http.StatusAccepted, syncAccepted{
		JobID:     adm.JobID,
		Status:    string(store.StatusPending),
		StatusURL: statusURL(adm.JobID),
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")

	job, err := s.service.GetJobStatus(r.Context(), jobID)
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		slog.Error("Job lookup failed", logfields.JobID(jobID), logfields.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	s.writeJSON(w, http.StatusOK, s.toJobResponse(job))
}

// Bounds for the jobs listing: a missing limit defaults low, an excessive
// one is clamped rather than rejected.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	jobs, err := s.service.ListJobs(r.Context(), limit)
	if err != nil {
		slog.Error("Job list failed", logfields.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	out := make([]*jobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, s.toJobResponse(job))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health.Ping(r.Context()); err != nil {
			slog.Error("Health probe failed", logfields.Error(err))
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"active_runs": s.service.ActiveRuns(),
	})
}

// toJobResponse maps the record to its API shape. docs_url appears only once
// the published site actually exists, i.e. on completed jobs.
func (s *Server) toJobResponse(job *store.SyncJob) *jobResponse {
	resp := &jobResponse{
		JobID:          job.JobID,
		RepositoryName: job.RepositoryName,
		RepositoryURL:  job.RepositoryURL,
		Branch:         job.Branch,
		Status:         string(job.Status),
		Progress:       job.Progress,
		ErrorMessage:   job.ErrorMessage,
		ResultMetadata: job.ResultMetadata,
	}
	if job.StartedAt != nil {
		v := job.StartedAt.UTC().Format(time.RFC3339)
		resp.StartedAt = &v
	}
	if job.CompletedAt != nil {
		v := job.CompletedAt.UTC().Format(time.RFC3339)
		resp.CompletedAt = &v
	}
	if job.Status == store.StatusCompleted {
		resp.DocsURL = path.Join("/", s.opts.PublicBasePath, job.RepositoryName)
	}
	return resp
}

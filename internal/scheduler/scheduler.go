// Package scheduler periodically re-submits known repositories so their
// published documentation keeps tracking the branch head.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/ia-ops/docsync/internal/config"
	"github.com/ia-ops/docsync/internal/coordinator"
	"github.com/ia-ops/docsync/internal/logfields"
)

// SyncRequester is the admission surface the scheduler drives.
type SyncRequester interface {
	RequestSync(ctx context.Context, repoName, repoURL, branch string) (coordinator.Admission, error)
}

// Scheduler wraps a gocron scheduler around periodic sync submissions.
type Scheduler struct {
	scheduler gocron.Scheduler
	requester SyncRequester
	repos     []config.RepositorySpec
}

// New creates a scheduler for the given repositories.
func New(requester SyncRequester, repos []config.RepositorySpec) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, requester: requester, repos: repos}, nil
}

// SchedulePeriodicSync registers the recurring sync task.
func (s *Scheduler) SchedulePeriodicSync(interval time.Duration) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(s.syncAll),
		gocron.WithName("periodic-sync"),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic sync job: %w", err)
	}
	return job.ID().String(), nil
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler", slog.Int("repositories", len(s.repos)))
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// syncAll submits every configured repository. A repository with a run
// already active is skipped, and one rejection never blocks the rest.
func (s *Scheduler) syncAll() {
	ctx := context.Background()
	for _, repo := range s.repos {
		adm, err := s.requester.RequestSync(ctx, repo.Name, repo.URL, repo.Branch)
		switch {
		case errors.Is(err, coordinator.ErrTooManyRuns):
			slog.Warn("Scheduled sync rejected, at capacity", logfields.Repository(repo.Name))
		case err != nil:
			slog.Error("Scheduled sync failed to submit",
				logfields.Repository(repo.Name),
				logfields.Error(err))
		case !adm.Accepted:
			slog.Debug("Scheduled sync skipped, run already active",
				logfields.Repository(repo.Name),
				logfields.JobID(adm.JobID))
		default:
			slog.Info("Scheduled sync submitted",
				logfields.Repository(repo.Name),
				logfields.JobID(adm.JobID))
		}
	}
}

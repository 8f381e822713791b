// Package coordinator admits sync requests, enforces the one-run-per-
// repository invariant, and drives the fetch, config, build, and publish
// stages while keeping the job record store current.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ia-ops/docsync/internal/events"
	"github.com/ia-ops/docsync/internal/gitfetch"
	"github.com/ia-ops/docsync/internal/logfields"
	"github.com/ia-ops/docsync/internal/metrics"
	"github.com/ia-ops/docsync/internal/publish"
	"github.com/ia-ops/docsync/internal/site"
	"github.com/ia-ops/docsync/internal/store"
	"github.com/ia-ops/docsync/internal/workspace"
)

// Progress milestones per stage. Values are a design choice; the contract
// is that they only increase within a run.
const (
	progressCloning    = 10
	progressFetched    = 30
	progressConfig     = 40
	progressBuilding   = 60
	progressPublishing = 80
)

// ErrTooManyRuns is returned when the optional concurrency cap rejects an
// admission. The request is rejected, never queued.
var ErrTooManyRuns = errors.New("maximum concurrent sync runs reached")

// SiteBuilder is the build-stage surface the coordinator drives.
type SiteBuilder interface {
	EnsureConfig(sourceDir, projectName string) (configPath string, err error)
	Build(ctx context.Context, sourceDir string) (*site.BuildResult, error)
	DocsDir(sourceDir, configPath string) string
}

// ArtifactPublisher is the publish-stage surface the coordinator drives.
type ArtifactPublisher interface {
	Publish(ctx context.Context, repoName, siteDir, docsDir, configPath string) (*publish.Result, error)
}

// Deps holds the collaborators a Coordinator drives.
type Deps struct {
	Store      store.Store
	Fetcher    gitfetch.Fetcher
	Sites      SiteBuilder
	Publisher  ArtifactPublisher
	Workspaces *workspace.Manager

	// MaxConcurrent bounds simultaneous runs; 0 means unbounded.
	MaxConcurrent int
}

// Admission is the synchronous result of a sync request.
type Admission struct {
	JobID    string
	Accepted bool
}

// Coordinator orchestrates sync runs.
type Coordinator struct {
	deps     Deps
	registry *activeRegistry
	recorder metrics.Recorder
	emitter  events.Emitter
	wg       sync.WaitGroup
}

// New creates a Coordinator. Store, Fetcher, Sites, Publisher, and
// Workspaces are required.
func New(deps Deps) *Coordinator {
	if deps.Store == nil || deps.Fetcher == nil || deps.Sites == nil || deps.Publisher == nil || deps.Workspaces == nil {
		panic("coordinator.New: all dependencies are required")
	}
	return &Coordinator{
		deps:     deps,
		registry: newActiveRegistry(),
		recorder: metrics.NoopRecorder{},
		emitter:  events.NoopEmitter{},
	}
}

// SetRecorder injects a metrics recorder (optional).
func (c *Coordinator) SetRecorder(r metrics.Recorder) {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	c.recorder = r
}

// SetEmitter injects a lifecycle event emitter (optional).
func (c *Coordinator) SetEmitter(e events.Emitter) {
	if e == nil {
		e = events.NoopEmitter{}
	}
	c.emitter = e
}

// RequestSync admits a sync run for the repository. When a run is already
// active for repoName the existing job ID is returned with Accepted=false
// and no new record is created. The run body executes on its own goroutine;
// this call only performs the registry reservation and the record insert.
func (c *Coordinator) RequestSync(ctx context.Context, repoName, repoURL, branch string) (Admission, error) {
	if repoName == "" || repoURL == "" {
		return Admission{}, fmt.Errorf("repository name and url are required")
	}
	if branch == "" {
		branch = "main"
	}

	jobID := newJobID()
	reservedID, outcome := c.registry.tryReserve(repoName, jobID, c.deps.MaxConcurrent)
	switch outcome {
	case repoBusy:
		c.recorder.IncSyncRequested(false)
		return Admission{JobID: reservedID, Accepted: false}, nil
	case atCapacity:
		c.recorder.IncSyncRequested(false)
		return Admission{}, ErrTooManyRuns
	}

	// The in-memory registry cannot see other processes sharing the same
	// database; a non-terminal row for this repository means another
	// coordinator owns the run.
	if active, err := c.deps.Store.FindActiveByRepository(ctx, repoName); err == nil {
		c.registry.release(repoName)
		c.recorder.IncSyncRequested(false)
		return Admission{JobID: active.JobID, Accepted: false}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		c.registry.release(repoName)
		return Admission{}, fmt.Errorf("admission check: %w", err)
	}

	job := &store.SyncJob{
		JobID:          jobID,
		RepositoryName: repoName,
		RepositoryURL:  repoURL,
		Branch:         branch,
		Status:         store.StatusPending,
	}
	if err := c.deps.Store.CreateJob(ctx, job); err != nil {
		c.registry.release(repoName)
		return Admission{}, fmt.Errorf("create job record: %w", err)
	}

	c.recorder.IncSyncRequested(true)
	c.recorder.SetActiveRuns(c.registry.size())

	c.wg.Add(1)
	go c.run(jobID, repoName, repoURL, branch)

	slog.Info("Sync run admitted",
		logfields.JobID(jobID),
		logfields.Repository(repoName),
		logfields.Branch(branch))
	return Admission{JobID: jobID, Accepted: true}, nil
}

// GetJobStatus returns the persisted record for a job.
func (c *Coordinator) GetJobStatus(ctx context.Context, jobID string) (*store.SyncJob, error) {
	return c.deps.Store.GetJob(ctx, jobID)
}

// ListJobs returns the most recent jobs, newest first.
func (c *Coordinator) ListJobs(ctx context.Context, limit int) ([]*store.SyncJob, error) {
	return c.deps.Store.ListJobs(ctx, limit)
}

// ActiveRuns returns the number of admitted, non-terminal runs.
func (c *Coordinator) ActiveRuns() int {
	return c.registry.size()
}

// Wait blocks until all in-flight runs reach a terminal state. Runs are not
// cancellable once admitted; Wait is for graceful shutdown.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// run is the asynchronous run body. It owns the registry entry for the
// repository and releases it on every exit path, panics included.
func (c *Coordinator) run(jobID, repoName, repoURL, branch string) {
	// Runs deliberately outlive the admitting request and have no external
	// cancellation; only the fetch stage carries an internal timeout.
	ctx := context.Background()
	start := time.Now()

	defer c.wg.Done()
	defer func() {
		c.registry.release(repoName)
		c.recorder.SetActiveRuns(c.registry.size())
		if r := recover(); r != nil {
			slog.Error("Sync run panicked", logfields.JobID(jobID), slog.Any("panic", r))
			c.finishFailed(ctx, jobID, repoName, fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := c.deps.Store.MarkRunning(ctx, jobID); err != nil {
		// Persistence failures never abort the run; the job may surface a
		// stale status until the next successful write.
		slog.Warn("Failed to mark job running", logfields.JobID(jobID), logfields.Error(err))
	}
	c.emit(events.JobEvent{Type: events.TypeJobStarted, JobID: jobID, RepositoryName: repoName})

	var meta *store.ResultMetadata
	err := c.deps.Workspaces.With(repoName, func(ws *workspace.Workspace) error {
		var stageErr error
		meta, stageErr = c.executeStages(ctx, ws, jobID, repoName, repoURL, branch)
		return stageErr
	})

	c.recorder.ObserveRunDuration(time.Since(start))

	if err != nil {
		slog.Error("Sync run failed",
			logfields.JobID(jobID),
			logfields.Repository(repoName),
			logfields.Error(err))
		c.finishFailed(ctx, jobID, repoName, err.Error())
		return
	}

	if perr := c.deps.Store.MarkCompleted(ctx, jobID, meta); perr != nil {
		slog.Warn("Failed to mark job completed", logfields.JobID(jobID), logfields.Error(perr))
	}
	c.recorder.IncSyncOutcome(metrics.OutcomeCompleted)
	c.emit(events.JobEvent{
		Type:           events.TypeJobCompleted,
		JobID:          jobID,
		RepositoryName: repoName,
		FilesUploaded:  meta.FilesUploaded,
	})
	slog.Info("Sync run completed",
		logfields.JobID(jobID),
		logfields.Repository(repoName),
		logfields.DurationMS(float64(time.Since(start).Milliseconds())))
}

// executeStages drives the pipeline strictly in order inside the scoped
// workspace; no stage begins before the previous one reports success.
func (c *Coordinator) executeStages(ctx context.Context, ws *workspace.Workspace, jobID, repoName, repoURL, branch string) (*store.ResultMetadata, error) {
	checkout := filepath.Join(ws.Path(), repoName)

	c.persistProgress(ctx, jobID, progressCloning)
	stageStart := time.Now()
	fetchRes, err := c.deps.Fetcher.Fetch(ctx, repoURL, branch, checkout)
	c.recorder.ObserveStageDuration(string(StageFetch), time.Since(stageStart))
	if err != nil {
		return nil, stageErr(StageFetch, err)
	}
	c.persistProgress(ctx, jobID, progressFetched)

	stageStart = time.Now()
	configPath, err := c.deps.Sites.EnsureConfig(checkout, repoName)
	c.recorder.ObserveStageDuration(string(StageConfig), time.Since(stageStart))
	if err != nil {
		return nil, stageErr(StageConfig, err)
	}
	c.persistProgress(ctx, jobID, progressConfig)

	c.persistProgress(ctx, jobID, progressBuilding)
	stageStart = time.Now()
	buildRes, err := c.deps.Sites.Build(ctx, checkout)
	c.recorder.ObserveStageDuration(string(StageBuild), time.Since(stageStart))
	if err != nil {
		return nil, stageErr(StageBuild, err)
	}

	c.persistProgress(ctx, jobID, progressPublishing)
	stageStart = time.Now()
	docsDir := c.deps.Sites.DocsDir(checkout, configPath)
	pubRes, err := c.deps.Publisher.Publish(ctx, repoName, buildRes.OutputDir, docsDir, configPath)
	c.recorder.ObserveStageDuration(string(StagePublish), time.Since(stageStart))
	if err != nil {
		return nil, stageErr(StagePublish, err)
	}
	c.recorder.AddFilesUploaded(pubRes.FilesUploaded)

	return &store.ResultMetadata{
		FilesUploaded: pubRes.FilesUploaded,
		SitePrefix:    pubRes.SitePrefix,
		CommitSHA:     fetchRes.CommitSHA,
	}, nil
}

// finishFailed writes the terminal failed state (best effort) and emits the
// failure event.
func (c *Coordinator) finishFailed(ctx context.Context, jobID, repoName, message string) {
	if err := c.deps.Store.MarkFailed(ctx, jobID, message); err != nil {
		slog.Warn("Failed to mark job failed", logfields.JobID(jobID), logfields.Error(err))
	}
	c.recorder.IncSyncOutcome(metrics.OutcomeFailed)
	c.emit(events.JobEvent{
		Type:           events.TypeJobFailed,
		JobID:          jobID,
		RepositoryName: repoName,
		ErrorMessage:   message,
	})
}

// persistProgress raises the job's progress; failures are logged, never fatal.
func (c *Coordinator) persistProgress(ctx context.Context, jobID string, progress int) {
	if err := c.deps.Store.UpdateProgress(ctx, jobID, progress); err != nil {
		slog.Warn("Failed to update job progress",
			logfields.JobID(jobID),
			logfields.Progress(progress),
			logfields.Error(err))
	}
}

func (c *Coordinator) emit(event events.JobEvent) {
	if err := c.emitter.Emit(event); err != nil {
		slog.Warn("Failed to emit job event", logfields.JobID(event.JobID), logfields.Error(err))
	}
}

// newJobID generates the short job identifier, e.g. docs-sync-1a2b3c4d.
func newJobID() string {
	return "docs-sync-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

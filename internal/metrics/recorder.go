// Package metrics provides observability hooks for the sync pipeline.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics can be enabled by swapping in the Prometheus
// implementation without touching call sites.
package metrics

import "time"

// OutcomeLabel enumerates terminal run outcomes for counters.
type OutcomeLabel string

const (
	OutcomeCompleted OutcomeLabel = "completed"
	OutcomeFailed    OutcomeLabel = "failed"
)

// Recorder defines observability hooks for sync runs and their stages.
// Implementations may forward to Prometheus, OpenTelemetry, etc.
type Recorder interface {
	IncSyncRequested(accepted bool)
	IncSyncOutcome(outcome OutcomeLabel)
	ObserveStageDuration(stage string, d time.Duration)
	ObserveRunDuration(d time.Duration)
	SetActiveRuns(n int)
	AddFilesUploaded(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncSyncRequested(bool)                   {}
func (NoopRecorder) IncSyncOutcome(OutcomeLabel)             {}
func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) ObserveRunDuration(time.Duration)        {}
func (NoopRecorder) SetActiveRuns(int)                       {}
func (NoopRecorder) AddFilesUploaded(int)                    {}

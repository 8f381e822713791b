// Package store persists sync job records.
package store

import (
	"errors"
	"time"
)

// Status is the lifecycle state of a sync job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ResultMetadata describes what a successful run published.
type ResultMetadata struct {
	FilesUploaded int    `json:"files_uploaded"`
	SitePrefix    string `json:"site_prefix"`
	CommitSHA     string `json:"commit_sha,omitempty"`
}

// SyncJob is the persisted record of one sync run.
type SyncJob struct {
	JobID          string          `json:"job_id"`
	RepositoryName string          `json:"repository_name"`
	RepositoryURL  string          `json:"repository_url"`
	Branch         string          `json:"branch"`
	Status         Status          `json:"status"`
	Progress       int             `json:"progress"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CompletedAt    *time.Time      `json:"completed_at,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	ResultMetadata *ResultMetadata `json:"result_metadata,omitempty"`
}

// ErrNotFound is returned when a job ID has no record.
var ErrNotFound = errors.New("sync job not found")

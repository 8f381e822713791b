// Package events publishes sync job lifecycle events for portal
// integrations that prefer push over polling the status API.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ia-ops/docsync/internal/logfields"
)

// Type enumerates lifecycle event kinds.
type Type string

const (
	TypeJobStarted   Type = "job_started"
	TypeJobCompleted Type = "job_completed"
	TypeJobFailed    Type = "job_failed"
)

// JobEvent is the wire payload published per lifecycle transition.
type JobEvent struct {
	Type           Type      `json:"type"`
	JobID          string    `json:"job_id"`
	RepositoryName string    `json:"repository_name"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	FilesUploaded  int       `json:"files_uploaded,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Emitter abstracts event emission so the coordinator never depends on a
// transport. Emission failures are logged by callers, never fatal.
type Emitter interface {
	Emit(event JobEvent) error
}

// NoopEmitter is the default when no event transport is configured.
type NoopEmitter struct{}

func (NoopEmitter) Emit(JobEvent) error { return nil }

// NATSEmitter publishes events to a NATS subject.
type NATSEmitter struct {
	conn    *nats.Conn
	subject string
}

// NewNATSEmitter connects to NATS.
func NewNATSEmitter(url, subject string) (*NATSEmitter, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	slog.Info("NATS event emitter initialized", logfields.URL(url), slog.String("subject", subject))
	return &NATSEmitter{conn: conn, subject: subject}, nil
}

// Emit publishes one event as JSON.
func (e *NATSEmitter) Emit(event JobEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal job event: %w", err)
	}
	if err := e.conn.Publish(e.subject, data); err != nil {
		return fmt.Errorf("publish job event: %w", err)
	}
	return nil
}

// Close drains buffered publishes before closing the connection.
func (e *NATSEmitter) Close() {
	if e.conn == nil {
		return
	}
	if err := e.conn.Drain(); err != nil {
		slog.Warn("Failed to drain NATS connection", logfields.Error(err))
		e.conn.Close()
	}
}

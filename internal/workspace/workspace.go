// Package workspace manages the temporary directory that holds a single
// sync run's checked-out source and build output. Every run gets its own
// uniquely named directory, and removal is guaranteed on every exit path
// through the scoped With helper.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/ia-ops/docsync/internal/logfields"
)

// Manager allocates per-run workspace directories under a base directory.
type Manager struct {
	baseDir string
}

// NewManager creates a workspace manager. An empty baseDir falls back to
// the system temp directory.
func NewManager(baseDir string) *Manager {
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &Manager{baseDir: baseDir}
}

// Workspace is a single run's directory. It is removed by Release.
type Workspace struct {
	path string
}

// Path returns the workspace root directory.
func (w *Workspace) Path() string {
	return w.path
}

// Acquire creates a uniquely named workspace directory for a run.
func (m *Manager) Acquire(repoName string) (*Workspace, error) {
	dir := filepath.Join(m.baseDir, fmt.Sprintf("docs-sync-%s-%s", repoName, uuid.NewString()[:8]))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create workspace directory: %w", err)
	}
	slog.Debug("Acquired workspace", logfields.Repository(repoName), logfields.Path(dir))
	return &Workspace{path: dir}, nil
}

// Release removes the entire workspace tree. Safe to call more than once.
func (w *Workspace) Release() error {
	if w == nil || w.path == "" {
		return nil
	}
	if err := os.RemoveAll(w.path); err != nil {
		return fmt.Errorf("cleanup workspace: %w", err)
	}
	slog.Debug("Released workspace", logfields.Path(w.path))
	w.path = ""
	return nil
}

// With acquires a workspace, runs fn, and releases the workspace on every
// exit path including panics. The run body must not retain the path past fn.
func (m *Manager) With(repoName string, fn func(ws *Workspace) error) error {
	ws, err := m.Acquire(repoName)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := ws.Release(); rerr != nil {
			slog.Warn("Workspace cleanup failed", logfields.Error(rerr))
		}
	}()
	return fn(ws)
}

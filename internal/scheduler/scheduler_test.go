package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ia-ops/docsync/internal/config"
	"github.com/ia-ops/docsync/internal/coordinator"
)

type recordingRequester struct {
	mu       sync.Mutex
	requests []string
	reject   map[string]error
	busy     map[string]string
}

func (r *recordingRequester) RequestSync(_ context.Context, repoName, _, _ string) (coordinator.Admission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, repoName)
	if err, ok := r.reject[repoName]; ok {
		return coordinator.Admission{}, err
	}
	if jobID, ok := r.busy[repoName]; ok {
		return coordinator.Admission{JobID: jobID, Accepted: false}, nil
	}
	return coordinator.Admission{JobID: "docs-sync-" + repoName, Accepted: true}, nil
}

func (r *recordingRequester) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.requests...)
}

func TestSyncAllSubmitsEveryRepository(t *testing.T) {
	req := &recordingRequester{}
	s, err := New(req, []config.RepositorySpec{
		{Name: "alpha", URL: "https://example/alpha.git", Branch: "main"},
		{Name: "beta", URL: "https://example/beta.git", Branch: "develop"},
	})
	require.NoError(t, err)

	s.syncAll()
	assert.Equal(t, []string{"alpha", "beta"}, req.seen())
}

func TestSyncAllContinuesPastRejections(t *testing.T) {
	req := &recordingRequester{
		reject: map[string]error{"alpha": coordinator.ErrTooManyRuns},
		busy:   map[string]string{"beta": "docs-sync-existing"},
	}
	s, err := New(req, []config.RepositorySpec{
		{Name: "alpha", URL: "https://example/alpha.git", Branch: "main"},
		{Name: "beta", URL: "https://example/beta.git", Branch: "main"},
		{Name: "gamma", URL: "https://example/gamma.git", Branch: "main"},
	})
	require.NoError(t, err)

	s.syncAll()
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, req.seen())
}

func TestSchedulePeriodicSync(t *testing.T) {
	req := &recordingRequester{}
	s, err := New(req, []config.RepositorySpec{
		{Name: "alpha", URL: "https://example/alpha.git", Branch: "main"},
	})
	require.NoError(t, err)

	id, err := s.SchedulePeriodicSync(time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	s.Start()
	require.NoError(t, s.Stop())
}

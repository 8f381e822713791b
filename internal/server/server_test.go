package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ia-ops/docsync/internal/coordinator"
	"github.com/ia-ops/docsync/internal/store"
)

type fakeService struct {
	admission coordinator.Admission
	admitErr  error
	jobs      map[string]*store.SyncJob
	listErr   error
	gotLimit  int
}

func (f *fakeService) RequestSync(context.Context, string, string, string) (coordinator.Admission, error) {
	return f.admission, f.admitErr
}

func (f *fakeService) GetJobStatus(_ context.Context, jobID string) (*store.SyncJob, error) {
	job, ok := f.jobs[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return job, nil
}

func (f *fakeService) ListJobs(_ context.Context, limit int) ([]*store.SyncJob, error) {
	f.gotLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]*store.SyncJob, 0, len(f.jobs))
	for _, job := range f.jobs {
		out = append(out, job)
	}
	return out, nil
}

func (f *fakeService) ActiveRuns() int { return 0 }

func newTestServer(service SyncService, opts Options) *httptest.Server {
	return httptest.NewServer(NewServer("127.0.0.1:0", service, opts).Handler())
}

func postSync(t *testing.T, baseURL string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(baseURL+"/api/v1/sync", "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func TestSubmitSyncAccepted(t *testing.T) {
	svc := &fakeService{admission: coordinator.Admission{JobID: "docs-sync-1a2b3c4d", Accepted: true}}
	ts := newTestServer(svc, Options{})
	defer ts.Close()

	resp := postSync(t, ts.URL, syncRequest{
		RepositoryName: "demo",
		RepositoryURL:  "https://example/demo.git",
		Branch:         "main",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "docs-sync-1a2b3c4d", body["job_id"])
	assert.Equal(t, "pending", body["status"])
	assert.Equal(t, "/api/v1/jobs/docs-sync-1a2b3c4d", body["status_url"])
}

func TestSubmitSyncConflict(t *testing.T) {
	svc := &fakeService{admission: coordinator.Admission{JobID: "docs-sync-existing", Accepted: false}}
	ts := newTestServer(svc, Options{})
	defer ts.Close()

	resp := postSync(t, ts.URL, syncRequest{
		RepositoryName: "demo",
		RepositoryURL:  "https://example/demo.git",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "docs-sync-existing", body["job_id"])
	assert.Equal(t, "/api/v1/jobs/docs-sync-existing", body["status_url"])
}

func TestSubmitSyncValidation(t *testing.T) {
	ts := newTestServer(&fakeService{}, Options{})
	defer ts.Close()

	resp := postSync(t, ts.URL, syncRequest{RepositoryName: "demo"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	raw, err := http.Post(ts.URL+"/api/v1/sync", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, raw.StatusCode)
	raw.Body.Close()
}

func TestSubmitSyncAtCapacity(t *testing.T) {
	svc := &fakeService{admitErr: coordinator.ErrTooManyRuns}
	ts := newTestServer(svc, Options{})
	defer ts.Close()

	resp := postSync(t, ts.URL, syncRequest{
		RepositoryName: "demo",
		RepositoryURL:  "https://example/demo.git",
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	resp.Body.Close()
}

func TestGetJobCompletedHasDocsURL(t *testing.T) {
	started := time.Date(2026, 8, 25, 11, 0, 0, 0, time.UTC)
	completed := started.Add(40 * time.Second)
	svc := &fakeService{jobs: map[string]*store.SyncJob{
		"docs-sync-1a2b3c4d": {
			JobID:          "docs-sync-1a2b3c4d",
			RepositoryName: "demo",
			RepositoryURL:  "https://example/demo.git",
			Branch:         "main",
			Status:         store.StatusCompleted,
			Progress:       100,
			StartedAt:      &started,
			CompletedAt:    &completed,
			ResultMetadata: &store.ResultMetadata{FilesUploaded: 12, SitePrefix: "demo/site"},
		},
	}}
	ts := newTestServer(svc, Options{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/jobs/docs-sync-1a2b3c4d")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "completed", body["status"])
	assert.EqualValues(t, 100, body["progress"])
	assert.Equal(t, "/demo", body["docs_url"])
	assert.Equal(t, "2026-08-25T11:00:40Z", body["completed_at"])
	meta, ok := body["result_metadata"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 12, meta["files_uploaded"])
}

func TestGetJobDocsURLHonorsBasePath(t *testing.T) {
	svc := &fakeService{jobs: map[string]*store.SyncJob{
		"docs-sync-1a2b3c4d": {
			JobID:          "docs-sync-1a2b3c4d",
			RepositoryName: "demo",
			Status:         store.StatusCompleted,
			Progress:       100,
		},
	}}
	ts := newTestServer(svc, Options{PublicBasePath: "/techdocs"})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/jobs/docs-sync-1a2b3c4d")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, "/techdocs/demo", body["docs_url"])
}

func TestGetJobFailedHasNoDocsURL(t *testing.T) {
	svc := &fakeService{jobs: map[string]*store.SyncJob{
		"docs-sync-deadbeef": {
			JobID:          "docs-sync-deadbeef",
			RepositoryName: "demo",
			Status:         store.StatusFailed,
			Progress:       10,
			ErrorMessage:   "fetch stage: reference not found",
		},
	}}
	ts := newTestServer(svc, Options{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/jobs/docs-sync-deadbeef")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, "failed", body["status"])
	assert.Equal(t, "fetch stage: reference not found", body["error_message"])
	assert.NotContains(t, body, "docs_url")
	assert.NotContains(t, body, "result_metadata")
}

func TestGetJobNotFound(t *testing.T) {
	ts := newTestServer(&fakeService{}, Options{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/jobs/docs-sync-missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestListJobs(t *testing.T) {
	svc := &fakeService{jobs: map[string]*store.SyncJob{
		"docs-sync-1a2b3c4d": {JobID: "docs-sync-1a2b3c4d", RepositoryName: "demo", Status: store.StatusRunning, Progress: 40},
	}}
	ts := newTestServer(svc, Options{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/jobs")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	jobs, ok := body["jobs"].([]any)
	require.True(t, ok)
	assert.Len(t, jobs, 1)

	bad, err := http.Get(ts.URL + "/api/v1/jobs?limit=zero")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
	bad.Body.Close()
}

func TestListJobsClampsLimit(t *testing.T) {
	svc := &fakeService{}
	ts := newTestServer(svc, Options{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/v1/jobs?limit=99999")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
	assert.Equal(t, 500, svc.gotLimit)

	resp, err = http.Get(ts.URL + "/api/v1/jobs?limit=7")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, 7, svc.gotLimit)
}

type fakeHealth struct{ err error }

func (f fakeHealth) Ping(context.Context) error { return f.err }

func TestHealthz(t *testing.T) {
	ts := newTestServer(&fakeService{}, Options{Health: fakeHealth{}})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
}

func TestHealthzDegradedWhenStoreUnreachable(t *testing.T) {
	ts := newTestServer(&fakeService{}, Options{Health: fakeHealth{err: assert.AnError}})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "degraded", body["status"])
}

package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobEventJSONShape(t *testing.T) {
	event := JobEvent{
		Type:           TypeJobCompleted,
		JobID:          "docs-sync-1a2b3c4d",
		RepositoryName: "demo",
		FilesUploaded:  12,
		Timestamp:      time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "job_completed", decoded["type"])
	assert.Equal(t, "docs-sync-1a2b3c4d", decoded["job_id"])
	assert.Equal(t, "demo", decoded["repository_name"])
	assert.EqualValues(t, 12, decoded["files_uploaded"])
	assert.NotContains(t, decoded, "error_message", "empty fields stay off the wire")
}

func TestJobEventFailurePayload(t *testing.T) {
	event := JobEvent{
		Type:           TypeJobFailed,
		JobID:          "docs-sync-deadbeef",
		RepositoryName: "demo",
		ErrorMessage:   "fetch stage: reference not found",
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "job_failed", decoded["type"])
	assert.Equal(t, "fetch stage: reference not found", decoded["error_message"])
	assert.NotContains(t, decoded, "files_uploaded")
}

func TestNoopEmitter(t *testing.T) {
	assert.NoError(t, NoopEmitter{}.Emit(JobEvent{Type: TypeJobStarted}))
}

package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"JobID", KeyJobID, "docs-sync-1a2b3c4d", JobID("docs-sync-1a2b3c4d")},
		{"JobStatus", KeyJobStatus, "running", JobStatus("running")},
		{"Stage", KeyStage, "fetch", Stage("fetch")},
		{"Repository", KeyRepo, "demo", Repository("demo")},
		{"Branch", KeyBranch, "main", Branch("main")},
		{"URL", KeyURL, "https://example/demo.git", URL("https://example/demo.git")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Bucket", KeyBucket, "repositories", Bucket("repositories")},
		{"Key", KeyKey, "demo/site/index.html", Key("demo/site/index.html")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

func TestErrorAttr(t *testing.T) {
	if got := Error(nil).Value.String(); got != "" {
		t.Fatalf("nil error should render empty, got %q", got)
	}
	if got := Error(errors.New("boom")).Value.String(); got != "boom" {
		t.Fatalf("expected boom, got %q", got)
	}
}

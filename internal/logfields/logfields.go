package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyJobID      = "job_id"
	KeyJobStatus  = "job_status"
	KeyStage      = "stage"
	KeyRepo       = "repository"
	KeyBranch     = "branch"
	KeyURL        = "url"
	KeyPath       = "path"
	KeyBucket     = "bucket"
	KeyKey        = "key"
	KeyProgress   = "progress"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func JobID(id string) slog.Attr       { return slog.String(KeyJobID, id) }
func JobStatus(s string) slog.Attr    { return slog.String(KeyJobStatus, s) }
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Repository(r string) slog.Attr   { return slog.String(KeyRepo, r) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func URL(u string) slog.Attr          { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Bucket(b string) slog.Attr       { return slog.String(KeyBucket, b) }
func Key(k string) slog.Attr          { return slog.String(KeyKey, k) }
func Progress(p int) slog.Attr        { return slog.Int(KeyProgress, p) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

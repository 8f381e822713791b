// Package gitfetch performs the shallow checkout stage of a sync run.
package gitfetch

import (
	"context"
	"time"
)

// Result captures the outcome of a fetch for change detection and reporting.
type Result struct {
	Path       string // checkout directory
	CommitSHA  string
	CommitDate time.Time
}

// Fetcher defines checkout behavior abstracted from the pipeline so
// implementations (go-git, mirror cache, test fake) can be swapped without
// modifying the coordinator. Implementations must be concurrency safe.
type Fetcher interface {
	// Fetch performs a depth-limited checkout of branch into destDir.
	Fetch(ctx context.Context, repoURL, branch, destDir string) (*Result, error)
}

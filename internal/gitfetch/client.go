package gitfetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/ia-ops/docsync/internal/logfields"
)

// Client fetches repositories with go-git. Clones are single-branch and
// depth 1: a sync run only ever needs the tip of one branch.
type Client struct {
	timeout time.Duration
}

// NewClient creates a fetcher with the given per-clone timeout bound.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{timeout: timeout}
}

// Fetch clones the named branch into destDir. A single attempt, no retry;
// failures propagate immediately to the coordinator.
func (c *Client) Fetch(ctx context.Context, repoURL, branch, destDir string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := &git.CloneOptions{
		URL:   repoURL,
		Depth: 1,
	}
	if branch != "" {
		opts.ReferenceName = plumbing.ReferenceName("refs/heads/" + branch)
		opts.SingleBranch = true
	}

	slog.Debug("Cloning repository",
		logfields.URL(repoURL),
		logfields.Branch(branch),
		logfields.Path(destDir))

	repo, err := git.PlainCloneContext(ctx, destDir, false, opts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("clone %s (branch %s) timed out: %w", repoURL, branch, ctx.Err())
		}
		return nil, fmt.Errorf("clone %s (branch %s): %w", repoURL, branch, err)
	}

	res := &Result{Path: destDir}
	if ref, herr := repo.Head(); herr == nil {
		res.CommitSHA = ref.Hash().String()
		if commit, cerr := repo.CommitObject(ref.Hash()); cerr == nil {
			res.CommitDate = commit.Author.When
		}
		slog.Info("Repository cloned",
			logfields.URL(repoURL),
			logfields.Branch(branch),
			slog.String("commit", res.CommitSHA[:8]))
	} else {
		slog.Info("Repository cloned", logfields.URL(repoURL), logfields.Branch(branch))
	}

	return res, nil
}

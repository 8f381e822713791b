package site

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"

	"github.com/ia-ops/docsync/internal/logfields"
)

// BuildResult reports where the generator placed the rendered site.
type BuildResult struct {
	OutputDir string
}

// Builder renders a static site from a prepared source tree. Abstracted so
// tests can run the pipeline without a real mkdocs installation.
type Builder interface {
	Build(ctx context.Context, sourceDir string) (*BuildResult, error)
}

// MkDocsBuilder shells out to the external mkdocs tool.
type MkDocsBuilder struct {
	binary string
}

// NewMkDocsBuilder creates a builder using the given binary name or path.
func NewMkDocsBuilder(binary string) *MkDocsBuilder {
	if binary == "" {
		binary = "mkdocs"
	}
	return &MkDocsBuilder{binary: binary}
}

// Build runs `mkdocs build` inside sourceDir, producing the site under
// sourceDir/site. A non-zero exit fails the run with the tool's diagnostic
// output attached; no partial recovery is attempted.
func (b *MkDocsBuilder) Build(ctx context.Context, sourceDir string) (*BuildResult, error) {
	cmd := exec.CommandContext(ctx, b.binary, "build")
	cmd.Dir = sourceDir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	slog.Info("Building documentation site", logfields.Path(sourceDir))
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("mkdocs build failed: %w: %s", err, output.String())
	}

	return &BuildResult{OutputDir: filepath.Join(sourceDir, "site")}, nil
}

package site

import (
	"context"
	"path/filepath"
)

// Site bundles configuration synthesis and the external build for one run.
type Site struct {
	builder *MkDocsBuilder
}

// New creates a Site using the given mkdocs binary.
func New(binary string) *Site {
	return &Site{builder: NewMkDocsBuilder(binary)}
}

// EnsureConfig guarantees a build configuration exists, synthesizing one
// when missing. Returns the configuration file path.
func (s *Site) EnsureConfig(sourceDir, projectName string) (string, error) {
	return EnsureConfig(sourceDir, projectName)
}

// Build renders the static site from sourceDir.
func (s *Site) Build(ctx context.Context, sourceDir string) (*BuildResult, error) {
	return s.builder.Build(ctx, sourceDir)
}

// DocsDir resolves the documentation source directory declared by the build
// configuration, falling back to the conventional docs/ directory.
func (s *Site) DocsDir(sourceDir, configPath string) string {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return filepath.Join(sourceDir, defaultDocsDir)
	}
	return cfg.ResolveDocsDir(sourceDir)
}

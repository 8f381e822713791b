// Package site detects or synthesizes an MkDocs configuration and drives
// the external static-site generator against a checked-out repository.
package site

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ia-ops/docsync/internal/logfields"
)

// Config file names recognized at the repository root.
var configNames = []string{"mkdocs.yml", "mkdocs.yaml"}

// DefaultConfigName is used when a configuration has to be synthesized.
const DefaultConfigName = "mkdocs.yml"

// defaultDocsDir is MkDocs' documentation source directory when docs_dir is unset.
const defaultDocsDir = "docs"

// MkDocsConfig models the subset of mkdocs.yml that docsync reads and writes.
type MkDocsConfig struct {
	SiteName           string              `yaml:"site_name"`
	SiteDescription    string              `yaml:"site_description,omitempty"`
	DocsDir            string              `yaml:"docs_dir,omitempty"`
	Nav                []map[string]string `yaml:"nav,omitempty"`
	Theme              ThemeConfig         `yaml:"theme,omitempty"`
	MarkdownExtensions []any               `yaml:"markdown_extensions,omitempty"`
}

// ThemeConfig is the MkDocs theme block.
type ThemeConfig struct {
	Name    string            `yaml:"name,omitempty"`
	Palette map[string]string `yaml:"palette,omitempty"`
}

// FindConfig returns the path of an existing MkDocs configuration at the
// root of sourceDir, or empty string if none exists.
func FindConfig(sourceDir string) string {
	for _, name := range configNames {
		path := filepath.Join(sourceDir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// LoadConfig parses an MkDocs configuration file.
func LoadConfig(path string) (*MkDocsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mkdocs config: %w", err)
	}
	cfg := &MkDocsConfig{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse mkdocs config %s: %w", path, err)
	}
	return cfg, nil
}

// DocsDir resolves the documentation source directory declared by the
// configuration, relative to sourceDir.
func (c *MkDocsConfig) ResolveDocsDir(sourceDir string) string {
	dir := c.DocsDir
	if dir == "" {
		dir = defaultDocsDir
	}
	return filepath.Join(sourceDir, dir)
}

// EnsureConfig guarantees an MkDocs configuration exists at the root of
// sourceDir. If one exists it is left untouched; otherwise a minimal one is
// synthesized along with a docs/ skeleton whose landing page is derived from
// the repository README when present. Returns the config file path.
func EnsureConfig(sourceDir, projectName string) (string, error) {
	if existing := FindConfig(sourceDir); existing != "" {
		slog.Debug("Found existing MkDocs configuration", logfields.Path(existing))
		return existing, nil
	}

	slog.Info("Synthesizing MkDocs configuration", logfields.Repository(projectName), logfields.Path(sourceDir))

	description := fmt.Sprintf("Documentation for %s", projectName)
	if title := extractReadmeTitle(filepath.Join(sourceDir, "README.md")); title != "" {
		description = title
	}

	cfg := &MkDocsConfig{
		SiteName:        fmt.Sprintf("%s Documentation", projectName),
		SiteDescription: description,
		Nav: []map[string]string{
			{"Home": "index.md"},
			{"API": "api.md"},
			{"Setup": "setup.md"},
		},
		Theme: ThemeConfig{
			Name:    "material",
			Palette: map[string]string{"primary": "blue", "accent": "blue"},
		},
		MarkdownExtensions: []any{
			"codehilite",
			"admonition",
			map[string]any{"toc": map[string]any{"permalink": true}},
		},
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal mkdocs config: %w", err)
	}
	configPath := filepath.Join(sourceDir, DefaultConfigName)
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return "", fmt.Errorf("write mkdocs config: %w", err)
	}

	if err := writeDocsSkeleton(sourceDir, projectName); err != nil {
		return "", err
	}
	return configPath, nil
}

// writeDocsSkeleton creates the docs/ directory with a landing page plus
// the api/setup placeholder pages. Existing pages are not overwritten.
func writeDocsSkeleton(sourceDir, projectName string) error {
	docsDir := filepath.Join(sourceDir, defaultDocsDir)
	if err := os.MkdirAll(docsDir, 0o750); err != nil {
		return fmt.Errorf("create docs directory: %w", err)
	}

	index := fmt.Sprintf("# %s Documentation\n\nWelcome to %s documentation.\n", projectName, projectName)
	if readme, err := os.ReadFile(filepath.Join(sourceDir, "README.md")); err == nil {
		index = string(readme)
	}

	pages := map[string]string{
		"index.md": index,
		"api.md":   fmt.Sprintf("# API Documentation\n\nAPI documentation for %s.\n", projectName),
		"setup.md": fmt.Sprintf("# Setup Guide\n\nSetup instructions for %s.\n", projectName),
	}
	for name, content := range pages {
		path := filepath.Join(docsDir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

package site

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator writes a shell script standing in for the mkdocs binary so
// builder behavior can be tested without a Python toolchain.
func fakeGenerator(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fixture requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "mkdocs")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755))
	return path
}

func TestBuildSuccess(t *testing.T) {
	bin := fakeGenerator(t, `mkdir -p site && echo ok > site/index.html`)
	sourceDir := t.TempDir()

	builder := NewMkDocsBuilder(bin)
	res, err := builder.Build(context.Background(), sourceDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(sourceDir, "site"), res.OutputDir)
	assert.FileExists(t, filepath.Join(res.OutputDir, "index.html"))
}

func TestBuildFailureCarriesDiagnostics(t *testing.T) {
	bin := fakeGenerator(t, `echo "ERROR - Config value error" >&2; exit 1`)

	builder := NewMkDocsBuilder(bin)
	_, err := builder.Build(context.Background(), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config value error")
}

func TestBuildMissingBinary(t *testing.T) {
	builder := NewMkDocsBuilder(filepath.Join(t.TempDir(), "absent"))
	_, err := builder.Build(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestExtractReadmeTitle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "README.md")
	require.NoError(t, os.WriteFile(path, []byte("intro text\n\n# The Real Title\n\nbody\n"), 0o600))

	assert.Equal(t, "The Real Title", extractReadmeTitle(path))
	assert.Equal(t, "", extractReadmeTitle(filepath.Join(dir, "missing.md")))
}

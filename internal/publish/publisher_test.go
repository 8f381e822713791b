package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
}

func TestPublishUploadsSiteSourceAndConfig(t *testing.T) {
	repoDir := t.TempDir()
	siteDir := filepath.Join(repoDir, "site")
	docsDir := filepath.Join(repoDir, "docs")
	configPath := filepath.Join(repoDir, "mkdocs.yml")

	writeTree(t, siteDir, map[string]string{
		"index.html":     "<html/>",
		"css/styles.css": "body{}",
		"js/app.js":      "console.log(1)",
	})
	writeTree(t, docsDir, map[string]string{
		"index.md": "# hi",
	})
	require.NoError(t, os.WriteFile(configPath, []byte("site_name: demo\n"), 0o600))

	store := NewMemoryStore()
	pub := NewPublisher(store)

	res, err := pub.Publish(context.Background(), "demo", siteDir, docsDir, configPath)
	require.NoError(t, err)

	assert.Equal(t, 5, res.FilesUploaded)
	assert.Equal(t, "demo/site", res.SitePrefix)

	html, ok := store.Get("demo/site/index.html")
	require.True(t, ok)
	assert.Equal(t, "text/html", html.ContentType)

	css, ok := store.Get("demo/site/css/styles.css")
	require.True(t, ok)
	assert.Equal(t, "text/css", css.ContentType)

	js, ok := store.Get("demo/site/js/app.js")
	require.True(t, ok)
	assert.Equal(t, "application/javascript", js.ContentType)

	_, ok = store.Get("demo/source/index.md")
	assert.True(t, ok)

	cfg, ok := store.Get("demo/mkdocs.yml")
	require.True(t, ok)
	assert.Equal(t, "site_name: demo\n", string(cfg.Data))
}

func TestPublishSkipsAbsentDocsDir(t *testing.T) {
	repoDir := t.TempDir()
	siteDir := filepath.Join(repoDir, "site")
	writeTree(t, siteDir, map[string]string{"index.html": "<html/>"})

	store := NewMemoryStore()
	res, err := NewPublisher(store).Publish(context.Background(), "demo", siteDir,
		filepath.Join(repoDir, "docs"), "")
	require.NoError(t, err)
	assert.Equal(t, 1, res.FilesUploaded)
}

func TestPublishFailurePropagatesAndKeepsCommitted(t *testing.T) {
	repoDir := t.TempDir()
	siteDir := filepath.Join(repoDir, "site")
	writeTree(t, siteDir, map[string]string{
		"a.html": "a",
		"z.html": "z",
	})

	store := NewMemoryStore()
	store.FailOn("demo/site/z.html")

	_, err := NewPublisher(store).Publish(context.Background(), "demo", siteDir, "", "")
	require.Error(t, err)

	// At-least-once: the earlier upload stays committed.
	_, ok := store.Get("demo/site/a.html")
	assert.True(t, ok)
}

func TestContentTypeFallback(t *testing.T) {
	assert.Equal(t, "image/svg+xml", contentTypeFor("logo.svg"))
	assert.Equal(t, "application/octet-stream", contentTypeFor("archive.unknownext"))
}

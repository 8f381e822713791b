package publish

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ia-ops/docsync/internal/logfields"
)

// Result reports what a publish stage uploaded.
type Result struct {
	FilesUploaded int
	SitePrefix    string // object key prefix of the published site
}

// Publisher uploads a run's artifacts: the rendered site, the documentation
// source tree, and the build configuration file. Uploads are at-least-once;
// nothing already committed is rolled back when a later upload fails.
type Publisher struct {
	store ObjectStore
}

// NewPublisher creates a publisher on top of an ObjectStore.
func NewPublisher(store ObjectStore) *Publisher {
	return &Publisher{store: store}
}

// Publish uploads everything under siteDir to <repoName>/site/..., everything
// under docsDir to <repoName>/source/..., and configPath to <repoName>/<name>.
// docsDir may be absent (repo without a source docs tree); siteDir must exist.
func (p *Publisher) Publish(ctx context.Context, repoName, siteDir, docsDir, configPath string) (*Result, error) {
	res := &Result{SitePrefix: path.Join(repoName, "site")}

	uploaded, err := p.uploadTree(ctx, siteDir, res.SitePrefix)
	if err != nil {
		return nil, fmt.Errorf("publish site: %w", err)
	}
	res.FilesUploaded += uploaded

	if docsDir != "" {
		if _, statErr := os.Stat(docsDir); statErr == nil {
			uploaded, err = p.uploadTree(ctx, docsDir, path.Join(repoName, "source"))
			if err != nil {
				return nil, fmt.Errorf("publish source: %w", err)
			}
			res.FilesUploaded += uploaded
		}
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read build config: %w", err)
		}
		key := path.Join(repoName, filepath.Base(configPath))
		if err := p.store.Put(ctx, key, data, contentTypeFor(configPath)); err != nil {
			return nil, fmt.Errorf("publish build config: %w", err)
		}
		res.FilesUploaded++
	}

	slog.Info("Published artifacts",
		logfields.Repository(repoName),
		slog.Int("files_uploaded", res.FilesUploaded))
	return res, nil
}

// uploadTree walks root and uploads every regular file under keyPrefix,
// preserving relative paths with forward slashes.
func (p *Publisher) uploadTree(ctx context.Context, root, keyPrefix string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(fpath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, fpath)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(fpath)
		if err != nil {
			return fmt.Errorf("read %s: %w", fpath, err)
		}
		key := path.Join(keyPrefix, filepath.ToSlash(rel))
		if err := p.store.Put(ctx, key, data, contentTypeFor(fpath)); err != nil {
			return err
		}
		slog.Debug("Uploaded artifact", logfields.Key(key))
		count++
		return nil
	})
	if err != nil {
		return count, err
	}
	return count, nil
}

// wellKnownTypes covers the web asset types the portal serves most; anything
// else falls through to the platform mime table and then octet-stream.
var wellKnownTypes = map[string]string{
	".html":  "text/html",
	".css":   "text/css",
	".js":    "application/javascript",
	".json":  "application/json",
	".xml":   "application/xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".svg":   "image/svg+xml",
	".ico":   "image/x-icon",
	".woff2": "font/woff2",
	".md":    "text/markdown",
	".yml":   "application/yaml",
	".yaml":  "application/yaml",
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := wellKnownTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

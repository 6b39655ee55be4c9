// Package syncengine mirrors the key/value backend to and from a
// filesystem directory: Import walks the directory into the backend,
// Export writes recently-touched keys back out.
package syncengine

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-mizu/h2kv/internal/ignorefilter"
	"github.com/go-mizu/h2kv/internal/negotiate"
	"github.com/go-mizu/h2kv/internal/storage"
)

// Engine ties a backend, a mirror directory, and an ignore filter
// together. It holds no goroutines of its own; scheduling (import at
// startup/reload, export at shutdown/reload) lives in the caller.
type Engine struct {
	Backend storage.Backend
	SyncDir string
	Ignore  *ignorefilter.Filter
	Log     *slog.Logger
}

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// Import walks SyncDir depth-first, skipping dotfiles and directories,
// and stores each file's bytes at the logical key derived from its
// path relative to SyncDir.
func (e *Engine) Import(ctx context.Context) error {
	return filepath.WalkDir(e.SyncDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		rel, err := filepath.Rel(e.SyncDir, path)
		if err != nil {
			return fmt.Errorf("syncengine: relativize %s: %w", path, err)
		}
		storageKeyPath := "/" + filepath.ToSlash(rel)

		if e.Ignore.Matches(storageKeyPath) {
			return nil
		}

		n, nerr := negotiate.ForWrite(storageKeyPath, http.Header{})
		if nerr != nil {
			return fmt.Errorf("syncengine: negotiate write for %s: %w", storageKeyPath, nerr)
		}
		if n == nil {
			// with empty headers ForWrite refuses only a path carrying
			// the reserved sidecar extension; skip such a file rather
			// than aborting import.
			return nil
		}

		if ext, ok := hasExt(storageKeyPath); ok {
			if guessed, ok := negotiate.GuessMediaType(ext); ok {
				n.MediaType = guessed
			} else {
				e.logger().Warn("media type guess failed", "path", storageKeyPath)
			}
		}

		content, rerr := os.ReadFile(path)
		if rerr != nil {
			return fmt.Errorf("syncengine: read %s: %w", path, rerr)
		}

		sidecar, lerr := negotiate.LoadExtensions(ctx, e.Backend, storageKeyPath)
		if lerr != nil {
			return fmt.Errorf("syncengine: load extensions for %s: %w", storageKeyPath, lerr)
		}
		insertOp := sidecar.Insert(extOf(n.StorageKey), n.MediaType)

		if uerr := e.Backend.BatchUpdate(ctx, []storage.Op{
			{Key: n.StorageKey, Value: content},
			insertOp,
		}); uerr != nil {
			return fmt.Errorf("syncengine: store %s: %w", n.StorageKey, uerr)
		}

		e.logger().Debug("imported file", "path", path, "key", n.StorageKey)
		return nil
	})
}

// CollectUpdates drains the backend's mutation-notification channel
// without blocking, sorts and dedups the keys, and strips sidecar keys
// (they never mirror to the filesystem on their own).
func (e *Engine) CollectUpdates() []string {
	var keys []string
	updates := e.Backend.Updates()
	for {
		select {
		case k := <-updates:
			keys = append(keys, k)
		default:
			sort.Strings(keys)
			return dedupSorted(dropSidecarKeys(keys))
		}
	}
}

func dropSidecarKeys(keys []string) []string {
	out := keys[:0]
	for _, k := range keys {
		if ext, ok := hasExt(k); ok && ext == "ext" {
			continue
		}
		out = append(out, k)
	}
	return out
}

func dedupSorted(keys []string) []string {
	out := keys[:0]
	for i, k := range keys {
		if i == 0 || keys[i-1] != k {
			out = append(out, k)
		}
	}
	return out
}

// Export writes the current backend state for keys to SyncDir: present
// values are written (creating parent directories as needed), absent
// values remove the mirrored file. Keys matched by the ignore filter are
// skipped with a warning.
func (e *Engine) Export(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if e.Ignore.Matches(key) {
			e.logger().Warn("export ignored key", "key", key)
			continue
		}

		rel := strings.TrimPrefix(key, "/")
		filePath := filepath.Join(e.SyncDir, filepath.FromSlash(rel))

		if ext, ok := hasExt(filePath); ok && ext == negotiate.GenericExt {
			filePath = strings.TrimSuffix(filePath, "."+negotiate.GenericExt)
		}

		value, err := e.Backend.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("syncengine: get %s: %w", key, err)
		}

		if value == nil {
			if rerr := os.Remove(filePath); rerr != nil && !os.IsNotExist(rerr) {
				return fmt.Errorf("syncengine: remove %s: %w", filePath, rerr)
			}
			continue
		}

		if merr := os.MkdirAll(filepath.Dir(filePath), 0o700); merr != nil {
			return fmt.Errorf("syncengine: create directory for %s: %w", filePath, merr)
		}
		if werr := os.WriteFile(filePath, value, 0o600); werr != nil {
			return fmt.Errorf("syncengine: write %s: %w", filePath, werr)
		}
	}
	return nil
}

func hasExt(p string) (string, bool) {
	base := filepath.Base(p)
	i := strings.LastIndexByte(base, '.')
	if i < 0 || i == len(base)-1 {
		return "", false
	}
	return base[i+1:], true
}

func extOf(storageKey string) string {
	ext, _ := hasExt(storageKey)
	return ext
}

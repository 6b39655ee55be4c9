// Package runtime wires the HTTP app and the filesystem sync engine
// together behind the reload (SIGHUP) hook, and provides daemonizing
// for --daemon mode.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-mizu/h2kv/internal/syncengine"
)

// FilesystemActions bundles the sync-on-signal behavior the reload hook
// drives: import always runs, export only when SyncWrite is set.
type FilesystemActions struct {
	Engine    *syncengine.Engine
	SyncDir   string
	SyncWrite bool
	Log       *slog.Logger
}

func (f *FilesystemActions) logger() *slog.Logger {
	if f.Log != nil {
		return f.Log
	}
	return slog.Default()
}

// DoRead imports the sync directory into the backend, then drains the
// mutation notifications the import itself generated so a later
// DoWrite does not immediately re-export the files it just read.
func (f *FilesystemActions) DoRead(ctx context.Context) error {
	if f.SyncDir == "" {
		return nil
	}
	if err := f.Engine.Import(ctx); err != nil {
		return fmt.Errorf("runtime: import: %w", err)
	}
	keys := f.Engine.CollectUpdates()
	f.logger().Info("sync-dir: stored objects", "count", len(keys), "dir", f.SyncDir)
	return nil
}

// DoWrite exports every key mutated since the last collection to the
// sync directory. It is a no-op unless SyncWrite is enabled.
func (f *FilesystemActions) DoWrite(ctx context.Context) error {
	if !f.SyncWrite || f.SyncDir == "" {
		return nil
	}
	keys := f.Engine.CollectUpdates()
	if err := f.Engine.Export(ctx, keys); err != nil {
		return fmt.Errorf("runtime: export: %w", err)
	}
	f.logger().Info("sync-write: wrote updates", "count", len(keys), "dir", f.SyncDir)
	return nil
}

// ReloadHook returns the function to register with
// httpkit.WithReloadHook: export-then-import, run serially, matching
// the filesystem actions' "write before the next read" ordering.
func (f *FilesystemActions) ReloadHook() func(context.Context) error {
	return func(ctx context.Context) error {
		if err := f.DoWrite(ctx); err != nil {
			f.logger().Error("reload export failed", "error", err)
		}
		if err := f.DoRead(ctx); err != nil {
			f.logger().Error("reload import failed", "error", err)
		}
		return nil
	}
}

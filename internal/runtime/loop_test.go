package runtime

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-mizu/h2kv/internal/storage"
	"github.com/go-mizu/h2kv/internal/syncengine"
)

func newTestActions(t *testing.T, syncWrite bool) (*FilesystemActions, string) {
	t.Helper()
	backend, err := storage.OpenBolt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	dir := t.TempDir()
	return &FilesystemActions{
		Engine:    &syncengine.Engine{Backend: backend, SyncDir: dir},
		SyncDir:   dir,
		SyncWrite: syncWrite,
	}, dir
}

func TestFilesystemActions_DoRead_ImportsFiles(t *testing.T) {
	fa, dir := newTestActions(t, false)
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ctx := context.Background()
	if err := fa.DoRead(ctx); err != nil {
		t.Fatalf("DoRead: %v", err)
	}

	v, err := fa.Engine.Backend.Get(ctx, "/a.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(v) != "hi" {
		t.Fatalf("got %q, want hi", v)
	}
}

func TestFilesystemActions_DoWrite_NoopWhenDisabled(t *testing.T) {
	fa, dir := newTestActions(t, false)
	ctx := context.Background()
	if err := fa.Engine.Backend.BatchUpdate(ctx, []storage.Op{{Key: "/a.txt", Value: []byte("x")}}); err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}
	if err := fa.DoWrite(ctx); err != nil {
		t.Fatalf("DoWrite: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.txt")); !os.IsNotExist(err) {
		t.Fatalf("expected no export when SyncWrite is false")
	}
}

func TestFilesystemActions_DoWrite_ExportsWhenEnabled(t *testing.T) {
	fa, dir := newTestActions(t, true)
	ctx := context.Background()
	if err := fa.Engine.Backend.BatchUpdate(ctx, []storage.Op{{Key: "/a.txt", Value: []byte("x")}}); err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}
	if err := fa.DoWrite(ctx); err != nil {
		t.Fatalf("DoWrite: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if string(got) != "x" {
		t.Fatalf("got %q, want x", got)
	}
}

func TestFilesystemActions_ReloadHook_ExportsThenImports(t *testing.T) {
	fa, dir := newTestActions(t, true)
	ctx := context.Background()

	if err := fa.Engine.Backend.BatchUpdate(ctx, []storage.Op{{Key: "/a.txt", Value: []byte("old")}}); err != nil {
		t.Fatalf("BatchUpdate: %v", err)
	}
	// a file edited on disk between reloads
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("new"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	hook := fa.ReloadHook()
	if err := hook(ctx); err != nil {
		t.Fatalf("reload hook: %v", err)
	}

	exported, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatalf("read a.txt: %v", err)
	}
	if string(exported) != "old" {
		t.Fatalf("a.txt = %q, want old", exported)
	}

	imported, err := fa.Engine.Backend.Get(ctx, "/b.txt")
	if err != nil {
		t.Fatalf("Get /b.txt: %v", err)
	}
	if string(imported) != "new" {
		t.Fatalf("/b.txt = %q, want new", imported)
	}
}

// Command h2kvd runs the h2kv key/value server: an HTTP/2 cleartext
// surface over a bbolt-backed store, with optional bidirectional
// filesystem sync.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/go-mizu/h2kv/internal/config"
	"github.com/go-mizu/h2kv/internal/handler"
	"github.com/go-mizu/h2kv/internal/httpkit"
	"github.com/go-mizu/h2kv/internal/httpkit/middlewares/h2c"
	"github.com/go-mizu/h2kv/internal/ignorefilter"
	"github.com/go-mizu/h2kv/internal/runtime"
	"github.com/go-mizu/h2kv/internal/storage"
	"github.com/go-mizu/h2kv/internal/syncengine"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:     "h2kvd",
		Short:   "HTTP/2 cleartext key/value server with content negotiation",
		Version: "0.1.0",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.StorageDir, "storage-dir", "", "directory backing the key/value store (required)")
	cmd.Flags().IntVar(&cfg.Port, "port", config.DefaultPort, "TCP listen port on 127.0.0.1")
	cmd.Flags().StringVar(&cfg.SyncDir, "sync-dir", "", "directory to mirror to/from the store")
	cmd.Flags().BoolVar(&cfg.SyncWrite, "sync-write", false, "export updates to --sync-dir on reload and shutdown")
	cmd.Flags().BoolVar(&cfg.Daemon, "daemon", false, "detach and run in the background")
	cmd.Flags().StringVar(&cfg.PidFile, "pidfile", "", "write the daemon's PID here (requires --daemon)")
	cmd.Flags().StringVar(&cfg.LogFile, "log-filename", "", "redirect daemon stderr here (requires --daemon)")

	_ = cmd.MarkFlagRequired("storage-dir")

	return cmd
}

func run(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	if !cfg.Daemon {
		backend, err := storage.OpenBolt(filepath.Join(cfg.StorageDir, "data"))
		if err != nil {
			return fmt.Errorf("h2kvd: open storage: %w", err)
		}
		defer func() { _ = backend.Close() }()
		return serve(cfg, log, backend)
	}

	// lockResources opens the backend in the child before it reports
	// statusOK back over the handshake pipe, so a storage-open failure
	// is visible to the parent (which then exits nonzero) instead of
	// being discovered after the parent has already exited successfully.
	var backend *storage.BoltBackend
	isParent, err := runtime.Daemonize(cfg.PidFile, cfg.LogFile, func() error {
		var openErr error
		backend, openErr = storage.OpenBolt(filepath.Join(cfg.StorageDir, "data"))
		return openErr
	})
	if err != nil {
		return err
	}
	if isParent {
		return nil
	}
	defer func() { _ = backend.Close() }()
	return serve(cfg, log, backend)
}

func serve(cfg *config.Config, log *slog.Logger, backend storage.Backend) error {
	ignore, err := ignorefilter.FromEnv()
	if err != nil {
		return fmt.Errorf("h2kvd: parse %s: %w", ignorefilter.EnvVar, err)
	}

	engine := &syncengine.Engine{Backend: backend, SyncDir: cfg.SyncDir, Ignore: ignore, Log: log}
	actions := &runtime.FilesystemActions{
		Engine:    engine,
		SyncDir:   cfg.SyncDir,
		SyncWrite: cfg.SyncWrite,
		Log:       log,
	}

	kv := &handler.KV{Backend: backend}
	router := httpkit.NewRouter()
	router.SetLogger(log)
	router.Use(httpkit.Logger(httpkit.LoggerOptions{Logger: log}))
	router.Any("/", kv.Route)

	app := httpkit.New(
		httpkit.WithLogger(log),
		httpkit.WithReloadHook(actions.ReloadHook()),
		httpkit.WithHandlerWrapper(h2c.Handler),
	)
	app.Router = router

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	log.Info("starting h2kv", "addr", addr, "storage_dir", cfg.StorageDir, "sync_dir", cfg.SyncDir)

	if err := actions.DoRead(context.Background()); err != nil {
		log.Error("startup import failed", "error", err)
	}

	err = app.Listen(addr)
	if werr := actions.DoWrite(context.Background()); werr != nil {
		log.Error("shutdown export failed", "error", werr)
	}
	return err
}

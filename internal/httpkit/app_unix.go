//go:build !windows

package httpkit

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// serveWithSignals runs srv under a context that cancels on SIGINT/SIGTERM.
// SIGHUP is handled separately: it triggers the app's reload hook without
// canceling the serving context, so the listener keeps accepting while the
// hook (h2kv's export-then-import) runs.
func (a *App) serveWithSignals(srv *http.Server, serveFn func() error) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case sig, ok := <-sigCh:
				if !ok {
					return
				}
				if sig == syscall.SIGHUP {
					a.reload(context.Background())
					continue
				}
				cancel()
				return
			case <-done:
				return
			}
		}
	}()

	return a.ServeContext(ctx, srv, serveFn)
}

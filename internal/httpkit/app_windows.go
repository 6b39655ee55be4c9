//go:build windows

package httpkit

import (
	"context"
	"net/http"
	"os"
	"os/signal"
)

// serveWithSignals runs srv under a context that cancels on interrupt.
// Windows has no SIGHUP; reload is only reachable there through a future
// control-channel mechanism, which h2kv does not need today.
func (a *App) serveWithSignals(srv *http.Server, serveFn func() error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return a.ServeContext(ctx, srv, serveFn)
}

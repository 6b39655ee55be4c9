// Package h2c wraps an httpkit.App so it can serve HTTP/2 over cleartext
// TCP (h2c): the prior-knowledge preface and the Upgrade: h2c handshake
// both land on the same listener. h2kv needs this because its storage
// protocol is HTTP/2-only but is meant to run without TLS termination in
// front of it.
package h2c

import (
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Handler returns an http.Handler that serves h2c.Handler(next) over an
// *http2.Server, so a plain net.Listener (via App.Serve) gets HTTP/2
// semantics without a TLS handshake.
func Handler(next http.Handler) http.Handler {
	h2s := &http2.Server{}
	return h2c.NewHandler(next, h2s)
}

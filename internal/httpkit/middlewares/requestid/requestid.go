// Package requestid assigns or propagates a request-correlation ID,
// storing it in the request context and echoing it on the response.
package requestid

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/go-mizu/h2kv/internal/httpkit"
)

type ctxKey struct{}

// Options configures the middleware.
type Options struct {
	Header    string        // default X-Request-ID
	Generator func() string // default generateID
}

// New returns the middleware with default options.
func New() httpkit.Middleware { return WithOptions(Options{}) }

// WithOptions returns the middleware configured as given.
func WithOptions(opts Options) httpkit.Middleware {
	header := opts.Header
	if header == "" {
		header = "X-Request-ID"
	}
	gen := opts.Generator
	if gen == nil {
		gen = generateID
	}

	return func(next httpkit.Handler) httpkit.Handler {
		return func(c *httpkit.Ctx) error {
			id := c.Request().Header.Get(header)
			if id == "" {
				id = gen()
			}
			c.Header().Set(header, id)

			ctx := context.WithValue(c.Context(), ctxKey{}, id)
			*c.Request() = *c.Request().WithContext(ctx)

			return next(c)
		}
	}
}

// FromContext returns the request ID stashed in c's context, or "".
func FromContext(c *httpkit.Ctx) string {
	id, _ := c.Context().Value(ctxKey{}).(string)
	return id
}

// Get is an alias of FromContext.
func Get(c *httpkit.Ctx) string { return FromContext(c) }

// generateID returns a UUID-v4-shaped hex string. It is not meant to be
// cryptographically significant beyond low collision probability; it only
// needs to correlate log lines within a request's lifetime.
func generateID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// rand.Read on crypto/rand practically never fails; fall back to
		// an all-zero id rather than panicking a request path.
		return "00000000-0000-4000-8000-000000000000"
	}
	b[6] = (b[6] & 0x0f) | 0x40 // version 4
	b[8] = (b[8] & 0x3f) | 0x80 // variant 10

	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

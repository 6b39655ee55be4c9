// Package httpkit is a small HTTP serving toolkit: a method-aware router,
// a response/request context, structured request logging, and a graceful
// App lifecycle. It exists so the rest of h2kv can be written against a
// handler signature that returns an error instead of writing one by hand
// at every call site.
package httpkit

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
)

// Handler is an http.HandlerFunc that can return an error instead of
// writing a response directly.
type Handler func(c *Ctx) error

// Middleware wraps a Handler to produce another Handler.
type Middleware func(next Handler) Handler

// PanicError wraps a recovered panic value together with the stack trace
// captured at the point of recovery.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return "panic: " + errorString(e.Value)
}

func errorString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}

// Router dispatches requests by method and path onto registered Handlers,
// running a chain of global Middleware first.
type Router struct {
	mux   *http.ServeMux
	base  string
	chain []Middleware
	errFn func(*Ctx, error)
	log   *slog.Logger
}

// NewRouter creates an empty Router with a default slog logger and a
// default error handler that replies 500 Internal Server Error.
func NewRouter() *Router {
	return &Router{
		mux: http.NewServeMux(),
		log: slog.Default(),
	}
}

// Use appends global middleware, run (in order) before every route.
func (r *Router) Use(mw ...Middleware) { r.chain = append(r.chain, mw...) }

// ErrorHandler overrides how handler errors (including recovered panics,
// wrapped as *PanicError) are turned into a response.
func (r *Router) ErrorHandler(fn func(*Ctx, error)) { r.errFn = fn }

// Logger returns the router's logger, never nil.
func (r *Router) Logger() *slog.Logger {
	if r.log == nil {
		return slog.Default()
	}
	return r.log
}

// SetLogger replaces the router's logger. A nil value is a no-op, matching
// the common "only override if you have something better" convention.
func (r *Router) SetLogger(l *slog.Logger) {
	if l != nil {
		r.log = l
	}
}

func cleanLeading(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

func joinPath(base, p string) string {
	base = strings.TrimSuffix(base, "/")
	p = cleanLeading(p)
	if p == "/" {
		if base == "" {
			return "/"
		}
		return base
	}
	if base == "" {
		return p
	}
	return base + strings.TrimSuffix(p, "/")
}

func (r *Router) fullPath(p string) string { return joinPath(r.base, p) }

func (r *Router) handle(method, path string, h Handler) {
	full := r.fullPath(path)
	pattern := full
	if method != "" {
		pattern = method + " " + full
	}
	r.mux.Handle(pattern, r.dispatch(h))
}

// Get registers h for GET requests at path.
func (r *Router) Get(path string, h Handler) { r.handle(http.MethodGet, path, h) }

// Head registers h for HEAD requests at path.
func (r *Router) Head(path string, h Handler) { r.handle(http.MethodHead, path, h) }

// Post registers h for POST requests at path.
func (r *Router) Post(path string, h Handler) { r.handle(http.MethodPost, path, h) }

// Put registers h for PUT requests at path.
func (r *Router) Put(path string, h Handler) { r.handle(http.MethodPut, path, h) }

// Delete registers h for DELETE requests at path.
func (r *Router) Delete(path string, h Handler) { r.handle(http.MethodDelete, path, h) }

// Any registers h for every method at path; the handler itself decides
// which methods it accepts. h2kv's catch-all KV route uses this, since it
// must answer 501 for unsupported methods rather than a mux-level 404.
func (r *Router) Any(path string, h Handler) { r.handle("", path, h) }

// dispatch adapts a Handler to http.Handler, pulling the *Ctx built by
// ServeHTTP back out of the request context so route handlers see the same
// Ctx the global middleware chain already populated.
func (r *Router) dispatch(h Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		c := ctxFrom(req)
		if c == nil {
			c = newCtx(w, req, r)
		}
		r.invoke(c, h)
	})
}

// ServeHTTP implements http.Handler, running the global middleware chain
// around the mux dispatch, with panic recovery always outermost so every
// route and every middleware is covered.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	c := newCtx(w, req, r)
	c.req = req.WithContext(withCtx(req.Context(), c))

	final := Handler(func(c *Ctx) error {
		r.mux.ServeHTTP(c.Writer(), c.req)
		return nil
	})

	r.invoke(c, r.wrapChain(final))
}

func (r *Router) wrapChain(h Handler) Handler {
	wrapped := h
	for i := len(r.chain) - 1; i >= 0; i-- {
		wrapped = r.chain[i](wrapped)
	}
	return r.recoverMiddleware()(wrapped)
}

func (r *Router) recoverMiddleware() Middleware {
	return func(next Handler) Handler {
		return func(c *Ctx) (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = &PanicError{Value: rec, Stack: debug.Stack()}
				}
			}()
			return next(c)
		}
	}
}

func (r *Router) invoke(c *Ctx, h Handler) {
	if err := h(c); err != nil {
		r.handleError(c, err)
	}
}

func (r *Router) handleError(c *Ctx, err error) {
	if r.errFn != nil {
		r.errFn(c, err)
		return
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		r.Logger().Error("panic recovered", slog.Any("value", pe.Value), slog.String("stack", string(pe.Stack)))
	}
	http.Error(c.Writer(), http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

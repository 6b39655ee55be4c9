package httpkit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"unicode/utf8"
)

type ctxKeyType struct{}

var ctxKey = ctxKeyType{}

func withCtx(parent context.Context, c *Ctx) context.Context {
	return context.WithValue(parent, ctxKey, c)
}

func ctxFrom(req *http.Request) *Ctx {
	c, _ := req.Context().Value(ctxKey).(*Ctx)
	return c
}

// Ctx carries the request/response pair plus small conveniences (status
// tracking, query/path-param access, body binding) through a handler
// chain. It deliberately does not attempt to cover every net/http
// capability — streaming, multipart, hijacking and the like are left to
// callers who need http.ResponseWriter/*http.Request directly.
type Ctx struct {
	w      http.ResponseWriter
	req    *http.Request
	router *Router

	status   int
	wroteHdr bool
}

func newCtx(w http.ResponseWriter, req *http.Request, r *Router) *Ctx {
	return &Ctx{w: w, req: req, router: r, status: http.StatusOK}
}

// Request returns the underlying *http.Request.
func (c *Ctx) Request() *http.Request { return c.req }

// Writer returns the underlying http.ResponseWriter.
func (c *Ctx) Writer() http.ResponseWriter { return c.w }

// Header returns the response header map.
func (c *Ctx) Header() http.Header { return c.w.Header() }

// Context returns the request's context.Context.
func (c *Ctx) Context() context.Context { return c.req.Context() }

// Logger returns the owning router's logger, or the default logger if the
// Ctx was constructed outside a Router (as tests do).
func (c *Ctx) Logger() *slog.Logger {
	if c.router != nil {
		return c.router.Logger()
	}
	return slog.Default()
}

// Status records the status code to use on the next write, without
// writing headers yet.
func (c *Ctx) Status(code int) *Ctx {
	if !c.wroteHdr {
		c.status = code
	}
	return c
}

// StatusCode returns the status that will be (or was) written.
func (c *Ctx) StatusCode() int { return c.status }

// Param returns a path value set via http.Request.SetPathValue (i.e. a
// {name} segment in a ServeMux pattern).
func (c *Ctx) Param(name string) string { return c.req.PathValue(name) }

// Query returns the first value of a query parameter.
func (c *Ctx) Query(name string) string {
	if c.req.URL == nil {
		return ""
	}
	return c.req.URL.Query().Get(name)
}

// QueryValues returns all query parameters, never nil.
func (c *Ctx) QueryValues() url.Values {
	if c.req.URL == nil {
		return url.Values{}
	}
	return c.req.URL.Query()
}

// Bind decodes a JSON request body into v, rejecting unknown fields and
// trailing data. maxBytes <= 0 means unlimited.
func (c *Ctx) Bind(v any, maxBytes int64) error {
	var r io.Reader = c.req.Body
	if maxBytes > 0 {
		r = io.LimitReader(c.req.Body, maxBytes+1)
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}

var errTrailingData = jsonTrailingDataError{}

type jsonTrailingDataError struct{}

func (jsonTrailingDataError) Error() string { return "json: trailing data after value" }

func (c *Ctx) writeHeader() {
	if c.wroteHdr {
		return
	}
	c.wroteHdr = true
	c.w.WriteHeader(c.status)
}

// Write writes raw bytes, flushing the tracked status first.
func (c *Ctx) Write(p []byte) (int, error) {
	c.writeHeader()
	return c.w.Write(p)
}

// WriteString writes a string, flushing the tracked status first.
func (c *Ctx) WriteString(s string) (int, error) {
	c.writeHeader()
	return io.WriteString(c.w, s)
}

// NoContent writes a 204 response with no body.
func (c *Ctx) NoContent() error {
	c.Status(http.StatusNoContent)
	c.writeHeader()
	return nil
}

// NoBody writes code with no response body.
func (c *Ctx) NoBody(code int) error {
	c.Status(code)
	c.writeHeader()
	return nil
}

// Redirect writes a redirect response. code <= 0 defaults to 302 Found.
func (c *Ctx) Redirect(code int, target string) error {
	if code <= 0 {
		code = http.StatusFound
	}
	http.Redirect(c.w, c.req, target, code)
	return nil
}

// JSON encodes v as the response body, setting Content-Type if unset.
func (c *Ctx) JSON(code int, v any) error {
	if c.Header().Get("Content-Type") == "" {
		c.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	c.Status(code)
	c.writeHeader()
	return json.NewEncoder(c.w).Encode(v)
}

// Text writes a plain-text response. Invalid UTF-8 falls back to
// application/octet-stream rather than mislabeling the body.
func (c *Ctx) Text(code int, s string) error {
	ct := "text/plain; charset=utf-8"
	if !utf8.ValidString(s) {
		ct = "application/octet-stream"
	}
	if c.Header().Get("Content-Type") == "" {
		c.Header().Set("Content-Type", ct)
	}
	c.Status(code)
	_, err := c.WriteString(s)
	return err
}

// Bytes writes a raw body with an explicit content type; an empty
// contentType defaults to application/octet-stream.
func (c *Ctx) Bytes(code int, b []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if c.Header().Get("Content-Type") == "" {
		c.Header().Set("Content-Type", contentType)
	}
	c.Status(code)
	_, err := c.Write(b)
	return err
}

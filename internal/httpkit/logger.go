package httpkit

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Mode selects the request logger's output shape.
type Mode int

const (
	// Prod emits one JSON object per request.
	Prod Mode = iota
	// Dev emits the same JSON object with an extra latency_human field.
	Dev
)

// LoggerOptions configures the Logger middleware.
type LoggerOptions struct {
	Mode            Mode
	Logger          *slog.Logger // takes precedence over Output when set
	Output          io.Writer    // default os.Stderr
	UserAgent       bool
	RequestIDHeader string // default X-Request-Id
	RequestIDGen    func() string
	TraceExtractor  func(ctx context.Context) (traceID, spanID string, sampled bool)
}

// Logger returns request-logging middleware emitting one log line per
// request, tagged with status/method/path/duration and, optionally,
// request ID and trace correlation fields.
func Logger(opts LoggerOptions) Middleware {
	if opts.RequestIDHeader == "" {
		opts.RequestIDHeader = "X-Request-Id"
	}

	logger := opts.Logger
	if logger == nil {
		out := opts.Output
		if out == nil {
			out = os.Stderr
		}
		logger = slog.New(slog.NewJSONHandler(out, nil))
	}

	return func(next Handler) Handler {
		return func(c *Ctx) error {
			start := time.Now()

			reqID := c.req.Header.Get(opts.RequestIDHeader)
			if reqID == "" && opts.RequestIDGen != nil {
				reqID = opts.RequestIDGen()
			}
			if reqID != "" {
				c.Header().Set(opts.RequestIDHeader, reqID)
			}

			err := next(c)

			attrs := []slog.Attr{
				slog.Int("status", c.StatusCode()),
				slog.String("method", c.req.Method),
				slog.String("path", c.req.URL.Path),
				slog.String("host", c.req.Host),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()),
			}
			if q := c.req.URL.RawQuery; q != "" {
				attrs = append(attrs, slog.String("query", q))
			}
			if reqID != "" {
				attrs = append(attrs, slog.String("request_id", reqID))
			}
			if opts.UserAgent {
				attrs = append(attrs, slog.String("user_agent", c.req.UserAgent()))
			}
			if opts.TraceExtractor != nil {
				if traceID, spanID, sampled := opts.TraceExtractor(c.Context()); traceID != "" {
					attrs = append(attrs,
						slog.String("trace_id", traceID),
						slog.String("span_id", spanID),
						slog.Bool("trace_sampled", sampled),
					)
				}
			}
			if err != nil {
				attrs = append(attrs, slog.String("error", err.Error()))
			}
			if opts.Mode == Dev {
				attrs = append(attrs, slog.String("latency_human", time.Since(start).String()))
			}

			logger.LogAttrs(c.Context(), levelFor(c.StatusCode(), err), "request", attrs...)
			return err
		}
	}
}

func levelFor(status int, err error) slog.Level {
	switch {
	case err != nil, status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

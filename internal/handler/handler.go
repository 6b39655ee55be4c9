// Package handler wires the negotiation and storage layers into HTTP/2
// verb handling for the key/value surface.
package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-mizu/h2kv/internal/httpkit"
	"github.com/go-mizu/h2kv/internal/negotiate"
	"github.com/go-mizu/h2kv/internal/storage"
)

// MaxBodyBytes is the PUT body size limit, 0 meaning unlimited. put does
// not consult it: it always buffers the entire request body.
const MaxBodyBytes = 0

// KV exposes the backend over HTTP/2 as described by the request
// handler's verb table: GET/HEAD read a negotiated representation, PUT
// writes one, DELETE removes the single representation at the negotiated
// key, and any other method is 501.
type KV struct {
	Backend storage.Backend
}

// Route is the single catch-all httpkit.Handler every path dispatches
// through; h2kv has no routing structure beyond the verb switch.
func (kv *KV) Route(c *httpkit.Ctx) error {
	switch c.Request().Method {
	case http.MethodGet:
		return kv.get(c, true)
	case http.MethodHead:
		return kv.get(c, false)
	case http.MethodPut:
		return kv.put(c)
	case http.MethodDelete:
		return kv.delete(c)
	default:
		return c.NoBody(http.StatusNotImplemented)
	}
}

func (kv *KV) get(c *httpkit.Ctx, withBody bool) error {
	ctx := c.Context()
	path := c.Request().URL.Path

	ext, err := negotiate.LoadExtensions(ctx, kv.Backend, path)
	if err != nil {
		return kv.backendError(c, err)
	}

	n, err := negotiate.ForRead(path, ext, c.Request().Header)
	if err != nil {
		return kv.backendError(c, err)
	}
	if n == nil {
		return c.NoBody(http.StatusNotFound)
	}

	value, err := kv.Backend.Get(ctx, n.StorageKey)
	if err != nil {
		c.Logger().Error("backend read failed", "key", n.StorageKey, "error", err)
		return c.NoBody(http.StatusServiceUnavailable)
	}
	if value == nil {
		c.Logger().Warn("negotiated key missing from backend", "key", n.StorageKey, "path", path)
		return c.NoBody(http.StatusNotFound)
	}

	c.Header().Set("Content-Type", n.ContentTypeHeader())
	if !withBody {
		c.Header().Set("Content-Length", strconv.Itoa(len(value)))
		return c.NoBody(http.StatusOK)
	}
	return c.Bytes(http.StatusOK, value, n.ContentTypeHeader())
}

func (kv *KV) put(c *httpkit.Ctx) error {
	ctx := c.Context()
	path := c.Request().URL.Path

	n, err := negotiate.ForWrite(path, c.Request().Header)
	if err != nil {
		return kv.backendError(c, err)
	}
	if n == nil {
		return c.NoBody(http.StatusUnsupportedMediaType)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.NoBody(http.StatusBadRequest)
	}

	existing, err := kv.Backend.Get(ctx, n.StorageKey)
	if err != nil {
		c.Logger().Error("backend read failed", "key", n.StorageKey, "error", err)
		return errors.New("handler: backend read failed during PUT")
	}

	ext, err := negotiate.LoadExtensions(ctx, kv.Backend, path)
	if err != nil {
		return kv.backendError(c, err)
	}
	extOp := ext.Insert(extensionOf(n.StorageKey), n.MediaType)

	if err := kv.Backend.BatchUpdate(ctx, []storage.Op{
		{Key: n.StorageKey, Value: body},
		extOp,
	}); err != nil {
		c.Logger().Error("backend write failed", "key", n.StorageKey, "error", err)
		return errors.New("handler: backend write failed during PUT")
	}

	c.Header().Set("Content-Location", n.ContentLocationHeader())
	if existing == nil {
		return c.NoBody(http.StatusCreated)
	}
	return c.NoBody(http.StatusNoContent)
}

func (kv *KV) delete(c *httpkit.Ctx) error {
	ctx := c.Context()
	path := c.Request().URL.Path

	ext, err := negotiate.LoadExtensions(ctx, kv.Backend, path)
	if err != nil {
		return kv.backendError(c, err)
	}

	n, err := negotiate.ForRead(path, ext, c.Request().Header)
	if err != nil {
		return kv.backendError(c, err)
	}
	if n == nil {
		return c.NoBody(http.StatusNotFound)
	}

	removeOp := ext.Remove(extensionOf(n.StorageKey))
	if err := kv.Backend.BatchUpdate(ctx, []storage.Op{
		{Key: n.StorageKey, Value: nil},
		removeOp,
	}); err != nil {
		c.Logger().Error("backend write failed", "key", n.StorageKey, "error", err)
		return errors.New("handler: backend write failed during DELETE")
	}

	return c.NoBody(http.StatusNoContent)
}

func (kv *KV) backendError(c *httpkit.Ctx, err error) error {
	c.Logger().Error("negotiation or sidecar load failed", "error", err, slog.String("path", c.Request().URL.Path))
	return c.NoBody(http.StatusServiceUnavailable)
}

// extensionOf returns the extension suffix of a storage key, which
// always carries one (invariant §3.5 of the data model).
func extensionOf(storageKey string) string {
	for i := len(storageKey) - 1; i >= 0; i-- {
		if storageKey[i] == '.' {
			return storageKey[i+1:]
		}
		if storageKey[i] == '/' {
			break
		}
	}
	return ""
}

package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-mizu/h2kv/internal/httpkit"
	"github.com/go-mizu/h2kv/internal/storage"
)

func newTestRouter(t *testing.T) (*httpkit.Router, storage.Backend) {
	t.Helper()
	backend, err := storage.OpenBolt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	kv := &KV{Backend: backend}
	r := httpkit.NewRouter()
	r.Any("/", kv.Route)
	return r, backend
}

func doReq(r http.Handler, method, target, contentType, accept, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestKV_PutThenGetRoundTrip(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := doReq(r, http.MethodPut, "/x", "text/plain", "", "hello")
	if rr.Code != http.StatusCreated {
		t.Fatalf("PUT want 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("Content-Location") != "/x.txt" {
		t.Fatalf("Content-Location = %q", rr.Header().Get("Content-Location"))
	}

	rr2 := doReq(r, http.MethodGet, "/x.txt", "", "", "")
	if rr2.Code != http.StatusOK {
		t.Fatalf("GET want 200, got %d", rr2.Code)
	}
	if rr2.Body.String() != "hello" {
		t.Fatalf("GET body = %q", rr2.Body.String())
	}
	if rr2.Header().Get("Content-Type") != "text/plain" {
		t.Fatalf("Content-Type = %q", rr2.Header().Get("Content-Type"))
	}
}

func TestKV_PutUpdateReturns204(t *testing.T) {
	r, _ := newTestRouter(t)

	doReq(r, http.MethodPut, "/x", "text/plain", "", "hello")
	rr := doReq(r, http.MethodPut, "/x", "text/plain", "", "world")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("want 204 on update, got %d", rr.Code)
	}
}

func TestKV_PutNoContentTypeNoExt(t *testing.T) {
	r, _ := newTestRouter(t)

	rr := doReq(r, http.MethodPut, "/a", "", "", "hello")
	if rr.Code != http.StatusCreated {
		t.Fatalf("want 201, got %d", rr.Code)
	}
	if rr.Header().Get("Content-Location") != "/a" {
		t.Fatalf("Content-Location = %q, want /a", rr.Header().Get("Content-Location"))
	}

	rr2 := doReq(r, http.MethodGet, "/a", "", "", "")
	if rr2.Code != http.StatusOK {
		t.Fatalf("GET want 200, got %d", rr2.Code)
	}
}

func TestKV_DeleteThenGetIs404(t *testing.T) {
	r, _ := newTestRouter(t)

	doReq(r, http.MethodPut, "/x", "text/plain", "", "hello")
	rr := doReq(r, http.MethodDelete, "/x.txt", "", "", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("DELETE want 204, got %d", rr.Code)
	}

	rr2 := doReq(r, http.MethodGet, "/x.txt", "", "", "")
	if rr2.Code != http.StatusNotFound {
		t.Fatalf("GET after delete want 404, got %d", rr2.Code)
	}
}

func TestKV_GetMissingIs404(t *testing.T) {
	r, _ := newTestRouter(t)
	rr := doReq(r, http.MethodGet, "/nope", "", "", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("want 404, got %d", rr.Code)
	}
}

func TestKV_HeadOmitsBody(t *testing.T) {
	r, _ := newTestRouter(t)
	doReq(r, http.MethodPut, "/x", "text/plain", "", "hello")

	rr := doReq(r, http.MethodHead, "/x.txt", "", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body for HEAD, got %q", rr.Body.String())
	}
	if rr.Header().Get("Content-Length") != "5" {
		t.Fatalf("Content-Length = %q, want 5", rr.Header().Get("Content-Length"))
	}
}

func TestKV_PutUnparseableContentTypeIs415(t *testing.T) {
	r, _ := newTestRouter(t)
	rr := doReq(r, http.MethodPut, "/x", "garbage;;;", "", "body")
	if rr.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("want 415, got %d", rr.Code)
	}
}

func TestKV_AcceptNegotiatedGet(t *testing.T) {
	r, _ := newTestRouter(t)

	doReq(r, http.MethodPut, "/doc.txt", "text/plain", "", "plain body")
	doReq(r, http.MethodPut, "/doc.html", "text/html", "", "<p>html body</p>")

	rr := doReq(r, http.MethodGet, "/doc", "", "text/html", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Body.String() != "<p>html body</p>" {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestKV_UnsupportedMethodIs501(t *testing.T) {
	r, _ := newTestRouter(t)
	rr := doReq(r, http.MethodPatch, "/x", "", "", "")
	if rr.Code != http.StatusNotImplemented {
		t.Fatalf("want 501, got %d", rr.Code)
	}
}

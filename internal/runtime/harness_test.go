package runtime

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-mizu/h2kv/internal/handler"
	"github.com/go-mizu/h2kv/internal/httpkit"
	"github.com/go-mizu/h2kv/internal/httpkit/middlewares/h2c"
	"github.com/go-mizu/h2kv/internal/storage"
	"golang.org/x/net/http2"
)

// newHarness assembles the whole server stack in-process — router,
// KV handler, bolt-backed storage — behind h2c, the way cmd/h2kvd does
// at startup, and returns an HTTP/2-only client wired to it.
func newHarness(t *testing.T) (*http.Client, string) {
	t.Helper()

	backend, err := storage.OpenBolt(t.TempDir())
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	t.Cleanup(func() { _ = backend.Close() })

	kv := &handler.KV{Backend: backend}
	r := httpkit.NewRouter()
	r.Any("/", kv.Route)

	srv := httptest.NewServer(h2c.Handler(r))
	t.Cleanup(srv.Close)

	client := &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLS: func(network, addr string, _ *tls.Config) (net.Conn, error) {
				return net.Dial(network, addr)
			},
		},
	}
	return client, srv.URL
}

func TestHarness_PutGetDeleteOverHTTP2(t *testing.T) {
	client, base := newHarness(t)

	req, err := http.NewRequest(http.MethodPut, base+"/greeting", strings.NewReader("hello"))
	if err != nil {
		t.Fatalf("build PUT: %v", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	if resp.ProtoMajor != 2 {
		t.Fatalf("expected HTTP/2, got %d", resp.ProtoMajor)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("PUT status = %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Content-Location"); loc != "/greeting.txt" {
		t.Fatalf("Content-Location = %q", loc)
	}
	_ = resp.Body.Close()

	getResp, err := client.Get(base + "/greeting.txt")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer func() { _ = getResp.Body.Close() }()
	if getResp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d", getResp.StatusCode)
	}

	delReq, err := http.NewRequest(http.MethodDelete, base+"/greeting.txt", nil)
	if err != nil {
		t.Fatalf("build DELETE: %v", err)
	}
	delResp, err := client.Do(delReq)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", delResp.StatusCode)
	}
	_ = delResp.Body.Close()

	finalResp, err := client.Get(base + "/greeting.txt")
	if err != nil {
		t.Fatalf("final GET: %v", err)
	}
	defer func() { _ = finalResp.Body.Close() }()
	if finalResp.StatusCode != http.StatusNotFound {
		t.Fatalf("final GET status = %d, want 404", finalResp.StatusCode)
	}
}

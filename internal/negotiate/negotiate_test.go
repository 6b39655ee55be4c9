package negotiate

import (
	"net/http"
	"testing"
)

func hdr(key, val string) http.Header {
	h := make(http.Header)
	if val != "" {
		h.Set(key, val)
	}
	return h
}

func TestForWrite_Table(t *testing.T) {
	cases := []struct {
		name       string
		path       string
		header     http.Header
		wantKey    string
		wantEssence string
		wantRefuse bool
	}{
		{
			name:        "ext present, no content-type",
			path:        "/a.txt",
			header:      hdr("Content-Type", ""),
			wantKey:     "/a.txt",
			wantEssence: "application/octet-stream",
		},
		{
			name:        "no ext, parseable content-type, known guess",
			path:        "/a",
			header:      hdr("Content-Type", "text/plain"),
			wantKey:     "/a.txt",
			wantEssence: "text/plain",
		},
		{
			name:        "no ext, parseable content-type, unknown guess",
			path:        "/a",
			header:      hdr("Content-Type", "application/x-totally-unknown"),
			wantKey:     "/a." + GenericExt,
			wantEssence: "application/x-totally-unknown",
		},
		{
			name:        "ext present, parseable content-type",
			path:        "/a.txt",
			header:      hdr("Content-Type", "text/html"),
			wantKey:     "/a.txt",
			wantEssence: "text/html",
		},
		{
			name:        "no ext, no content-type",
			path:        "/a",
			header:      hdr("Content-Type", ""),
			wantKey:     "/a." + GenericExt,
			wantEssence: "application/octet-stream",
		},
		{
			name:       "unparseable content-type refuses",
			path:       "/a",
			header:     hdr("Content-Type", "garbage;;;"),
			wantRefuse: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ForWrite(tc.path, tc.header)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantRefuse {
				if got != nil {
					t.Fatalf("expected refusal, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("expected a result")
			}
			if got.StorageKey != tc.wantKey {
				t.Fatalf("StorageKey = %q, want %q", got.StorageKey, tc.wantKey)
			}
			if got.MediaType.Essence() != tc.wantEssence {
				t.Fatalf("essence = %q, want %q", got.MediaType.Essence(), tc.wantEssence)
			}
		})
	}
}

func buildExtensions(t *testing.T, pairs map[string]string) *Extensions {
	t.Helper()
	ext := newExtensions("/a")
	for e, mt := range pairs {
		ext.Insert(e, mustMT(t, mt))
	}
	return ext
}

func TestForRead_ExtensionBranch(t *testing.T) {
	ext := buildExtensions(t, map[string]string{"txt": "text/plain"})

	got, err := ForRead("/a.txt", ext, hdr("Accept", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.StorageKey != "/a.txt" || got.MediaType.Essence() != "text/plain" {
		t.Fatalf("unexpected result: %+v", got)
	}

	// Absent extension refuses.
	_, err = ForRead("/a.csv", ext, hdr("Accept", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res, _ := ForRead("/a.csv", ext, hdr("Accept", ""))
	if res != nil {
		t.Fatalf("expected refusal for unregistered extension, got %+v", res)
	}
}

func TestForRead_AcceptBranch(t *testing.T) {
	ext := buildExtensions(t, map[string]string{
		"txt":  "text/plain",
		"html": "text/html",
	})

	got, err := ForRead("/a", ext, hdr("Accept", "text/html"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.StorageKey != "/a.html" || got.MediaType.Essence() != "text/html" {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestForRead_AcceptBranch_NoMatchRefuses(t *testing.T) {
	ext := buildExtensions(t, map[string]string{"txt": "text/plain"})

	got, err := ForRead("/a", ext, hdr("Accept", "application/pdf"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected refusal, got %+v", got)
	}
}

func TestForRead_NoExtNoAccept_SentinelPresent(t *testing.T) {
	ext := buildExtensions(t, map[string]string{GenericExt: "application/octet-stream"})

	got, err := ForRead("/a", ext, hdr("Accept", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.StorageKey != "/a."+GenericExt {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestForRead_NoExtNoAccept_NoSentinel_Refuses(t *testing.T) {
	ext := buildExtensions(t, map[string]string{"txt": "text/plain"})

	got, err := ForRead("/a", ext, hdr("Accept", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected refusal, got %+v", got)
	}
}

func TestNegotiatedPath_ContentLocationStripsSentinel(t *testing.T) {
	n := &NegotiatedPath{StorageKey: "/a." + GenericExt, MediaType: genericMediaType()}
	if got, want := n.ContentLocationHeader(), "/a"; got != want {
		t.Fatalf("ContentLocationHeader() = %q, want %q", got, want)
	}

	n2 := &NegotiatedPath{StorageKey: "/a.txt", MediaType: mustMT(t, "text/plain")}
	if got, want := n2.ContentLocationHeader(), "/a.txt"; got != want {
		t.Fatalf("ContentLocationHeader() = %q, want %q", got, want)
	}
}

func TestNegotiatedPath_ContentTypeHeaderDropsParams(t *testing.T) {
	n := &NegotiatedPath{MediaType: mustMT(t, "text/plain; charset=utf-8")}
	if got, want := n.ContentTypeHeader(), "text/plain"; got != want {
		t.Fatalf("ContentTypeHeader() = %q, want %q", got, want)
	}
}

func TestGuessMediaType(t *testing.T) {
	mt, ok := GuessMediaType("txt")
	if !ok || mt.Essence() != "text/plain" {
		t.Fatalf("GuessMediaType(txt) = %v, %v", mt, ok)
	}

	_, ok = GuessMediaType("nonexistent-ext")
	if ok {
		t.Fatalf("expected no guess for unknown extension")
	}
}

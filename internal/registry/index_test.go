package registry

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestPublishedVersions_Contains(t *testing.T) {
	p := PublishedVersions{"demo": {"0.1.0", "0.2.0"}}

	if known, has := p.Contains("demo", "0.2.0"); !known || !has {
		t.Errorf("demo@0.2.0: known=%v has=%v", known, has)
	}
	if known, has := p.Contains("demo", "0.3.0"); !known || has {
		t.Errorf("demo@0.3.0: known=%v has=%v", known, has)
	}
	if known, _ := p.Contains("other", "0.1.0"); known {
		t.Error("other should be unknown")
	}
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "published.yaml")
	content := "demo:\n  - 0.1.0\n  - 0.2.0\nother: [\"1.0.0\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	src := &FileSource{Path: path}
	versions, err := src.Published(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(versions["demo"]) != 2 || versions["other"][0] != "1.0.0" {
		t.Errorf("versions = %v", versions)
	}
}

func TestHTTPSource_UsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"demo": ["0.1.0"]}`)
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "cache.yaml")

	src := NewHTTPSource(srv.URL, NewCacheManager(cachePath, time.Hour))
	versions, err := src.Published(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if known, has := versions.Contains("demo", "0.1.0"); !known || !has {
		t.Errorf("versions = %v", versions)
	}

	// A fresh source sharing the cache file must not hit the server
	again := NewHTTPSource(srv.URL, NewCacheManager(cachePath, time.Hour))
	if _, err := again.Published(context.Background()); err != nil {
		t.Fatal(err)
	}
	if hits.Load() != 1 {
		t.Errorf("server hits = %d, want 1", hits.Load())
	}
}

func TestHTTPSource_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL, nil)
	if _, err := src.Published(context.Background()); err == nil {
		t.Fatal("expected error for 404")
	}
}

package geoip

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/woozymasta/mcstatus/internal/config"
	"github.com/woozymasta/mcstatus/internal/vars"
)

func geoConfig(path, url string) config.GeoIP {
	return config.GeoIP{
		Path:     path,
		URL:      url,
		Interval: time.Hour,
		Timeout:  5 * time.Second,
	}
}

func serveBytes(t *testing.T, body []byte, hits *atomic.Int32) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if ua := r.Header.Get("User-Agent"); ua != vars.Name+"/"+vars.Version {
			t.Errorf("User-Agent = %q", ua)
		}
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func TestLoadDownloads(t *testing.T) {
	var hits atomic.Int32
	srv := serveBytes(t, countryDB(127, "DE"), &hits)

	path := filepath.Join(t.TempDir(), "country.mmdb")
	p, err := Load(context.Background(), geoConfig(path, srv.URL))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer func() { _ = p.Close() }()

	if hits.Load() != 1 {
		t.Errorf("downloads = %d, want 1", hits.Load())
	}
	if got := p.GetCountryCode("127.0.0.1"); got != "DE" {
		t.Errorf("GetCountryCode = %q, want DE", got)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}
}

func TestLoadFreshSkipsDownload(t *testing.T) {
	var hits atomic.Int32
	srv := serveBytes(t, countryDB(127, "FR"), &hits)

	path := writeCountryDB(t, 127, "DE")
	p, err := Load(context.Background(), geoConfig(path, srv.URL))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer func() { _ = p.Close() }()

	if hits.Load() != 0 {
		t.Errorf("downloads = %d, want 0 for a fresh database", hits.Load())
	}
	if got := p.GetCountryCode("127.0.0.1"); got != "DE" {
		t.Errorf("GetCountryCode = %q, want DE", got)
	}
}

func TestLoadStaleReplaced(t *testing.T) {
	var hits atomic.Int32
	srv := serveBytes(t, countryDB(127, "FR"), &hits)

	path := writeCountryDB(t, 127, "DE")
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	p, err := Load(context.Background(), geoConfig(path, srv.URL))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer func() { _ = p.Close() }()

	if got := p.GetCountryCode("127.0.0.1"); got != "FR" {
		t.Errorf("GetCountryCode = %q, want FR from the new download", got)
	}
}

func TestLoadInvalidDownloadKeepsOld(t *testing.T) {
	var hits atomic.Int32
	srv := serveBytes(t, []byte("<html>rate limited</html>"), &hits)

	path := writeCountryDB(t, 127, "DE")
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	p, err := Load(context.Background(), geoConfig(path, srv.URL))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer func() { _ = p.Close() }()

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(before, after) {
		t.Error("invalid download replaced the existing database")
	}
	if hits.Load() != 1 {
		t.Errorf("downloads = %d, want 1", hits.Load())
	}
}

func TestLoadBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "country.mmdb")
	if _, err := Load(context.Background(), geoConfig(path, srv.URL)); err == nil {
		t.Fatal("Load succeeded without any database")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("database file created on failure: %v", err)
	}
}

func TestLoadTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := geoConfig(filepath.Join(t.TempDir(), "country.mmdb"), srv.URL)
	cfg.Timeout = 100 * time.Millisecond

	start := time.Now()
	if _, err := Load(context.Background(), cfg); err == nil {
		t.Fatal("Load succeeded without any database")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Load took %v, want download bounded by timeout", elapsed)
	}
}

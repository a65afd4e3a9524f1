package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"
)

func get(t *testing.T, url, host string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	if host != "" {
		req.Host = host
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	return resp
}

// TestRun exercises the real run() function end-to-end: catalog, River,
// HTTP server, metrics and graceful shutdown. Telemetry export is disabled
// and every store lives in a temp dir.
func TestRun(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CATALOG_PATH", dir+"/catalog.db")
	t.Setenv("TENANT_DATA_DIR", dir+"/tenants")
	t.Setenv("BASE_DOMAIN", "serviq.test")
	t.Setenv("PORT", "19876")
	t.Setenv("OTEL_EXPORTER", "none")
	t.Setenv("REDIS_URL", "")
	t.Setenv("FISCAL_API_URL", "")

	errCh := make(chan error, 1)
	go func() { errCh <- run() }()

	// Wait for the HTTP server to become ready.
	serverURL := "http://localhost:19876"
	ready := false
	for range 50 {
		req, _ := http.NewRequestWithContext(context.Background(), http.MethodGet, serverURL+"/api/v1/tenants", nil)
		resp, reqErr := http.DefaultClient.Do(req)
		if reqErr == nil {
			resp.Body.Close()
			ready = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ready {
		t.Fatal("server did not start within 5 seconds")
	}

	resp := get(t, serverURL+"/api/v1/tenants", "")
	var tenants []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&tenants); err != nil {
		t.Fatalf("decode: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if len(tenants) != 0 {
		t.Errorf("got %d tenants, want 0 (empty catalog)", len(tenants))
	}

	// Unknown tenant host is rejected before any handler runs.
	resp = get(t, serverURL+"/api/v1/clients", "nobody.serviq.test")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown host: status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}

	resp = get(t, serverURL+"/metrics", "")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `serviq_tenant_resolutions_total{outcome="not_found"} 1`) {
		t.Errorf("metrics missing not_found resolution:\n%s", body)
	}

	// Send SIGINT to trigger graceful shutdown.
	proc, err := os.FindProcess(os.Getpid())
	if err != nil {
		t.Fatalf("finding process: %v", err)
	}
	if err := proc.Signal(syscall.SIGINT); err != nil {
		t.Fatalf("sending SIGINT: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run() returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run() did not exit within 10 seconds")
	}
}

// TestRun_InvalidCatalog verifies run() returns an error for an unusable
// catalog path.
func TestRun_InvalidCatalog(t *testing.T) {
	t.Setenv("CATALOG_PATH", "/nonexistent/path/db.sqlite")
	t.Setenv("TENANT_DATA_DIR", t.TempDir())
	t.Setenv("PORT", "19877")
	t.Setenv("OTEL_EXPORTER", "none")

	if err := run(); err == nil {
		t.Fatal("expected error for invalid catalog path, got nil")
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")

	if err := run(); err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL, got nil")
	}
}

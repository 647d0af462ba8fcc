package gateway

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lei/actions-gateway/internal/store"
)

func testConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			APIKeys: []APIKey{{Name: "test", Key: "test-key"}},
		},
		Retention: RetentionConfig{MaxEvents: 100},
		Logging:   LoggingConfig{Level: "error", Format: "text"},
	}
}

func TestNew_NilConfig(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) error = nil, want error")
	}
}

func TestHandler_ServesRoutes(t *testing.T) {
	gw, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	handler := gw.Handler()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", w.Code, http.StatusOK)
	}

	req = httptest.NewRequest("GET", "/v1/events", nil)
	req.Header.Set("Authorization", "Bearer test-key")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("GET /v1/events status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestService_DirectAccess(t *testing.T) {
	gw, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ev, err := gw.Service().Ingest(context.Background(), "", map[string]any{
		"repository": map[string]any{"full_name": "acme/widgets"},
		"action":     "requested",
		"workflow_run": map[string]any{
			"id": float64(42), "name": "build",
		},
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if ev.RunID != "42" {
		t.Errorf("RunID = %q, want 42", ev.RunID)
	}
}

func TestEventLogRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "events.db")

	cfg := testConfig()
	cfg.EventLog = EventLogConfig{Driver: "bbolt", Path: dbPath}

	gw, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := gw.Service().Ingest(context.Background(), "d1", map[string]any{
		"repository":   map[string]any{"full_name": "acme/widgets"},
		"action":       "requested",
		"workflow_run": map[string]any{"id": float64(42)},
	}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if err := gw.Service().Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// A fresh gateway over the same log sees the event after replay.
	gw2, err := New(cfg)
	if err != nil {
		t.Fatalf("New() second instance error = %v", err)
	}
	defer gw2.Service().Close()

	if err := gw2.Service().ReplayEventLog(context.Background()); err != nil {
		t.Fatalf("ReplayEventLog() error = %v", err)
	}
	events, err := gw2.Service().GetRecentEvents(context.Background(), 0, store.Filter{})
	if err != nil {
		t.Fatalf("GetRecentEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].EventID != "d1" {
		t.Errorf("replayed events = %v, want [d1]", events)
	}
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	content := []byte("server:\n  port: 9191\nlogging:\n  level: error\n")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	gw, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile() error = %v", err)
	}
	if gw.config.Server.Port != 9191 {
		t.Errorf("Port = %d, want 9191", gw.config.Server.Port)
	}

	// An empty path falls back to pure defaults.
	gw, err = NewFromFile("")
	if err != nil {
		t.Fatalf("NewFromFile(\"\") error = %v", err)
	}
	if gw.config.Server.Port != 8080 {
		t.Errorf("default Port = %d, want 8080", gw.config.Server.Port)
	}
}

func TestWebhookThroughHandler(t *testing.T) {
	gw, err := New(testConfig())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	body := []byte(`{"repository":{"full_name":"acme/widgets"},"action":"requested","workflow_run":{"id":42}}`)
	req := httptest.NewRequest("POST", "/webhook/github", bytes.NewReader(body))
	w := httptest.NewRecorder()
	gw.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Errorf("status = %d, want %d; body %s", w.Code, http.StatusAccepted, w.Body.String())
	}
}

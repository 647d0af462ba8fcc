package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/lei/actions-gateway/internal/config"
	"github.com/lei/actions-gateway/internal/service"
	"github.com/lei/actions-gateway/internal/store"
	"github.com/lei/actions-gateway/pkg/logger"
)

const testAPIKey = "test-key-12345"

// newTestRouter wires a full router over a fresh in-memory service.
func newTestRouter(t *testing.T, webhookSecret string) (*chi.Mux, *service.Service) {
	t.Helper()

	log := logger.NewWithWriter(io.Discard, "error", "text")
	svc := service.NewService(store.New(500, 0), nil,
		config.DefaultTemplateTable(), []string{"deploy", "release"}, log)

	handlers := NewHandlers(svc, webhookSecret)
	auth := NewAuthMiddleware([]config.APIKey{{Name: "test", Key: testAPIKey}})
	logging := NewLoggingMiddleware(log)
	return NewRouter(handlers, auth, logging), svc
}

func runPayloadBody(t *testing.T, runID float64, action string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"repository": map[string]any{"full_name": "acme/widgets"},
		"action":     action,
		"workflow_run": map[string]any{
			"id":          runID,
			"name":        "build",
			"head_branch": "main",
		},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return body
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestWebhook_Accepted(t *testing.T) {
	router, _ := newTestRouter(t, "")
	body := runPayloadBody(t, 42, "requested")

	req := httptest.NewRequest("POST", "/webhook/github", bytes.NewReader(body))
	req.Header.Set("X-GitHub-Delivery", "delivery-1")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d; body %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	var resp struct {
		Status  string `json:"status"`
		EventID string `json:"event_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Status != "accepted" || resp.EventID != "delivery-1" {
		t.Errorf("response = %+v", resp)
	}
}

func TestWebhook_SignatureVerification(t *testing.T) {
	const secret = "hunter2"
	body := runPayloadBody(t, 42, "requested")

	tests := []struct {
		name      string
		signature string
		want      int
	}{
		{"valid signature", sign(secret, body), http.StatusAccepted},
		{"wrong secret", sign("other", body), http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"bad prefix", "sha1=deadbeef", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, secret)
			req := httptest.NewRequest("POST", "/webhook/github", bytes.NewReader(body))
			if tt.signature != "" {
				req.Header.Set("X-Hub-Signature-256", tt.signature)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestWebhook_MalformedPayload(t *testing.T) {
	router, _ := newTestRouter(t, "")

	tests := []struct {
		name string
		body string
	}{
		{"not json", "{{{"},
		{"missing required fields", `{"action":"requested"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/webhook/github", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestWebhook_NoAPIKeyRequired(t *testing.T) {
	// Webhook delivery is authenticated by signature, never by API key.
	router, _ := newTestRouter(t, "")
	req := httptest.NewRequest("POST", "/webhook/github", bytes.NewReader(runPayloadBody(t, 1, "requested")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code == http.StatusUnauthorized {
		t.Errorf("status = %d, webhook must not require an api key", w.Code)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"action":"requested"}`)
	secret := "hunter2"

	if !verifySignature(secret, body, sign(secret, body)) {
		t.Error("verifySignature() = false for valid signature")
	}
	if verifySignature(secret, body, sign(secret, []byte("tampered"))) {
		t.Error("verifySignature() = true for tampered body")
	}
	if verifySignature(secret, body, "deadbeef") {
		t.Error("verifySignature() = true without sha256= prefix")
	}
}

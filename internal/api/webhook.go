package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

// maxWebhookBody caps how much of a webhook payload is read. GitHub's own
// limit is 25 MB; anything near that is not a workflow event.
const maxWebhookBody = 1 << 20

// Webhook handles POST /webhook/github. The shared-secret signature is
// verified over the raw body before the payload reaches the core; an
// invalid signature rejects the delivery outright.
func (h *Handlers) Webhook(w http.ResponseWriter, r *http.Request) {
	logger := GetLogger(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "unreadable request body")
		return
	}

	if h.webhookSecret != "" {
		if !verifySignature(h.webhookSecret, body, r.Header.Get("X-Hub-Signature-256")) {
			if logger != nil {
				logger.Warn("webhook signature verification failed",
					"delivery_id", r.Header.Get("X-GitHub-Delivery"))
			}
			respondError(w, r, http.StatusUnauthorized, "invalid webhook signature")
			return
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	deliveryID := r.Header.Get("X-GitHub-Delivery")
	event, err := h.service.Ingest(r.Context(), deliveryID, payload)
	if err != nil {
		// Malformed payloads are dropped, never fatal to ingestion.
		handleServiceError(w, r, err)
		return
	}

	if logger != nil {
		logger.Info("webhook event stored",
			"event_id", event.EventID,
			"run_id", event.RunID,
			"repo", event.Repo,
			"action", event.Action)
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"status":   "accepted",
		"event_id": event.EventID,
	})
}

// verifySignature checks the hex HMAC-SHA256 of the raw body against the
// sha256= signature header using a constant-time compare.
func verifySignature(secret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sig))
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lei/actions-gateway/internal/ingest"
	"github.com/lei/actions-gateway/internal/service"
	"github.com/lei/actions-gateway/internal/store"
)

// Handlers contains HTTP handler functions
type Handlers struct {
	service       *service.Service
	webhookSecret string
}

// NewHandlers creates a new handlers instance
func NewHandlers(svc *service.Service, webhookSecret string) *Handlers {
	return &Handlers{service: svc, webhookSecret: webhookSecret}
}

// Health handles health check requests
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// RecentEvents handles GET /v1/events
func (h *Handlers) RecentEvents(w http.ResponseWriter, r *http.Request) {
	logger := GetLogger(r.Context())

	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	events, err := h.service.GetRecentEvents(r.Context(), limit, filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	if logger != nil {
		logger.Debug("recent events listed", "count", len(events))
	}

	respondJSON(w, http.StatusOK, map[string]any{"events": events})
}

// Analysis handles GET /v1/analysis
func (h *Handlers) Analysis(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	analysis, err := h.service.AnalyzeCIResults(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"analysis": analysis})
}

// DeploymentSummary handles GET /v1/deployments/summary
func (h *Handlers) DeploymentSummary(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := h.service.CreateDeploymentSummary(r.Context(), filter)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

// WorkflowStatus handles GET /v1/workflows/status
func (h *Handlers) WorkflowStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.service.GetWorkflowStatus(r.Context(), r.URL.Query().Get("workflow"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"workflows": statuses})
}

// Troubleshoot handles GET /v1/runs/{run_id}/troubleshoot
func (h *Handlers) Troubleshoot(w http.ResponseWriter, r *http.Request) {
	logger := GetLogger(r.Context())
	runID := chi.URLParam(r, "run_id")

	if logger != nil {
		logger.Debug("troubleshooting run", "run_id", runID)
	}

	report, err := h.service.TroubleshootWorkflowFailure(r.Context(), runID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"report": report})
}

// Templates handles GET /v1/templates
func (h *Handlers) Templates(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"templates": h.service.GetPRTemplates(r.Context()),
	})
}

// SuggestTemplate handles POST /v1/templates/suggest. Callers supply either
// a changed-file list, a change type, or both; file matches take precedence.
func (h *Handlers) SuggestTemplate(w http.ResponseWriter, r *http.Request) {
	logger := GetLogger(r.Context())

	var req struct {
		ChangedFiles []string `json:"changed_files"`
		ChangeType   string   `json:"change_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.Warn("invalid request body", "error", err)
		}
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	resp := map[string]any{
		"suggestions": h.service.SuggestTemplate(r.Context(), req.ChangedFiles),
	}
	if req.ChangeType != "" {
		resp["recommended"] = h.service.SuggestTemplateByType(r.Context(), req.ChangeType)
	}

	respondJSON(w, http.StatusOK, resp)
}

// respondJSON writes a JSON response body with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError writes a JSON error response with logging
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	logger := GetLogger(r.Context())
	requestID := GetRequestID(r.Context())

	if logger != nil {
		logger.Error("returning error response",
			"status", status,
			"message", message,
			"request_id", requestID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message":    message,
			"code":       status,
			"request_id": requestID,
		},
	})
}

// handleServiceError maps service errors to HTTP responses with detailed logging
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	logger := GetLogger(r.Context())

	if logger != nil {
		logger.Error("service error occurred",
			"error", err.Error(),
			"error_type", fmt.Sprintf("%T", err))
	}

	var normErr *ingest.NormalizationError
	switch {
	case errors.Is(err, service.ErrRunNotFound):
		respondError(w, r, http.StatusNotFound, "run not found")
	case errors.Is(err, service.ErrRunNotFailed):
		respondError(w, r, http.StatusConflict, "run did not fail; nothing to troubleshoot")
	case errors.Is(err, service.ErrInvalidFilter):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrTimeout):
		respondError(w, r, http.StatusGatewayTimeout, "event log unavailable")
	case errors.As(err, &normErr):
		respondError(w, r, http.StatusBadRequest, normErr.Error())
	default:
		respondError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

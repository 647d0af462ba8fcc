package ingest

import (
	"errors"
	"testing"

	"github.com/lei/actions-gateway/internal/models"
)

func runPayload(action string, run map[string]any) map[string]any {
	return map[string]any{
		"repository":   map[string]any{"full_name": "acme/widgets"},
		"action":       action,
		"workflow_run": run,
	}
}

func TestNormalize_WorkflowRun(t *testing.T) {
	n := NewNormalizer()

	ev, err := n.Normalize("delivery-1", runPayload("completed", map[string]any{
		"id":             float64(42),
		"name":           "build",
		"head_branch":    "main",
		"head_sha":       "abc123",
		"html_url":       "https://example.com/runs/42",
		"conclusion":     "success",
		"run_started_at": "2026-08-01T11:58:00Z",
		"updated_at":     "2026-08-01T12:00:00Z",
	}))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if ev.EventID != "delivery-1" {
		t.Errorf("EventID = %q, want delivery-1", ev.EventID)
	}
	if ev.RunID != "42" {
		t.Errorf("RunID = %q, want 42", ev.RunID)
	}
	if ev.Repo != "acme/widgets" {
		t.Errorf("Repo = %q, want acme/widgets", ev.Repo)
	}
	if ev.Branch != "main" || ev.CommitSHA != "abc123" || ev.WorkflowName != "build" {
		t.Errorf("run fields = %q/%q/%q", ev.Branch, ev.CommitSHA, ev.WorkflowName)
	}
	if ev.Action != models.ActionCompleted {
		t.Errorf("Action = %q, want completed", ev.Action)
	}
	if ev.Conclusion != models.ConclusionSuccess {
		t.Errorf("Conclusion = %q, want success", ev.Conclusion)
	}
	if !ev.ReceivedAt.IsZero() {
		t.Errorf("ReceivedAt = %v, want zero (the store stamps it)", ev.ReceivedAt)
	}
	if ev.RawDurationMS == nil || *ev.RawDurationMS != 120000 {
		t.Errorf("RawDurationMS = %v, want 120000", ev.RawDurationMS)
	}
}

func TestNormalize_WorkflowJobFailingStep(t *testing.T) {
	n := NewNormalizer()

	ev, err := n.Normalize("delivery-2", map[string]any{
		"repository": map[string]any{"full_name": "acme/widgets"},
		"action":     "completed",
		"workflow_job": map[string]any{
			"run_id":     float64(42),
			"name":       "build",
			"conclusion": "failure",
			"steps": []any{
				map[string]any{"name": "checkout", "conclusion": "success"},
				map[string]any{"name": "Compile", "conclusion": "failure"},
				map[string]any{"name": "upload", "conclusion": "skipped"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}

	if ev.JobName != "build" {
		t.Errorf("JobName = %q, want build", ev.JobName)
	}
	if ev.StepName != "Compile" {
		t.Errorf("StepName = %q, want Compile (first failing step)", ev.StepName)
	}
	if ev.Message != "compile failed" {
		t.Errorf("Message = %q, want normalized %q", ev.Message, "compile failed")
	}
	if ev.Conclusion != models.ConclusionFailure {
		t.Errorf("Conclusion = %q, want failure", ev.Conclusion)
	}
}

func TestNormalize_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		field   string
	}{
		{
			"no repository",
			map[string]any{"action": "requested", "run_id": "1"},
			"repository.full_name",
		},
		{
			"no action",
			map[string]any{
				"repository": map[string]any{"full_name": "acme/widgets"},
				"run_id":     "1",
			},
			"action",
		},
		{
			"no run id",
			map[string]any{
				"repository": map[string]any{"full_name": "acme/widgets"},
				"action":     "requested",
			},
			"run_id",
		},
	}

	n := NewNormalizer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Normalize("", tt.payload)
			var normErr *NormalizationError
			if !errors.As(err, &normErr) {
				t.Fatalf("Normalize() error = %v, want NormalizationError", err)
			}
			if normErr.Kind != KindMissingField {
				t.Errorf("Kind = %q, want missing_field", normErr.Kind)
			}
			if normErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", normErr.Field, tt.field)
			}
		})
	}
}

func TestNormalize_UnknownValuesDegrade(t *testing.T) {
	n := NewNormalizer()

	ev, err := n.Normalize("", runPayload("completed", map[string]any{
		"id":         float64(7),
		"conclusion": "action_required",
	}))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if ev.Conclusion != models.ConclusionUnknown {
		t.Errorf("Conclusion = %q, want unknown", ev.Conclusion)
	}

	ev, err = n.Normalize("", runPayload("mystery_phase", map[string]any{"id": float64(7)}))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if ev.Action != models.ActionUnknown {
		t.Errorf("Action = %q, want unknown", ev.Action)
	}
}

func TestNormalize_GeneratesEventID(t *testing.T) {
	n := NewNormalizer()

	ev, err := n.Normalize("", runPayload("requested", map[string]any{"id": float64(1)}))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if ev.EventID == "" {
		t.Error("EventID is empty, want generated id")
	}
}

func TestNormalize_TopLevelRunID(t *testing.T) {
	n := NewNormalizer()

	ev, err := n.Normalize("", map[string]any{
		"repository": map[string]any{"full_name": "acme/widgets"},
		"action":     "requested",
		"run_id":     "run-99",
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if ev.RunID != "run-99" {
		t.Errorf("RunID = %q, want run-99", ev.RunID)
	}

	// Programmatic callers pass plain ints rather than decoded float64s.
	ev, err = n.Normalize("", runPayload("requested", map[string]any{"id": 42}))
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if ev.RunID != "42" {
		t.Errorf("RunID = %q, want 42", ev.RunID)
	}
}

func TestNormalizeMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Build FAILED", "build failed"},
		{"collapses whitespace", "step  \t failed\n badly", "step failed badly"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeMessage(tt.in); got != tt.want {
				t.Errorf("NormalizeMessage(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	if got := NormalizeMessage(string(long)); len(got) != maxMessageLen {
		t.Errorf("NormalizeMessage(long) length = %d, want %d", len(got), maxMessageLen)
	}
}

// Package ingest turns raw webhook payloads into typed workflow events.
package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lei/actions-gateway/internal/models"
)

// ErrorKind classifies a normalization failure.
type ErrorKind string

const (
	// KindMissingField means a required payload field was absent.
	KindMissingField ErrorKind = "missing_field"
)

// NormalizationError reports why a payload could not be normalized.
type NormalizationError struct {
	Kind  ErrorKind
	Field string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("normalize payload: %s: %s", e.Kind, e.Field)
}

// maxMessageLen bounds the normalized failure message so signatures stay
// comparable across runs.
const maxMessageLen = 100

// Normalizer parses raw provider payloads into WorkflowEvents. It holds no
// shared state.
type Normalizer struct{}

// NewNormalizer creates a normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize validates and converts one payload. deliveryID is the provider's
// delivery identifier; when empty a fresh id is generated. ReceivedAt is left
// zero here; the store stamps it under its write lock so event order and
// ReceivedAt order never diverge.
//
// Payloads may carry either a workflow_run or a workflow_job object. Unknown
// action and conclusion values map to the Unknown variants rather than
// failing.
func (n *Normalizer) Normalize(deliveryID string, payload map[string]any) (*models.WorkflowEvent, error) {
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}

	ev := &models.WorkflowEvent{
		EventID: deliveryID,
		Repo:    nestedString(payload, "repository", "full_name"),
		Action:  models.ParseAction(stringField(payload, "action")),
	}
	if ev.Repo == "" {
		return nil, &NormalizationError{Kind: KindMissingField, Field: "repository.full_name"}
	}
	if stringField(payload, "action") == "" {
		return nil, &NormalizationError{Kind: KindMissingField, Field: "action"}
	}

	switch {
	case mapField(payload, "workflow_run") != nil:
		n.fillFromRun(ev, mapField(payload, "workflow_run"))
	case mapField(payload, "workflow_job") != nil:
		n.fillFromJob(ev, mapField(payload, "workflow_job"))
	default:
		// Minimal payloads may carry the run id at the top level.
		ev.RunID = idField(payload, "run_id")
	}

	if ev.RunID == "" {
		return nil, &NormalizationError{Kind: KindMissingField, Field: "run_id"}
	}
	return ev, nil
}

// fillFromRun extracts run-level fields from a workflow_run object.
func (n *Normalizer) fillFromRun(ev *models.WorkflowEvent, run map[string]any) {
	ev.RunID = idField(run, "id")
	ev.Branch = stringField(run, "head_branch")
	ev.CommitSHA = stringField(run, "head_sha")
	ev.WorkflowName = stringField(run, "name")
	ev.HTMLURL = stringField(run, "html_url")
	if ev.Action == models.ActionCompleted {
		ev.Conclusion = models.ParseConclusion(stringField(run, "conclusion"))
		ev.RawDurationMS = durationBetween(run, "run_started_at", "updated_at")
	}
}

// fillFromJob extracts job-level fields from a workflow_job object. The
// failing step, when present, feeds the failure signature.
func (n *Normalizer) fillFromJob(ev *models.WorkflowEvent, job map[string]any) {
	ev.RunID = idField(job, "run_id")
	ev.Branch = stringField(job, "head_branch")
	ev.CommitSHA = stringField(job, "head_sha")
	ev.WorkflowName = stringField(job, "workflow_name")
	ev.HTMLURL = stringField(job, "html_url")
	ev.JobName = stringField(job, "name")
	if ev.Action != models.ActionCompleted {
		return
	}
	ev.Conclusion = models.ParseConclusion(stringField(job, "conclusion"))
	ev.RawDurationMS = durationBetween(job, "started_at", "completed_at")

	steps, _ := job["steps"].([]any)
	for _, raw := range steps {
		step, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if models.ParseConclusion(stringField(step, "conclusion")) == models.ConclusionFailure {
			ev.StepName = stringField(step, "name")
			ev.Message = NormalizeMessage(stringField(step, "name") + " failed")
			break
		}
	}
}

// NormalizeMessage collapses whitespace, lowercases, and truncates a failure
// message so equal failures produce equal signatures.
func NormalizeMessage(msg string) string {
	msg = strings.ToLower(strings.Join(strings.Fields(msg), " "))
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	return msg
}

// stringField reads a top-level string field, tolerating absence.
func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// idField reads a numeric or string identifier as a string. GitHub sends run
// ids as JSON numbers, which decode to float64; programmatic callers may pass
// plain ints.
func idField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

func mapField(m map[string]any, key string) map[string]any {
	sub, _ := m[key].(map[string]any)
	return sub
}

func nestedString(m map[string]any, key, sub string) string {
	inner := mapField(m, key)
	if inner == nil {
		return ""
	}
	return stringField(inner, sub)
}

// durationBetween computes milliseconds between two RFC3339 timestamps in the
// payload. Returns nil unless both parse and the delta is non-negative.
func durationBetween(m map[string]any, startKey, endKey string) *int64 {
	start, err := time.Parse(time.RFC3339, stringField(m, startKey))
	if err != nil {
		return nil
	}
	end, err := time.Parse(time.RFC3339, stringField(m, endKey))
	if err != nil {
		return nil
	}
	ms := end.Sub(start).Milliseconds()
	if ms < 0 {
		return nil
	}
	return &ms
}

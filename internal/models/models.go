package models

import "time"

// Action is the lifecycle stage reported by a webhook event.
type Action string

const (
	ActionRequested  Action = "requested"
	ActionInProgress Action = "in_progress"
	ActionCompleted  Action = "completed"
	ActionUnknown    Action = "unknown"
)

// ParseAction maps a raw provider action string to a closed variant.
// Unrecognized values become ActionUnknown so a provider schema change
// degrades instead of breaking ingestion.
func ParseAction(raw string) Action {
	switch raw {
	case "requested", "queued", "waiting":
		return ActionRequested
	case "in_progress":
		return ActionInProgress
	case "completed":
		return ActionCompleted
	default:
		return ActionUnknown
	}
}

// Conclusion is the terminal outcome of a completed run or job.
type Conclusion string

const (
	ConclusionSuccess   Conclusion = "success"
	ConclusionFailure   Conclusion = "failure"
	ConclusionCancelled Conclusion = "cancelled"
	ConclusionSkipped   Conclusion = "skipped"
	ConclusionUnknown   Conclusion = "unknown"

	// ConclusionNone means the run has not completed yet.
	ConclusionNone Conclusion = ""
)

// ParseConclusion maps a raw provider conclusion string to a closed variant.
func ParseConclusion(raw string) Conclusion {
	switch raw {
	case "":
		return ConclusionNone
	case "success":
		return ConclusionSuccess
	case "failure", "timed_out", "startup_failure":
		return ConclusionFailure
	case "cancelled":
		return ConclusionCancelled
	case "skipped", "neutral":
		return ConclusionSkipped
	default:
		return ConclusionUnknown
	}
}

// RunStatus is the derived state of a workflow run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
)

// WorkflowEvent is one webhook notification, immutable once stored.
// Corrections arrive as new events for the same run_id, never as edits.
type WorkflowEvent struct {
	EventID       string     `json:"event_id"`
	RunID         string     `json:"run_id"`
	Repo          string     `json:"repo"`
	Branch        string     `json:"branch,omitempty"`
	CommitSHA     string     `json:"commit_sha,omitempty"`
	WorkflowName  string     `json:"workflow_name,omitempty"`
	HTMLURL       string     `json:"html_url,omitempty"`
	Action        Action     `json:"action"`
	Conclusion    Conclusion `json:"conclusion,omitempty"`
	JobName       string     `json:"job_name,omitempty"`
	StepName      string     `json:"step_name,omitempty"`
	Message       string     `json:"message,omitempty"`
	ReceivedAt    time.Time  `json:"received_at"`
	RawDurationMS *int64     `json:"raw_duration_ms,omitempty"`
}

// JobResult is a per-job sub-aggregate of a workflow run.
type JobResult struct {
	Name       string     `json:"name"`
	Conclusion Conclusion `json:"conclusion,omitempty"`
	DurationMS *int64     `json:"duration_ms,omitempty"`
}

// WorkflowRun is the derived aggregate over all retained events sharing a
// run_id. It is a view recomputed on read, not a stored entity.
type WorkflowRun struct {
	RunID        string            `json:"run_id"`
	Repo         string            `json:"repo"`
	Branch       string            `json:"branch,omitempty"`
	CommitSHA    string            `json:"commit_sha,omitempty"`
	WorkflowName string            `json:"workflow_name,omitempty"`
	HTMLURL      string            `json:"html_url,omitempty"`
	Status       RunStatus         `json:"status"`
	Conclusion   Conclusion        `json:"conclusion,omitempty"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	DurationMS   *int64            `json:"duration_ms,omitempty"`
	Jobs         []JobResult       `json:"jobs,omitempty"`
	Failure      *FailureSignature `json:"failure,omitempty"`
}

// LastActivity returns the timestamp that orders this run in recency queries.
func (r *WorkflowRun) LastActivity() time.Time {
	if r.CompletedAt != nil {
		return *r.CompletedAt
	}
	return r.StartedAt
}

// FailureSignature is the normalized key used to detect recurring identical
// failures across runs. Two failures with equal signatures are the same
// failure for clustering purposes.
type FailureSignature struct {
	JobName  string `json:"job_name,omitempty"`
	StepName string `json:"step_name,omitempty"`
	Message  string `json:"message,omitempty"`
}

// FailureCluster groups retained failed runs sharing one signature.
type FailureCluster struct {
	Signature FailureSignature `json:"signature"`
	Count     int              `json:"count"`
	FirstSeen time.Time        `json:"first_seen"`
	LastSeen  time.Time        `json:"last_seen"`
	Branches  []string         `json:"branches,omitempty"`
}

// CIAnalysis is the rolling-metrics snapshot computed over a run window.
// Rate and duration fields are nil, not zero, when the window holds no
// qualifying runs.
type CIAnalysis struct {
	TotalRuns       int              `json:"total_runs"`
	CompletedRuns   int              `json:"completed_runs"`
	InFlightRuns    int              `json:"in_flight_runs"`
	SuccessRate     *float64         `json:"success_rate,omitempty"`
	MeanDurationMS  *float64         `json:"mean_duration_ms,omitempty"`
	P50DurationMS   *int64           `json:"p50_duration_ms,omitempty"`
	P90DurationMS   *int64           `json:"p90_duration_ms,omitempty"`
	FailureClusters []FailureCluster `json:"failure_clusters,omitempty"`
}

// Template identifies a PR template. Template content lives with the
// template source, never here.
type Template struct {
	Filename string `json:"filename" yaml:"filename"`
	Label    string `json:"label" yaml:"label"`
}

// TemplateRule maps a changed-file pattern to a template. Patterns are path
// globs or directory prefixes; declaration order breaks score ties.
type TemplateRule struct {
	Pattern  string `json:"pattern" yaml:"pattern"`
	Template string `json:"template" yaml:"template"`
	Priority int    `json:"priority" yaml:"priority"`
}

// TemplateScore is one suggestion produced by the template engine.
type TemplateScore struct {
	Template string `json:"template"`
	Score    int    `json:"score"`
}

// TroubleshootReport is the advisor's evidence for a failed run.
type TroubleshootReport struct {
	RunID       string           `json:"run_id"`
	Repo        string           `json:"repo"`
	Branch      string           `json:"branch,omitempty"`
	Signature   FailureSignature `json:"signature"`
	FirstSeen   time.Time        `json:"first_seen"`
	Occurrences int              `json:"occurrences"`
	Branches    []string         `json:"branches,omitempty"`
	Recurring   bool             `json:"recurring"`
}

// WorkflowStatus is the latest known state of one named workflow.
type WorkflowStatus struct {
	Name       string     `json:"name"`
	RunID      string     `json:"run_id"`
	Status     RunStatus  `json:"status"`
	Conclusion Conclusion `json:"conclusion,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
	HTMLURL    string     `json:"html_url,omitempty"`
}

// DeploymentSummary reports the analysis restricted to deployment-tagged
// runs plus the most recent such run.
type DeploymentSummary struct {
	Analysis  CIAnalysis   `json:"analysis"`
	LatestRun *WorkflowRun `json:"latest_run,omitempty"`
}

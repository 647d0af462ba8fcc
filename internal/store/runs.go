package store

import (
	"sort"

	"github.com/lei/actions-gateway/internal/models"
)

// deriveRun folds a run's events, oldest first, into its current aggregate.
func deriveRun(events []models.WorkflowEvent) models.WorkflowRun {
	run := models.WorkflowRun{
		RunID:     events[0].RunID,
		StartedAt: events[0].ReceivedAt,
		Status:    models.StatusPending,
	}

	jobIndex := make(map[string]int)
	for _, e := range events {
		// Later events may carry fields earlier ones omitted.
		if e.Repo != "" {
			run.Repo = e.Repo
		}
		if e.Branch != "" {
			run.Branch = e.Branch
		}
		if e.CommitSHA != "" {
			run.CommitSHA = e.CommitSHA
		}
		if e.WorkflowName != "" {
			run.WorkflowName = e.WorkflowName
		}
		if e.HTMLURL != "" {
			run.HTMLURL = e.HTMLURL
		}

		// Status follows the most recent event's action; unknown actions do
		// not move it.
		switch e.Action {
		case models.ActionRequested:
			run.Status = models.StatusPending
		case models.ActionInProgress:
			run.Status = models.StatusRunning
		case models.ActionCompleted:
			run.Status = models.StatusCompleted
		}

		if e.JobName != "" {
			applyJobEvent(&run, jobIndex, e)
		}

		if e.Action == models.ActionCompleted && e.Conclusion != models.ConclusionNone {
			run.Conclusion = e.Conclusion
			completed := e.ReceivedAt
			run.CompletedAt = &completed
			if e.JobName == "" && e.RawDurationMS != nil {
				run.DurationMS = e.RawDurationMS
			}
			// Only job-level events carry signature detail. The run-level
			// completion arrives after the failing job event and must not
			// erase its signature.
			if e.Conclusion == models.ConclusionFailure && e.JobName != "" {
				run.Failure = failureSignature(e)
			}
		}
	}

	if run.DurationMS == nil && run.CompletedAt != nil && run.CompletedAt.After(run.StartedAt) {
		ms := run.CompletedAt.Sub(run.StartedAt).Milliseconds()
		run.DurationMS = &ms
	}
	if run.Conclusion == models.ConclusionFailure && run.Failure == nil {
		run.Failure = &models.FailureSignature{}
	}
	return run
}

// applyJobEvent updates or appends the job sub-aggregate for a job-level
// event, preserving event arrival order.
func applyJobEvent(run *models.WorkflowRun, jobIndex map[string]int, e models.WorkflowEvent) {
	i, ok := jobIndex[e.JobName]
	if !ok {
		i = len(run.Jobs)
		jobIndex[e.JobName] = i
		run.Jobs = append(run.Jobs, models.JobResult{Name: e.JobName})
	}
	if e.Action == models.ActionCompleted {
		run.Jobs[i].Conclusion = e.Conclusion
		if e.RawDurationMS != nil {
			run.Jobs[i].DurationMS = e.RawDurationMS
		}
	}
}

// failureSignature builds the clustering key from the latest failing event.
func failureSignature(e models.WorkflowEvent) *models.FailureSignature {
	return &models.FailureSignature{
		JobName:  e.JobName,
		StepName: e.StepName,
		Message:  e.Message,
	}
}

// sortRunsByActivity orders runs most recent activity first, run id as the
// stable tie-break.
func sortRunsByActivity(runs []models.WorkflowRun) {
	sort.SliceStable(runs, func(i, j int) bool {
		ai, aj := runs[i].LastActivity(), runs[j].LastActivity()
		if !ai.Equal(aj) {
			return ai.After(aj)
		}
		return runs[i].RunID < runs[j].RunID
	})
}

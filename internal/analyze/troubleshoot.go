package analyze

import (
	"sort"

	"github.com/lei/actions-gateway/internal/models"
)

// Troubleshoot builds the failure evidence for a failed run: its signature,
// and every retained run of the same repo (any branch) sharing that
// signature. history is the candidate run window; the failed run itself
// counts as one occurrence whether or not history contains it.
//
// The caller is responsible for verifying the run exists and actually
// failed before invoking the advisor.
func Troubleshoot(run models.WorkflowRun, history []models.WorkflowRun) models.TroubleshootReport {
	sig := models.FailureSignature{}
	if run.Failure != nil {
		sig = *run.Failure
	}

	report := models.TroubleshootReport{
		RunID:     run.RunID,
		Repo:      run.Repo,
		Branch:    run.Branch,
		Signature: sig,
		FirstSeen: run.LastActivity(),
	}

	seenSelf := false
	for _, other := range history {
		if other.Repo != run.Repo || other.Conclusion != models.ConclusionFailure {
			continue
		}
		if other.Failure == nil || *other.Failure != sig {
			continue
		}
		if other.RunID == run.RunID {
			seenSelf = true
		}
		report.Occurrences++
		report.Branches = appendUnique(report.Branches, other.Branch)
		if t := other.LastActivity(); t.Before(report.FirstSeen) {
			report.FirstSeen = t
		}
	}
	if !seenSelf {
		report.Occurrences++
		report.Branches = appendUnique(report.Branches, run.Branch)
	}

	sort.Strings(report.Branches)
	report.Recurring = report.Occurrences > 1
	return report
}

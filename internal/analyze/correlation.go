// Package analyze derives higher-level facts from workflow run aggregates:
// rolling CI metrics, failure clustering, and PR template suggestions. All
// functions are pure over the snapshots handed to them.
package analyze

import (
	"sort"

	"github.com/lei/actions-gateway/internal/models"
)

// Analyze computes rolling metrics over a window of runs. Runs still pending
// or running are excluded from rate and duration statistics and reported as
// the in-flight count. With zero completed runs the rate and percentile
// fields stay nil: an empty window is undefined, not a 0% success rate.
func Analyze(runs []models.WorkflowRun) models.CIAnalysis {
	analysis := models.CIAnalysis{TotalRuns: len(runs)}

	var durations []int64
	succeeded := 0
	for _, run := range runs {
		if run.Status != models.StatusCompleted {
			analysis.InFlightRuns++
			continue
		}
		analysis.CompletedRuns++
		if run.Conclusion == models.ConclusionSuccess {
			succeeded++
		}
		if run.DurationMS != nil {
			durations = append(durations, *run.DurationMS)
		}
	}

	if analysis.CompletedRuns > 0 {
		rate := float64(succeeded) / float64(analysis.CompletedRuns)
		analysis.SuccessRate = &rate
	}
	if len(durations) > 0 {
		sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
		sum := int64(0)
		for _, d := range durations {
			sum += d
		}
		mean := float64(sum) / float64(len(durations))
		analysis.MeanDurationMS = &mean
		p50 := percentile(durations, 0.50)
		p90 := percentile(durations, 0.90)
		analysis.P50DurationMS = &p50
		analysis.P90DurationMS = &p90
	}

	analysis.FailureClusters = clusterFailures(runs)
	return analysis
}

// percentile uses the nearest-rank method over an ascending-sorted slice.
func percentile(sorted []int64, q float64) int64 {
	idx := int(q*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// clusterFailures groups completed failed runs by signature and ranks the
// clusters: higher count first, equal counts broken by most recent
// occurrence.
func clusterFailures(runs []models.WorkflowRun) []models.FailureCluster {
	byKey := make(map[models.FailureSignature]*models.FailureCluster)
	var order []models.FailureSignature

	for _, run := range runs {
		if run.Conclusion != models.ConclusionFailure || run.Failure == nil {
			continue
		}
		key := *run.Failure
		seen := run.LastActivity()

		cluster, ok := byKey[key]
		if !ok {
			cluster = &models.FailureCluster{
				Signature: key,
				FirstSeen: seen,
				LastSeen:  seen,
			}
			byKey[key] = cluster
			order = append(order, key)
		}
		cluster.Count++
		if seen.Before(cluster.FirstSeen) {
			cluster.FirstSeen = seen
		}
		if seen.After(cluster.LastSeen) {
			cluster.LastSeen = seen
		}
		cluster.Branches = appendUnique(cluster.Branches, run.Branch)
	}

	clusters := make([]models.FailureCluster, 0, len(order))
	for _, key := range order {
		sort.Strings(byKey[key].Branches)
		clusters = append(clusters, *byKey[key])
	}
	sort.SliceStable(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].LastSeen.After(clusters[j].LastSeen)
	})
	return clusters
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}

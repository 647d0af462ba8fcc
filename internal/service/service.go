package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lei/actions-gateway/internal/analyze"
	"github.com/lei/actions-gateway/internal/config"
	"github.com/lei/actions-gateway/internal/ingest"
	"github.com/lei/actions-gateway/internal/models"
	"github.com/lei/actions-gateway/internal/store"
	"github.com/lei/actions-gateway/pkg/logger"
)

var (
	// ErrRunNotFound indicates no events for the run are retained
	ErrRunNotFound = errors.New("run not found")
	// ErrRunNotFailed indicates the run's derived conclusion is not failure
	ErrRunNotFailed = errors.New("run did not fail")
	// ErrInvalidFilter indicates a query parameter out of range
	ErrInvalidFilter = errors.New("invalid filter")
)

// defaultRecentLimit bounds recent-event queries that pass no limit.
const defaultRecentLimit = 20

// Service is the query facade: the single entry point analysis tools call.
// It composes the store and the analysis engines and returns immutable
// snapshots; no live references into the store ever escape.
type Service struct {
	store         *store.EventStore
	eventLog      store.EventLog // may be nil
	normalizer    *ingest.Normalizer
	suggester     *analyze.Suggester
	templates     []models.Template
	deployMarkers []string
	logger        *logger.Logger
}

// NewService creates a new service instance. eventLog may be nil when no
// durable log is configured.
func NewService(st *store.EventStore, eventLog store.EventLog, table *config.TemplateTable, deployMarkers []string, log *logger.Logger) *Service {
	return &Service{
		store:         st,
		eventLog:      eventLog,
		normalizer:    ingest.NewNormalizer(),
		suggester:     analyze.NewSuggester(table.Rules, table.TypeAliases, table.Fallback),
		templates:     table.Templates,
		deployMarkers: deployMarkers,
		logger:        log,
	}
}

// getLogger retrieves the request-scoped logger from context or falls back
// to the service logger
func (s *Service) getLogger(ctx context.Context) *logger.Logger {
	if ctxLogger, ok := logger.FromContext(ctx); ok {
		return ctxLogger
	}
	return s.logger
}

// Ingest normalizes and stores one raw webhook payload. Malformed payloads
// return the normalization error and are dropped; one bad payload never
// blocks subsequent ones. Durable-log failures are logged and swallowed so
// the in-memory path keeps serving.
func (s *Service) Ingest(ctx context.Context, deliveryID string, payload map[string]any) (*models.WorkflowEvent, error) {
	log := s.getLogger(ctx)

	ev, err := s.normalizer.Normalize(deliveryID, payload)
	if err != nil {
		log.Warn("service: dropping malformed payload",
			"delivery_id", deliveryID,
			"error", err)
		return nil, err
	}

	stored := s.store.Append(*ev)

	if s.eventLog != nil {
		if err := s.eventLog.Append(ctx, stored); err != nil {
			log.Error("service: event log append failed",
				"event_id", stored.EventID,
				"error", err)
		}
	}

	log.Debug("service: event ingested",
		"event_id", stored.EventID,
		"run_id", stored.RunID,
		"repo", stored.Repo,
		"action", stored.Action)
	return &stored, nil
}

// ReplayEventLog rebuilds the in-memory store from the durable log. Called
// once at startup, before the transport accepts traffic.
func (s *Service) ReplayEventLog(ctx context.Context) error {
	if s.eventLog == nil {
		return nil
	}

	count := 0
	err := s.eventLog.Replay(ctx, func(e models.WorkflowEvent) error {
		s.store.Append(e)
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("replay event log: %w", err)
	}

	s.logger.Info("service: event log replayed", "events", count)
	return nil
}

// GetRecentEvents returns retained events most recent first. A zero limit
// gets the default; a negative one is an invalid filter.
func (s *Service) GetRecentEvents(ctx context.Context, limit int, f store.Filter) ([]models.WorkflowEvent, error) {
	log := s.getLogger(ctx)

	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit %d", ErrInvalidFilter, limit)
	}
	if limit == 0 {
		limit = defaultRecentLimit
	}

	events := s.store.Recent(limit, f)
	log.Debug("service: recent events queried",
		"limit", limit,
		"count", len(events))
	return events, nil
}

// AnalyzeCIResults computes rolling metrics over runs matching the filter.
func (s *Service) AnalyzeCIResults(ctx context.Context, f store.Filter) (models.CIAnalysis, error) {
	log := s.getLogger(ctx)

	runs := s.store.RunsMatching(f)
	analysis := analyze.Analyze(runs)

	log.Debug("service: ci results analyzed",
		"total_runs", analysis.TotalRuns,
		"completed_runs", analysis.CompletedRuns,
		"in_flight", analysis.InFlightRuns)
	return analysis, nil
}

// CreateDeploymentSummary analyzes deployment-tagged runs only and reports
// the most recent one in detail.
func (s *Service) CreateDeploymentSummary(ctx context.Context, f store.Filter) (models.DeploymentSummary, error) {
	log := s.getLogger(ctx)

	var deployments []models.WorkflowRun
	for _, run := range s.store.RunsMatching(f) {
		if s.isDeployment(run) {
			deployments = append(deployments, run)
		}
	}

	summary := models.DeploymentSummary{Analysis: analyze.Analyze(deployments)}
	if len(deployments) > 0 {
		// RunsMatching orders by most recent activity first.
		latest := deployments[0]
		summary.LatestRun = &latest
	}

	log.Debug("service: deployment summary created",
		"deployment_runs", len(deployments))
	return summary, nil
}

// isDeployment reports whether a run is deployment-tagged: its workflow name
// or branch contains one of the configured markers.
func (s *Service) isDeployment(run models.WorkflowRun) bool {
	name := strings.ToLower(run.WorkflowName)
	branch := strings.ToLower(run.Branch)
	for _, marker := range s.deployMarkers {
		m := strings.ToLower(marker)
		if strings.Contains(name, m) || strings.Contains(branch, m) {
			return true
		}
	}
	return false
}

// TroubleshootWorkflowFailure builds failure evidence for a failed run:
// its signature and how often the same signature recurs across the repo's
// retained history.
func (s *Service) TroubleshootWorkflowFailure(ctx context.Context, runID string) (*models.TroubleshootReport, error) {
	log := s.getLogger(ctx)

	run, ok := s.store.RunForID(runID)
	if !ok {
		log.Debug("service: run not found", "run_id", runID)
		return nil, ErrRunNotFound
	}
	if run.Conclusion != models.ConclusionFailure {
		log.Debug("service: run did not fail",
			"run_id", runID,
			"conclusion", run.Conclusion)
		return nil, ErrRunNotFailed
	}

	history := s.store.RunsMatching(store.Filter{Repo: run.Repo})
	report := analyze.Troubleshoot(run, history)

	log.Info("service: failure troubleshot",
		"run_id", runID,
		"occurrences", report.Occurrences,
		"recurring", report.Recurring)
	return &report, nil
}

// SuggestTemplate scores PR templates against a changed-file set.
func (s *Service) SuggestTemplate(ctx context.Context, changedFiles []string) []models.TemplateScore {
	scores := s.suggester.Suggest(changedFiles)
	s.getLogger(ctx).Debug("service: templates suggested",
		"files", len(changedFiles),
		"candidates", len(scores))
	return scores
}

// SuggestTemplateByType resolves a caller-identified change type to a
// template, falling back to the default for unknown types.
func (s *Service) SuggestTemplateByType(ctx context.Context, changeType string) models.Template {
	filename := s.suggester.SuggestByType(changeType)
	for _, t := range s.templates {
		if t.Filename == filename {
			return t
		}
	}
	return models.Template{Filename: filename}
}

// GetPRTemplates returns the configured template identities.
func (s *Service) GetPRTemplates(ctx context.Context) []models.Template {
	out := make([]models.Template, len(s.templates))
	copy(out, s.templates)
	return out
}

// GetWorkflowStatus returns the latest run per workflow name, optionally
// restricted to one workflow.
func (s *Service) GetWorkflowStatus(ctx context.Context, workflowName string) ([]models.WorkflowStatus, error) {
	log := s.getLogger(ctx)

	seen := make(map[string]bool)
	var out []models.WorkflowStatus
	// Runs arrive most recent first, so the first run per name is the
	// latest one.
	for _, run := range s.store.RunsMatching(store.Filter{}) {
		if run.WorkflowName == "" {
			continue
		}
		if workflowName != "" && run.WorkflowName != workflowName {
			continue
		}
		if seen[run.WorkflowName] {
			continue
		}
		seen[run.WorkflowName] = true
		out = append(out, models.WorkflowStatus{
			Name:       run.WorkflowName,
			RunID:      run.RunID,
			Status:     run.Status,
			Conclusion: run.Conclusion,
			UpdatedAt:  run.LastActivity(),
			HTMLURL:    run.HTMLURL,
		})
	}

	log.Debug("service: workflow status queried",
		"workflow", workflowName,
		"count", len(out))
	return out, nil
}

// Close releases the durable event log, if any.
func (s *Service) Close() error {
	if s.eventLog != nil {
		return s.eventLog.Close()
	}
	return nil
}

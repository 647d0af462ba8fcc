// Package store holds the bounded recent history of workflow events and
// derives run aggregates from it. The EventStore is the only shared mutable
// state in the process.
package store

import (
	"sync"
	"time"

	"github.com/lei/actions-gateway/internal/models"
)

// Filter narrows event and run queries. Zero-value fields are ignored;
// non-zero predicates are conjunctive.
type Filter struct {
	Repo   string
	Branch string
	Since  time.Time
}

func (f Filter) matchesEvent(e models.WorkflowEvent) bool {
	if f.Repo != "" && e.Repo != f.Repo {
		return false
	}
	if f.Branch != "" && e.Branch != f.Branch {
		return false
	}
	if !f.Since.IsZero() && e.ReceivedAt.Before(f.Since) {
		return false
	}
	return true
}

// EventStore is a bounded, concurrency-safe collection of recent workflow
// events. All mutation is serialized under one write lock; reads take the
// read lock and copy out, so no caller ever observes a partial append.
type EventStore struct {
	mu        sync.RWMutex
	events    []models.WorkflowEvent // arrival order, oldest first
	maxEvents int
	maxAge    time.Duration
	now       func() time.Time
}

// New creates a store enforcing both retention bounds. A zero maxEvents or
// maxAge disables that bound.
func New(maxEvents int, maxAge time.Duration) *EventStore {
	return &EventStore{
		maxEvents: maxEvents,
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// Append inserts an event and enforces the retention window. It always
// succeeds. The store stamps ReceivedAt unless the event already carries one,
// so replayed events keep their original ingestion time. Returns the event
// as stored.
func (s *EventStore) Append(e models.WorkflowEvent) models.WorkflowEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ReceivedAt.IsZero() {
		e.ReceivedAt = s.now()
	}
	s.events = append(s.events, e)
	s.evictLocked()
	return e
}

// evictLocked drops the oldest events while either retention bound is
// exceeded. Eviction is FIFO by ReceivedAt and operates at event granularity;
// a partially evicted run simply has incomplete history.
func (s *EventStore) evictLocked() {
	drop := 0
	if s.maxEvents > 0 && len(s.events) > s.maxEvents {
		drop = len(s.events) - s.maxEvents
	}
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		for drop < len(s.events) && s.events[drop].ReceivedAt.Before(cutoff) {
			drop++
		}
	}
	if drop > 0 {
		s.events = append([]models.WorkflowEvent(nil), s.events[drop:]...)
	}
}

// Len reports the number of retained events.
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Recent returns retained events matching f, most recent first. limit bounds
// the result size; limit <= 0 means no bound.
func (s *EventStore) Recent(limit int, f Filter) []models.WorkflowEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.WorkflowEvent, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		if !f.matchesEvent(s.events[i]) {
			continue
		}
		out = append(out, s.events[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// EventsForRun returns all retained events for a run, oldest first.
func (s *EventStore) EventsForRun(runID string) []models.WorkflowEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.WorkflowEvent
	for _, e := range s.events {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out
}

// RunForID derives the current aggregate for one run. The second return is
// false when no events for the run are retained.
func (s *EventStore) RunForID(runID string) (models.WorkflowRun, bool) {
	events := s.EventsForRun(runID)
	if len(events) == 0 {
		return models.WorkflowRun{}, false
	}
	return deriveRun(events), true
}

// RunsMatching derives aggregates for every run with at least one matching
// retained event, ordered by most recent activity first. Aggregation is
// computed fresh on every call; nothing is cached beyond it.
func (s *EventStore) RunsMatching(f Filter) []models.WorkflowRun {
	s.mu.RLock()
	byRun := make(map[string][]models.WorkflowEvent)
	order := make([]string, 0)
	for _, e := range s.events {
		if !f.matchesEvent(e) {
			continue
		}
		if _, seen := byRun[e.RunID]; !seen {
			order = append(order, e.RunID)
		}
		byRun[e.RunID] = append(byRun[e.RunID], e)
	}
	s.mu.RUnlock()

	runs := make([]models.WorkflowRun, 0, len(order))
	for _, id := range order {
		runs = append(runs, deriveRun(byRun[id]))
	}
	// Most recent activity first; events arrive in ReceivedAt order, so a
	// stable reverse-by-activity sort keeps recency queries deterministic.
	sortRunsByActivity(runs)
	return runs
}

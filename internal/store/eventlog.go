package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lei/actions-gateway/internal/models"
)

// ErrTimeout indicates the durable log could not complete within the
// caller's deadline.
var ErrTimeout = errors.New("event log timeout")

// EventLog is an optional durable append-only record of workflow events,
// replayable to rebuild the in-memory store on restart. The in-memory
// EventStore never depends on it; ingestion treats log failures as
// non-fatal.
type EventLog interface {
	// Append persists one event. Must respect the context deadline and
	// return an error wrapping ErrTimeout when it expires.
	Append(ctx context.Context, e models.WorkflowEvent) error

	// Replay invokes fn for every persisted event in ReceivedAt order.
	Replay(ctx context.Context, fn func(models.WorkflowEvent) error) error

	// Close releases any resources held by the log.
	Close() error
}

// SupportedLogDrivers lists the available event log drivers.
var SupportedLogDrivers = []string{"bbolt", "none"}

// NewEventLog creates an event log for the given driver. Driver "none" (or
// empty) returns a nil log, meaning events live only in process memory.
func NewEventLog(driver, path string) (EventLog, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "none":
		return nil, nil
	case "bbolt":
		if path == "" {
			return nil, fmt.Errorf("event log path is required for driver bbolt")
		}
		return NewBoltLog(path)
	default:
		return nil, fmt.Errorf("unsupported event log driver: %s (supported: %v)", driver, SupportedLogDrivers)
	}
}

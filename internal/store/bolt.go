package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/lei/actions-gateway/internal/models"
)

// eventsBucket holds all persisted events, keyed so that bbolt's key order
// is replay order.
const eventsBucket = "events"

// BoltLog implements EventLog on BoltDB.
type BoltLog struct {
	db *bolt.DB
}

// NewBoltLog opens (or creates) a BoltDB-backed event log at path.
func NewBoltLog(path string) (*BoltLog, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open event log at %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(eventsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create events bucket: %w", err)
	}

	return &BoltLog{db: db}, nil
}

// logKey orders events by ingestion time; the event id suffix keeps keys
// unique when two events share a nanosecond.
func logKey(e models.WorkflowEvent) []byte {
	return []byte(fmt.Sprintf("%020d/%s", e.ReceivedAt.UnixNano(), e.EventID))
}

// Append persists one event.
func (l *BoltLog) Append(ctx context.Context, e models.WorkflowEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("append event %s: %w", e.EventID, ErrTimeout)
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.EventID, err)
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(eventsBucket)).Put(logKey(e), data)
	})
}

// Replay streams every persisted event to fn in key (ReceivedAt) order.
func (l *BoltLog) Replay(ctx context.Context, fn func(models.WorkflowEvent) error) error {
	return l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(eventsBucket)).ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("replay event log: %w", ErrTimeout)
			}
			var e models.WorkflowEvent
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshal event %s: %w", string(k), err)
			}
			return fn(e)
		})
	})
}

// Close releases the underlying database.
func (l *BoltLog) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

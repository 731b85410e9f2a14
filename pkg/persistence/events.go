package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"conductor/pkg/eventlog"
)

// Store persists run events to SQLite. It implements eventlog.Sink so it can
// sit behind a fanout next to the JSONL writer.
type Store struct {
	db *sql.DB
}

// NewStore creates an event store over an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts one run event.
func (s *Store) Append(event *eventlog.RunEvent) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO run_events (run_id, stage_id, event_type, role, reason, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.RunID, event.StageID, string(event.EventType), event.Role, event.Reason,
		ts.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run event: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close event database: %w", err)
	}
	return nil
}

// EventsByRun returns all events recorded for a run in insertion order.
func (s *Store) EventsByRun(runID string) ([]*eventlog.RunEvent, error) {
	rows, err := s.db.Query(
		`SELECT run_id, stage_id, event_type, role, reason, timestamp
		 FROM run_events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query run events: %w", err)
	}
	defer rows.Close()

	var events []*eventlog.RunEvent
	for rows.Next() {
		var event eventlog.RunEvent
		var eventType, ts string
		if err := rows.Scan(&event.RunID, &event.StageID, &eventType, &event.Role, &event.Reason, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan run event: %w", err)
		}
		event.EventType = eventlog.EventType(eventType)
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to parse event timestamp %q: %w", ts, err)
		}
		event.Timestamp = parsed
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate run events: %w", err)
	}

	return events, nil
}

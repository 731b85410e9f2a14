// Package persistence provides SQLite-based storage for run events.
package persistence

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"conductor/pkg/logx"
)

const schema = `
CREATE TABLE IF NOT EXISTS run_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL,
	stage_id   TEXT NOT NULL DEFAULT '',
	event_type TEXT NOT NULL,
	role       TEXT NOT NULL DEFAULT '',
	reason     TEXT NOT NULL DEFAULT '',
	timestamp  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id);
`

// Open opens the event database at dbPath and ensures the schema exists.
// This function is idempotent and safe to call multiple times.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logx.NewLogger("persistence").Info("event database ready: %s", dbPath)

	return db, nil
}

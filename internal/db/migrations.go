package db

import (
	"context"
	"fmt"
)

// migrations are applied in order; PRAGMA user_version records how many ran.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS toggle_audit (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		request_id TEXT NOT NULL,
		agent_id TEXT NOT NULL,
		paused INTEGER NOT NULL,
		affected_rows INTEGER DEFAULT 0,
		error_kind TEXT,
		error TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_toggle_audit_timestamp ON toggle_audit(timestamp);`,

	`CREATE TABLE IF NOT EXISTS ui_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`,

	`CREATE INDEX IF NOT EXISTS idx_toggle_audit_agent ON toggle_audit(agent_id, timestamp);`,
}

// SchemaVersion returns the number of migrations applied.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	if err := db.QueryRowContext(context.Background(), "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return version, nil
}

func (db *DB) migrate() error {
	version, err := db.SchemaVersion()
	if err != nil {
		return err
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.BeginTx(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(context.Background(), migrations[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		// PRAGMA does not accept bound parameters
		if _, err := tx.ExecContext(context.Background(), fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", i+1, err)
		}
	}

	return nil
}

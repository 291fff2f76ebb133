package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/j-veylop/llmlog-dashboard-tui/internal/logger"
	"github.com/j-veylop/llmlog-dashboard-tui/internal/models"
)

// InsertToggleAudit records a pause/resume attempt and trims old rows.
func (db *DB) InsertToggleAudit(audit *models.ToggleAudit) error {
	query := `
		INSERT INTO toggle_audit (
			timestamp, request_id, agent_id, paused, affected_rows, error_kind, error
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	timestamp := audit.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := db.ExecContext(context.Background(), query,
		timestamp.UTC().Format(timeLayout),
		audit.RequestID,
		audit.AgentID,
		audit.Paused,
		audit.AffectedRows,
		nullString(audit.ErrorKind),
		nullString(audit.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to insert toggle audit: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		audit.ID = id
	}

	if err := db.pruneToggleAudit(maxAuditRows); err != nil {
		logger.Warn("failed to prune toggle audit", "error", err)
	}

	return nil
}

// RecentToggleAudits returns the most recent toggle attempts, newest first.
func (db *DB) RecentToggleAudits(limit int) ([]models.ToggleAudit, error) {
	query := `
		SELECT id, timestamp, request_id, agent_id, paused, affected_rows, error_kind, error
		FROM toggle_audit
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(context.Background(), query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query toggle audit: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var audits []models.ToggleAudit
	for rows.Next() {
		var a models.ToggleAudit
		var ts sqlTime
		var errKind, errText sql.NullString

		if err := rows.Scan(
			&a.ID,
			&ts,
			&a.RequestID,
			&a.AgentID,
			&a.Paused,
			&a.AffectedRows,
			&errKind,
			&errText,
		); err != nil {
			return nil, fmt.Errorf("failed to scan toggle audit: %w", err)
		}

		a.Timestamp = ts.Time
		a.ErrorKind = errKind.String
		a.Error = errText.String
		audits = append(audits, a)
	}

	return audits, rows.Err()
}

func (db *DB) pruneToggleAudit(keep int) error {
	query := `
		DELETE FROM toggle_audit
		WHERE id NOT IN (SELECT id FROM toggle_audit ORDER BY id DESC LIMIT ?)
	`
	_, err := db.ExecContext(context.Background(), query, keep)
	return err
}

// SetUIState stores a UI preference.
func (db *DB) SetUIState(key, value string) error {
	query := `
		INSERT INTO ui_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(context.Background(), query, key, value, time.Now().UTC().Format(timeLayout)); err != nil {
		return fmt.Errorf("failed to save ui state %s: %w", key, err)
	}
	return nil
}

// GetUIState loads a UI preference. ok is false when the key was never set.
func (db *DB) GetUIState(key string) (value string, ok bool, err error) {
	err = db.QueryRowContext(context.Background(), "SELECT value FROM ui_state WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load ui state %s: %w", key, err)
	}
	return value, true, nil
}

// sqlTime scans DATETIME columns, which the driver may return as time.Time
// or as text depending on how the value was written.
type sqlTime struct {
	time.Time
}

func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time = time.Time{}
	case time.Time:
		t.Time = v
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
	return nil
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05.999999999 -0700 MST"} {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

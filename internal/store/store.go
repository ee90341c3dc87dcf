// Package store provides the durable sqlite-backed store for queued
// operations. The store is the durability boundary for offline-made
// changes: a record survives process restarts from the moment Append
// returns until Remove is called after confirmed delivery.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/kimhsiao/fieldsync/internal/errors"
	"github.com/kimhsiao/fieldsync/internal/models"
	"github.com/kimhsiao/fieldsync/internal/uuid"
)

// DBFileName is the sqlite file created under the data directory.
const DBFileName = "fieldsync.db"

// Store persists queued operations across process restarts.
type Store struct {
	db *sql.DB
}

type migration struct {
	Version     int
	Description string
	SQL         string
}

// migrations are applied in order; applied versions are tracked in
// schema_migrations.
var migrations = []migration{
	{
		Version:     1,
		Description: "create queued_operations",
		SQL: `
		CREATE TABLE IF NOT EXISTS queued_operations (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			action_name TEXT NOT NULL,
			payload TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			enqueued_at INTEGER NOT NULL
		);`,
	},
}

// Open opens the queue database under dataDir.
// The database is opened with:
// - WAL mode for durability with concurrent readers
// - foreign key constraints enabled
// - a single writer connection (SQLite doesn't support multiple writers)
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to create data directory", err)
	}

	dbPath := filepath.Join(dataDir, DBFileName)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to open database", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to enable WAL mode", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to enable foreign keys", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// migrate applies pending schema migrations.
func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at INTEGER NOT NULL,
		description TEXT NOT NULL
	);`
	if _, err := s.db.Exec(query); err != nil {
		return apperrors.Wrap(apperrors.ErrMigration, "failed to create schema_migrations", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return apperrors.Wrap(apperrors.ErrMigration, "failed to read schema version", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		if _, err := s.db.Exec(m.SQL); err != nil {
			return apperrors.Wrap(apperrors.ErrMigration,
				fmt.Sprintf("failed to apply migration V%d (%s)", m.Version, m.Description), err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
			m.Version, time.Now().Unix(), m.Description,
		); err != nil {
			return apperrors.Wrap(apperrors.ErrMigration,
				fmt.Sprintf("failed to record migration V%d", m.Version), err)
		}
	}
	return nil
}

// Record pairs a decoded operation with any per-row decode error, so that a
// corrupt row is surfaced without blocking processing of valid rows.
type Record struct {
	Op  *models.QueuedOperation
	Err error
}

// Corrupt reports whether this record failed to decode.
func (r Record) Corrupt() bool {
	return r.Err != nil
}

// Append persists a new operation and returns its id. Appending is atomic:
// either the full record is durable or the error is reported to the caller.
func (s *Store) Append(actionName string, payload json.RawMessage) (models.UUID, error) {
	if actionName == "" {
		return "", apperrors.New(apperrors.ErrInvalid, "action name must not be empty")
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return "", apperrors.New(apperrors.ErrInvalid, "payload must be valid JSON")
	}

	id := models.UUID(uuid.New())
	_, err := s.db.Exec(
		"INSERT INTO queued_operations (id, action_name, payload, attempts, last_error, enqueued_at) VALUES (?, ?, ?, 0, '', ?)",
		string(id), actionName, string(payload), time.Now().UnixMilli(),
	)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to append operation", err)
	}
	return id, nil
}

// List returns all queued operations in strict enqueue (FIFO) order.
// Rows that fail to decode are returned with Record.Err set; valid rows
// before and after a corrupt one remain processable.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT seq, id, action_name, payload, attempts, last_error, enqueued_at
		FROM queued_operations ORDER BY seq ASC`)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to list operations", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var op models.QueuedOperation
		var payload string
		if err := rows.Scan(&op.Seq, &op.ID, &op.ActionName, &payload, &op.Attempts, &op.LastError, &op.EnqueuedAt); err != nil {
			records = append(records, Record{
				Op:  &op,
				Err: apperrors.Wrap(apperrors.ErrRecordCorrupt, "failed to scan row", err),
			})
			continue
		}
		op.Payload = json.RawMessage(payload)
		if op.ActionName == "" || !json.Valid(op.Payload) {
			records = append(records, Record{
				Op:  &op,
				Err: apperrors.New(apperrors.ErrRecordCorrupt, "stored record is undecodable"),
			})
			continue
		}
		records = append(records, Record{Op: &op})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to iterate operations", err)
	}
	return records, nil
}

// Remove deletes the operation with the given id. Called only after the
// remote handler has confirmed success.
func (s *Store) Remove(id models.UUID) error {
	res, err := s.db.Exec("DELETE FROM queued_operations WHERE id = ?", string(id))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to remove operation", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to confirm removal", err)
	}
	if affected == 0 {
		return apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("operation %s not found", id))
	}
	return nil
}

// MarkAttempt increments the attempt counter and records the latest
// delivery error. Diagnostic only; it never influences ordering.
func (s *Store) MarkAttempt(id models.UUID, lastError string) error {
	_, err := s.db.Exec(
		"UPDATE queued_operations SET attempts = attempts + 1, last_error = ? WHERE id = ?",
		lastError, string(id),
	)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to mark attempt", err)
	}
	return nil
}

// Len returns the number of queued operations.
func (s *Store) Len() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM queued_operations").Scan(&n); err != nil {
		return 0, apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to count operations", err)
	}
	return n, nil
}

// Stats returns queued operation counts grouped by action name.
func (s *Store) Stats() (map[string]int, error) {
	rows, err := s.db.Query("SELECT action_name, COUNT(*) FROM queued_operations GROUP BY action_name")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to read stats", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrStoreUnavailable, "failed to scan stats row", err)
		}
		stats[action] = count
	}
	return stats, rows.Err()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

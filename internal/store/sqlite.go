// Package store provides storage backends for the activity log.
//
// This file implements the SQLite-backed activity store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/oryshchuk/leotrack/internal/models"
	sqlite3 "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	slog.Debug("Opening SQLite database connection")
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	// Run migrations to ensure the activities table exists
	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

const sqliteActivityColumns = `id, type, subtype, start_time, end_time, value, recorded_at`

func (s *SQLiteStore) AddActivity(ctx context.Context, rec models.ActivityRecord) (int64, error) {
	var endTime interface{}
	if rec.EndTime != nil {
		endTime = formatInstant(*rec.EndTime)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (type, subtype, start_time, end_time, value, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`,
		string(rec.Type), nilIfEmpty(rec.Subtype), formatInstant(rec.StartTime), endTime, nilIfEmpty(rec.Value), formatInstant(time.Now()))
	if err != nil {
		slog.Error("SQLiteStore AddActivity failed", "error", err, "type", rec.Type)
		return 0, fmt.Errorf("failed to insert %s activity: %w", rec.Type, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read inserted activity id: %w", err)
	}
	slog.Debug("SQLiteStore AddActivity succeeded", "id", id, "type", rec.Type)
	return id, nil
}

func (s *SQLiteStore) OpenSleep(ctx context.Context, start time.Time) (int64, error) {
	// Single conditional insert: the open-session check and the write cannot
	// be separated by a concurrent start. The partial unique index catches
	// the remaining window between two racing statements.
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (type, start_time, recorded_at)
		 SELECT 'SLEEP', ?, ?
		 WHERE NOT EXISTS (SELECT 1 FROM activities WHERE type = 'SLEEP' AND end_time IS NULL)`,
		formatInstant(start), formatInstant(time.Now()))
	if err != nil {
		if sqlErr, ok := err.(sqlite3.Error); ok && sqlErr.Code == sqlite3.ErrConstraint {
			return 0, ErrOpenSleepExists
		}
		slog.Error("SQLiteStore OpenSleep failed", "error", err)
		return 0, fmt.Errorf("failed to open sleep session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read open sleep result: %w", err)
	}
	if affected == 0 {
		slog.Debug("SQLiteStore OpenSleep rejected, session already open")
		return 0, ErrOpenSleepExists
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read opened sleep id: %w", err)
	}
	slog.Debug("SQLiteStore OpenSleep succeeded", "id", id)
	return id, nil
}

func (s *SQLiteStore) CloseSleep(ctx context.Context, end time.Time) (models.ActivityRecord, error) {
	endText := formatInstant(end)
	res, err := s.db.ExecContext(ctx,
		`UPDATE activities SET end_time = ?
		 WHERE id = (SELECT id FROM activities WHERE type = 'SLEEP' AND end_time IS NULL ORDER BY id DESC LIMIT 1)`,
		endText)
	if err != nil {
		slog.Error("SQLiteStore CloseSleep failed", "error", err)
		return models.ActivityRecord{}, fmt.Errorf("failed to close sleep session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.ActivityRecord{}, fmt.Errorf("failed to read close sleep result: %w", err)
	}
	if affected == 0 {
		slog.Debug("SQLiteStore CloseSleep found nothing open")
		return models.ActivityRecord{}, ErrNoOpenSleep
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteActivityColumns+` FROM activities WHERE type = 'SLEEP' AND end_time = ? ORDER BY id DESC LIMIT 1`,
		endText)
	rec, err := scanActivity(row)
	if err != nil {
		slog.Error("SQLiteStore CloseSleep readback failed", "error", err)
		return models.ActivityRecord{}, fmt.Errorf("failed to read closed sleep session: %w", err)
	}
	slog.Debug("SQLiteStore CloseSleep succeeded", "id", rec.ID)
	return rec, nil
}

func (s *SQLiteStore) OpenSleepRecord(ctx context.Context) (*models.ActivityRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteActivityColumns+` FROM activities WHERE type = 'SLEEP' AND end_time IS NULL ORDER BY id DESC LIMIT 1`)
	rec, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore OpenSleepRecord failed", "error", err)
		return nil, fmt.Errorf("failed to query open sleep session: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteStore) ListActivities(ctx context.Context, t models.ActivityType, from, to time.Time) ([]models.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteActivityColumns+` FROM activities
		 WHERE type = ? AND start_time >= ? AND start_time <= ?
		 ORDER BY start_time, id`,
		string(t), formatInstant(from), formatInstant(to))
	if err != nil {
		slog.Error("SQLiteStore ListActivities query failed", "error", err, "type", t)
		return nil, fmt.Errorf("failed to query %s activities: %w", t, err)
	}
	defer rows.Close()

	var out []models.ActivityRecord
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			slog.Error("SQLiteStore ListActivities scan failed", "error", err, "type", t)
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity rows: %w", err)
	}
	slog.Debug("SQLiteStore ListActivities succeeded", "type", t, "count", len(out))
	return out, nil
}

func (s *SQLiteStore) CountActivities(ctx context.Context, t models.ActivityType, from, to time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activities WHERE type = ? AND start_time >= ? AND start_time <= ?`,
		string(t), formatInstant(from), formatInstant(to)).Scan(&count)
	if err != nil {
		slog.Error("SQLiteStore CountActivities failed", "error", err, "type", t)
		return 0, fmt.Errorf("failed to count %s activities: %w", t, err)
	}
	return count, nil
}

func (s *SQLiteStore) CountBySubtype(ctx context.Context, t models.ActivityType, from, to time.Time) ([]SubtypeCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(subtype, ''), COUNT(*) FROM activities
		 WHERE type = ? AND start_time >= ? AND start_time <= ?
		 GROUP BY subtype ORDER BY subtype`,
		string(t), formatInstant(from), formatInstant(to))
	if err != nil {
		slog.Error("SQLiteStore CountBySubtype query failed", "error", err, "type", t)
		return nil, fmt.Errorf("failed to group %s activities: %w", t, err)
	}
	defer rows.Close()

	var out []SubtypeCount
	for rows.Next() {
		var sc SubtypeCount
		if err := rows.Scan(&sc.Subtype, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan subtype count: %w", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subtype counts: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	slog.Debug("SQLiteStore Close invoked")
	return s.db.Close()
}

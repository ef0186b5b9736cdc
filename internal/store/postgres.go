// Package store provides storage backends for the activity log.
//
// This file implements the PostgreSQL-backed activity store.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/lib/pq"
	"github.com/oryshchuk/leotrack/internal/models"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	slog.Debug("Opening Postgres database connection")
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	slog.Debug("Postgres ping successful")

	// Run migrations to ensure the activities table exists
	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

const postgresActivityColumns = `id, type, subtype, start_time, end_time, value, recorded_at`

func (s *PostgresStore) AddActivity(ctx context.Context, rec models.ActivityRecord) (int64, error) {
	var endTime interface{}
	if rec.EndTime != nil {
		endTime = formatInstant(*rec.EndTime)
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO activities (type, subtype, start_time, end_time, value, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		string(rec.Type), nilIfEmpty(rec.Subtype), formatInstant(rec.StartTime), endTime, nilIfEmpty(rec.Value), formatInstant(time.Now())).Scan(&id)
	if err != nil {
		slog.Error("PostgresStore AddActivity failed", "error", err, "type", rec.Type)
		return 0, fmt.Errorf("failed to insert %s activity: %w", rec.Type, err)
	}
	slog.Debug("PostgresStore AddActivity succeeded", "id", id, "type", rec.Type)
	return id, nil
}

func (s *PostgresStore) OpenSleep(ctx context.Context, start time.Time) (int64, error) {
	// Single conditional insert; the partial unique index closes the window
	// between two racing statements.
	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO activities (type, start_time, recorded_at)
		 SELECT 'SLEEP', $1, $2
		 WHERE NOT EXISTS (SELECT 1 FROM activities WHERE type = 'SLEEP' AND end_time IS NULL)
		 RETURNING id`,
		formatInstant(start), formatInstant(time.Now())).Scan(&id)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore OpenSleep rejected, session already open")
		return 0, ErrOpenSleepExists
	}
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return 0, ErrOpenSleepExists
		}
		slog.Error("PostgresStore OpenSleep failed", "error", err)
		return 0, fmt.Errorf("failed to open sleep session: %w", err)
	}
	slog.Debug("PostgresStore OpenSleep succeeded", "id", id)
	return id, nil
}

func (s *PostgresStore) CloseSleep(ctx context.Context, end time.Time) (models.ActivityRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE activities SET end_time = $1
		 WHERE id = (SELECT id FROM activities WHERE type = 'SLEEP' AND end_time IS NULL ORDER BY id DESC LIMIT 1)
		 RETURNING `+postgresActivityColumns,
		formatInstant(end))
	rec, err := scanActivity(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore CloseSleep found nothing open")
		return models.ActivityRecord{}, ErrNoOpenSleep
	}
	if err != nil {
		slog.Error("PostgresStore CloseSleep failed", "error", err)
		return models.ActivityRecord{}, fmt.Errorf("failed to close sleep session: %w", err)
	}
	slog.Debug("PostgresStore CloseSleep succeeded", "id", rec.ID)
	return rec, nil
}

func (s *PostgresStore) OpenSleepRecord(ctx context.Context) (*models.ActivityRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+postgresActivityColumns+` FROM activities WHERE type = 'SLEEP' AND end_time IS NULL ORDER BY id DESC LIMIT 1`)
	rec, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore OpenSleepRecord failed", "error", err)
		return nil, fmt.Errorf("failed to query open sleep session: %w", err)
	}
	return &rec, nil
}

func (s *PostgresStore) ListActivities(ctx context.Context, t models.ActivityType, from, to time.Time) ([]models.ActivityRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+postgresActivityColumns+` FROM activities
		 WHERE type = $1 AND start_time >= $2 AND start_time <= $3
		 ORDER BY start_time, id`,
		string(t), formatInstant(from), formatInstant(to))
	if err != nil {
		slog.Error("PostgresStore ListActivities query failed", "error", err, "type", t)
		return nil, fmt.Errorf("failed to query %s activities: %w", t, err)
	}
	defer rows.Close()

	var out []models.ActivityRecord
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			slog.Error("PostgresStore ListActivities scan failed", "error", err, "type", t)
			return nil, fmt.Errorf("failed to scan activity row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity rows: %w", err)
	}
	slog.Debug("PostgresStore ListActivities succeeded", "type", t, "count", len(out))
	return out, nil
}

func (s *PostgresStore) CountActivities(ctx context.Context, t models.ActivityType, from, to time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM activities WHERE type = $1 AND start_time >= $2 AND start_time <= $3`,
		string(t), formatInstant(from), formatInstant(to)).Scan(&count)
	if err != nil {
		slog.Error("PostgresStore CountActivities failed", "error", err, "type", t)
		return 0, fmt.Errorf("failed to count %s activities: %w", t, err)
	}
	return count, nil
}

func (s *PostgresStore) CountBySubtype(ctx context.Context, t models.ActivityType, from, to time.Time) ([]SubtypeCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(subtype, ''), COUNT(*) FROM activities
		 WHERE type = $1 AND start_time >= $2 AND start_time <= $3
		 GROUP BY subtype ORDER BY subtype`,
		string(t), formatInstant(from), formatInstant(to))
	if err != nil {
		slog.Error("PostgresStore CountBySubtype query failed", "error", err, "type", t)
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

func (s *PostgresStore) Close() error {
	slog.Debug("PostgresStore Close invoked")
	return s.db.Close()
}

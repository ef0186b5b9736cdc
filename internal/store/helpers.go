package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/oryshchuk/leotrack/internal/models"
)

// instantLayout is the ISO-8601 UTC text form used for all stored instants.
// The width is fixed (millisecond precision, trailing Z) so that lexical
// comparison of column values matches chronological order.
const instantLayout = "2006-01-02T15:04:05.000Z"

// formatInstant renders an absolute instant as ISO-8601 UTC text.
func formatInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

// parseInstant reads an ISO-8601 UTC instant back from column text.
func parseInstant(s string) (time.Time, error) {
	t, err := time.Parse(instantLayout, s)
	if err != nil {
		// Tolerate rows written with other ISO-8601 precisions.
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("malformed stored instant %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanActivity scans an ActivityRecord from an activities row in canonical
// column order: id, type, subtype, start_time, end_time, value, recorded_at.
func scanActivity(row rowScanner) (models.ActivityRecord, error) {
	var rec models.ActivityRecord
	var subtype, endTime, value sql.NullString
	var startTime, recordedAt string
	if err := row.Scan(&rec.ID, &rec.Type, &subtype, &startTime, &endTime, &value, &recordedAt); err != nil {
		return rec, err
	}
	rec.Subtype = subtype.String
	rec.Value = value.String

	start, err := parseInstant(startTime)
	if err != nil {
		return rec, fmt.Errorf("scan activity %d: %w", rec.ID, err)
	}
	rec.StartTime = start

	if endTime.Valid {
		end, err := parseInstant(endTime.String)
		if err != nil {
			return rec, fmt.Errorf("scan activity %d: %w", rec.ID, err)
		}
		rec.EndTime = &end
	}

	recorded, err := parseInstant(recordedAt)
	if err != nil {
		return rec, fmt.Errorf("scan activity %d: %w", rec.ID, err)
	}
	rec.RecordedAt = recorded
	return rec, nil
}

// Package store provides storage backends for the activity log.
//
// It includes an in-memory store for tests and persistent SQLite and
// PostgreSQL implementations sharing a single activities table.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oryshchuk/leotrack/internal/models"
)

// Errors reported by the conditional sleep-session writes.
var (
	// ErrOpenSleepExists is returned by OpenSleep when an unterminated
	// sleep row already exists.
	ErrOpenSleepExists = errors.New("open sleep session already exists")
	// ErrNoOpenSleep is returned by CloseSleep when no unterminated sleep
	// row exists.
	ErrNoOpenSleep = errors.New("no open sleep session")
)

// SubtypeCount is one group of a per-subtype histogram.
type SubtypeCount struct {
	Subtype string
	Count   int
}

// Store defines the persistence contract for activity records.
type Store interface {
	// AddActivity inserts a record and returns its assigned id.
	AddActivity(ctx context.Context, rec models.ActivityRecord) (int64, error)

	// OpenSleep inserts a new open sleep row, but only if none is open.
	// The existence check and the insert are a single conditional write, so
	// two concurrent starts cannot both succeed. Returns ErrOpenSleepExists
	// when a session is already open.
	OpenSleep(ctx context.Context, start time.Time) (int64, error)

	// CloseSleep sets the end time on the newest open sleep row (ties broken
	// by highest id) and returns the closed record. Returns ErrNoOpenSleep
	// when nothing is open.
	CloseSleep(ctx context.Context, end time.Time) (models.ActivityRecord, error)

	// OpenSleepRecord returns the current open sleep row, or nil.
	OpenSleepRecord(ctx context.Context) (*models.ActivityRecord, error)

	// ListActivities returns records of one type whose start time falls in
	// [from, to], ordered by start time then id.
	ListActivities(ctx context.Context, t models.ActivityType, from, to time.Time) ([]models.ActivityRecord, error)

	// CountActivities returns the number of records of one type in-window.
	CountActivities(ctx context.Context, t models.ActivityType, from, to time.Time) (int, error)

	// CountBySubtype returns per-subtype counts for one type in-window,
	// ordered by subtype so repeated reports render identically.
	CountBySubtype(ctx context.Context, t models.ActivityType, from, to time.Time) ([]SubtypeCount, error)

	// Close releases underlying resources.
	Close() error
}

// InMemoryStore is a simple in-memory activity log for tests and for running
// without a database DSN.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []models.ActivityRecord
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) AddActivity(ctx context.Context, rec models.ActivityRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.ID = s.nextID
	s.nextID++
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	s.rows = append(s.rows, rec)
	return rec.ID, nil
}

func (s *InMemoryStore) OpenSleep(ctx context.Context, start time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rows {
		if s.rows[i].Type == models.ActivitySleep && s.rows[i].EndTime == nil {
			return 0, ErrOpenSleepExists
		}
	}
	rec := models.ActivityRecord{
		ID:         s.nextID,
		Type:       models.ActivitySleep,
		StartTime:  start.UTC(),
		RecordedAt: time.Now().UTC(),
	}
	s.nextID++
	s.rows = append(s.rows, rec)
	return rec.ID, nil
}

func (s *InMemoryStore) CloseSleep(ctx context.Context, end time.Time) (models.ActivityRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := -1
	for i := range s.rows {
		if s.rows[i].Type == models.ActivitySleep && s.rows[i].EndTime == nil {
			if best < 0 || s.rows[i].ID > s.rows[best].ID {
				best = i
			}
		}
	}
	if best < 0 {
		return models.ActivityRecord{}, ErrNoOpenSleep
	}
	e := end.UTC()
	s.rows[best].EndTime = &e
	return s.rows[best], nil
}

func (s *InMemoryStore) OpenSleepRecord(ctx context.Context) (*models.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *models.ActivityRecord
	for i := range s.rows {
		if s.rows[i].Type == models.ActivitySleep && s.rows[i].EndTime == nil {
			if found == nil || s.rows[i].ID > found.ID {
				rec := s.rows[i]
				found = &rec
			}
		}
	}
	return found, nil
}

func (s *InMemoryStore) ListActivities(ctx context.Context, t models.ActivityType, from, to time.Time) ([]models.ActivityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ActivityRecord
	for _, r := range s.rows {
		if r.Type == t && !r.StartTime.Before(from) && !r.StartTime.After(to) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (s *InMemoryStore) CountActivities(ctx context.Context, t models.ActivityType, from, to time.Time) (int, error) {
	rows, err := s.ListActivities(ctx, t, from, to)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *InMemoryStore) CountBySubtype(ctx context.Context, t models.ActivityType, from, to time.Time) ([]SubtypeCount, error) {
	rows, err := s.ListActivities(ctx, t, from, to)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, r := range rows {
		counts[r.Subtype]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]SubtypeCount, 0, len(keys))
	for _, k := range keys {
		out = append(out, SubtypeCount{Subtype: k, Count: counts[k]})
	}
	return out, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

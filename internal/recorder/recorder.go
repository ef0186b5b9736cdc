// Package recorder validates completed activities and commits them to the
// activity log.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/oryshchuk/leotrack/internal/models"
	"github.com/oryshchuk/leotrack/internal/store"
	"github.com/oryshchuk/leotrack/internal/timeparse"
)

// FeedSubtype is the fixed formula label attached to every feed record.
const FeedSubtype = "Hipp Formula"

// Errors reported to the conversation layer. All are recoverable: the caller
// is informed and nothing is written.
var (
	// ErrSleepConflict means a sleep session is already open.
	ErrSleepConflict = errors.New("sleep session already open")
	// ErrNoOpenSleep means there is no sleep session to close.
	ErrNoOpenSleep = errors.New("no open sleep session")
	// ErrInvalidVolume means the feed volume text is not a positive integer.
	ErrInvalidVolume = errors.New("volume must be a positive integer")
)

// Recorder commits activity records against a Store.
type Recorder struct {
	store store.Store
	now   func() time.Time
}

// New creates a Recorder over the given store.
func New(st store.Store) *Recorder {
	return &Recorder{store: st, now: time.Now}
}

// StartSleep opens a live sleep session starting now. Fails with
// ErrSleepConflict if a session is already open; the check and the insert are
// one conditional write in the store.
func (r *Recorder) StartSleep(ctx context.Context) error {
	id, err := r.store.OpenSleep(ctx, r.now())
	if errors.Is(err, store.ErrOpenSleepExists) {
		slog.Debug("Recorder StartSleep rejected, session already open")
		return ErrSleepConflict
	}
	if err != nil {
		slog.Error("Recorder StartSleep store error", "error", err)
		return fmt.Errorf("start sleep: %w", err)
	}
	slog.Info("Recorder sleep session opened", "id", id)
	return nil
}

// EndSleep closes the most recently opened sleep session at now and returns
// its duration. Fails with ErrNoOpenSleep when nothing is open.
func (r *Recorder) EndSleep(ctx context.Context) (time.Duration, error) {
	rec, err := r.store.CloseSleep(ctx, r.now())
	if errors.Is(err, store.ErrNoOpenSleep) {
		slog.Debug("Recorder EndSleep rejected, nothing open")
		return 0, ErrNoOpenSleep
	}
	if err != nil {
		slog.Error("Recorder EndSleep store error", "error", err)
		return 0, fmt.Errorf("end sleep: %w", err)
	}
	d := rec.Duration()
	slog.Info("Recorder sleep session closed", "id", rec.ID, "duration", d)
	return d, nil
}

// RecordManualSleep resolves both clock texts on today's civil date in the
// reference timezone and inserts one completed sleep record in a single
// write. An end earlier than the start is moved one civil day forward. The
// open-session invariant is not checked: manual entries describe events that
// already finished.
func (r *Recorder) RecordManualSleep(ctx context.Context, startText, endText string) (models.ActivityRecord, error) {
	startClock, err := timeparse.ParseClock(startText)
	if err != nil {
		return models.ActivityRecord{}, err
	}
	endClock, err := timeparse.ParseClock(endText)
	if err != nil {
		return models.ActivityRecord{}, err
	}

	start, end := timeparse.ResolveInterval(startClock, endClock, r.now())
	rec := models.ActivityRecord{
		Type:      models.ActivitySleep,
		StartTime: start,
		EndTime:   &end,
	}
	id, err := r.store.AddActivity(ctx, rec)
	if err != nil {
		slog.Error("Recorder RecordManualSleep store error", "error", err)
		return models.ActivityRecord{}, fmt.Errorf("record manual sleep: %w", err)
	}
	rec.ID = id
	slog.Info("Recorder manual sleep recorded", "id", id, "duration", rec.Duration())
	return rec, nil
}

// RecordInstant inserts a point event of the given type starting now.
func (r *Recorder) RecordInstant(ctx context.Context, t models.ActivityType, subtype string) error {
	id, err := r.store.AddActivity(ctx, models.ActivityRecord{
		Type:      t,
		Subtype:   subtype,
		StartTime: r.now().UTC(),
	})
	if err != nil {
		slog.Error("Recorder RecordInstant store error", "error", err, "type", t)
		return fmt.Errorf("record %s: %w", t, err)
	}
	slog.Info("Recorder activity recorded", "id", id, "type", t, "subtype", subtype)
	return nil
}

// RecordFeed validates the volume text and inserts a feed record with the
// volume kept as text. Fails with ErrInvalidVolume unless the text is a
// positive integer.
func (r *Recorder) RecordFeed(ctx context.Context, volumeText string) (int, error) {
	volume, err := strconv.Atoi(strings.TrimSpace(volumeText))
	if err != nil || volume <= 0 {
		slog.Debug("Recorder RecordFeed rejected volume", "text_length", len(volumeText))
		return 0, ErrInvalidVolume
	}
	id, err := r.store.AddActivity(ctx, models.ActivityRecord{
		Type:      models.ActivityFeed,
		Subtype:   FeedSubtype,
		StartTime: r.now().UTC(),
		Value:     strconv.Itoa(volume),
	})
	if err != nil {
		slog.Error("Recorder RecordFeed store error", "error", err)
		return 0, fmt.Errorf("record feed: %w", err)
	}
	slog.Info("Recorder feed recorded", "id", id, "volume", volume)
	return volume, nil
}

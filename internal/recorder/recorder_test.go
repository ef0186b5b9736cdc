package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oryshchuk/leotrack/internal/models"
	"github.com/oryshchuk/leotrack/internal/store"
	"github.com/oryshchuk/leotrack/internal/timeparse"
)

func newTestRecorder(now time.Time) (*Recorder, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	rec := New(st)
	rec.now = func() time.Time { return now }
	return rec, st
}

func TestStartSleepConflict(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	rec, st := newTestRecorder(now)

	if err := rec.StartSleep(ctx); err != nil {
		t.Fatalf("StartSleep failed: %v", err)
	}
	if err := rec.StartSleep(ctx); !errors.Is(err, ErrSleepConflict) {
		t.Fatalf("second StartSleep error = %v, want ErrSleepConflict", err)
	}

	open, err := st.OpenSleepRecord(ctx)
	if err != nil {
		t.Fatalf("OpenSleepRecord failed: %v", err)
	}
	if open == nil {
		t.Fatal("expected exactly one open sleep row")
	}
	rows, err := st.ListActivities(ctx, models.ActivitySleep, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("sleep rows = %d, want 1", len(rows))
	}
}

func TestEndSleepWithoutOpenSession(t *testing.T) {
	ctx := context.Background()
	rec, _ := newTestRecorder(time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC))
	if _, err := rec.EndSleep(ctx); !errors.Is(err, ErrNoOpenSleep) {
		t.Fatalf("EndSleep error = %v, want ErrNoOpenSleep", err)
	}
}

func TestStartThenEndSleep(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	rec, st := newTestRecorder(start)

	if err := rec.StartSleep(ctx); err != nil {
		t.Fatalf("StartSleep failed: %v", err)
	}
	rec.now = func() time.Time { return start.Add(95 * time.Minute) }
	d, err := rec.EndSleep(ctx)
	if err != nil {
		t.Fatalf("EndSleep failed: %v", err)
	}
	if d != 95*time.Minute {
		t.Errorf("duration = %v, want 95m", d)
	}

	open, err := st.OpenSleepRecord(ctx)
	if err != nil {
		t.Fatalf("OpenSleepRecord failed: %v", err)
	}
	if open != nil {
		t.Errorf("open record after end = %+v, want nil", open)
	}
}

func TestRecordManualSleepOvernight(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 9, 0, 0, 0, timeparse.Location())
	rec, _ := newTestRecorder(now)

	got, err := rec.RecordManualSleep(ctx, "23:30", "00:15")
	if err != nil {
		t.Fatalf("RecordManualSleep failed: %v", err)
	}
	if got.ID == 0 {
		t.Errorf("record should carry its assigned id")
	}
	if got.Duration() != 45*time.Minute {
		t.Errorf("overnight duration = %v, want 45m", got.Duration())
	}
	if timeparse.FormatClock(got.StartTime) != "23:30" {
		t.Errorf("start clock = %s, want 23:30", timeparse.FormatClock(got.StartTime))
	}
	if timeparse.FormatClock(*got.EndTime) != "00:15" {
		t.Errorf("end clock = %s, want 00:15", timeparse.FormatClock(*got.EndTime))
	}
}

func TestRecordManualSleepIgnoresOpenSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	rec, st := newTestRecorder(now)

	if err := rec.StartSleep(ctx); err != nil {
		t.Fatalf("StartSleep failed: %v", err)
	}
	if _, err := rec.RecordManualSleep(ctx, "13:00", "14:30"); err != nil {
		t.Fatalf("RecordManualSleep alongside open session failed: %v", err)
	}
	open, err := st.OpenSleepRecord(ctx)
	if err != nil {
		t.Fatalf("OpenSleepRecord failed: %v", err)
	}
	if open == nil {
		t.Errorf("manual entry must not close the live session")
	}
}

func TestRecordManualSleepBadClock(t *testing.T) {
	ctx := context.Background()
	rec, st := newTestRecorder(time.Now())
	for _, pair := range [][2]string{{"25:00", "14:30"}, {"13:00", "99:99"}, {"abc", "14:30"}} {
		if _, err := rec.RecordManualSleep(ctx, pair[0], pair[1]); !errors.Is(err, timeparse.ErrBadClock) {
			t.Errorf("RecordManualSleep(%q, %q) error = %v, want ErrBadClock", pair[0], pair[1], err)
		}
	}
	rows, err := st.ListActivities(ctx, models.ActivitySleep, time.Time{}, time.Now().Add(48*time.Hour))
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rejected input must not write records, got %d rows", len(rows))
	}
}

func TestRecordFeed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	rec, st := newTestRecorder(now)

	volume, err := rec.RecordFeed(ctx, " 130 ")
	if err != nil {
		t.Fatalf("RecordFeed failed: %v", err)
	}
	if volume != 130 {
		t.Errorf("volume = %d, want 130", volume)
	}

	feeds, err := st.ListActivities(ctx, models.ActivityFeed, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(feeds) != 1 {
		t.Fatalf("feed rows = %d, want 1", len(feeds))
	}
	if feeds[0].Value != "130" || feeds[0].Subtype != FeedSubtype {
		t.Errorf("feed row = %+v, want value 130 subtype %q", feeds[0], FeedSubtype)
	}
}

func TestRecordFeedInvalidVolume(t *testing.T) {
	ctx := context.Background()
	rec, st := newTestRecorder(time.Now())
	for _, text := range []string{"", "abc", "0", "-50", "13.5"} {
		if _, err := rec.RecordFeed(ctx, text); !errors.Is(err, ErrInvalidVolume) {
			t.Errorf("RecordFeed(%q) error = %v, want ErrInvalidVolume", text, err)
		}
	}
	count, err := st.CountActivities(ctx, models.ActivityFeed, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("CountActivities failed: %v", err)
	}
	if count != 0 {
		t.Errorf("rejected volumes must not write records, got %d", count)
	}
}

func TestRecordInstant(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	rec, st := newTestRecorder(now)

	if err := rec.RecordInstant(ctx, models.ActivityDiaper, "💧 Пі-пі"); err != nil {
		t.Fatalf("RecordInstant failed: %v", err)
	}
	counts, err := st.CountBySubtype(ctx, models.ActivityDiaper, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("CountBySubtype failed: %v", err)
	}
	if len(counts) != 1 || counts[0].Subtype != "💧 Пі-пі" || counts[0].Count != 1 {
		t.Errorf("diaper counts = %+v, want one 💧 Пі-пі group", counts)
	}
}

package models

import (
	"testing"
	"time"
)

func TestIsValidActivityType(t *testing.T) {
	for _, typ := range []ActivityType{ActivitySleep, ActivityFeed, ActivityDiaper, ActivityBath, ActivityWalk} {
		if !IsValidActivityType(typ) {
			t.Errorf("IsValidActivityType(%s) = false, want true", typ)
		}
	}
	for _, typ := range []ActivityType{"", "NAP", "sleep"} {
		if IsValidActivityType(typ) {
			t.Errorf("IsValidActivityType(%s) = true, want false", typ)
		}
	}
}

func TestActivityRecordOpenAndDuration(t *testing.T) {
	start := time.Date(2025, 6, 15, 21, 0, 0, 0, time.UTC)
	rec := ActivityRecord{Type: ActivitySleep, StartTime: start}
	if !rec.Open() {
		t.Error("record without end time should be open")
	}
	if rec.Duration() != 0 {
		t.Errorf("open record duration = %v, want 0", rec.Duration())
	}

	end := start.Add(45 * time.Minute)
	rec.EndTime = &end
	if rec.Open() {
		t.Error("record with end time should not be open")
	}
	if rec.Duration() != 45*time.Minute {
		t.Errorf("duration = %v, want 45m", rec.Duration())
	}
}

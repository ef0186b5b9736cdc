// Package timeparse turns free-text clock and interval input into absolute
// instants anchored to the diary's reference timezone.
//
// All human-facing times are civil Europe/Kyiv wall-clock times; stored
// instants are UTC. An interval whose end reads earlier than its start is
// taken to roll over midnight and the end is moved one civil day forward.
// A genuinely reversed same-day entry is indistinguishable from an overnight
// session; the rollover interpretation wins.
package timeparse

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReferenceZone is the fixed civil timezone for all parsing and display.
const ReferenceZone = "Europe/Kyiv"

var kyiv = func() *time.Location {
	loc, err := time.LoadLocation(ReferenceZone)
	if err != nil {
		panic(fmt.Sprintf("timeparse: load reference timezone: %v", err))
	}
	return loc
}()

// Location returns the reference timezone.
func Location() *time.Location {
	return kyiv
}

// Validation errors for free-text time input.
var (
	// ErrBadClock means the text is not a valid H:MM / HH:MM clock time.
	ErrBadClock = errors.New("not a valid clock time")
	// ErrBadInterval means the text is not a valid clock-time interval.
	ErrBadInterval = errors.New("not a valid time interval")
)

// Clock is a civil wall-clock time of day.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a bare clock time. The grammar is exactly H:MM or HH:MM
// with hour 0-23 and minute 00-59; anything else is rejected.
func ParseClock(text string) (Clock, error) {
	text = strings.TrimSpace(text)
	hourPart, minutePart, ok := strings.Cut(text, ":")
	if !ok {
		return Clock{}, fmt.Errorf("%w: %q", ErrBadClock, text)
	}
	hour, ok := parseDigits(hourPart, 1, 2)
	if !ok || hour > 23 {
		return Clock{}, fmt.Errorf("%w: %q", ErrBadClock, text)
	}
	minute, ok := parseDigits(minutePart, 2, 2)
	if !ok || minute > 59 {
		return Clock{}, fmt.Errorf("%w: %q", ErrBadClock, text)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// parseDigits parses an all-digit token of bounded width.
func parseDigits(s string, minLen, maxLen int) (int, bool) {
	if len(s) < minLen || len(s) > maxLen {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// SplitInterval splits interval text into its two endpoint tokens. The
// separator is a hyphen or a single space; the tokens are not validated.
func SplitInterval(text string) (string, string, error) {
	text = strings.TrimSpace(text)
	sep := "-"
	if !strings.Contains(text, sep) {
		sep = " "
	}
	start, end, ok := strings.Cut(text, sep)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrBadInterval, text)
	}
	return strings.TrimSpace(start), strings.TrimSpace(end), nil
}

// ParseInterval parses interval text into its two clock endpoints.
func ParseInterval(text string) (Clock, Clock, error) {
	startText, endText, err := SplitInterval(text)
	if err != nil {
		return Clock{}, Clock{}, err
	}
	start, err := ParseClock(startText)
	if err != nil {
		return Clock{}, Clock{}, fmt.Errorf("%w: %q", ErrBadInterval, text)
	}
	end, err := ParseClock(endText)
	if err != nil {
		return Clock{}, Clock{}, fmt.Errorf("%w: %q", ErrBadInterval, text)
	}
	return start, end, nil
}

// ResolveInterval places both endpoints on now's civil date in the reference
// timezone and returns them as UTC instants. An end numerically earlier than
// the start is moved one civil day forward (overnight rollover).
func ResolveInterval(start, end Clock, now time.Time) (time.Time, time.Time) {
	day := now.In(kyiv)
	s := time.Date(day.Year(), day.Month(), day.Day(), start.Hour, start.Minute, 0, 0, kyiv)
	e := time.Date(day.Year(), day.Month(), day.Day(), end.Hour, end.Minute, 0, 0, kyiv)
	if e.Before(s) {
		e = e.AddDate(0, 0, 1)
	}
	return s.UTC(), e.UTC()
}

// DayWindow returns now's civil date as an inclusive UTC instant window:
// 00:00:00.000 through 23:59:59.999 in the reference timezone.
func DayWindow(now time.Time) (time.Time, time.Time) {
	day := now.In(kyiv)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, kyiv)
	to := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(999*time.Millisecond), kyiv)
	return from.UTC(), to.UTC()
}

// WeekWindow returns the inclusive window covering the last seven civil
// dates: today minus six full days through the end of today.
func WeekWindow(now time.Time) (time.Time, time.Time) {
	day := now.In(kyiv)
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, kyiv).AddDate(0, 0, -6)
	to := time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(999*time.Millisecond), kyiv)
	return from.UTC(), to.UTC()
}

// FormatClock renders an instant as HH:MM wall-clock time in the reference
// timezone.
func FormatClock(t time.Time) string {
	return t.In(kyiv).Format("15:04")
}

// FormatDate renders an instant's civil date in the reference timezone.
func FormatDate(t time.Time) string {
	return t.In(kyiv).Format("2006-01-02")
}

// FormatDuration renders a duration as whole hours and minutes, floored.
func FormatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	return fmt.Sprintf("%dгод %dхв", minutes/60, minutes%60)
}

// FormatDurationShort renders a duration in the compact per-session form.
func FormatDurationShort(d time.Duration) string {
	minutes := int(d.Minutes())
	return fmt.Sprintf("%dг %dхв", minutes/60, minutes%60)
}

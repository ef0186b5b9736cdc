// Package report aggregates the activity log into composed daily and weekly
// summaries.
//
// The five category scans have no ordering dependency on each other, so they
// run concurrently and are joined before any rendering; a report is never
// rendered from partial results. Rendering is deterministic: the same window
// over the same log produces byte-identical output.
package report

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oryshchuk/leotrack/internal/models"
	"github.com/oryshchuk/leotrack/internal/store"
	"github.com/oryshchuk/leotrack/internal/timeparse"
)

// Aggregator composes category statistics over a time window.
type Aggregator struct {
	store store.Store
}

// New creates an Aggregator over the given store.
func New(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// Daily composes the report for now's civil date, with per-session sleep and
// per-feed detail lines.
func (a *Aggregator) Daily(ctx context.Context, now time.Time) (string, error) {
	from, to := timeparse.DayWindow(now)
	header := fmt.Sprintf("📊 *Звіт за сьогодні (%s)*", timeparse.FormatDate(now))
	return a.compose(ctx, header, from, to, true)
}

// Weekly composes the report for the last seven civil dates. Detail lines are
// omitted to bound the message size; only totals are shown.
func (a *Aggregator) Weekly(ctx context.Context, now time.Time) (string, error) {
	from, to := timeparse.WeekWindow(now)
	header := fmt.Sprintf("📊 *Звіт за 7 днів (%s — %s)*", timeparse.FormatDate(from), timeparse.FormatDate(now))
	return a.compose(ctx, header, from, to, false)
}

func (a *Aggregator) compose(ctx context.Context, header string, from, to time.Time, detailed bool) (string, error) {
	var (
		sleeps  []models.ActivityRecord
		feeds   []models.ActivityRecord
		diapers []store.SubtypeCount
		baths   int
		walks   int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sleeps, err = a.store.ListActivities(gctx, models.ActivitySleep, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		feeds, err = a.store.ListActivities(gctx, models.ActivityFeed, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		diapers, err = a.store.CountBySubtype(gctx, models.ActivityDiaper, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		baths, err = a.store.CountActivities(gctx, models.ActivityBath, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		walks, err = a.store.CountActivities(gctx, models.ActivityWalk, from, to)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", fmt.Errorf("report scans failed: %w", err)
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n\n")
	writeSleep(&b, sleeps, detailed)
	writeFeeds(&b, feeds, detailed)
	writeDiapers(&b, diapers)
	if baths > 0 {
		fmt.Fprintf(&b, "\n🛁 *Купання*: %d раз(ів)\n", baths)
	}
	if walks > 0 {
		fmt.Fprintf(&b, "🚶 *Прогулянка*: %d раз(ів)\n", walks)
	}
	return b.String(), nil
}

// writeSleep renders closed sleep sessions only; an in-progress session does
// not count until it ends.
func writeSleep(b *strings.Builder, sleeps []models.ActivityRecord, detailed bool) {
	var totalMinutes, count int
	var details strings.Builder
	for _, rec := range sleeps {
		if rec.EndTime == nil {
			continue
		}
		d := rec.Duration()
		totalMinutes += int(d.Minutes())
		count++
		if detailed {
			fmt.Fprintf(&details, "  %s - %s (%s)\n",
				timeparse.FormatClock(rec.StartTime),
				timeparse.FormatClock(*rec.EndTime),
				timeparse.FormatDurationShort(d))
		}
	}
	fmt.Fprintf(b, "💤 *Сон*: %d раз(ів), всього %s\n",
		count, timeparse.FormatDuration(time.Duration(totalMinutes)*time.Minute))
	b.WriteString(details.String())
}

// writeFeeds counts every feed record; a malformed or missing volume
// contributes zero to the total but still counts as a feeding.
func writeFeeds(b *strings.Builder, feeds []models.ActivityRecord, detailed bool) {
	var totalVolume int
	var details strings.Builder
	for _, rec := range feeds {
		volume, err := strconv.Atoi(rec.Value)
		if err != nil {
			volume = 0
		}
		totalVolume += volume
		if detailed {
			fmt.Fprintf(&details, "  %s - %d мл\n", timeparse.FormatClock(rec.StartTime), volume)
		}
	}
	fmt.Fprintf(b, "\n🍼 *Годування*: %d раз(ів), всього %d мл\n", len(feeds), totalVolume)
	b.WriteString(details.String())
}

func writeDiapers(b *strings.Builder, diapers []store.SubtypeCount) {
	b.WriteString("\n💩 *Підгузки*:\n")
	for _, group := range diapers {
		fmt.Fprintf(b, "- %s: %d\n", group.Subtype, group.Count)
	}
}

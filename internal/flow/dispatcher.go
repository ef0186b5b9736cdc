package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oryshchuk/leotrack/internal/models"
	"github.com/oryshchuk/leotrack/internal/recorder"
	"github.com/oryshchuk/leotrack/internal/report"
	"github.com/oryshchuk/leotrack/internal/timeparse"
)

// Renderer delivers a message to a caller, optionally with a quick-reply
// menu. It is the core's only outbound surface; transports implement it.
type Renderer interface {
	Render(ctx context.Context, callerID, text string, menu *models.Menu) error
}

// Caller-facing message texts. Error texts leave conversation state exactly
// as it was.
const (
	msgGreeting       = "Привіт! Я допоможу тобі вести щоденник Лео."
	msgMainMenu       = "Головне меню"
	msgSleepMenu      = "Управління сном:"
	msgFeedMenu       = "Оберіть об'єм:"
	msgDiaperMenu     = "Що там у нас?"
	msgReportMenu     = "Який звіт підготувати?"
	msgAskVolume      = "Введіть об'єм суміші в мл:"
	msgAskSleepStart  = "Введіть час початку сну (ГГ:ХХ) або одразу інтервал (ГГ:ХХ-ГГ:ХХ):"
	msgAskSleepEnd    = "Тепер введіть час завершення сну (ГГ:ХХ):"
	msgRecorded       = "Записано! ✅"
	msgSleepStarted   = "Сон почався! 💤"
	msgAlreadyAsleep  = "Лео вже спить! Спочатку закінчіть попередній сон."
	msgNoActiveSleep  = "Немає активного сну. Спочатку почніть сон."
	msgBadVolume      = "Будь ласка, введіть коректний об'єм (число)."
	msgBadSleepStart  = "Не можу розібрати час. Формат: ГГ:ХХ або ГГ:ХХ-ГГ:ХХ."
	msgBadSleepEnd    = "Невірний формат часу. Введіть час завершення у форматі ГГ:ХХ."
	msgStorageFailure = "⚠️ Не вдалося зберегти запис. Спробуйте ще раз."
	msgReportFailure  = "⚠️ Не вдалося сформувати звіт. Спробуйте ще раз."
)

// Dispatcher routes inbound caller text: a pending multi-turn entry consumes
// the message first; otherwise the text is matched against the menu buttons.
// Unknown text outside a pending entry is ignored.
type Dispatcher struct {
	sessions SessionStore
	recorder *recorder.Recorder
	reports  *report.Aggregator
	renderer Renderer
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher over its collaborators.
func NewDispatcher(sessions SessionStore, rec *recorder.Recorder, reports *report.Aggregator, renderer Renderer) *Dispatcher {
	return &Dispatcher{
		sessions: sessions,
		recorder: rec,
		reports:  reports,
		renderer: renderer,
		now:      time.Now,
	}
}

// OnText handles one inbound message from one caller. All state checks and
// writes for the message complete before OnText returns, so per-caller
// sequential delivery keeps entries race-free.
func (d *Dispatcher) OnText(ctx context.Context, callerID, text string) error {
	text = strings.TrimSpace(text)
	slog.Debug("Dispatcher OnText", "caller", callerID, "text_length", len(text))

	// The back signal and /start always reset, discarding any pending entry.
	if text == BtnBack {
		d.sessions.Clear(callerID)
		return d.render(ctx, callerID, msgMainMenu, MainMenu())
	}
	if strings.HasPrefix(text, "/start") {
		d.sessions.Clear(callerID)
		return d.render(ctx, callerID, msgGreeting, MainMenu())
	}

	state := d.sessions.Get(callerID)
	switch state.Mode {
	case models.ModeAwaitingVolume:
		return d.handleVolume(ctx, callerID, text)
	case models.ModeAwaitingSleepStart:
		return d.handleSleepStart(ctx, callerID, text)
	case models.ModeAwaitingSleepEnd:
		return d.handleSleepEnd(ctx, callerID, state, text)
	}

	switch text {
	case BtnSleep:
		return d.render(ctx, callerID, msgSleepMenu, SleepMenu())
	case BtnFeed:
		return d.render(ctx, callerID, msgFeedMenu, FeedMenu())
	case BtnDiaper:
		return d.render(ctx, callerID, msgDiaperMenu, DiaperMenu())
	case BtnReport:
		return d.render(ctx, callerID, msgReportMenu, ReportMenu())

	case BtnBath:
		return d.recordInstant(ctx, callerID, models.ActivityBath, "Купання")
	case BtnWalk:
		return d.recordInstant(ctx, callerID, models.ActivityWalk, "Прогулянка")
	case BtnDiaperPee, BtnDiaperPoo, BtnDiaperMix:
		return d.recordInstant(ctx, callerID, models.ActivityDiaper, text)

	case BtnSleepStart:
		return d.startSleep(ctx, callerID)
	case BtnSleepEnd:
		return d.endSleep(ctx, callerID)
	case BtnSleepManual:
		d.sessions.Set(callerID, models.ConversationState{Mode: models.ModeAwaitingSleepStart})
		return d.render(ctx, callerID, msgAskSleepStart, nil)

	case BtnFeed130:
		return d.recordFeed(ctx, callerID, "130")
	case BtnFeed160:
		return d.recordFeed(ctx, callerID, "160")
	case BtnFeedCustom:
		d.sessions.Set(callerID, models.ConversationState{Mode: models.ModeAwaitingVolume})
		return d.render(ctx, callerID, msgAskVolume, nil)

	case BtnReportDay:
		return d.sendReport(ctx, callerID, d.reports.Daily)
	case BtnReportWeek:
		return d.sendReport(ctx, callerID, d.reports.Weekly)
	}

	slog.Debug("Dispatcher ignoring unrecognized text", "caller", callerID)
	return nil
}

// handleVolume consumes the caller's custom feed volume.
func (d *Dispatcher) handleVolume(ctx context.Context, callerID, text string) error {
	volume, err := d.recorder.RecordFeed(ctx, text)
	if errors.Is(err, recorder.ErrInvalidVolume) {
		return d.render(ctx, callerID, msgBadVolume, nil)
	}
	if err != nil {
		// Conversation state is preserved so the caller may retry.
		if renderErr := d.render(ctx, callerID, msgStorageFailure, nil); renderErr != nil {
			slog.Error("Dispatcher failed to render storage failure", "error", renderErr, "caller", callerID)
		}
		return err
	}
	d.sessions.Clear(callerID)
	return d.render(ctx, callerID, feedConfirmation(volume), MainMenu())
}

// handleSleepStart consumes the first manual-sleep message: either a full
// interval, recorded at once, or a bare start time that advances the entry.
func (d *Dispatcher) handleSleepStart(ctx context.Context, callerID, text string) error {
	if startText, endText, err := timeparse.SplitInterval(text); err == nil {
		rec, err := d.recorder.RecordManualSleep(ctx, startText, endText)
		if errors.Is(err, timeparse.ErrBadClock) {
			return d.render(ctx, callerID, msgBadSleepStart, nil)
		}
		if err != nil {
			if renderErr := d.render(ctx, callerID, msgStorageFailure, nil); renderErr != nil {
				slog.Error("Dispatcher failed to render storage failure", "error", renderErr, "caller", callerID)
			}
			return err
		}
		d.sessions.Clear(callerID)
		return d.render(ctx, callerID, manualSleepConfirmation(rec), MainMenu())
	}

	if _, err := timeparse.ParseClock(text); err != nil {
		return d.render(ctx, callerID, msgBadSleepStart, nil)
	}
	d.sessions.Set(callerID, models.ConversationState{
		Mode:         models.ModeAwaitingSleepEnd,
		PendingStart: text,
	})
	return d.render(ctx, callerID, msgAskSleepEnd, nil)
}

// handleSleepEnd consumes the second manual-sleep message and records both
// endpoints atomically.
func (d *Dispatcher) handleSleepEnd(ctx context.Context, callerID string, state models.ConversationState, text string) error {
	rec, err := d.recorder.RecordManualSleep(ctx, state.PendingStart, text)
	if errors.Is(err, timeparse.ErrBadClock) {
		return d.render(ctx, callerID, msgBadSleepEnd, nil)
	}
	if err != nil {
		if renderErr := d.render(ctx, callerID, msgStorageFailure, nil); renderErr != nil {
			slog.Error("Dispatcher failed to render storage failure", "error", renderErr, "caller", callerID)
		}
		return err
	}
	d.sessions.Clear(callerID)
	return d.render(ctx, callerID, manualSleepConfirmation(rec), MainMenu())
}

func (d *Dispatcher) startSleep(ctx context.Context, callerID string) error {
	err := d.recorder.StartSleep(ctx)
	if errors.Is(err, recorder.ErrSleepConflict) {
		return d.render(ctx, callerID, msgAlreadyAsleep, nil)
	}
	if err != nil {
		if renderErr := d.render(ctx, callerID, msgStorageFailure, nil); renderErr != nil {
			slog.Error("Dispatcher failed to render storage failure", "error", renderErr, "caller", callerID)
		}
		return err
	}
	return d.render(ctx, callerID, msgSleepStarted, MainMenu())
}

func (d *Dispatcher) endSleep(ctx context.Context, callerID string) error {
	duration, err := d.recorder.EndSleep(ctx)
	if errors.Is(err, recorder.ErrNoOpenSleep) {
		return d.render(ctx, callerID, msgNoActiveSleep, nil)
	}
	if err != nil {
		if renderErr := d.render(ctx, callerID, msgStorageFailure, nil); renderErr != nil {
			slog.Error("Dispatcher failed to render storage failure", "error", renderErr, "caller", callerID)
		}
		return err
	}
	confirmation := fmt.Sprintf("Сон закінчено! Тривалість: %s. Доброго ранку! ☀️", timeparse.FormatDuration(duration))
	return d.render(ctx, callerID, confirmation, MainMenu())
}

func (d *Dispatcher) recordInstant(ctx context.Context, callerID string, t models.ActivityType, subtype string) error {
	if err := d.recorder.RecordInstant(ctx, t, subtype); err != nil {
		if renderErr := d.render(ctx, callerID, msgStorageFailure, nil); renderErr != nil {
			slog.Error("Dispatcher failed to render storage failure", "error", renderErr, "caller", callerID)
		}
		return err
	}
	return d.render(ctx, callerID, msgRecorded, MainMenu())
}

func (d *Dispatcher) recordFeed(ctx context.Context, callerID, volumeText string) error {
	volume, err := d.recorder.RecordFeed(ctx, volumeText)
	if err != nil {
		if renderErr := d.render(ctx, callerID, msgStorageFailure, nil); renderErr != nil {
			slog.Error("Dispatcher failed to render storage failure", "error", renderErr, "caller", callerID)
		}
		return err
	}
	return d.render(ctx, callerID, feedConfirmation(volume), MainMenu())
}

func (d *Dispatcher) sendReport(ctx context.Context, callerID string, build func(context.Context, time.Time) (string, error)) error {
	text, err := build(ctx, d.now())
	if err != nil {
		if renderErr := d.render(ctx, callerID, msgReportFailure, nil); renderErr != nil {
			slog.Error("Dispatcher failed to render report failure", "error", renderErr, "caller", callerID)
		}
		return err
	}
	return d.render(ctx, callerID, text, MainMenu())
}

func (d *Dispatcher) render(ctx context.Context, callerID, text string, menu *models.Menu) error {
	if err := d.renderer.Render(ctx, callerID, text, menu); err != nil {
		slog.Error("Dispatcher render failed", "error", err, "caller", callerID)
		return fmt.Errorf("render to %s: %w", callerID, err)
	}
	return nil
}

func feedConfirmation(volume int) string {
	return fmt.Sprintf("Записано! %d мл суміші Hipp ✅", volume)
}

func manualSleepConfirmation(rec models.ActivityRecord) string {
	return fmt.Sprintf("Сон записано: %s - %s (%s) ✅",
		timeparse.FormatClock(rec.StartTime),
		timeparse.FormatClock(*rec.EndTime),
		timeparse.FormatDuration(rec.Duration()))
}

package flow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/oryshchuk/leotrack/internal/models"
	"github.com/oryshchuk/leotrack/internal/recorder"
	"github.com/oryshchuk/leotrack/internal/report"
	"github.com/oryshchuk/leotrack/internal/store"
)

type renderedMessage struct {
	CallerID string
	Text     string
	Menu     *models.Menu
}

// captureRenderer records everything the dispatcher renders.
type captureRenderer struct {
	messages []renderedMessage
}

func (r *captureRenderer) Render(ctx context.Context, callerID, text string, menu *models.Menu) error {
	r.messages = append(r.messages, renderedMessage{CallerID: callerID, Text: text, Menu: menu})
	return nil
}

func (r *captureRenderer) last(t *testing.T) renderedMessage {
	t.Helper()
	if len(r.messages) == 0 {
		t.Fatal("nothing was rendered")
	}
	return r.messages[len(r.messages)-1]
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *store.InMemoryStore, *InMemorySessionStore, *captureRenderer) {
	t.Helper()
	st := store.NewInMemoryStore()
	sessions := NewInMemorySessionStore()
	renderer := &captureRenderer{}
	disp := NewDispatcher(sessions, recorder.New(st), report.New(st), renderer)
	return disp, st, sessions, renderer
}

const testCaller = "380501234567"

// An open-ended query window covering everything a test could record.
var (
	windowFrom = time.Time{}
	windowTo   = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

func TestStartCommandGreetsWithMainMenu(t *testing.T) {
	disp, _, sessions, renderer := newTestDispatcher(t)
	if err := disp.OnText(context.Background(), testCaller, "/start"); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	msg := renderer.last(t)
	if !strings.Contains(msg.Text, "Привіт") {
		t.Errorf("greeting text = %q", msg.Text)
	}
	if msg.Menu == nil || len(msg.Menu.Rows) != 3 {
		t.Errorf("main menu expected, got %+v", msg.Menu)
	}
	if got := sessions.Get(testCaller); got.Mode != models.ModeNone {
		t.Errorf("state after /start = %s, want NONE", got.Mode)
	}
}

func TestBackAlwaysResetsState(t *testing.T) {
	disp, st, sessions, renderer := newTestDispatcher(t)
	ctx := context.Background()

	// Enter the custom-volume entry, then back out.
	if err := disp.OnText(ctx, testCaller, BtnFeedCustom); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if got := sessions.Get(testCaller); got.Mode != models.ModeAwaitingVolume {
		t.Fatalf("state = %s, want AWAITING_VOLUME", got.Mode)
	}
	if err := disp.OnText(ctx, testCaller, BtnBack); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if got := sessions.Get(testCaller); got.Mode != models.ModeNone {
		t.Errorf("state after back = %s, want NONE", got.Mode)
	}
	msg := renderer.last(t)
	if msg.Menu == nil || len(msg.Menu.Rows) != 3 {
		t.Errorf("back should render the main menu, got %+v", msg.Menu)
	}

	count, err := st.CountActivities(ctx, models.ActivityFeed, windowFrom, windowTo)
	if err != nil {
		t.Fatalf("CountActivities failed: %v", err)
	}
	if count != 0 {
		t.Errorf("backing out must not write records, got %d", count)
	}
}

func TestPresetFeedButton(t *testing.T) {
	disp, st, _, renderer := newTestDispatcher(t)
	ctx := context.Background()

	if err := disp.OnText(ctx, testCaller, BtnFeed130); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	msg := renderer.last(t)
	if !strings.Contains(msg.Text, "130 мл") {
		t.Errorf("confirmation = %q, want 130 мл mention", msg.Text)
	}

	feeds, err := st.ListActivities(ctx, models.ActivityFeed, windowFrom, windowTo)
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(feeds) != 1 || feeds[0].Value != "130" {
		t.Fatalf("feed rows = %+v, want one with value 130", feeds)
	}
}

func TestCustomVolumeFlow(t *testing.T) {
	disp, st, sessions, renderer := newTestDispatcher(t)
	ctx := context.Background()

	if err := disp.OnText(ctx, testCaller, BtnFeedCustom); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if msg := renderer.last(t); !strings.Contains(msg.Text, "об'єм") {
		t.Errorf("prompt = %q", msg.Text)
	}
	if err := disp.OnText(ctx, testCaller, "145"); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if msg := renderer.last(t); !strings.Contains(msg.Text, "145 мл") {
		t.Errorf("confirmation = %q, want 145 мл mention", msg.Text)
	}
	if got := sessions.Get(testCaller); got.Mode != models.ModeNone {
		t.Errorf("state after entry = %s, want NONE", got.Mode)
	}

	feeds, err := st.ListActivities(ctx, models.ActivityFeed, windowFrom, windowTo)
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(feeds) != 1 || feeds[0].Value != "145" {
		t.Fatalf("feed rows = %+v, want one with value 145", feeds)
	}
}

func TestInvalidVolumeReprompts(t *testing.T) {
	disp, st, sessions, renderer := newTestDispatcher(t)
	ctx := context.Background()

	if err := disp.OnText(ctx, testCaller, BtnFeedCustom); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if err := disp.OnText(ctx, testCaller, "abc"); err != nil {
		t.Fatalf("OnText with bad volume should not fail: %v", err)
	}
	if msg := renderer.last(t); msg.Text != msgBadVolume {
		t.Errorf("reprompt = %q, want %q", msg.Text, msgBadVolume)
	}
	// The entry stays pending so the next message is consumed as a volume.
	if got := sessions.Get(testCaller); got.Mode != models.ModeAwaitingVolume {
		t.Errorf("state after bad volume = %s, want AWAITING_VOLUME", got.Mode)
	}
	if err := disp.OnText(ctx, testCaller, "150"); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	feeds, err := st.ListActivities(ctx, models.ActivityFeed, windowFrom, windowTo)
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(feeds) != 1 || feeds[0].Value != "150" {
		t.Fatalf("feed rows = %+v, want one with value 150", feeds)
	}
}

func TestLiveSleepFlow(t *testing.T) {
	disp, _, _, renderer := newTestDispatcher(t)
	ctx := context.Background()

	if err := disp.OnText(ctx, testCaller, BtnSleepStart); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if msg := renderer.last(t); msg.Text != msgSleepStarted {
		t.Errorf("start confirmation = %q, want %q", msg.Text, msgSleepStarted)
	}

	if err := disp.OnText(ctx, testCaller, BtnSleepStart); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if msg := renderer.last(t); msg.Text != msgAlreadyAsleep {
		t.Errorf("conflict message = %q, want %q", msg.Text, msgAlreadyAsleep)
	}

	if err := disp.OnText(ctx, testCaller, BtnSleepEnd); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if msg := renderer.last(t); !strings.Contains(msg.Text, "Сон закінчено") {
		t.Errorf("end confirmation = %q", msg.Text)
	}

	if err := disp.OnText(ctx, testCaller, BtnSleepEnd); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if msg := renderer.last(t); msg.Text != msgNoActiveSleep {
		t.Errorf("no-session message = %q, want %q", msg.Text, msgNoActiveSleep)
	}
}

func TestManualSleepTwoStep(t *testing.T) {
	disp, st, sessions, renderer := newTestDispatcher(t)
	ctx := context.Background()

	if err := disp.OnText(ctx, testCaller, BtnSleepManual); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if got := sessions.Get(testCaller); got.Mode != models.ModeAwaitingSleepStart {
		t.Fatalf("state = %s, want AWAITING_SLEEP_START", got.Mode)
	}
	if err := disp.OnText(ctx, testCaller, "13:00"); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if got := sessions.Get(testCaller); got.Mode != models.ModeAwaitingSleepEnd || got.PendingStart != "13:00" {
		t.Fatalf("state = %+v, want AWAITING_SLEEP_END with pending 13:00", got)
	}
	if err := disp.OnText(ctx, testCaller, "14:30"); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if msg := renderer.last(t); !strings.Contains(msg.Text, "Сон записано: 13:00 - 14:30 (1год 30хв)") {
		t.Errorf("confirmation = %q", msg.Text)
	}
	if got := sessions.Get(testCaller); got.Mode != models.ModeNone {
		t.Errorf("state after entry = %s, want NONE", got.Mode)
	}

	sleeps, err := st.ListActivities(ctx, models.ActivitySleep, windowFrom, windowTo)
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(sleeps) != 1 || sleeps[0].Duration().Minutes() != 90 {
		t.Fatalf("sleep rows = %+v, want one 90m record", sleeps)
	}
}

func TestManualSleepSingleInterval(t *testing.T) {
	disp, st, sessions, renderer := newTestDispatcher(t)
	ctx := context.Background()

	if err := disp.OnText(ctx, testCaller, BtnSleepManual); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if err := disp.OnText(ctx, testCaller, "13:00-14:30"); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if msg := renderer.last(t); !strings.Contains(msg.Text, "Сон записано") {
		t.Errorf("confirmation = %q", msg.Text)
	}
	if got := sessions.Get(testCaller); got.Mode != models.ModeNone {
		t.Errorf("state after entry = %s, want NONE", got.Mode)
	}

	sleeps, err := st.ListActivities(ctx, models.ActivitySleep, windowFrom, windowTo)
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(sleeps) != 1 {
		t.Fatalf("sleep rows = %d, want 1", len(sleeps))
	}
}

func TestManualSleepBadInputKeepsState(t *testing.T) {
	disp, st, sessions, renderer := newTestDispatcher(t)
	ctx := context.Background()

	if err := disp.OnText(ctx, testCaller, BtnSleepManual); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if err := disp.OnText(ctx, testCaller, "25:99"); err != nil {
		t.Fatalf("OnText with bad clock should not fail: %v", err)
	}
	if msg := renderer.last(t); msg.Text != msgBadSleepStart {
		t.Errorf("reprompt = %q, want %q", msg.Text, msgBadSleepStart)
	}
	if got := sessions.Get(testCaller); got.Mode != models.ModeAwaitingSleepStart {
		t.Errorf("state after bad start = %s, want AWAITING_SLEEP_START", got.Mode)
	}

	if err := disp.OnText(ctx, testCaller, "13:00"); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if err := disp.OnText(ctx, testCaller, "bogus"); err != nil {
		t.Fatalf("OnText with bad end should not fail: %v", err)
	}
	if msg := renderer.last(t); msg.Text != msgBadSleepEnd {
		t.Errorf("reprompt = %q, want %q", msg.Text, msgBadSleepEnd)
	}
	if got := sessions.Get(testCaller); got.Mode != models.ModeAwaitingSleepEnd || got.PendingStart != "13:00" {
		t.Errorf("state after bad end = %+v, want AWAITING_SLEEP_END with pending 13:00", got)
	}

	count, err := st.CountActivities(ctx, models.ActivitySleep, windowFrom, windowTo)
	if err != nil {
		t.Fatalf("CountActivities failed: %v", err)
	}
	if count != 0 {
		t.Errorf("rejected input must not write records, got %d", count)
	}
}

func TestDiaperButtonsRecordSubtype(t *testing.T) {
	disp, st, _, _ := newTestDispatcher(t)
	ctx := context.Background()

	for _, btn := range []string{BtnDiaperPee, BtnDiaperPoo, BtnDiaperPee} {
		if err := disp.OnText(ctx, testCaller, btn); err != nil {
			t.Fatalf("OnText(%q) failed: %v", btn, err)
		}
	}
	counts, err := st.CountBySubtype(ctx, models.ActivityDiaper, windowFrom, windowTo)
	if err != nil {
		t.Fatalf("CountBySubtype failed: %v", err)
	}
	if len(counts) != 2 {
		t.Fatalf("subtype groups = %+v, want 2", counts)
	}
	total := counts[0].Count + counts[1].Count
	if total != 3 {
		t.Errorf("total diaper records = %d, want 3", total)
	}
}

func TestReportButton(t *testing.T) {
	disp, _, _, renderer := newTestDispatcher(t)
	ctx := context.Background()

	if err := disp.OnText(ctx, testCaller, BtnFeed130); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if err := disp.OnText(ctx, testCaller, BtnReportDay); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	msg := renderer.last(t)
	if !strings.Contains(msg.Text, "Звіт за сьогодні") {
		t.Errorf("report text = %q", msg.Text)
	}
	if !strings.Contains(msg.Text, "🍼 *Годування*: 1 раз(ів), всього 130 мл") {
		t.Errorf("report should include the recorded feed:\n%s", msg.Text)
	}
}

func TestUnknownTextIsIgnored(t *testing.T) {
	disp, _, _, renderer := newTestDispatcher(t)
	if err := disp.OnText(context.Background(), testCaller, "what's up"); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if len(renderer.messages) != 0 {
		t.Errorf("unknown text should render nothing, got %+v", renderer.messages)
	}
}

func TestPerCallerStateIsolation(t *testing.T) {
	disp, _, sessions, _ := newTestDispatcher(t)
	ctx := context.Background()

	if err := disp.OnText(ctx, "caller-a", BtnFeedCustom); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if err := disp.OnText(ctx, "caller-b", BtnSleepManual); err != nil {
		t.Fatalf("OnText failed: %v", err)
	}
	if got := sessions.Get("caller-a"); got.Mode != models.ModeAwaitingVolume {
		t.Errorf("caller-a state = %s, want AWAITING_VOLUME", got.Mode)
	}
	if got := sessions.Get("caller-b"); got.Mode != models.ModeAwaitingSleepStart {
		t.Errorf("caller-b state = %s, want AWAITING_SLEEP_START", got.Mode)
	}
}

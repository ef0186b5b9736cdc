package flow

import "github.com/oryshchuk/leotrack/internal/models"

// Button labels, verbatim as they appear on the chat keyboard. Routing
// matches on the full label including the emoji.
const (
	BtnSleep  = "🛌 Сон"
	BtnFeed   = "🍼 Годування"
	BtnDiaper = "💩 Підгузок"
	BtnBath   = "🛁 Купання"
	BtnWalk   = "🚶 Прогулянка"
	BtnReport = "📊 Звіт"
	BtnBack   = "🔙 Назад"

	BtnSleepStart  = "▶️ Почати сон"
	BtnSleepEnd    = "⏹ Закінчити сон"
	BtnSleepManual = "✏️ Ввести сон вручну"

	BtnFeed130    = "🍼 130 мл"
	BtnFeed160    = "🍼 160 мл"
	BtnFeedCustom = "✏️ Інший об'єм"

	BtnDiaperPee = "💧 Пі-пі"
	BtnDiaperPoo = "💩 Ка-ка"
	BtnDiaperMix = "🤢 Мікс"

	BtnReportDay  = "📊 За сьогодні"
	BtnReportWeek = "📅 За 7 днів"
)

// MainMenu is the top-level keyboard.
func MainMenu() *models.Menu {
	return &models.Menu{Rows: [][]string{
		{BtnSleep, BtnFeed},
		{BtnDiaper, BtnBath},
		{BtnWalk, BtnReport},
	}}
}

// SleepMenu controls the live session and manual entry.
func SleepMenu() *models.Menu {
	return &models.Menu{Rows: [][]string{
		{BtnSleepStart, BtnSleepEnd},
		{BtnSleepManual, BtnBack},
	}}
}

// FeedMenu offers the preset volumes and the custom-volume entry.
func FeedMenu() *models.Menu {
	return &models.Menu{Rows: [][]string{
		{BtnFeed130, BtnFeed160},
		{BtnFeedCustom, BtnBack},
	}}
}

// DiaperMenu offers the diaper kinds.
func DiaperMenu() *models.Menu {
	return &models.Menu{Rows: [][]string{
		{BtnDiaperPee, BtnDiaperPoo},
		{BtnDiaperMix, BtnBack},
	}}
}

// ReportMenu offers the two report windows.
func ReportMenu() *models.Menu {
	return &models.Menu{Rows: [][]string{
		{BtnReportDay, BtnReportWeek},
		{BtnBack},
	}}
}

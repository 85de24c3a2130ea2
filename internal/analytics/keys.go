package analytics

import (
	"time"

	"github.com/newthinker/zella/internal/core"
)

// Placeholder keys for trades missing a label.
const (
	UnknownMindset = "Unknown"
	NoSetup        = "Unspecified"
)

// MindsetStage selects which psychology label ByMindset groups on.
type MindsetStage string

const (
	StageMental MindsetStage = "mental"
	StagePre    MindsetStage = "pre"
	StageDuring MindsetStage = "during"
	StagePost   MindsetStage = "post"
)

func BySession(t core.Trade) (string, bool) { return t.Session, t.Session != "" }

func ByWeekday(t core.Trade) (string, bool) { return t.DayOfWeek, t.DayOfWeek != "" }

func ByWeekOfMonth(t core.Trade) (int, bool) { return t.WeekOfMonth, t.WeekOfMonth > 0 }

func ByMonthName(t core.Trade) (string, bool) { return t.Month, t.Month != "" }

func ByHoldingCategory(t core.Trade) (core.HoldingCategory, bool) {
	return t.HoldingCategory, t.HoldingCategory != ""
}

func BySymbol(t core.Trade) (string, bool) { return t.Symbol, t.Symbol != "" }

func ByAccount(t core.Trade) (string, bool) { return t.AccountID, t.AccountID != "" }

// ByPlanned splits planned from impulsive trades.
func ByPlanned(t core.Trade) (bool, bool) { return t.IsPlanned, true }

// BySetup groups by setup; trades without one share NoSetup.
func BySetup(t core.Trade) (string, bool) {
	if t.Setup == "" {
		return NoSetup, true
	}
	return t.Setup, true
}

// ByCalendarMonth keys trades by YYYY-MM of their entry in loc.
func ByCalendarMonth(loc *time.Location) KeyFunc[string] {
	return func(t core.Trade) (string, bool) {
		return t.EntryTime.In(loc).Format("2006-01"), !t.EntryTime.IsZero()
	}
}

// ByMindset groups on the selected psychology label; blanks share
// UnknownMindset.
func ByMindset(stage MindsetStage) KeyFunc[string] {
	return func(t core.Trade) (string, bool) {
		var label string
		switch stage {
		case StagePre:
			label = t.PreTradeMindset
		case StageDuring:
			label = t.DuringTradeMindset
		case StagePost:
			label = t.PostTradeMindset
		default:
			label = t.MentalState
		}
		if label == "" {
			label = UnknownMindset
		}
		return label, true
	}
}

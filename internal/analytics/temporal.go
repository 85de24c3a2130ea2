package analytics

import (
	"fmt"

	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/temporal"
)

// Named is a labelled group of statistics.
type Named struct {
	Name  string `json:"name"`
	Stats Stats  `json:"stats"`
}

// TemporalView is the session and calendar scorecard.
type TemporalView struct {
	Sessions     []Named `json:"sessions"`
	Weekdays     []Named `json:"weekdays"`
	WeeksOfMonth []Named `json:"weeksOfMonth"`
	Months       []Named `json:"months"`
	BestDay      *Named  `json:"bestDay,omitempty"`
	WorstDay     *Named  `json:"worstDay,omitempty"`
	BestSession  *Named  `json:"bestSession,omitempty"`
	WorstSession *Named  `json:"worstSession,omitempty"`
}

// Temporal groups trades over the fixed session, weekday, week-of-month and
// month key sets. Months without trades are omitted; the other sets are
// always fully reported.
func Temporal(trades []core.Trade) TemporalView {
	sessions := Enumerated(temporal.Sessions()...).Fold(trades, BySession)
	days := Enumerated(temporal.Weekdays()...).Fold(trades, ByWeekday)
	weeks := Enumerated(temporal.WeeksOfMonth()...).Fold(trades, ByWeekOfMonth)
	months := Enumerated(temporal.MonthNames()...).Fold(trades, ByMonthName)

	v := TemporalView{
		Sessions:     named(sessions.List(), ident),
		Weekdays:     named(days.List(), ident),
		WeeksOfMonth: named(weeks.List(), weekLabel),
		Months:       named(NonEmpty(months.List()), ident),
	}

	if len(trades) > 0 {
		v.BestDay = first(named(days.Sorted(ByWinRateDesc[string]), ident))
		v.WorstDay = first(named(days.Sorted(ByWinRateAsc[string]), ident))
		v.BestSession = first(named(sessions.Sorted(ByWinRateDesc[string]), ident))
		v.WorstSession = first(named(sessions.Sorted(ByWinRateAsc[string]), ident))
	}
	return v
}

func ident(s string) string { return s }

func weekLabel(w int) string { return fmt.Sprintf("Week %d", w) }

func named[K comparable](groups []Group[K], label func(K) string) []Named {
	out := make([]Named, len(groups))
	for i, g := range groups {
		out[i] = Named{Name: label(g.Key), Stats: g.Stats}
	}
	return out
}

func first(ns []Named) *Named {
	if len(ns) == 0 {
		return nil
	}
	n := ns[0]
	return &n
}

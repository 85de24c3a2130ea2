package analytics

import (
	"time"

	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/risk"
)

// Options parameterize Report.
type Options struct {
	Window       Window
	Now          time.Time
	Policy       risk.Policy
	CalendarZone *time.Location
	Accounts     []core.Account
}

// Report is every dashboard for one trade snapshot.
type Report struct {
	GeneratedAt time.Time                     `json:"generatedAt"`
	Trades      int                           `json:"trades"`
	Performance PerformanceView               `json:"performance"`
	Temporal    TemporalView                  `json:"temporal"`
	Risk        risk.Summary                  `json:"risk"`
	Monthly     []MonthRow                    `json:"monthly"`
	Growth      []GrowthPoint                 `json:"growth"`
	Psychology  PsychologyView                `json:"psychology"`
	Playbook    PlaybookView                  `json:"playbook"`
	Holding     []Group[core.HoldingCategory] `json:"holding"`
	Overtrading []OvertradingView             `json:"overtrading"`
	Sequence    []SequenceFlag                `json:"sequenceAudit"`
}

// HoldingCategories lists holding categories from shortest to longest.
func HoldingCategories() []core.HoldingCategory {
	return []core.HoldingCategory{core.HoldingScalping, core.HoldingIntraday, core.HoldingSwing, core.HoldingLongTerm}
}

// Build assembles the report. The window applies to the performance
// dashboard only; the other views cover the full snapshot.
func Build(trades []core.Trade, opts Options) Report {
	loc := opts.CalendarZone
	if loc == nil {
		loc = time.UTC
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	r := Report{
		GeneratedAt: now,
		Trades:      len(trades),
		Performance: Performance(trades, PerformanceOptions{Window: opts.Window, Now: now, Policy: opts.Policy}),
		Temporal:    Temporal(trades),
		Risk:        risk.Summarize(trades, opts.Policy),
		Monthly:     Monthly(trades, loc),
		Growth:      Growth(trades),
		Psychology:  Psychology(trades),
		Playbook:    Playbook(trades),
		Holding:     Enumerated(HoldingCategories()...).Fold(trades, ByHoldingCategory).List(),
		Overtrading: make([]OvertradingView, 0, len(opts.Accounts)),
		Sequence:    SequenceAudit(trades, loc),
	}
	for _, a := range opts.Accounts {
		r.Overtrading = append(r.Overtrading, Overtrading(trades, a))
	}
	return r
}

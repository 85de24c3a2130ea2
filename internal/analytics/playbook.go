package analytics

import "github.com/newthinker/zella/internal/core"

// SetupRow is one setup in the playbook.
type SetupRow struct {
	Name    string  `json:"name"`
	Trades  int     `json:"trades"`
	WinRate float64 `json:"winRate"`
	PnL     float64 `json:"pnl"`
	AvgR    float64 `json:"avgR"`
	Grade   string  `json:"grade"`
}

// MistakeRow is the P&L of every trade tagged with a mistake.
type MistakeRow struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	PnL   float64 `json:"pnl"`
}

// PlaybookView ranks setups and mistakes.
type PlaybookView struct {
	Setups   []SetupRow   `json:"setups"`
	Mistakes []MistakeRow `json:"mistakes"`
}

// Playbook lists setups by P&L (best first) and mistakes by P&L impact
// (most costly first).
func Playbook(trades []core.Trade) PlaybookView {
	v := PlaybookView{Setups: []SetupRow{}, Mistakes: []MistakeRow{}}

	for _, g := range Aggregate(trades, BySetup).Sorted(ByPnLDesc[string]) {
		v.Setups = append(v.Setups, SetupRow{
			Name:    g.Key,
			Trades:  g.Stats.Count,
			WinRate: g.Stats.WinRate,
			PnL:     g.Stats.TotalPnL,
			AvgR:    g.Stats.AvgR,
			Grade:   g.Stats.Grade,
		})
	}

	mistakes := NewGroups[string]()
	for _, t := range trades {
		for _, m := range t.Mistakes {
			mistakes.Add(m, t)
		}
	}
	for _, g := range mistakes.Sorted(ByPnLAsc[string]) {
		v.Mistakes = append(v.Mistakes, MistakeRow{Name: g.Key, Count: g.Stats.Count, PnL: g.Stats.TotalPnL})
	}
	return v
}

package analytics

import (
	"sort"
	"time"

	"github.com/newthinker/zella/internal/core"
)

// MonthRow is one month of the periodic audit.
type MonthRow struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"winRate"`
	PnL     float64 `json:"pnl"`
	Volume  float64 `json:"volume"`
}

// Monthly rolls trades up by YYYY-MM of entry in loc, sorted
// chronologically.
func Monthly(trades []core.Trade, loc *time.Location) []MonthRow {
	rows := make(map[string]*MonthRow)
	for _, t := range trades {
		if t.EntryTime.IsZero() {
			continue
		}
		lt := t.EntryTime.In(loc)
		key := lt.Format("2006-01")
		r, ok := rows[key]
		if !ok {
			r = &MonthRow{Key: key, Name: lt.Format("Jan 2006")}
			rows[key] = r
		}
		r.Count++
		r.PnL += t.PnL
		r.Volume += t.Quantity
		if t.IsWin() {
			r.Wins++
		}
	}

	out := make([]MonthRow, 0, len(rows))
	for _, r := range rows {
		r.WinRate = float64(r.Wins) / float64(r.Count) * 100
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// GrowthPoint is one trade on the cumulative growth curve.
type GrowthPoint struct {
	Index    int       `json:"index"`
	Time     time.Time `json:"date"`
	Equity   float64   `json:"equity"`
	TradePnL float64   `json:"tradePnl"`
}

// Growth is the cumulative P&L curve in entry order.
func Growth(trades []core.Trade) []GrowthPoint {
	sorted := sortedByEntry(trades)
	out := make([]GrowthPoint, len(sorted))
	var equity float64
	for i, t := range sorted {
		equity += t.PnL
		out[i] = GrowthPoint{Index: i + 1, Time: t.EntryTime, Equity: equity, TradePnL: t.PnL}
	}
	return out
}

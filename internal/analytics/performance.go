package analytics

import (
	"fmt"
	"math"
	"time"

	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/risk"
	"github.com/newthinker/zella/internal/temporal"
)

// Window selects the trades a dashboard covers.
type Window string

const (
	WindowLifetime Window = "LIFETIME"
	Window30D      Window = "30D"
)

// ParseWindow accepts LIFETIME or 30D; empty means LIFETIME.
func ParseWindow(s string) (Window, error) {
	switch Window(s) {
	case "", WindowLifetime:
		return WindowLifetime, nil
	case Window30D:
		return Window30D, nil
	}
	return "", core.WrapError(core.ErrOutOfRange, fmt.Errorf("unknown range %q", s))
}

// Filter returns the trades inside the window ending at now.
func (w Window) Filter(trades []core.Trade, now time.Time) []core.Trade {
	if w != Window30D {
		return trades
	}
	cutoff := now.Add(-30 * 24 * time.Hour)
	out := make([]core.Trade, 0, len(trades))
	for _, t := range trades {
		if !t.EntryTime.Before(cutoff) {
			out = append(out, t)
		}
	}
	return out
}

// EquityPoint is one step of the cumulative P&L curve.
type EquityPoint struct {
	Time     time.Time `json:"date"`
	Equity   float64   `json:"equity"`
	PnL      float64   `json:"pnl"`
	Drawdown float64   `json:"drawdown"`
}

// SessionShare is the dashboard's compact per-session row.
type SessionShare struct {
	Name    string  `json:"name"`
	WinRate float64 `json:"winRate"`
	PnL     float64 `json:"pnl"`
	Count   int     `json:"count"`
}

// PerformanceView is the headline dashboard.
type PerformanceView struct {
	Window         Window         `json:"range"`
	TotalTrades    int            `json:"totalTrades"`
	WinRate        float64        `json:"winRate"`
	TotalPnL       float64        `json:"totalPnl"`
	AvgWin         float64        `json:"avgWin"`
	AvgLoss        float64        `json:"avgLoss"`
	ProfitFactor   float64        `json:"profitFactor"`
	SharpeRatio    float64        `json:"sharpeRatio"`
	Expectancy     float64        `json:"expectancy"`
	MaxDrawdown    float64        `json:"maxDrawdown"`
	AvgHoldTime    string         `json:"avgHoldTime"`
	AvgHoldMinutes float64        `json:"avgHoldMinutes"`
	AvgR           float64        `json:"avgRMultiple"`
	Equity         []EquityPoint  `json:"equity"`
	Sessions       []SessionShare `json:"sessions"`
	BestSession    *SessionShare  `json:"bestSession,omitempty"`
}

// PerformanceOptions parameterize Performance.
type PerformanceOptions struct {
	Window Window
	Now    time.Time
	Policy risk.Policy
}

// Performance computes dashboard KPIs over trades in the window. Trades are
// walked in entry order.
func Performance(trades []core.Trade, opts PerformanceOptions) PerformanceView {
	window := opts.Window
	if window == "" {
		window = WindowLifetime
	}
	filtered := sortedByEntry(window.Filter(trades, opts.Now))

	v := PerformanceView{
		Window:      window,
		AvgHoldTime: FormatHold(0),
		Equity:      []EquityPoint{},
		Sessions:    []SessionShare{},
	}
	if len(filtered) == 0 {
		return v
	}

	var equity, peak, grossWin, grossLoss, totalMins, totalR float64
	var wins, losses int
	pnls := make([]float64, 0, len(filtered))
	returns := make([]float64, 0, len(filtered))
	sessions := Enumerated(temporal.Sessions()...)

	for _, t := range filtered {
		equity += t.PnL
		switch {
		case t.PnL > 0:
			grossWin += t.PnL
			wins++
		case t.PnL < 0:
			grossLoss += -t.PnL
			losses++
		}
		if equity > peak {
			peak = equity
		}
		pnls = append(pnls, t.PnL)
		if r, ok := tradeReturn(t); ok {
			returns = append(returns, r)
		}
		totalMins += float64(temporal.HeldMinutes(t.EntryTime, t.ExitTime))
		totalR += t.RRAchieved
		if k, ok := BySession(t); ok {
			sessions.Add(k, t)
		}
		v.Equity = append(v.Equity, EquityPoint{Time: t.EntryTime, Equity: equity, PnL: t.PnL, Drawdown: peak - equity})
	}

	n := float64(len(filtered))
	winFrac := float64(wins) / n
	v.TotalTrades = len(filtered)
	v.WinRate = winFrac * 100
	v.TotalPnL = equity
	if wins > 0 {
		v.AvgWin = grossWin / float64(wins)
	}
	if losses > 0 {
		v.AvgLoss = grossLoss / float64(losses)
	}
	v.ProfitFactor = risk.ProfitFactor(grossWin, grossLoss, opts.Policy.ProfitFactorCap)
	v.SharpeRatio = sharpeRatio(returns)
	v.Expectancy = winFrac*v.AvgWin - (1-winFrac)*v.AvgLoss
	v.MaxDrawdown = maxDrawdown(pnls)
	v.AvgHoldMinutes = totalMins / n
	v.AvgHoldTime = FormatHold(v.AvgHoldMinutes)
	v.AvgR = totalR / n

	for _, g := range NonEmpty(sessions.List()) {
		v.Sessions = append(v.Sessions, SessionShare{Name: g.Key, WinRate: g.Stats.WinRate, PnL: g.Stats.TotalPnL, Count: g.Stats.Count})
	}
	for i := range v.Sessions {
		if v.BestSession == nil || v.Sessions[i].WinRate > v.BestSession.WinRate {
			s := v.Sessions[i]
			v.BestSession = &s
		}
	}
	return v
}

// FormatHold renders minutes as "Hh Mm".
func FormatHold(minutes float64) string {
	m := int(math.Round(minutes))
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}

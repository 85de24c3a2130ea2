package analytics

import (
	"math"
	"sort"

	"github.com/newthinker/zella/internal/core"
)

// sortedByEntry returns a copy ordered by entry time, then id.
func sortedByEntry(trades []core.Trade) []core.Trade {
	out := make([]core.Trade, len(trades))
	copy(out, trades)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// maxDrawdown finds the largest peak-to-trough decline of cumulative P&L.
// The curve starts at zero.
func maxDrawdown(pnls []float64) float64 {
	var maxDD, peak, cumulative float64
	for _, p := range pnls {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

// sharpeRatio computes risk-adjusted return over per-trade returns.
// Assumes risk-free rate of 0.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))

	if stdDev == 0 {
		return 0
	}

	// Annualize (assuming ~252 trading days)
	return (mean * 252) / (stdDev * math.Sqrt(252))
}

// tradeReturn is P&L relative to entry notional.
func tradeReturn(t core.Trade) (float64, bool) {
	notional := t.EntryPrice * t.Quantity
	if notional == 0 {
		return 0, false
	}
	return t.PnL / math.Abs(notional), true
}

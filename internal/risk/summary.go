package risk

import (
	"math"

	"github.com/newthinker/zella/internal/core"
)

// Summary is the risk dashboard for a set of trades. Rates are percentages.
type Summary struct {
	Trades       int     `json:"trades"`
	AvgR         float64 `json:"avgR"`
	WinRate      float64 `json:"winRate"`
	LossRate     float64 `json:"lossRate"`
	AvgWin       float64 `json:"avgWinPnl"`
	AvgLoss      float64 `json:"avgLossPnl"`
	Expectancy   float64 `json:"expectancy"`
	ProfitFactor float64 `json:"profitFactor"`
	Distribution []Bin   `json:"distribution"`
}

// Summarize computes the risk summary under policy p. Trades that are
// neither wins nor losses count toward neither avg win nor avg loss, and
// loss rate is the complement of win rate.
func Summarize(trades []core.Trade, p Policy) Summary {
	s := Summary{Trades: len(trades)}
	rs := make([]float64, len(trades))

	var sumR, grossWin, grossLoss float64
	var wins, losses int
	for i, t := range trades {
		rs[i] = p.RMultiple(t)
		sumR += rs[i]
		switch {
		case t.IsWin():
			wins++
			grossWin += t.PnL
		case t.IsLoss():
			losses++
			grossLoss += -t.PnL
		}
	}
	s.Distribution = Distribution(rs)
	if len(trades) == 0 {
		return s
	}

	n := float64(len(trades))
	winFrac := float64(wins) / n
	lossFrac := 1 - winFrac

	s.AvgR = sumR / n
	s.WinRate = winFrac * 100
	s.LossRate = lossFrac * 100
	if wins > 0 {
		s.AvgWin = grossWin / float64(wins)
	}
	if losses > 0 {
		s.AvgLoss = grossLoss / float64(losses)
	}
	s.Expectancy = winFrac*s.AvgWin - lossFrac*s.AvgLoss
	s.ProfitFactor = ProfitFactor(grossWin, grossLoss, p.ProfitFactorCap)
	return s
}

// ProfitFactor is gross win over gross loss (both non-negative). With no
// losses it is the sentinel cap when anything was won and 0 otherwise. A
// finite ratio is never clamped.
func ProfitFactor(grossWin, grossLoss, cap float64) float64 {
	if grossLoss == 0 {
		if grossWin > 0 {
			return cap
		}
		return 0
	}
	pf := grossWin / grossLoss
	if math.IsInf(pf, 0) || math.IsNaN(pf) {
		return cap
	}
	return pf
}

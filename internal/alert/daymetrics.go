package alert

import (
	"sort"

	"github.com/newthinker/zella/internal/core"
)

// Day metric names usable in rule expressions.
const (
	MetricTradesToday        = "trades_today"
	MetricDailyPnL           = "daily_pnl"
	MetricDailyR             = "daily_r"
	MetricWinsToday          = "wins_today"
	MetricLossesToday        = "losses_today"
	MetricWinRateToday       = "win_rate_today"
	MetricConsecutiveLosses  = "consecutive_losses"
	MetricUnplannedToday     = "unplanned_today"
	MetricAvgDisciplineToday = "avg_discipline_today"
	MetricAvgStressToday     = "avg_stress_today"
)

var metricNames = map[string]bool{
	MetricTradesToday:        true,
	MetricDailyPnL:           true,
	MetricDailyR:             true,
	MetricWinsToday:          true,
	MetricLossesToday:        true,
	MetricWinRateToday:       true,
	MetricConsecutiveLosses:  true,
	MetricUnplannedToday:     true,
	MetricAvgDisciplineToday: true,
	MetricAvgStressToday:     true,
}

func isMetric(name string) bool { return metricNames[name] }

// DayMetrics summarizes one calendar day of trades. An empty day yields an
// empty map so no rule fires on it.
func DayMetrics(trades []core.Trade) map[string]float64 {
	if len(trades) == 0 {
		return map[string]float64{}
	}

	ordered := append([]core.Trade(nil), trades...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].EntryTime.Equal(ordered[j].EntryTime) {
			return ordered[i].EntryTime.Before(ordered[j].EntryTime)
		}
		return ordered[i].ID < ordered[j].ID
	})

	var pnl, r, discipline, stress float64
	var wins, losses, unplanned, streak int
	for _, t := range ordered {
		pnl += t.PnL
		r += t.RRAchieved
		discipline += float64(t.DisciplineRating)
		stress += float64(t.StressLevel)
		if !t.IsPlanned {
			unplanned++
		}
		switch t.Status {
		case core.StatusWin:
			wins++
			streak = 0
		case core.StatusLoss:
			losses++
			streak++
		default:
			streak = 0
		}
	}

	n := float64(len(ordered))
	return map[string]float64{
		MetricTradesToday:        n,
		MetricDailyPnL:           pnl,
		MetricDailyR:             r,
		MetricWinsToday:          float64(wins),
		MetricLossesToday:        float64(losses),
		MetricWinRateToday:       float64(wins) / n * 100,
		MetricConsecutiveLosses:  float64(streak),
		MetricUnplannedToday:     float64(unplanned),
		MetricAvgDisciplineToday: discipline / n,
		MetricAvgStressToday:     stress / n,
	}
}

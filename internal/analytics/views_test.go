package analytics

import (
	"errors"
	"testing"
	"time"

	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/risk"
	"github.com/newthinker/zella/internal/temporal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemporal(t *testing.T) {
	v := Temporal(scenario())

	require.Len(t, v.Sessions, len(temporal.Sessions()))
	require.Len(t, v.Weekdays, 5)
	require.Len(t, v.WeeksOfMonth, 5)
	assert.Equal(t, "Week 1", v.WeeksOfMonth[0].Name)
	require.Len(t, v.Months, 1)
	assert.Equal(t, "March", v.Months[0].Name)
	assert.Equal(t, 10, v.Months[0].Stats.Count)

	// 14:00..23:00 UTC on a Monday
	assert.Equal(t, "Monday", v.BestDay.Name)
	assert.Equal(t, 10, v.BestDay.Stats.Count)

	lny := v.Sessions[3]
	assert.Equal(t, temporal.SessionLondonNewYork, lny.Name)
	assert.Equal(t, 3, lny.Stats.Count)
}

func TestTemporal_Empty(t *testing.T) {
	v := Temporal(nil)
	assert.Len(t, v.Weekdays, 5)
	assert.Empty(t, v.Months)
	assert.Nil(t, v.BestDay)
	for _, d := range v.Weekdays {
		assert.Zero(t, d.Stats.WinRate)
		assert.Equal(t, GradeF, d.Stats.Grade)
	}
}

func TestPerformance(t *testing.T) {
	trades := []core.Trade{
		trade("1", 0, 100),
		trade("2", time.Hour, -150),
		trade("3", 2*time.Hour, 50),
		trade("4", 3*time.Hour, -20),
	}
	v := Performance(trades, PerformanceOptions{Now: base, Policy: risk.DefaultPolicy()})

	assert.Equal(t, WindowLifetime, v.Window)
	assert.Equal(t, 4, v.TotalTrades)
	assert.Equal(t, 50.0, v.WinRate)
	assert.Equal(t, -20.0, v.TotalPnL)
	assert.Equal(t, 75.0, v.AvgWin)
	assert.Equal(t, 85.0, v.AvgLoss)
	assert.InDelta(t, 150.0/170.0, v.ProfitFactor, 1e-9)
	assert.Equal(t, 150.0, v.MaxDrawdown)
	assert.Equal(t, "0h 20m", v.AvgHoldTime)
	require.Len(t, v.Equity, 4)
	assert.Equal(t, -50.0, v.Equity[1].Equity)
	assert.Equal(t, 150.0, v.Equity[1].Drawdown)
}

func TestPerformance_NoLossesUsesCap(t *testing.T) {
	v := Performance([]core.Trade{trade("1", 0, 10)}, PerformanceOptions{Policy: risk.DefaultPolicy()})
	assert.Equal(t, 999.0, v.ProfitFactor)
}

func TestPerformance_ThirtyDayWindow(t *testing.T) {
	old := trade("old", -40*24*time.Hour, 500)
	recent := trade("new", -24*time.Hour, 10)

	v := Performance([]core.Trade{old, recent}, PerformanceOptions{Window: Window30D, Now: base, Policy: risk.DefaultPolicy()})
	assert.Equal(t, 1, v.TotalTrades)
	assert.Equal(t, 10.0, v.TotalPnL)

	empty := Performance(nil, PerformanceOptions{Window: Window30D, Now: base})
	assert.Equal(t, "0h 0m", empty.AvgHoldTime)
	assert.Empty(t, empty.Equity)
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, WindowLifetime, w)

	_, err = ParseWindow("7D")
	assert.True(t, errors.Is(err, core.ErrOutOfRange))
}

func TestFormatHold(t *testing.T) {
	assert.Equal(t, "1h 30m", FormatHold(90))
	assert.Equal(t, "2h 0m", FormatHold(119.6))
}

func TestMonthly(t *testing.T) {
	jan := trade("jan", -60*24*time.Hour, 10)
	mar1 := trade("m1", 0, 20)
	mar2 := trade("m2", time.Hour, -5)

	rows := Monthly([]core.Trade{mar1, jan, mar2}, time.UTC)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01", rows[0].Key)
	assert.Equal(t, "Jan 2024", rows[0].Name)
	assert.Equal(t, "2024-03", rows[1].Key)
	assert.Equal(t, 2, rows[1].Count)
	assert.Equal(t, 50.0, rows[1].WinRate)
	assert.Equal(t, 2.0, rows[1].Volume)

	growth := Growth([]core.Trade{mar1, jan, mar2})
	require.Len(t, growth, 3)
	assert.Equal(t, 1, growth[0].Index)
	assert.Equal(t, 10.0, growth[0].TradePnL)
	assert.Equal(t, 25.0, growth[2].Equity)
}

func TestCalendar(t *testing.T) {
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)
	trades := []core.Trade{trade("1", 0, 10), trade("2", time.Hour, -4), trade("3", 48*time.Hour, 7)}

	cm, err := Calendar(trades, 2024, time.March, time.UTC, now)
	require.NoError(t, err)
	assert.Equal(t, 31, cm.DaysInMonth)
	assert.Equal(t, time.Friday, cm.FirstWeekday)
	assert.Equal(t, 13.0, cm.TotalPnL)
	require.Len(t, cm.Days, 2)
	assert.Equal(t, 4, cm.Days[0].Day)
	assert.Equal(t, 6.0, cm.Days[0].PnL)
	assert.Equal(t, []string{"1", "2"}, cm.Days[0].TradeIDs)

	_, err = Calendar(trades, 2013, time.January, time.UTC, now)
	assert.True(t, errors.Is(err, core.ErrOutOfRange))

	_, err = Calendar(trades, 2025, time.April, time.UTC, now)
	assert.True(t, errors.Is(err, core.ErrOutOfRange))

	_, err = Calendar(trades, 2025, time.March, time.UTC, now)
	assert.NoError(t, err)

	_, err = Calendar(trades, 2024, 13, time.UTC, now)
	assert.Error(t, err)
}

func TestPsychology(t *testing.T) {
	a := trade("a", 0, 100)
	a.MentalState, a.IsPlanned, a.DisciplineRating, a.StressLevel = "Calm", true, 9, 2
	b := trade("b", time.Hour, -60)
	b.MentalState, b.DisciplineRating, b.StressLevel = "FOMO", 3, 8
	c := trade("c", 2*time.Hour, -40)
	c.MentalState, c.DisciplineRating, c.StressLevel = "FOMO", 4, 7
	d := trade("d", 3*time.Hour, -10)
	d.IsPlanned, d.DisciplineRating, d.StressLevel = true, 8, 3

	v := Psychology([]core.Trade{a, b, c, d})

	require.Len(t, v.Mindsets, 3)
	assert.Equal(t, "Calm", v.Mindsets[0].Name)
	assert.Equal(t, UnknownMindset, v.Mindsets[1].Name)
	assert.Equal(t, "FOMO", v.Mindsets[2].Name)

	require.Len(t, v.LossTriggers, 2)
	fomo := v.LossTriggers[0]
	assert.Equal(t, "FOMO", fomo.Name)
	assert.Equal(t, 2, fomo.Count)
	assert.Equal(t, 100.0, fomo.Loss)
	assert.Equal(t, 50.0, fomo.AvgLoss)
	assert.Equal(t, 60.0, fomo.MaxLoss)

	assert.Equal(t, 2, v.Discipline.PlannedCount)
	assert.Equal(t, 2, v.Discipline.ImpulsiveCount)
	assert.Equal(t, 90.0, v.Discipline.PlannedPnL)
	assert.Equal(t, 50.0, v.Discipline.PlannedWinRate)
	assert.Equal(t, 0.0, v.Discipline.ImpulsiveWinRate)
	assert.Equal(t, 6.0, v.Discipline.AvgDiscipline)
	assert.Equal(t, 5.0, v.Discipline.AvgStress)
}

func TestPlaybook(t *testing.T) {
	a := trade("a", 0, 100)
	a.Setup = "Breakout"
	b := trade("b", time.Hour, -80)
	b.Setup, b.Mistakes = "Reversal", []string{"Chased", "Moved stop"}
	c := trade("c", 2*time.Hour, -10)
	c.Setup, c.Mistakes = "Breakout", []string{"Chased"}

	v := Playbook([]core.Trade{a, b, c})
	require.Len(t, v.Setups, 2)
	assert.Equal(t, "Breakout", v.Setups[0].Name)
	assert.Equal(t, 90.0, v.Setups[0].PnL)
	assert.Equal(t, 50.0, v.Setups[0].WinRate)

	require.Len(t, v.Mistakes, 2)
	assert.Equal(t, "Chased", v.Mistakes[0].Name)
	assert.Equal(t, -90.0, v.Mistakes[0].PnL)
	assert.Equal(t, 2, v.Mistakes[0].Count)
}

func TestOvertrading(t *testing.T) {
	acct := core.Account{ID: "apex", MaxTradesPerDay: 2}
	trades := make([]core.Trade, 4)
	for i := range trades {
		trades[i] = trade(string(rune('a'+i)), time.Duration(i)*time.Hour, -10)
		trades[i].AccountID = "apex"
		trades[i].TradeSequenceNum = i + 1
	}
	trades[3].AccountID = "cash"

	v := Overtrading(trades, acct)
	assert.Equal(t, 2, v.Limit)
	require.Equal(t, 1, v.Count)
	assert.Equal(t, "c", v.Trades[0].TradeID)
	assert.Equal(t, -10.0, v.PnL)

	assert.Equal(t, DefaultMaxTradesPerDay, Overtrading(nil, core.Account{}).Limit)
}

func TestSequenceAudit(t *testing.T) {
	a := trade("a", 0, 1)
	a.TradeSequenceNum = 1
	b := trade("b", time.Hour, 1)
	b.TradeSequenceNum = 1 // should be 2
	c := trade("c", 2*time.Hour, 1)
	d := trade("d", 24*time.Hour, 1)
	d.TradeSequenceNum = 1

	flags := SequenceAudit([]core.Trade{d, c, b, a}, time.UTC)
	require.Len(t, flags, 1)
	assert.Equal(t, SequenceFlag{TradeID: "b", Date: "2024-03-04", Reported: 1, Observed: 2}, flags[0])
	assert.Equal(t, 1, b.TradeSequenceNum)
}

func TestBuild(t *testing.T) {
	trades := scenario()
	r := Build(trades, Options{
		Now:      base,
		Policy:   risk.DefaultPolicy(),
		Accounts: []core.Account{{ID: "apex", MaxTradesPerDay: 2}},
	})

	assert.Equal(t, 10, r.Trades)
	assert.Equal(t, 400.0, r.Performance.TotalPnL)
	assert.Equal(t, 60.0, r.Risk.WinRate)
	assert.Len(t, r.Holding, 4)
	assert.Equal(t, core.HoldingScalping, r.Holding[0].Key)
	assert.Equal(t, 10, r.Holding[0].Stats.Count)
	assert.Len(t, r.Overtrading, 1)

	again := Build(trades, Options{Now: base, Policy: risk.DefaultPolicy(), Accounts: []core.Account{{ID: "apex", MaxTradesPerDay: 2}}})
	assert.Equal(t, r, again)
}

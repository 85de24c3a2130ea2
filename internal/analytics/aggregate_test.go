package analytics

import (
	"testing"
	"time"

	"github.com/newthinker/zella/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrade(t *testing.T) {
	tests := []struct {
		winRate float64
		pnl     float64
		want    string
	}{
		{70, 100, GradeA},
		{65, 1, GradeA},
		{65, 0, GradeC},
		{60, 400, GradeB},
		{50, 10, GradeB},
		{45, -10, GradeC},
		{10, 5, GradeC},
		{39.9, 0, GradeD},
		{0, -100, GradeD},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Grade(tt.winRate, tt.pnl), "winRate=%v pnl=%v", tt.winRate, tt.pnl)
	}
}

func TestAggregate_Scenario(t *testing.T) {
	groups := Aggregate(scenario(), func(core.Trade) (string, bool) { return "all", true })
	require.Equal(t, 1, groups.Len())

	s := groups.List()[0].Stats
	assert.Equal(t, 10, s.Count)
	assert.Equal(t, 6, s.Wins)
	assert.Equal(t, 60.0, s.WinRate)
	assert.Equal(t, 40.0, s.LossRate)
	assert.Equal(t, 400.0, s.TotalPnL)
	assert.Equal(t, GradeB, s.Grade)
}

func TestBucket_EmptyReportsZeros(t *testing.T) {
	s := Bucket{}.Stats()
	assert.Equal(t, Stats{Grade: GradeF}, s)
}

func TestAggregate_AvgR(t *testing.T) {
	a := trade("a", 0, 100)
	a.RRAchieved = 2
	b := trade("b", time.Hour, -50)
	b.RRAchieved = -1

	s := Aggregate([]core.Trade{a, b}, BySymbol).List()[0].Stats
	assert.Equal(t, 0.5, s.AvgR)
}

func TestAggregate_InsertionOrder(t *testing.T) {
	trades := []core.Trade{trade("1", 0, 1), trade("2", time.Hour, 1), trade("3", 2*time.Hour, 1)}
	trades[0].Setup = "Breakout"
	trades[1].Setup = "Reversal"
	trades[2].Setup = "Breakout"

	groups := Aggregate(trades, BySetup).List()
	require.Len(t, groups, 2)
	assert.Equal(t, "Breakout", groups[0].Key)
	assert.Equal(t, "Reversal", groups[1].Key)
	assert.Equal(t, 2, groups[0].Stats.Count)
}

func TestAggregate_Deterministic(t *testing.T) {
	trades := scenario()
	first := Aggregate(trades, BySession).List()
	second := Aggregate(trades, BySession).List()
	assert.Equal(t, first, second)
}

func TestEnumerated_DropsUnknownKeys(t *testing.T) {
	sat := trade("sat", 5*24*time.Hour, 10)
	require.Equal(t, "Saturday", sat.DayOfWeek)

	groups := Enumerated("Monday", "Tuesday", "Wednesday", "Thursday", "Friday").
		Fold([]core.Trade{trade("mon", 0, 10), sat}, ByWeekday)

	assert.Equal(t, 5, groups.Len())
	assert.Equal(t, 1, groups.Dropped())
	mon, ok := groups.Get("Monday")
	require.True(t, ok)
	assert.Equal(t, 1, mon.Count)
	tue, _ := groups.Get("Tuesday")
	assert.Equal(t, 0, tue.Count)
}

func TestGroups_SortedIsStable(t *testing.T) {
	g := NewGroups[string]().Seed("x", "y", "z")
	g.Add("z", trade("1", 0, 50))
	sorted := g.Sorted(ByPnLDesc[string])
	assert.Equal(t, []string{"z", "x", "y"}, []string{sorted[0].Key, sorted[1].Key, sorted[2].Key})
}

func TestByMindset(t *testing.T) {
	tr := trade("1", 0, 10)
	tr.PreTradeMindset = "Calm"
	k, ok := ByMindset(StagePre)(tr)
	assert.True(t, ok)
	assert.Equal(t, "Calm", k)

	k, _ = ByMindset(StageMental)(tr)
	assert.Equal(t, UnknownMindset, k)
}

package analytics

import (
	"sort"

	"github.com/newthinker/zella/internal/core"
)

// MindsetRow is one mental state in the mindset matrix.
type MindsetRow struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Wins    int     `json:"wins"`
	WinRate float64 `json:"winRate"`
	PnL     float64 `json:"pnl"`
}

// TriggerRow summarizes losing trades under one mental state.
type TriggerRow struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Loss    float64 `json:"loss"`
	AvgLoss float64 `json:"avgLoss"`
	MaxLoss float64 `json:"maxLoss"`
}

// Discipline compares planned and impulsive execution.
type Discipline struct {
	PlannedCount     int     `json:"plannedCount"`
	ImpulsiveCount   int     `json:"impulsiveCount"`
	PlannedPnL       float64 `json:"plannedPnl"`
	ImpulsivePnL     float64 `json:"impulsivePnl"`
	PlannedWinRate   float64 `json:"plannedWr"`
	ImpulsiveWinRate float64 `json:"impulsiveWr"`
	AvgDiscipline    float64 `json:"avgDiscipline"`
	AvgStress        float64 `json:"avgStress"`
}

// PsychologyView is the psychology hub.
type PsychologyView struct {
	Mindsets     []MindsetRow `json:"mindsets"`
	LossTriggers []TriggerRow `json:"lossTriggers"`
	Discipline   Discipline   `json:"discipline"`
}

// Psychology builds the mindset matrix (by P&L, best first), the
// loss-trigger audit (by total loss, worst first) and discipline metrics.
func Psychology(trades []core.Trade) PsychologyView {
	v := PsychologyView{
		Mindsets:     []MindsetRow{},
		LossTriggers: []TriggerRow{},
	}

	for _, g := range Aggregate(trades, ByMindset(StageMental)).Sorted(ByPnLDesc[string]) {
		v.Mindsets = append(v.Mindsets, MindsetRow{
			Name:    g.Key,
			Count:   g.Stats.Count,
			Wins:    g.Stats.Wins,
			WinRate: g.Stats.WinRate,
			PnL:     g.Stats.TotalPnL,
		})
	}

	triggers := make(map[string]*TriggerRow)
	var order []string
	for _, t := range trades {
		if !t.IsLoss() {
			continue
		}
		name, _ := ByMindset(StageMental)(t)
		r, ok := triggers[name]
		if !ok {
			r = &TriggerRow{Name: name}
			triggers[name] = r
			order = append(order, name)
		}
		loss := -t.PnL
		r.Count++
		r.Loss += loss
		if loss > r.MaxLoss {
			r.MaxLoss = loss
		}
	}
	for _, name := range order {
		r := triggers[name]
		r.AvgLoss = r.Loss / float64(r.Count)
		v.LossTriggers = append(v.LossTriggers, *r)
	}
	sort.SliceStable(v.LossTriggers, func(i, j int) bool { return v.LossTriggers[i].Loss > v.LossTriggers[j].Loss })

	split := Enumerated(true, false).Fold(trades, ByPlanned)
	planned, _ := split.Get(true)
	impulsive, _ := split.Get(false)
	v.Discipline = Discipline{
		PlannedCount:     planned.Count,
		ImpulsiveCount:   impulsive.Count,
		PlannedPnL:       planned.TotalPnL,
		ImpulsivePnL:     impulsive.TotalPnL,
		PlannedWinRate:   planned.Stats().WinRate,
		ImpulsiveWinRate: impulsive.Stats().WinRate,
	}
	if n := len(trades); n > 0 {
		var discipline, stress int
		for _, t := range trades {
			discipline += t.DisciplineRating
			stress += t.StressLevel
		}
		v.Discipline.AvgDiscipline = float64(discipline) / float64(n)
		v.Discipline.AvgStress = float64(stress) / float64(n)
	}
	return v
}

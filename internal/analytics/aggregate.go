// Package analytics folds journaled trades into the grouped statistics and
// dashboard views of the journal. Every function is pure: it reads a trade
// snapshot and never mutates it.
package analytics

import (
	"sort"

	"github.com/newthinker/zella/internal/core"
)

// Letter grades assigned by Grade.
const (
	GradeA = "A"
	GradeB = "B"
	GradeC = "C"
	GradeD = "D"
	GradeF = "F"
)

// Grade assigns a letter from win rate (percent) and total P&L. Rules are
// checked in order and the first match wins.
func Grade(winRate, pnl float64) string {
	switch {
	case winRate >= 65 && pnl > 0:
		return GradeA
	case winRate >= 50 && pnl > 0:
		return GradeB
	case winRate >= 40 || pnl > 0:
		return GradeC
	case winRate < 40 && pnl <= 0:
		return GradeD
	default:
		return GradeF
	}
}

// Bucket accumulates one group.
type Bucket struct {
	Count    int
	Wins     int
	TotalPnL float64
	TotalR   float64
}

// Add folds t into the bucket.
func (b *Bucket) Add(t core.Trade) {
	b.Count++
	if t.IsWin() {
		b.Wins++
	}
	b.TotalPnL += t.PnL
	b.TotalR += t.RRAchieved
}

// Stats are the reported statistics of a group. Rates are percentages.
type Stats struct {
	Count    int     `json:"tradeCount"`
	Wins     int     `json:"wins"`
	WinRate  float64 `json:"winRate"`
	LossRate float64 `json:"lossRate"`
	TotalPnL float64 `json:"totalPnl"`
	AvgR     float64 `json:"avgRR"`
	Grade    string  `json:"grade"`
}

// Stats finalizes the bucket. An empty bucket reports zeros and grade F.
func (b Bucket) Stats() Stats {
	if b.Count == 0 {
		return Stats{Grade: GradeF}
	}
	winRate := float64(b.Wins) / float64(b.Count) * 100
	return Stats{
		Count:    b.Count,
		Wins:     b.Wins,
		WinRate:  winRate,
		LossRate: 100 - winRate,
		TotalPnL: b.TotalPnL,
		AvgR:     b.TotalR / float64(b.Count),
		Grade:    Grade(winRate, b.TotalPnL),
	}
}

// KeyFunc extracts a grouping key. Returning false leaves the trade out.
type KeyFunc[K comparable] func(core.Trade) (K, bool)

// Group is one finalized group.
type Group[K comparable] struct {
	Key   K     `json:"name"`
	Stats Stats `json:"stats"`
}

// Groups is an ordered set of buckets. Keys keep the order in which they
// were first seen or seeded.
type Groups[K comparable] struct {
	order   []K
	buckets map[K]*Bucket
	closed  bool
	dropped int
}

// NewGroups creates an empty open group set.
func NewGroups[K comparable]() *Groups[K] {
	return &Groups[K]{buckets: make(map[K]*Bucket)}
}

// Enumerated creates a closed group set over exactly keys. Trades whose key
// is outside the set are counted by Dropped instead of opening a group.
func Enumerated[K comparable](keys ...K) *Groups[K] {
	g := NewGroups[K]().Seed(keys...)
	g.closed = true
	return g
}

// Aggregate folds trades by key in a single pass.
func Aggregate[K comparable](trades []core.Trade, key KeyFunc[K]) *Groups[K] {
	return NewGroups[K]().Fold(trades, key)
}

// Seed pre-populates keys so they are reported even when empty.
func (g *Groups[K]) Seed(keys ...K) *Groups[K] {
	for _, k := range keys {
		g.bucket(k)
	}
	return g
}

func (g *Groups[K]) bucket(k K) *Bucket {
	b, ok := g.buckets[k]
	if !ok {
		b = &Bucket{}
		g.buckets[k] = b
		g.order = append(g.order, k)
	}
	return b
}

// Fold adds every trade under its key.
func (g *Groups[K]) Fold(trades []core.Trade, key KeyFunc[K]) *Groups[K] {
	for _, t := range trades {
		k, ok := key(t)
		if !ok {
			continue
		}
		g.Add(k, t)
	}
	return g
}

// Add folds a single trade under k.
func (g *Groups[K]) Add(k K, t core.Trade) {
	if g.closed {
		if _, ok := g.buckets[k]; !ok {
			g.dropped++
			return
		}
	}
	g.bucket(k).Add(t)
}

// Dropped counts trades rejected by a closed key set.
func (g *Groups[K]) Dropped() int { return g.dropped }

// Len is the number of groups.
func (g *Groups[K]) Len() int { return len(g.order) }

// Get returns the bucket for k.
func (g *Groups[K]) Get(k K) (Bucket, bool) {
	b, ok := g.buckets[k]
	if !ok {
		return Bucket{}, false
	}
	return *b, true
}

// List returns groups in key order.
func (g *Groups[K]) List() []Group[K] {
	out := make([]Group[K], len(g.order))
	for i, k := range g.order {
		out[i] = Group[K]{Key: k, Stats: g.buckets[k].Stats()}
	}
	return out
}

// Sorted returns groups ordered by less. Ties keep key order.
func (g *Groups[K]) Sorted(less func(a, b Group[K]) bool) []Group[K] {
	out := g.List()
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// NonEmpty filters out groups without trades.
func NonEmpty[K comparable](groups []Group[K]) []Group[K] {
	out := groups[:0:0]
	for _, g := range groups {
		if g.Stats.Count > 0 {
			out = append(out, g)
		}
	}
	return out
}

// ByPnLDesc orders groups by total P&L, largest first.
func ByPnLDesc[K comparable](a, b Group[K]) bool { return a.Stats.TotalPnL > b.Stats.TotalPnL }

// ByPnLAsc orders groups by total P&L, smallest first.
func ByPnLAsc[K comparable](a, b Group[K]) bool { return a.Stats.TotalPnL < b.Stats.TotalPnL }

// ByWinRateDesc orders groups by win rate, highest first.
func ByWinRateDesc[K comparable](a, b Group[K]) bool { return a.Stats.WinRate > b.Stats.WinRate }

// ByWinRateAsc orders groups by win rate, lowest first.
func ByWinRateAsc[K comparable](a, b Group[K]) bool { return a.Stats.WinRate < b.Stats.WinRate }

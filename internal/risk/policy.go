// Package risk computes R-multiples, their distribution and the risk
// summary shown on the risk dashboard.
package risk

import (
	"fmt"
	"math"

	"github.com/newthinker/zella/internal/core"
)

// Policy holds the named fallbacks used when a trade lacks risk inputs.
type Policy struct {
	// DefaultRiskFraction is the fraction of entry price assumed as risk
	// per unit when no stop-loss was recorded.
	DefaultRiskFraction float64 `json:"defaultRiskFraction" mapstructure:"default_risk_fraction"`
	// ProfitFactorCap is reported as profit factor when there are wins but
	// no losses.
	ProfitFactorCap float64 `json:"profitFactorCap" mapstructure:"profit_factor_cap"`
}

// DefaultPolicy assumes 1% risk without a stop and caps profit factor at 999.
func DefaultPolicy() Policy {
	return Policy{
		DefaultRiskFraction: 0.01,
		ProfitFactorCap:     999,
	}
}

// Validate checks policy bounds.
func (p Policy) Validate() error {
	if p.DefaultRiskFraction <= 0 || p.DefaultRiskFraction >= 1 {
		return fmt.Errorf("default_risk_fraction must be in (0, 1), got %v", p.DefaultRiskFraction)
	}
	if p.ProfitFactorCap <= 0 {
		return fmt.Errorf("profit_factor_cap must be positive, got %v", p.ProfitFactorCap)
	}
	return nil
}

// InitialRisk is the per-unit risk of a trade: the entry-to-stop distance,
// or DefaultRiskFraction of entry when no stop is recorded.
func (p Policy) InitialRisk(t core.Trade) float64 {
	if t.StopLoss != nil && *t.StopLoss != 0 {
		return math.Abs(t.EntryPrice - *t.StopLoss)
	}
	return t.EntryPrice * p.DefaultRiskFraction
}

// RMultiple expresses a trade's P&L in units of its initial dollar risk.
// Zero risk or zero quantity yields 0.
func (p Policy) RMultiple(t core.Trade) float64 {
	denom := p.InitialRisk(t) * t.Quantity
	if denom == 0 || math.IsNaN(denom) || math.IsInf(denom, 0) {
		return 0
	}
	r := t.PnL / denom
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}

// PlannedRR is the reward-to-risk ratio implied by stop and target, or 0
// when either is missing.
func (p Policy) PlannedRR(t core.Trade) float64 {
	if t.TakeProfit == nil || t.StopLoss == nil {
		return 0
	}
	risk := math.Abs(t.EntryPrice - *t.StopLoss)
	if risk == 0 {
		return 0
	}
	return math.Abs(*t.TakeProfit-t.EntryPrice) / risk
}

// InitialRisk applies DefaultPolicy.
func InitialRisk(t core.Trade) float64 { return DefaultPolicy().InitialRisk(t) }

// RMultiple applies DefaultPolicy.
func RMultiple(t core.Trade) float64 { return DefaultPolicy().RMultiple(t) }

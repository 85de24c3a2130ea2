// Package core holds the trade, account and error types shared by every
// journal component.
package core

import "time"

// Direction is the side of a trade
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Sign returns +1 for long trades and -1 for short trades
func (d Direction) Sign() float64 {
	if d == DirectionShort {
		return -1
	}
	return 1
}

// IsValid reports whether d is a known direction
func (d Direction) IsValid() bool {
	return d == DirectionLong || d == DirectionShort
}

// Status is the realized outcome of a closed trade
type Status string

const (
	StatusWin       Status = "WIN"
	StatusLoss      Status = "LOSS"
	StatusBreakeven Status = "BREAKEVEN"
)

// HoldingCategory is the coarse bucket of a trade's holding duration
type HoldingCategory string

const (
	HoldingScalping HoldingCategory = "SCALPING"
	HoldingIntraday HoldingCategory = "INTRADAY"
	HoldingSwing    HoldingCategory = "SWING"
	HoldingLongTerm HoldingCategory = "LONG-TERM"
)

// PropStage is the prop-firm account stage a trade was taken in
type PropStage string

const (
	StagePaper      PropStage = "PAPER"
	StageEvaluation PropStage = "EVALUATION"
	StageLive       PropStage = "LIVE"
	StageQualified  PropStage = "QUALIFIED"
	StageOther      PropStage = "OTHER"
)

// Trade is a single closed execution record.
// Session, calendar and holding fields are derived from the timestamps and
// the session profile; see package temporal.
type Trade struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"type"`
	AccountID string    `json:"accountId,omitempty"`
	PropStage PropStage `json:"propAccountStage,omitempty"`

	EntryPrice float64  `json:"entryPrice"`
	ExitPrice  float64  `json:"exitPrice"`
	StopLoss   *float64 `json:"stopLoss,omitempty"`
	TakeProfit *float64 `json:"takeProfit,omitempty"`
	Quantity   float64  `json:"quantity"`

	EntryTime time.Time `json:"entryTimestamp"`
	ExitTime  time.Time `json:"exitTimestamp"`

	PnL    float64 `json:"pnl"`
	Status Status  `json:"status"`

	// Derived temporal attributes
	HoldingDuration string          `json:"holdingDuration"`
	HoldingCategory HoldingCategory `json:"holdingCategory"`
	Session         string          `json:"session"`
	DayOfWeek       string          `json:"dayOfWeek"`
	WeekOfMonth     int             `json:"weekOfMonth"`
	Month           string          `json:"month"`

	// Psychology and discipline
	PreTradeMindset    string `json:"preTradeMindset,omitempty"`
	DuringTradeMindset string `json:"duringTradeMindset,omitempty"`
	PostTradeMindset   string `json:"postTradeMindset,omitempty"`
	MentalState        string `json:"mentalState,omitempty"`
	StressLevel        int    `json:"stressLevel"`
	DisciplineRating   int    `json:"disciplineRating"`
	IsPlanned          bool   `json:"isPlanned"`
	TradeSequenceNum   int    `json:"tradeSequenceNum,omitempty"`

	// Risk metadata
	RiskUsedPct     float64 `json:"riskUsedPct,omitempty"`
	RiskUsedAmt     float64 `json:"riskUsedAmt,omitempty"`
	RRPlanned       float64 `json:"rrPlanned,omitempty"`
	RRAchieved      float64 `json:"rrAchieved"`
	RiskReasoning   string  `json:"riskReasoning,omitempty"`
	MarketCondition string  `json:"marketCondition,omitempty"`

	Setup          string   `json:"setup"`
	EntryReason    string   `json:"entryReason,omitempty"`
	ExitReason     string   `json:"exitReason,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	Tags           []string `json:"tags,omitempty"`
	Mistakes       []string `json:"mistakes,omitempty"`
	ScreenshotLink string   `json:"screenshotLink,omitempty"`

	MaxPriceDuringTrade *float64 `json:"maxPriceDuringTrade,omitempty"`
	MinPriceDuringTrade *float64 `json:"minPriceDuringTrade,omitempty"`
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// IsLoss returns true if the trade lost money
func (t Trade) IsLoss() bool {
	return t.PnL < 0
}

// PnL computes realized profit or loss for a closed trade.
func PnL(d Direction, entry, exit, quantity float64) float64 {
	return (exit - entry) * quantity * d.Sign()
}

// StatusOf classifies a realized P&L.
func StatusOf(pnl float64) Status {
	switch {
	case pnl > 0:
		return StatusWin
	case pnl < 0:
		return StatusLoss
	default:
		return StatusBreakeven
	}
}

// AccountType classifies a trading account
type AccountType string

const (
	AccountProp     AccountType = "PROP"
	AccountPersonal AccountType = "PERSONAL"
	AccountIRA      AccountType = "IRA"
)

// DrawdownType is how a prop firm measures drawdown
type DrawdownType string

const (
	DrawdownEquity   DrawdownType = "EQUITY"
	DrawdownBalance  DrawdownType = "BALANCE"
	DrawdownTrailing DrawdownType = "TRAILING"
	DrawdownStatic   DrawdownType = "STATIC"
)

// Account is a trading account with optional prop-firm rules
type Account struct {
	ID                   string       `json:"id" mapstructure:"id"`
	Name                 string       `json:"name" mapstructure:"name"`
	Type                 AccountType  `json:"type" mapstructure:"type"`
	Balance              float64      `json:"balance" mapstructure:"balance"`
	Broker               string       `json:"broker" mapstructure:"broker"`
	MaxTradesPerDay      int          `json:"maxTradesPerDay,omitempty" mapstructure:"max_trades_per_day"`
	MaxLossPerDay        float64      `json:"maxLossPerDay,omitempty" mapstructure:"max_loss_per_day"`
	DailyDrawdownLimit   float64      `json:"dailyDrawdownLimit,omitempty" mapstructure:"daily_drawdown_limit"`
	OverallDrawdownLimit float64      `json:"overallDrawdownLimit,omitempty" mapstructure:"overall_drawdown_limit"`
	DrawdownType         DrawdownType `json:"drawdownType,omitempty" mapstructure:"drawdown_type"`
	ProfitTarget         float64      `json:"profitTarget,omitempty" mapstructure:"profit_target"`
	MaxLots              float64      `json:"maxLots,omitempty" mapstructure:"max_lots"`
}

// Role is the coarse access level of a caller
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

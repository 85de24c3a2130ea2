// Package journal is the boundary between raw trade input and the
// analytics core.
package journal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/risk"
	"github.com/newthinker/zella/internal/temporal"
)

const (
	// DefaultStress is used when no stress level is given.
	DefaultStress = 5
	// DefaultDiscipline is used when no discipline rating is given.
	DefaultDiscipline = 10
	// UnknownSymbol replaces an empty symbol.
	UnknownSymbol = "UNKNOWN"
)

// Accepted timestamp layouts besides RFC 3339. They are read in Entry.Zone.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// Entry is a trade as submitted by a form or import file. Numbers arrive
// as strings and are validated by Build.
type Entry struct {
	Symbol    string `json:"symbol" yaml:"symbol"`
	Type      string `json:"type" yaml:"type"`
	AccountID string `json:"accountId,omitempty" yaml:"accountId,omitempty"`
	PropStage string `json:"propAccountStage,omitempty" yaml:"propAccountStage,omitempty"`

	EntryPrice string `json:"entryPrice" yaml:"entryPrice"`
	ExitPrice  string `json:"exitPrice" yaml:"exitPrice"`
	StopLoss   string `json:"stopLoss,omitempty" yaml:"stopLoss,omitempty"`
	TakeProfit string `json:"takeProfit,omitempty" yaml:"takeProfit,omitempty"`
	Quantity   string `json:"quantity" yaml:"quantity"`

	EntryTime string `json:"entryTimestamp" yaml:"entryTimestamp"`
	ExitTime  string `json:"exitTimestamp" yaml:"exitTimestamp"`
	// Zone is the IANA zone of timestamps given without an offset.
	Zone string `json:"zone,omitempty" yaml:"zone,omitempty"`

	Setup          string   `json:"setup,omitempty" yaml:"setup,omitempty"`
	Notes          string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	Tags           []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Mistakes       []string `json:"mistakes,omitempty" yaml:"mistakes,omitempty"`
	EntryReason    string   `json:"entryReason,omitempty" yaml:"entryReason,omitempty"`
	ExitReason     string   `json:"exitReason,omitempty" yaml:"exitReason,omitempty"`
	ScreenshotLink string   `json:"screenshotLink,omitempty" yaml:"screenshotLink,omitempty"`

	PreTradeMindset    string `json:"preTradeMindset,omitempty" yaml:"preTradeMindset,omitempty"`
	DuringTradeMindset string `json:"duringTradeMindset,omitempty" yaml:"duringTradeMindset,omitempty"`
	PostTradeMindset   string `json:"postTradeMindset,omitempty" yaml:"postTradeMindset,omitempty"`
	MentalState        string `json:"mentalState,omitempty" yaml:"mentalState,omitempty"`
	StressLevel        int    `json:"stressLevel,omitempty" yaml:"stressLevel,omitempty"`
	DisciplineRating   int    `json:"disciplineRating,omitempty" yaml:"disciplineRating,omitempty"`
	IsPlanned          *bool  `json:"isPlanned,omitempty" yaml:"isPlanned,omitempty"`
	TradeSequenceNum   string `json:"tradeSequenceNum,omitempty" yaml:"tradeSequenceNum,omitempty"`

	RiskUsedPct     string `json:"riskUsedPct,omitempty" yaml:"riskUsedPct,omitempty"`
	RiskUsedAmt     string `json:"riskUsedAmt,omitempty" yaml:"riskUsedAmt,omitempty"`
	RRPlanned       string `json:"rrPlanned,omitempty" yaml:"rrPlanned,omitempty"`
	RRAchieved      string `json:"rrAchieved,omitempty" yaml:"rrAchieved,omitempty"`
	RiskReasoning   string `json:"riskReasoning,omitempty" yaml:"riskReasoning,omitempty"`
	MarketCondition string `json:"marketCondition,omitempty" yaml:"marketCondition,omitempty"`

	MaxPriceDuringTrade string `json:"maxPriceDuringTrade,omitempty" yaml:"maxPriceDuringTrade,omitempty"`
	MinPriceDuringTrade string `json:"minPriceDuringTrade,omitempty" yaml:"minPriceDuringTrade,omitempty"`
}

// Build validates the entry and returns a complete trade with P&L,
// status, achieved R and temporal fields filled in.
func (e Entry) Build(id string, profile temporal.Profile, policy risk.Policy) (core.Trade, error) {
	var errs fieldErrors

	dir := core.Direction(strings.ToUpper(strings.TrimSpace(e.Type)))
	if dir == "" {
		dir = core.DirectionLong
	}
	if !dir.IsValid() {
		errs.add("type", fmt.Errorf("unknown direction %q", e.Type))
	}

	entryPrice := errs.required("entryPrice", e.EntryPrice)
	exitPrice := errs.required("exitPrice", e.ExitPrice)
	qty := errs.required("quantity", e.Quantity)
	if qty <= 0 && !errs.has("quantity") {
		errs.add("quantity", fmt.Errorf("must be positive, got %g", qty))
	}

	t := core.Trade{
		ID:                  id,
		Symbol:              strings.ToUpper(strings.TrimSpace(e.Symbol)),
		Direction:           dir,
		AccountID:           e.AccountID,
		PropStage:           core.PropStage(strings.ToUpper(e.PropStage)),
		EntryPrice:          entryPrice,
		ExitPrice:           exitPrice,
		StopLoss:            errs.optional("stopLoss", e.StopLoss),
		TakeProfit:          errs.optional("takeProfit", e.TakeProfit),
		Quantity:            qty,
		Setup:               strings.TrimSpace(e.Setup),
		Notes:               e.Notes,
		Tags:                e.Tags,
		Mistakes:            e.Mistakes,
		EntryReason:         e.EntryReason,
		ExitReason:          e.ExitReason,
		ScreenshotLink:      e.ScreenshotLink,
		PreTradeMindset:     e.PreTradeMindset,
		DuringTradeMindset:  e.DuringTradeMindset,
		PostTradeMindset:    e.PostTradeMindset,
		MentalState:         e.MentalState,
		StressLevel:         errs.rating("stressLevel", e.StressLevel, DefaultStress),
		DisciplineRating:    errs.rating("disciplineRating", e.DisciplineRating, DefaultDiscipline),
		IsPlanned:           e.IsPlanned == nil || *e.IsPlanned,
		RiskUsedPct:         errs.number("riskUsedPct", e.RiskUsedPct),
		RiskUsedAmt:         errs.number("riskUsedAmt", e.RiskUsedAmt),
		RRPlanned:           errs.number("rrPlanned", e.RRPlanned),
		RiskReasoning:       e.RiskReasoning,
		MarketCondition:     e.MarketCondition,
		MaxPriceDuringTrade: errs.optional("maxPriceDuringTrade", e.MaxPriceDuringTrade),
		MinPriceDuringTrade: errs.optional("minPriceDuringTrade", e.MinPriceDuringTrade),
	}
	if t.Symbol == "" {
		t.Symbol = UnknownSymbol
	}
	if t.MentalState == "" {
		t.MentalState = t.PreTradeMindset
	}
	if s := strings.TrimSpace(e.TradeSequenceNum); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			errs.add("tradeSequenceNum", fmt.Errorf("must be a positive integer, got %q", s))
		}
		t.TradeSequenceNum = n
	}

	loc := time.UTC
	if e.Zone != "" {
		l, err := temporal.LoadZone(e.Zone)
		if err != nil {
			errs.add("zone", err)
		} else {
			loc = l
		}
	}
	t.EntryTime = errs.timestamp("entryTimestamp", e.EntryTime, loc)
	t.ExitTime = errs.timestamp("exitTimestamp", e.ExitTime, loc)
	if !errs.has("entryTimestamp") && !errs.has("exitTimestamp") && t.ExitTime.Before(t.EntryTime) {
		errs.add("exitTimestamp", fmt.Errorf("exit %s is before entry %s",
			t.ExitTime.Format(time.RFC3339), t.EntryTime.Format(time.RFC3339)))
	}

	if err := errs.err(); err != nil {
		return core.Trade{}, err
	}

	t.PnL = core.PnL(t.Direction, t.EntryPrice, t.ExitPrice, t.Quantity)
	if !finite(t.PnL) {
		return core.Trade{}, core.WrapError(core.ErrInvalidTrade,
			fmt.Errorf("pnl: %v is out of range for prices and quantity given", t.PnL))
	}
	t.Status = core.StatusOf(t.PnL)

	if rr := strings.TrimSpace(e.RRAchieved); rr != "" {
		v, err := parseNumber(rr)
		if err != nil {
			return core.Trade{}, core.WrapError(core.ErrInvalidTrade, fmt.Errorf("rrAchieved: %w", err))
		}
		t.RRAchieved = v
	} else {
		t.RRAchieved = policy.RMultiple(t)
	}
	if t.RRPlanned == 0 {
		t.RRPlanned = policy.PlannedRR(t)
	}
	if !finite(t.RRAchieved) || !finite(t.RRPlanned) {
		return core.Trade{}, core.WrapError(core.ErrInvalidTrade, fmt.Errorf("risk/reward is out of range"))
	}

	fields, err := temporal.Derive(t.EntryTime, t.ExitTime, profile)
	if err != nil {
		return core.Trade{}, core.WrapError(core.ErrConfigInvalid, err)
	}
	return fields.Apply(t), nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if !finite(v) {
		return 0, fmt.Errorf("not a finite number: %q", s)
	}
	return v, nil
}

func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// fieldErrors collects per-field validation failures so a form gets every
// problem back at once.
type fieldErrors struct {
	fields []string
	msgs   []string
}

func (f *fieldErrors) add(field string, err error) {
	f.fields = append(f.fields, field)
	f.msgs = append(f.msgs, field+": "+err.Error())
}

func (f *fieldErrors) has(field string) bool {
	for _, name := range f.fields {
		if name == field {
			return true
		}
	}
	return false
}

func (f *fieldErrors) required(field, s string) float64 {
	if strings.TrimSpace(s) == "" {
		f.add(field, fmt.Errorf("required"))
		return 0
	}
	v, err := parseNumber(s)
	if err != nil {
		f.add(field, err)
	}
	return v
}

func (f *fieldErrors) number(field, s string) float64 {
	if strings.TrimSpace(s) == "" {
		return 0
	}
	v, err := parseNumber(s)
	if err != nil {
		f.add(field, err)
	}
	return v
}

func (f *fieldErrors) optional(field, s string) *float64 {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	v, err := parseNumber(s)
	if err != nil {
		f.add(field, err)
		return nil
	}
	return &v
}

func (f *fieldErrors) rating(field string, v, def int) int {
	if v == 0 {
		return def
	}
	if v < 1 || v > 10 {
		f.add(field, fmt.Errorf("must be between 1 and 10, got %d", v))
	}
	return v
}

func (f *fieldErrors) timestamp(field, s string, loc *time.Location) time.Time {
	if strings.TrimSpace(s) == "" {
		f.add(field, fmt.Errorf("required"))
		return time.Time{}
	}
	t, err := parseTimestamp(s, loc)
	if err != nil {
		f.add(field, err)
	}
	return t
}

func (f *fieldErrors) err() error {
	if len(f.msgs) == 0 {
		return nil
	}
	return core.WrapError(core.ErrInvalidTrade, fmt.Errorf("%s", strings.Join(f.msgs, "; ")))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

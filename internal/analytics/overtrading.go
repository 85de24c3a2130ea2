package analytics

import (
	"time"

	"github.com/newthinker/zella/internal/core"
)

// DefaultMaxTradesPerDay applies when an account sets no daily limit.
const DefaultMaxTradesPerDay = 2

// Overtrade is a trade taken past the account's daily limit.
type Overtrade struct {
	TradeID  string  `json:"tradeId"`
	Symbol   string  `json:"symbol"`
	Sequence int     `json:"sequence"`
	PnL      float64 `json:"pnl"`
}

// OvertradingView reports overtrading against one account's limit.
type OvertradingView struct {
	AccountID string      `json:"accountId"`
	Limit     int         `json:"limit"`
	Count     int         `json:"count"`
	PnL       float64     `json:"pnl"`
	Trades    []Overtrade `json:"trades"`
}

// Overtrading lists trades whose self-reported daily sequence number
// exceeds the account's MaxTradesPerDay. Only trades booked to the account
// are considered when it has an id. The sequence number is taken as
// reported; see SequenceAudit for disagreements with entry order.
func Overtrading(trades []core.Trade, acct core.Account) OvertradingView {
	limit := acct.MaxTradesPerDay
	if limit <= 0 {
		limit = DefaultMaxTradesPerDay
	}
	v := OvertradingView{AccountID: acct.ID, Limit: limit, Trades: []Overtrade{}}
	for _, t := range sortedByEntry(trades) {
		if acct.ID != "" && t.AccountID != acct.ID {
			continue
		}
		if t.TradeSequenceNum > limit {
			v.Trades = append(v.Trades, Overtrade{TradeID: t.ID, Symbol: t.Symbol, Sequence: t.TradeSequenceNum, PnL: t.PnL})
			v.PnL += t.PnL
		}
	}
	v.Count = len(v.Trades)
	return v
}

// SequenceFlag marks a self-reported sequence number that disagrees with
// the trade's position among same-day entries on its account.
type SequenceFlag struct {
	TradeID  string `json:"tradeId"`
	Date     string `json:"date"`
	Reported int    `json:"reported"`
	Observed int    `json:"observed"`
}

// SequenceAudit compares each reported sequence number with the entry
// order of trades on the same account and calendar day in loc. Trades with
// no reported number are skipped. Nothing is rewritten.
func SequenceAudit(trades []core.Trade, loc *time.Location) []SequenceFlag {
	type dayKey struct{ account, date string }
	seen := make(map[dayKey]int)
	flags := []SequenceFlag{}
	for _, t := range sortedByEntry(trades) {
		k := dayKey{account: t.AccountID, date: t.EntryTime.In(loc).Format("2006-01-02")}
		seen[k]++
		if t.TradeSequenceNum > 0 && t.TradeSequenceNum != seen[k] {
			flags = append(flags, SequenceFlag{TradeID: t.ID, Date: k.date, Reported: t.TradeSequenceNum, Observed: seen[k]})
		}
	}
	return flags
}

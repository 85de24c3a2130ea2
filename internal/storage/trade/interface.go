// internal/storage/trade/interface.go
package trade

import (
	"context"
	"sort"
	"time"

	"github.com/newthinker/zella/internal/core"
)

// Store persists each user's journal as a flat trade id -> trade mapping.
type Store interface {
	// Put inserts or replaces a trade.
	Put(ctx context.Context, userID string, t core.Trade) error

	// Get retrieves a trade by id. Missing trades yield core.ErrTradeNotFound.
	Get(ctx context.Context, userID, id string) (core.Trade, error)

	// Delete removes a trade. Missing trades yield core.ErrTradeNotFound.
	Delete(ctx context.Context, userID, id string) error

	// Snapshot returns every trade of a user keyed by id.
	Snapshot(ctx context.Context, userID string) (map[string]core.Trade, error)

	// Close releases backend resources.
	Close() error
}

// Filter narrows an ordered trade list.
type Filter struct {
	Symbol    string
	AccountID string
	Setup     string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// Ordered converts a snapshot into a sequence ordered by entry time, then id.
func Ordered(snapshot map[string]core.Trade) []core.Trade {
	out := make([]core.Trade, 0, len(snapshot))
	for _, t := range snapshot {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].EntryTime.Before(out[j].EntryTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Apply returns the trades matching the filter, then applies offset and limit.
func (f Filter) Apply(trades []core.Trade) []core.Trade {
	result := make([]core.Trade, 0, len(trades))
	for _, t := range trades {
		if f.matches(t) {
			result = append(result, t)
		}
	}

	if f.Offset >= len(result) && f.Offset > 0 {
		return []core.Trade{}
	}
	if f.Offset > 0 {
		result = result[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(result) {
		result = result[:f.Limit]
	}
	return result
}

func (f Filter) matches(t core.Trade) bool {
	if f.Symbol != "" && t.Symbol != f.Symbol {
		return false
	}
	if f.AccountID != "" && t.AccountID != f.AccountID {
		return false
	}
	if f.Setup != "" && t.Setup != f.Setup {
		return false
	}
	if !f.From.IsZero() && t.EntryTime.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && t.EntryTime.After(f.To) {
		return false
	}
	return true
}

func notFound(id string) error {
	return &core.Error{Code: core.ErrTradeNotFound.Code, Message: "trade " + id + " not found"}
}

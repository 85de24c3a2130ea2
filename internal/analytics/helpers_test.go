package analytics

import (
	"time"

	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/temporal"
)

var base = time.Date(2024, time.March, 4, 14, 0, 0, 0, time.UTC) // Monday

// trade builds a derived trade entered at base+offset and held 20 minutes.
func trade(id string, offset time.Duration, pnl float64) core.Trade {
	entry := base.Add(offset)
	t := core.Trade{
		ID:         id,
		Symbol:     "ES",
		Direction:  core.DirectionLong,
		EntryPrice: 100,
		Quantity:   1,
		EntryTime:  entry,
		ExitTime:   entry.Add(20 * time.Minute),
		PnL:        pnl,
		ExitPrice:  100 + pnl,
		Status:     core.StatusOf(pnl),
	}
	f, err := temporal.Derive(t.EntryTime, t.ExitTime, temporal.DefaultProfile())
	if err != nil {
		panic(err)
	}
	return f.Apply(t)
}

// scenario returns six wins totalling +600 and four losses totalling -200.
func scenario() []core.Trade {
	var out []core.Trade
	for i := 0; i < 6; i++ {
		out = append(out, trade(string(rune('a'+i)), time.Duration(i)*time.Hour, 100))
	}
	for i := 6; i < 10; i++ {
		out = append(out, trade(string(rune('a'+i)), time.Duration(i)*time.Hour, -50))
	}
	return out
}

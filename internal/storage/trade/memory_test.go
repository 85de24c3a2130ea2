// internal/storage/trade/memory_test.go
package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/zella/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, time.May, 6, 14, 0, 0, 0, time.UTC)

func sample(id, symbol string, offset time.Duration) core.Trade {
	return core.Trade{
		ID:        id,
		Symbol:    symbol,
		Direction: core.DirectionLong,
		EntryTime: t0.Add(offset),
		ExitTime:  t0.Add(offset + 10*time.Minute),
		PnL:       25,
		Status:    core.StatusWin,
		Tags:      []string{"a+"},
	}
}

func TestMemoryStore_PutAndGet(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", sample("t1", "ES", 0)))

	got, err := store.Get(ctx, "u1", "t1")
	require.NoError(t, err)
	assert.Equal(t, "ES", got.Symbol)

	_, err = store.Get(ctx, "u2", "t1")
	assert.True(t, errors.Is(err, core.ErrTradeNotFound))
}

func TestMemoryStore_RejectsEmptyID(t *testing.T) {
	err := NewMemoryStore(0).Put(context.Background(), "u1", core.Trade{})
	assert.True(t, errors.Is(err, core.ErrInvalidTrade))
}

func TestMemoryStore_Delete(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "u1", sample("t1", "ES", 0)))

	require.NoError(t, store.Delete(ctx, "u1", "t1"))
	assert.True(t, errors.Is(store.Delete(ctx, "u1", "t1"), core.ErrTradeNotFound))
}

func TestMemoryStore_SnapshotIsACopy(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "u1", sample("t1", "ES", 0)))

	snap, err := store.Snapshot(ctx, "u1")
	require.NoError(t, err)
	tr := snap["t1"]
	tr.Tags[0] = "mutated"
	snap["t1"] = tr
	delete(snap, "t1")

	again, _ := store.Snapshot(ctx, "u1")
	require.Len(t, again, 1)
	assert.Equal(t, "a+", again["t1"].Tags[0])
}

func TestMemoryStore_MaxPerUser(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "u1", sample("a", "ES", 0)))
	require.NoError(t, store.Put(ctx, "u1", sample("b", "ES", time.Hour)))
	err := store.Put(ctx, "u1", sample("c", "ES", 2*time.Hour))
	assert.True(t, errors.Is(err, core.ErrStoreFailed))

	// Replacing an existing trade is allowed
	assert.NoError(t, store.Put(ctx, "u1", sample("a", "NQ", 0)))
	// Other users are unaffected
	assert.NoError(t, store.Put(ctx, "u2", sample("c", "ES", 0)))
}

func TestOrdered(t *testing.T) {
	snap := map[string]core.Trade{
		"b": sample("b", "ES", time.Hour),
		"c": sample("c", "ES", 0),
		"a": sample("a", "ES", 0),
	}
	ordered := Ordered(snap)
	require.Len(t, ordered, 3)
	assert.Equal(t, []string{"a", "c", "b"}, []string{ordered[0].ID, ordered[1].ID, ordered[2].ID})
}

func TestFilter_Apply(t *testing.T) {
	trades := []core.Trade{
		sample("1", "ES", 0),
		sample("2", "NQ", time.Hour),
		sample("3", "ES", 2*time.Hour),
		sample("4", "ES", 3*time.Hour),
	}

	assert.Len(t, Filter{Symbol: "ES"}.Apply(trades), 3)
	assert.Len(t, Filter{From: t0.Add(90 * time.Minute)}.Apply(trades), 2)
	assert.Len(t, Filter{To: t0.Add(time.Hour)}.Apply(trades), 2)

	page := Filter{Symbol: "ES", Offset: 1, Limit: 1}.Apply(trades)
	require.Len(t, page, 1)
	assert.Equal(t, "3", page[0].ID)

	assert.Empty(t, Filter{Offset: 10}.Apply(trades))
}

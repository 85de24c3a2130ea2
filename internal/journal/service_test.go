package journal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/zella/internal/analytics"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/settings"
	"github.com/newthinker/zella/internal/storage/archive"
	"github.com/newthinker/zella/internal/storage/trade"
	"github.com/newthinker/zella/internal/temporal"
)

var testNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) add(e Event) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) types() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

func newTestService(t *testing.T, opts Options) (*Service, *eventLog) {
	t.Helper()
	st, err := settings.New(temporal.DefaultProfile(), nil, nil)
	require.NoError(t, err)
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	svc, err := NewService(trade.NewMemoryStore(0), st, opts)
	require.NoError(t, err)
	log := &eventLog{}
	svc.Subscribe(log.add)
	return svc, log
}

func entryAt(entry, exit, price string) Entry {
	e := validEntry()
	e.EntryTime = entry
	e.ExitTime = exit
	e.ExitPrice = price
	return e
}

func TestNewService_RequiresDeps(t *testing.T) {
	_, err := NewService(nil, nil, Options{})
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestService_RecordGetList(t *testing.T) {
	svc, log := newTestService(t, Options{})
	ctx := context.Background()
	alice := auth.User("alice", "")

	late, err := svc.Record(ctx, alice, "alice", entryAt("2024-03-05T14:00:00Z", "2024-03-05T15:00:00Z", "90"))
	require.NoError(t, err)
	early, err := svc.Record(ctx, alice, "alice", entryAt("2024-03-04T14:00:00Z", "2024-03-04T15:00:00Z", "110"))
	require.NoError(t, err)
	assert.True(t, late.Check.Allowed)
	assert.Equal(t, core.StatusLoss, late.Trade.Status)

	got, err := svc.Get(ctx, alice, "alice", early.Trade.ID)
	require.NoError(t, err)
	assert.Equal(t, "Monday", got.DayOfWeek)

	list, err := svc.List(ctx, alice, "alice", trade.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, early.Trade.ID, list[0].ID)
	assert.Equal(t, late.Trade.ID, list[1].ID)

	assert.Equal(t, []string{EventTradesChanged, EventTradesChanged}, log.types())
}

func TestService_RecordRejected(t *testing.T) {
	svc, log := newTestService(t, Options{})
	e := validEntry()
	e.Quantity = "0"

	_, err := svc.Record(context.Background(), auth.Admin(), "alice", e)
	assert.ErrorIs(t, err, core.ErrInvalidTrade)
	assert.Empty(t, log.types())
}

func TestService_AccessControl(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()

	_, err := svc.Record(ctx, auth.Guest(), auth.GuestUserID, validEntry())
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.Record(ctx, auth.User("bob", ""), "alice", validEntry())
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.List(ctx, auth.Guest(), "alice", trade.Filter{})
	assert.ErrorIs(t, err, core.ErrForbidden)

	rec, err := svc.Record(ctx, auth.Admin(), "alice", validEntry())
	require.NoError(t, err)

	err = svc.Delete(ctx, auth.User("bob", ""), "alice", rec.Trade.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestService_Delete(t *testing.T) {
	svc, log := newTestService(t, Options{})
	ctx := context.Background()
	alice := auth.User("alice", "")

	rec, err := svc.Record(ctx, alice, "alice", validEntry())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, alice, "alice", rec.Trade.ID))
	_, err = svc.Get(ctx, alice, "alice", rec.Trade.ID)
	assert.ErrorIs(t, err, core.ErrTradeNotFound)

	err = svc.Delete(ctx, alice, "alice", rec.Trade.ID)
	assert.ErrorIs(t, err, core.ErrTradeNotFound)
	assert.Len(t, log.types(), 2)
}

func TestService_AccountRules(t *testing.T) {
	acct := core.Account{ID: "acc", Name: "Eval", Type: core.AccountProp, Balance: 10000, MaxTradesPerDay: 1}
	svc, log := newTestService(t, Options{Accounts: []core.Account{acct}})
	ctx := context.Background()
	alice := auth.User("alice", "")

	first := validEntry()
	first.AccountID = "acc"
	res, err := svc.Record(ctx, alice, "alice", first)
	require.NoError(t, err)
	assert.True(t, res.Check.Allowed)

	second := entryAt("2024-03-04T16:00:00Z", "2024-03-04T16:30:00Z", "105")
	second.AccountID = "acc"
	res, err = svc.Record(ctx, alice, "alice", second)
	require.NoError(t, err)
	assert.False(t, res.Check.Allowed)
	require.Len(t, res.Check.Reasons, 1)
	assert.Contains(t, res.Check.Reasons[0], "max trades per day")

	log.mu.Lock()
	require.Len(t, log.events, 2)
	assert.Empty(t, log.events[0].Breaches)
	assert.Equal(t, "acc", log.events[1].AccountID)
	assert.Equal(t, res.Check.Reasons, log.events[1].Breaches)
	log.mu.Unlock()

	list, err := svc.List(ctx, alice, "alice", trade.Filter{AccountID: "acc"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, ok := svc.Account("missing")
	assert.False(t, ok)
	assert.Len(t, svc.Accounts(), 1)
}

func TestService_UpdateProfileRederives(t *testing.T) {
	svc, log := newTestService(t, Options{})
	ctx := context.Background()
	alice := auth.User("alice", "")

	rec, err := svc.Record(ctx, alice, "alice", validEntry())
	require.NoError(t, err)
	assert.Equal(t, temporal.SessionLondonNewYork, rec.Trade.Session)

	profile := temporal.DefaultProfile()
	profile.Sessions.London = temporal.Window{Start: "08:00", End: "12:00"}
	profile.Sessions.NewYork = temporal.Window{Start: "15:00", End: "22:00"}

	_, err = svc.UpdateProfile(ctx, alice, profile)
	assert.ErrorIs(t, err, core.ErrForbidden)

	version, err := svc.UpdateProfile(ctx, auth.Admin(), profile)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), version)

	got, err := svc.Get(ctx, alice, "alice", rec.Trade.ID)
	require.NoError(t, err)
	assert.Equal(t, temporal.SessionOffHours, got.Session)

	_, current := svc.Profile()
	assert.Equal(t, uint64(2), current)
	assert.Contains(t, log.types(), EventSessionsChanged)
	assert.Equal(t, uint64(2), svc.DeriverStats().Version)
}

func TestService_Import(t *testing.T) {
	svc, log := newTestService(t, Options{})
	bad := validEntry()
	bad.EntryPrice = "oops"

	res, err := svc.Import(context.Background(), auth.User("alice", ""), "alice", []Entry{validEntry(), bad, validEntry()})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Len(t, res.IDs, 2)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Len(t, log.types(), 2)
}

func TestService_SampleJournal(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	require.NoError(t, svc.SeedSample(ctx))
	require.NoError(t, svc.SeedSample(ctx))

	list, err := svc.List(ctx, auth.Guest(), auth.GuestUserID, trade.Filter{})
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "TSLA", list[0].Symbol)
	assert.InDelta(t, -265.0, list[0].PnL, 1e-9)
	assert.Equal(t, core.HoldingScalping, list[0].HoldingCategory)
	assert.Equal(t, "NVDA", list[1].Symbol)
	assert.InDelta(t, 670.0, list[1].PnL, 1e-9)
	assert.Equal(t, "02:15", list[1].HoldingDuration)
}

func TestService_Report(t *testing.T) {
	svc, _ := newTestService(t, Options{})
	ctx := context.Background()
	alice := auth.User("alice", "")

	_, err := svc.Record(ctx, alice, "alice", entryAt("2024-03-04T14:00:00Z", "2024-03-04T15:00:00Z", "110"))
	require.NoError(t, err)
	_, err = svc.Record(ctx, alice, "alice", entryAt("2024-03-05T14:00:00Z", "2024-03-05T15:00:00Z", "95"))
	require.NoError(t, err)

	r, err := svc.Report(ctx, alice, "alice", analytics.WindowLifetime)
	require.NoError(t, err)
	assert.Equal(t, 2, r.Trades)
	assert.Equal(t, testNow, r.GeneratedAt)
	assert.Equal(t, 2, r.Risk.Trades)

	_, err = svc.Report(ctx, auth.Guest(), "alice", analytics.WindowLifetime)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestService_Export(t *testing.T) {
	ctx := context.Background()

	noArchive, _ := newTestService(t, Options{})
	_, err := noArchive.Export(ctx, auth.Admin(), "alice")
	assert.ErrorIs(t, err, core.ErrConfigMissing)

	arch, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	svc, _ := newTestService(t, Options{Archive: arch})

	_, err = svc.Record(ctx, auth.Admin(), "alice", validEntry())
	require.NoError(t, err)

	path, err := svc.Export(ctx, auth.Admin(), "alice")
	require.NoError(t, err)
	assert.Equal(t, archive.ExportPath("alice", testNow), path)

	data, err := arch.Read(ctx, path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"symbol": "AAPL"`)
}

package alert

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/journal"
	"github.com/newthinker/zella/internal/notifier"
	"github.com/newthinker/zella/internal/settings"
	"github.com/newthinker/zella/internal/storage/trade"
	"github.com/newthinker/zella/internal/temporal"
)

type fakeSender struct {
	mu     sync.Mutex
	alerts []notifier.Alert
	fail   bool
}

func (f *fakeSender) NotifyAll(ctx context.Context, a notifier.Alert) map[string]error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, a)
	if f.fail {
		return map[string]error{"webhook": errors.New("down")}
	}
	return nil
}

func (f *fakeSender) rules() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.alerts))
	for i, a := range f.alerts {
		out[i] = a.Rule
	}
	return out
}

type fixture struct {
	journal *journal.Service
	watcher *Watcher
	sender  *fakeSender
	now     time.Time
	events  []journal.Event
	mu      sync.Mutex
}

func newFixture(t *testing.T, accounts ...core.Account) *fixture {
	t.Helper()
	st, err := settings.New(temporal.DefaultProfile(), nil, nil)
	require.NoError(t, err)
	svc, err := journal.NewService(trade.NewMemoryStore(0), st, journal.Options{Accounts: accounts})
	require.NoError(t, err)

	f := &fixture{journal: svc, sender: &fakeSender{}, now: time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC)}
	svc.Subscribe(func(e journal.Event) {
		f.mu.Lock()
		f.events = append(f.events, e)
		f.mu.Unlock()
	})
	f.watcher, err = NewWatcher(svc, f.sender, Options{
		Now: func() time.Time {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.now
		},
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func (f *fixture) lastEvent() journal.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

// loss records a losing trade on 2024-03-04 at the given hour.
func (f *fixture) loss(t *testing.T, hour int, account string) journal.Event {
	t.Helper()
	_, err := f.journal.Record(context.Background(), auth.User("alice", ""), "alice", journal.Entry{
		Symbol:     "ES",
		Type:       "LONG",
		AccountID:  account,
		EntryPrice: "100",
		ExitPrice:  "90",
		Quantity:   "1",
		EntryTime:  fmt.Sprintf("2024-03-04T%02d:00:00Z", hour),
		ExitTime:   fmt.Sprintf("2024-03-04T%02d:30:00Z", hour),
	})
	require.NoError(t, err)
	return f.lastEvent()
}

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher(nil, &fakeSender{}, Options{})
	assert.ErrorIs(t, err, core.ErrConfigMissing)

	st, err := settings.New(temporal.DefaultProfile(), nil, nil)
	require.NoError(t, err)
	svc, err := journal.NewService(trade.NewMemoryStore(0), st, journal.Options{})
	require.NoError(t, err)

	_, err = NewWatcher(svc, &fakeSender{}, Options{Rules: []Rule{{Name: "x", Expr: "bogus", Severity: notifier.SeverityInfo}}})
	assert.ErrorIs(t, err, core.ErrConfigInvalid)

	w, err := NewWatcher(svc, &fakeSender{}, Options{})
	require.NoError(t, err)
	assert.Len(t, w.Rules(), len(DefaultRules()))
}

func TestWatcher_LossStreakWithCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for hour := 14; hour < 16; hour++ {
		alerts, err := f.watcher.Process(ctx, f.loss(t, hour, ""))
		require.NoError(t, err)
		assert.Empty(t, alerts)
	}

	alerts, err := f.watcher.Process(ctx, f.loss(t, 16, ""))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, "loss_streak", a.Rule)
	assert.Equal(t, notifier.SeverityWarning, a.Severity)
	assert.Equal(t, "alice", a.UserID)
	assert.Equal(t, 3.0, a.Metrics[MetricConsecutiveLosses])
	assert.Contains(t, a.Message, "consecutive_losses = 3")
	assert.Equal(t, f.now, a.At)

	// within cooldown
	alerts, err = f.watcher.Process(ctx, f.loss(t, 17, ""))
	require.NoError(t, err)
	assert.Empty(t, alerts)

	f.advance(2 * time.Hour)
	alerts, err = f.watcher.Process(ctx, f.loss(t, 18, ""))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, 5.0, alerts[0].Metrics[MetricConsecutiveLosses])

	assert.Equal(t, []string{"loss_streak", "loss_streak"}, f.sender.rules())
	recent := f.watcher.Recent("alice")
	require.Len(t, recent, 2)
	assert.True(t, recent[0].At.After(recent[1].At))
	assert.Empty(t, f.watcher.Recent("bob"))
}

func TestWatcher_AccountBreach(t *testing.T) {
	f := newFixture(t, core.Account{ID: "eval", Name: "Eval", Type: core.AccountProp, Balance: 10000, MaxTradesPerDay: 1})
	ctx := context.Background()

	alerts, err := f.watcher.Process(ctx, f.loss(t, 14, "eval"))
	require.NoError(t, err)
	assert.Empty(t, alerts)

	e := f.loss(t, 15, "eval")
	require.NotEmpty(t, e.Breaches)
	alerts, err = f.watcher.Process(ctx, e)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, RuleAccountBreach, alerts[0].Rule)
	assert.Equal(t, notifier.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, "eval", alerts[0].AccountID)
	assert.Contains(t, alerts[0].Message, "max trades per day")
}

func TestWatcher_DeletedTradeIsIgnored(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.loss(t, 14, "")
	require.NoError(t, f.journal.Delete(ctx, auth.User("alice", ""), "alice", e.TradeID))

	alerts, err := f.watcher.Process(ctx, e)
	assert.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestWatcher_DeliveryFailureStillRecorded(t *testing.T) {
	f := newFixture(t)
	f.sender.fail = true
	ctx := context.Background()

	var alerts []notifier.Alert
	for hour := 14; hour < 17; hour++ {
		var err error
		alerts, err = f.watcher.Process(ctx, f.loss(t, hour, ""))
		require.NoError(t, err)
	}
	require.Len(t, alerts, 1)
	assert.Len(t, f.watcher.Recent("alice"), 1)
}

func TestWatcher_RunProcessesHandledEvents(t *testing.T) {
	f := newFixture(t)
	f.journal.Subscribe(f.watcher.Handle)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.watcher.Run(ctx)
		close(done)
	}()

	for hour := 14; hour < 17; hour++ {
		f.loss(t, hour, "")
	}
	f.watcher.Handle(journal.Event{Type: journal.EventSessionsChanged})

	assert.Eventually(t, func() bool {
		return len(f.sender.rules()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

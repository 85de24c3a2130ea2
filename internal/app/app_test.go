package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/config"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/notifier"
	"github.com/newthinker/zella/internal/storage/trade"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Storage.Archive.Path = t.TempDir()
	cfg.Auth.Admin.Cost = bcrypt.MinCost
	return cfg
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	trades, err := a.Journal().List(context.Background(), auth.Guest(), auth.GuestUserID, trade.Filter{})
	require.NoError(t, err)
	assert.Len(t, trades, 2, "sample journal is seeded for guests")

	deps := a.Dependencies(nil, "test")
	assert.NotNil(t, deps.Journal)
	assert.NotNil(t, deps.Metrics)
	assert.Nil(t, deps.Runner, "coach stays off without a provider")
	assert.Nil(t, a.Grader())
	require.NotNil(t, a.Watcher(), "alerts are on by default")
	assert.NotNil(t, deps.Alerts)
}

func TestNew_AlertsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Alerts.Enabled = false

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Watcher())
	assert.Nil(t, a.Dependencies(nil, "test").Alerts)
}

func TestNew_BadNotifier(t *testing.T) {
	cfg := testConfig(t)
	cfg.Alerts.Notifiers = []notifier.Config{{Type: "webhook"}}

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestNew_WithProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "ollama"
	cfg.LLM.Ollama.Endpoint = "http://127.0.0.1:11434"
	cfg.Journal.SeedSample = false

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	deps := a.Dependencies(nil, "test")
	assert.NotNil(t, deps.Runner)
	assert.NotNil(t, deps.Grader)
	assert.NotNil(t, deps.Auditor)
	assert.NotNil(t, deps.Chat)

	trades, err := a.Journal().List(context.Background(), auth.Guest(), auth.GuestUserID, trade.Filter{})
	require.NoError(t, err)
	assert.Empty(t, trades)
}

func TestNew_BadStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.Trades.Backend = "mongo"

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestNew_BadProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.Provider = "claude"

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestApp_ServeAndStop(t *testing.T) {
	a, err := New(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	done := make(chan error, 1)
	go func() { done <- a.Serve(context.Background(), "test", time.Second) }()

	require.Eventually(t, a.IsRunning, time.Second, 10*time.Millisecond)
	a.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
	assert.False(t, a.IsRunning())
}

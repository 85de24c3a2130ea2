package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/zella/internal/alert"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/notifier"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FromFile(t *testing.T) {
	t.Setenv("ZELLA_TEST_OPENAI_KEY", "sk-test")
	t.Setenv("ZELLA_TEST_ALICE_KEY", "alice-secret")

	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9090
  read_timeout: 5s

auth:
  admin:
    password_hash: "$2a$12$abcdefghijklmnopqrstuu5Vd6ZpK8t5Jb6kGk1y0QyZf3M0lq5aK"
    session_ttl: 2h
  api_keys:
    - key: "${ZELLA_TEST_ALICE_KEY}"
      user_id: alice
      email: alice@example.com

storage:
  trades:
    backend: sqlite
    dsn: "file:zella.db"
  archive:
    backend: local
    path: "/tmp/zella/archive"

sessions:
  calendar_zone: Europe/London
  sessions:
    zone: UTC
    asian: {start: "00:00", end: "09:00"}
    london: {start: "08:00", end: "17:00"}
    new_york: {start: "13:00", end: "22:00"}

accounts:
  - id: ftmo-1
    name: FTMO Challenge
    type: PROP
    balance: 100000
    max_trades_per_day: 3

llm:
  provider: openai
  openai:
    api_key: "${ZELLA_TEST_OPENAI_KEY}"
    model: gpt-4o-mini

alerts:
  cooldown: 30m
  rules:
    - name: daily_loss
      expr: "daily_pnl < -500"
      severity: critical
      message: stop trading for today
  notifiers:
    - type: webhook
      params:
        url: "https://hooks.example.com/zella"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout, "defaults survive partial files")
	assert.Equal(t, "$2a$12$abcdefghijklmnopqrstuu5Vd6ZpK8t5Jb6kGk1y0QyZf3M0lq5aK", cfg.Auth.Admin.PasswordHash)
	assert.Equal(t, 2*time.Hour, cfg.Auth.Admin.SessionTTL)
	require.Len(t, cfg.Auth.APIKeys, 1)
	assert.Equal(t, auth.APIKey{Key: "alice-secret", UserID: "alice", Email: "alice@example.com"}, cfg.Auth.APIKeys[0])
	assert.Equal(t, "sqlite", cfg.Storage.Trades.Backend)
	assert.Equal(t, "Europe/London", cfg.Sessions.CalendarZone)
	assert.Equal(t, "08:00", cfg.Sessions.Sessions.London.Start)
	require.Len(t, cfg.Accounts, 1)
	assert.Equal(t, 3, cfg.Accounts[0].MaxTradesPerDay)
	assert.Equal(t, core.AccountType("PROP"), cfg.Accounts[0].Type)
	assert.Equal(t, "sk-test", cfg.LLM.OpenAI.APIKey)
	assert.True(t, cfg.Journal.SeedSample)
	assert.True(t, cfg.Alerts.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Alerts.Cooldown)
	require.Len(t, cfg.Alerts.Rules, 1)
	assert.Equal(t, notifier.SeverityCritical, cfg.Alerts.Rules[0].Severity)
	assert.Equal(t, "daily_pnl < -500", cfg.Alerts.Rules[0].Expr)
	require.Len(t, cfg.Alerts.Notifiers, 1)
	assert.Equal(t, "https://hooks.example.com/zella", cfg.Alerts.Notifiers[0].String("url"))

	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("ZELLA_SERVER_PORT", "7070")
	path := writeConfig(t, "server:\n  port: 8080\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Trades.Backend)
	assert.Equal(t, 0.01, cfg.Risk.DefaultRiskFraction)
	assert.True(t, cfg.Auth.AllowGuest)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"valid config", func(c *Config) {}, nil},
		{"invalid port - zero", func(c *Config) { c.Server.Port = 0 }, core.ErrConfigInvalid},
		{"invalid port - too high", func(c *Config) { c.Server.Port = 70000 }, core.ErrConfigInvalid},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, core.ErrConfigInvalid},
		{"bad calendar zone", func(c *Config) { c.Sessions.CalendarZone = "Mars/Olympus" }, core.ErrConfigInvalid},
		{"bad session clock", func(c *Config) { c.Sessions.Sessions.London.Start = "25:00" }, core.ErrConfigInvalid},
		{"bad risk fraction", func(c *Config) { c.Risk.DefaultRiskFraction = 0 }, core.ErrConfigInvalid},
		{"account without id", func(c *Config) { c.Accounts = []core.Account{{Name: "x"}} }, core.ErrConfigInvalid},
		{"duplicate account", func(c *Config) { c.Accounts = []core.Account{{ID: "a"}, {ID: "a"}} }, core.ErrConfigInvalid},
		{"api key without user", func(c *Config) { c.Auth.APIKeys = []auth.APIKey{{Key: "k"}} }, core.ErrConfigMissing},
		{"reserved user id", func(c *Config) { c.Auth.APIKeys = []auth.APIKey{{Key: "k", UserID: "guest"}} }, core.ErrConfigInvalid},
		{"redis without addr", func(c *Config) { c.Storage.Trades.Backend = "redis" }, core.ErrConfigMissing},
		{"postgres without dsn", func(c *Config) { c.Storage.Trades.Backend = "postgres" }, core.ErrConfigMissing},
		{"unknown store", func(c *Config) { c.Storage.Trades.Backend = "mongo" }, core.ErrConfigInvalid},
		{"s3 without bucket", func(c *Config) { c.Storage.Archive.Backend = "s3" }, core.ErrConfigMissing},
		{"claude without key", func(c *Config) { c.LLM.Provider = "claude" }, core.ErrConfigMissing},
		{"ollama without endpoint", func(c *Config) { c.LLM.Provider = "ollama" }, core.ErrConfigMissing},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "bard" }, core.ErrConfigInvalid},
		{"negative ollama timeout", func(c *Config) {
			c.LLM.Provider = "ollama"
			c.LLM.Ollama.Endpoint = "http://localhost:11434"
			c.LLM.Ollama.Timeout = -time.Second
		}, core.ErrConfigInvalid},
		{"negative coach timeout", func(c *Config) { c.Coach.Timeout = -time.Second }, core.ErrConfigInvalid},
		{"bad alert rule", func(c *Config) {
			c.Alerts.Rules = []alert.Rule{{Name: "x", Expr: "equity < 1", Severity: notifier.SeverityInfo}}
		}, core.ErrConfigInvalid},
		{"unknown notifier", func(c *Config) { c.Alerts.Notifiers = []notifier.Config{{Type: "pager"}} }, core.ErrConfigInvalid},
		{"negative alert cooldown", func(c *Config) { c.Alerts.Cooldown = -time.Minute }, core.ErrConfigInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestExpandEnv_KeepsBareDollars(t *testing.T) {
	t.Setenv("ZELLA_X", "y")
	got := string(expandEnv([]byte(`a: "${ZELLA_X}" b: "$2a$12$x" c: "${ZELLA_UNSET_VAR}"`)))
	assert.Equal(t, `a: "y" b: "$2a$12$x" c: ""`, got)
}

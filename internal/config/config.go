// Package config loads the service configuration from YAML with
// environment overrides.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/newthinker/zella/internal/alert"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/notifier"
	"github.com/newthinker/zella/internal/risk"
	"github.com/newthinker/zella/internal/storage/archive"
	"github.com/newthinker/zella/internal/storage/trade"
	"github.com/newthinker/zella/internal/temporal"
)

// EnvPrefix prefixes environment overrides, e.g. ZELLA_SERVER_PORT.
const EnvPrefix = "ZELLA"

type Config struct {
	Server   ServerConfig     `mapstructure:"server"`
	Log      LogConfig        `mapstructure:"log"`
	Auth     AuthConfig       `mapstructure:"auth"`
	Storage  StorageConfig    `mapstructure:"storage"`
	Sessions temporal.Profile `mapstructure:"sessions"`
	Risk     risk.Policy      `mapstructure:"risk"`
	Accounts []core.Account   `mapstructure:"accounts"`
	LLM      LLMConfig        `mapstructure:"llm"`
	Coach    CoachConfig      `mapstructure:"coach"`
	Metrics  MetricsConfig    `mapstructure:"metrics"`
	Journal  JournalConfig    `mapstructure:"journal"`
	Alerts   AlertsConfig     `mapstructure:"alerts"`
}

type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	JobTTLHours    int           `mapstructure:"job_ttl_hours"`
	MaxJobs        int           `mapstructure:"max_jobs"`
}

// LogConfig selects the log encoder and an optional rotated file sink.
type LogConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
	Compress    bool   `mapstructure:"compress"`
}

type AuthConfig struct {
	Admin      auth.VaultConfig `mapstructure:"admin"`
	APIKeys    []auth.APIKey    `mapstructure:"api_keys"`
	AllowGuest bool             `mapstructure:"allow_guest"`
}

type StorageConfig struct {
	Trades  trade.Config   `mapstructure:"trades"`
	Archive archive.Config `mapstructure:"archive"`
}

type LLMConfig struct {
	Provider string       `mapstructure:"provider"`
	Claude   ClaudeConfig `mapstructure:"claude"`
	OpenAI   OpenAIConfig `mapstructure:"openai"`
	Ollama   OllamaConfig `mapstructure:"ollama"`
}

type ClaudeConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

type OllamaConfig struct {
	Endpoint  string        `mapstructure:"endpoint"`
	Model     string        `mapstructure:"model"`
	KeepAlive string        `mapstructure:"keep_alive"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// CoachConfig bounds the LLM-backed coach.
type CoachConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxChatTurns int           `mapstructure:"max_chat_turns"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// JournalConfig holds journal behavior switches.
type JournalConfig struct {
	SeedSample bool `mapstructure:"seed_sample"`
}

// AlertsConfig configures discipline alerts. Nil Rules selects the
// built-in rules.
type AlertsConfig struct {
	Enabled   bool              `mapstructure:"enabled"`
	Cooldown  time.Duration     `mapstructure:"cooldown"`
	Rules     []alert.Rule      `mapstructure:"rules"`
	Notifiers []notifier.Config `mapstructure:"notifiers"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references with their environment values.
// Bare $ sequences are kept so bcrypt hashes survive.
func expandEnv(data []byte) []byte {
	return envRef.ReplaceAllFunc(data, func(m []byte) []byte {
		return []byte(os.Getenv(string(envRef.FindSubmatch(m)[1])))
	})
}

// Load reads configuration from file on top of Defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	v := viper.New()
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		ext = "yaml"
	}
	v.SetConfigType(ext)

	// Support environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadConfig(bytes.NewReader(expandEnv(data))); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := Defaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			JobTTLHours:  1,
			MaxJobs:      100,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Auth: AuthConfig{
			Admin: auth.VaultConfig{
				SessionTTL: auth.DefaultSessionTTL,
				Cost:       auth.DefaultCost,
			},
			AllowGuest: true,
		},
		Storage: StorageConfig{
			Trades: trade.Config{
				Backend: trade.BackendMemory,
			},
			Archive: archive.Config{
				Backend: "local",
				Path:    "./data/archive",
			},
		},
		Sessions: temporal.DefaultProfile(),
		Risk:     risk.DefaultPolicy(),
		Coach: CoachConfig{
			Timeout:      60 * time.Second,
			MaxChatTurns: 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Journal: JournalConfig{
			SeedSample: true,
		},
		Alerts: AlertsConfig{
			Enabled:  true,
			Cooldown: alert.DefaultCooldown,
		},
	}
}

func invalid(format string, args ...any) error {
	return core.Errorf(core.ErrConfigInvalid, format, args...)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return invalid("port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxJobs < 0 || c.Server.JobTTLHours < 0 {
		return invalid("max_jobs and job_ttl_hours cannot be negative")
	}

	if c.Log.Level != "" {
		if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
			return invalid("log level: %v", err)
		}
	}

	if err := c.Sessions.Validate(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("sessions: %w", err))
	}
	if err := c.Risk.Validate(); err != nil {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("risk: %w", err))
	}

	seen := make(map[string]bool, len(c.Accounts))
	for i, a := range c.Accounts {
		if a.ID == "" {
			return invalid("accounts[%d]: id required", i)
		}
		if seen[a.ID] {
			return invalid("accounts[%d]: duplicate id %q", i, a.ID)
		}
		seen[a.ID] = true
		if a.MaxTradesPerDay < 0 || a.MaxLossPerDay < 0 {
			return invalid("account %q: limits cannot be negative", a.ID)
		}
	}

	keys := make(map[string]bool, len(c.Auth.APIKeys))
	for i, k := range c.Auth.APIKeys {
		if k.Key == "" || k.UserID == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("auth.api_keys[%d]: key and user_id required", i))
		}
		if k.UserID == auth.AdminUserID || k.UserID == auth.GuestUserID {
			return invalid("auth.api_keys[%d]: user_id %q is reserved", i, k.UserID)
		}
		if keys[k.Key] {
			return invalid("auth.api_keys[%d]: duplicate key", i)
		}
		keys[k.Key] = true
	}
	if c.Auth.Admin.SessionTTL < 0 {
		return invalid("auth.admin.session_ttl cannot be negative")
	}

	switch c.Storage.Trades.Backend {
	case "", trade.BackendMemory:
	case trade.BackendRedis:
		if c.Storage.Trades.Redis.Addr == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage.trades.redis.addr required for redis backend"))
		}
	case trade.BackendSQLite, trade.BackendPostgres:
		if c.Storage.Trades.DSN == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage.trades.dsn required for %s backend", c.Storage.Trades.Backend))
		}
	default:
		return invalid("unknown storage.trades.backend %q", c.Storage.Trades.Backend)
	}

	switch c.Storage.Archive.Backend {
	case "", "local":
	case "s3":
		if c.Storage.Archive.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing, fmt.Errorf("storage.archive.s3.bucket required for s3 backend"))
		}
	default:
		return invalid("unknown storage.archive.backend %q", c.Storage.Archive.Backend)
	}

	if c.Coach.Timeout < 0 || c.Coach.MaxChatTurns < 0 {
		return invalid("coach timeout and max_chat_turns cannot be negative")
	}

	if c.Alerts.Cooldown < 0 {
		return invalid("alerts.cooldown cannot be negative")
	}
	if err := alert.ValidateRules(c.Alerts.Rules); err != nil {
		return invalid("alerts: %v", err)
	}
	for i, n := range c.Alerts.Notifiers {
		switch strings.ToLower(n.Type) {
		case "webhook", "telegram", "email":
		default:
			return invalid("alerts.notifiers[%d]: unknown type %q", i, n.Type)
		}
	}

	// LLM validation - if provider set, check config exists
	switch strings.ToLower(c.LLM.Provider) {
	case "":
	case "claude":
		if c.LLM.Claude.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("claude api_key required when provider is claude"))
		}
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("openai api_key required when provider is openai"))
		}
	case "ollama":
		if c.LLM.Ollama.Endpoint == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("ollama endpoint required when provider is ollama"))
		}
		if c.LLM.Ollama.Timeout < 0 {
			return invalid("llm.ollama.timeout must not be negative")
		}
	default:
		return invalid("unknown llm provider %q", c.LLM.Provider)
	}

	return nil
}

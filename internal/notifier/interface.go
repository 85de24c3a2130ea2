// Package notifier delivers discipline alerts to external channels.
package notifier

import (
	"context"
	"fmt"
	"time"
)

// Severity ranks an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from info (1) to critical (3); unknown values
// rank 0.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 1
	case SeverityWarning:
		return 2
	case SeverityCritical:
		return 3
	}
	return 0
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool { return s.Rank() > 0 }

// Alert is a single notification about a user's journal.
type Alert struct {
	Rule      string             `json:"rule"`
	Severity  Severity           `json:"severity"`
	UserID    string             `json:"userId"`
	AccountID string             `json:"accountId,omitempty"`
	TradeID   string             `json:"tradeId,omitempty"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	At        time.Time          `json:"at"`
}

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Notifier defines the interface for alert delivery
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send delivers a single alert
	Send(ctx context.Context, alert Alert) error

	// SendBatch delivers several alerts as one message
	SendBatch(ctx context.Context, alerts []Alert) error
}

// String returns params[key] as a string, or "".
func (c Config) String(key string) string {
	if v, ok := c.Params[key].(string); ok {
		return v
	}
	return ""
}

// Int returns params[key] as an int. Config files decode numbers as int,
// int64 or float64 depending on the source.
func (c Config) Int(key string) int {
	switch v := c.Params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Duration returns params[key] as a duration. Strings use Go duration
// syntax ("15s"); bare numbers are seconds. Unparseable values yield 0.
func (c Config) Duration(key string) time.Duration {
	switch v := c.Params[key].(type) {
	case time.Duration:
		return v
	case string:
		d, _ := time.ParseDuration(v)
		return d
	}
	return time.Duration(c.Int(key)) * time.Second
}

// Strings returns params[key] as a string slice. A single string is
// accepted as a one-element list.
func (c Config) Strings(key string) []string {
	switch v := c.Params[key].(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	}
	return nil
}

// StringMap returns params[key] as a string map.
func (c Config) StringMap(key string) map[string]string {
	switch v := c.Params[key].(type) {
	case map[string]string:
		return v
	case map[string]any:
		out := make(map[string]string, len(v))
		for k, item := range v {
			out[k] = fmt.Sprint(item)
		}
		return out
	}
	return nil
}

package temporal

import (
	"fmt"
	"time"
)

// Session labels produced by Classify.
const (
	SessionLondonNewYork = "London + New York"
	SessionLondonAsian   = "London + Asian"
	SessionNewYork       = "New York"
	SessionLondon        = "London"
	SessionAsian         = "Asian"
	SessionOffHours      = "Pre/Post Market"
)

// Sessions returns every label Classify can produce, in dashboard order.
func Sessions() []string {
	return []string{
		SessionNewYork,
		SessionLondon,
		SessionAsian,
		SessionLondonNewYork,
		SessionLondonAsian,
		SessionOffHours,
	}
}

// Window is a wall-clock boundary pair. End is exclusive.
// A window whose start is after its end wraps midnight.
type Window struct {
	Start string `json:"start" mapstructure:"start"`
	End   string `json:"end" mapstructure:"end"`
}

// Bounds parses both ends of the window.
func (w Window) Bounds() (start, end Clock, err error) {
	if start, err = ParseClock(w.Start); err != nil {
		return 0, 0, err
	}
	if end, err = ParseClock(w.End); err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Contains reports whether t falls in [start, end), wrapping midnight when
// start > end. A window with equal ends is empty.
func Contains(t, start, end Clock) bool {
	if start <= end {
		return t >= start && t < end
	}
	return t >= start || t < end
}

// SessionConfig holds the configurable session windows. Windows are
// expressed in Zone.
type SessionConfig struct {
	Zone    string `json:"zone" mapstructure:"zone"`
	Asian   Window `json:"asian" mapstructure:"asian"`
	London  Window `json:"london" mapstructure:"london"`
	NewYork Window `json:"newYork" mapstructure:"new_york"`
}

// DefaultSessionConfig returns the standard UTC session hours.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Zone:    "UTC",
		Asian:   Window{Start: "00:00", End: "09:00"},
		London:  Window{Start: "08:00", End: "17:00"},
		NewYork: Window{Start: "13:00", End: "22:00"},
	}
}

// Validate checks the zone and every window boundary.
func (c SessionConfig) Validate() error {
	if _, err := LoadZone(c.Zone); err != nil {
		return err
	}
	for name, w := range map[string]Window{"asian": c.Asian, "london": c.London, "new_york": c.NewYork} {
		if _, _, err := w.Bounds(); err != nil {
			return fmt.Errorf("session %s: %w", name, err)
		}
	}
	return nil
}

// compiled is a parsed SessionConfig.
type compiled struct {
	loc                    *time.Location
	asian, london, newYork [2]Clock
}

func (c SessionConfig) compile() (compiled, error) {
	var out compiled
	var err error
	if out.loc, err = LoadZone(c.Zone); err != nil {
		return out, err
	}
	for _, p := range []struct {
		w   Window
		dst *[2]Clock
	}{{c.Asian, &out.asian}, {c.London, &out.london}, {c.NewYork, &out.newYork}} {
		s, e, err := p.w.Bounds()
		if err != nil {
			return out, err
		}
		*p.dst = [2]Clock{s, e}
	}
	return out, nil
}

func (c compiled) classify(entry time.Time) string {
	t := ClockOf(entry, c.loc)
	asian := Contains(t, c.asian[0], c.asian[1])
	london := Contains(t, c.london[0], c.london[1])
	ny := Contains(t, c.newYork[0], c.newYork[1])

	switch {
	case london && ny:
		return SessionLondonNewYork
	case london && asian:
		return SessionLondonAsian
	case ny:
		return SessionNewYork
	case london:
		return SessionLondon
	case asian:
		return SessionAsian
	default:
		return SessionOffHours
	}
}

// Classify maps an entry instant to its session label.
// Overlaps resolve London+NY, then London+Asian, then NY, London, Asian.
func Classify(entry time.Time, cfg SessionConfig) (string, error) {
	c, err := cfg.compile()
	if err != nil {
		return "", err
	}
	return c.classify(entry), nil
}

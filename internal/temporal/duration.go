package temporal

import (
	"fmt"
	"time"

	"github.com/newthinker/zella/internal/core"
)

// Holding thresholds in minutes, inclusive upper bounds.
const (
	ScalpingMaxMinutes = 30
	IntradayMaxMinutes = 360
	SwingMaxMinutes    = 4320
)

// HeldMinutes returns whole minutes between entry and exit, clamped at zero.
func HeldMinutes(entry, exit time.Time) int {
	d := exit.Sub(entry)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// FormatMinutes renders minutes as zero-padded HH:MM. Hours are not capped at 24.
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// CategoryOf buckets a holding time.
func CategoryOf(minutes int) core.HoldingCategory {
	switch {
	case minutes <= ScalpingMaxMinutes:
		return core.HoldingScalping
	case minutes <= IntradayMaxMinutes:
		return core.HoldingIntraday
	case minutes <= SwingMaxMinutes:
		return core.HoldingSwing
	default:
		return core.HoldingLongTerm
	}
}

// Bucket returns the duration string and holding category of a trade.
func Bucket(entry, exit time.Time) (string, core.HoldingCategory) {
	m := HeldMinutes(entry, exit)
	return FormatMinutes(m), CategoryOf(m)
}

// ParseDuration reads an HH:MM duration string back into minutes.
// Malformed input yields zero.
func ParseDuration(s string) int {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil || h < 0 || m < 0 {
		return 0
	}
	return h*60 + m
}

package temporal

import (
	"testing"
	"time"

	"github.com/newthinker/zella/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestBucket(t *testing.T) {
	entry := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		exit         time.Time
		wantDuration string
		wantCategory core.HoldingCategory
	}{
		{"25 minutes", entry.Add(25 * time.Minute), "00:25", core.HoldingScalping},
		{"30 minutes is scalping", entry.Add(30 * time.Minute), "00:30", core.HoldingScalping},
		{"31 minutes", entry.Add(31 * time.Minute), "00:31", core.HoldingIntraday},
		{"seconds are floored", entry.Add(30*time.Minute + 59*time.Second), "00:30", core.HoldingScalping},
		{"six hours", entry.Add(6 * time.Hour), "06:00", core.HoldingIntraday},
		{"just over six hours", entry.Add(6*time.Hour + time.Minute), "06:01", core.HoldingSwing},
		{"three days", entry.Add(72 * time.Hour), "72:00", core.HoldingSwing},
		{"past three days", entry.Add(72*time.Hour + time.Minute), "72:01", core.HoldingLongTerm},
		{"hours beyond two digits", entry.Add(100 * time.Hour), "100:00", core.HoldingLongTerm},
		{"exit before entry clamps", entry.Add(-time.Hour), "00:00", core.HoldingScalping},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, c := Bucket(entry, tt.exit)
			assert.Equal(t, tt.wantDuration, d)
			assert.Equal(t, tt.wantCategory, c)
		})
	}
}

func TestCategoryOf_Monotonic(t *testing.T) {
	rank := map[core.HoldingCategory]int{
		core.HoldingScalping: 0,
		core.HoldingIntraday: 1,
		core.HoldingSwing:    2,
		core.HoldingLongTerm: 3,
	}
	prev := rank[CategoryOf(0)]
	for m := 1; m <= 6000; m++ {
		r := rank[CategoryOf(m)]
		assert.GreaterOrEqual(t, r, prev, "category moved backwards at %d minutes", m)
		prev = r
	}
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 135, ParseDuration("02:15"))
	assert.Equal(t, 6000, ParseDuration("100:00"))
	assert.Equal(t, 0, ParseDuration("garbage"))
	assert.Equal(t, 0, ParseDuration(""))
}

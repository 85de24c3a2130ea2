package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekOfMonth(t *testing.T) {
	cases := map[int]int{1: 1, 7: 1, 8: 2, 14: 2, 15: 3, 21: 3, 22: 4, 28: 4, 29: 5, 31: 5}
	for day, want := range cases {
		assert.Equal(t, want, WeekOfMonth(day), "day %d", day)
	}
}

func TestCalendarOf_UsesZone(t *testing.T) {
	ny, err := LoadZone("America/New_York")
	require.NoError(t, err)

	// 02:00 UTC on March 2nd is still March 1st in New York
	ts := time.Date(2024, time.March, 2, 2, 0, 0, 0, time.UTC)

	cal := CalendarOf(ts, ny)
	assert.Equal(t, "Friday", cal.DayOfWeek)
	assert.Equal(t, 1, cal.WeekOfMonth)
	assert.Equal(t, "March", cal.Month)
	assert.Equal(t, "2024-03", cal.MonthKey)
	assert.Equal(t, "2024-03-01", cal.Date)

	cal = CalendarOf(ts, time.UTC)
	assert.Equal(t, "Saturday", cal.DayOfWeek)
	assert.Equal(t, "2024-03-02", cal.Date)
}

func TestMonthNames(t *testing.T) {
	names := MonthNames()
	assert.Len(t, names, 12)
	assert.Equal(t, "January", names[0])
	assert.Equal(t, "December", names[11])
}

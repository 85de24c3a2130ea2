package temporal

import "time"

// Weekdays lists trading weekdays in calendar order.
func Weekdays() []string {
	return []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
}

// MonthNames lists month names January through December.
func MonthNames() []string {
	names := make([]string, 12)
	for i := range names {
		names[i] = time.Month(i + 1).String()
	}
	return names
}

// WeeksOfMonth lists every value WeekOfMonth can return.
func WeeksOfMonth() []int {
	return []int{1, 2, 3, 4, 5}
}

// WeekOfMonth is ceil(day/7); days 29-31 land in week 5.
func WeekOfMonth(day int) int {
	return (day + 6) / 7
}

// Calendar holds the calendar attributes of an instant.
type Calendar struct {
	DayOfWeek   string
	WeekOfMonth int
	Month       string
	MonthKey    string // YYYY-MM
	Date        string // YYYY-MM-DD
}

// CalendarOf computes calendar attributes of t in loc.
func CalendarOf(t time.Time, loc *time.Location) Calendar {
	lt := t.In(loc)
	return Calendar{
		DayOfWeek:   lt.Weekday().String(),
		WeekOfMonth: WeekOfMonth(lt.Day()),
		Month:       lt.Month().String(),
		MonthKey:    lt.Format("2006-01"),
		Date:        lt.Format("2006-01-02"),
	}
}

package analytics

import (
	"fmt"
	"time"

	"github.com/newthinker/zella/internal/core"
)

// Navigation bounds of the calendar relative to now.
const (
	CalendarYearsBack  = 10
	CalendarYearsAhead = 1
)

// CalendarDay is one trading day of the P&L calendar.
type CalendarDay struct {
	Day      int      `json:"day"`
	Date     string   `json:"date"`
	PnL      float64  `json:"pnl"`
	TradeIDs []string `json:"tradeIds"`
}

// CalendarMonth is the P&L calendar of a single month.
type CalendarMonth struct {
	Year         int           `json:"year"`
	Month        time.Month    `json:"month"`
	MonthName    string        `json:"monthName"`
	DaysInMonth  int           `json:"daysInMonth"`
	FirstWeekday time.Weekday  `json:"firstWeekday"`
	TotalPnL     float64       `json:"totalPnl"`
	Days         []CalendarDay `json:"days"`
}

// Calendar builds the per-day P&L of year/month in loc. Months starting
// before now minus ten years or after now plus one year are OUT_OF_RANGE.
func Calendar(trades []core.Trade, year int, month time.Month, loc *time.Location, now time.Time) (CalendarMonth, error) {
	if month < time.January || month > time.December {
		return CalendarMonth{}, core.WrapError(core.ErrOutOfRange, fmt.Errorf("month %d", month))
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	localNow := now.In(loc)
	if start.Before(localNow.AddDate(-CalendarYearsBack, 0, 0)) {
		return CalendarMonth{}, core.WrapError(core.ErrOutOfRange, fmt.Errorf("%s is more than %d years back", start.Format("2006-01"), CalendarYearsBack))
	}
	if start.After(localNow.AddDate(CalendarYearsAhead, 0, 0)) {
		return CalendarMonth{}, core.WrapError(core.ErrOutOfRange, fmt.Errorf("%s is more than %d year ahead", start.Format("2006-01"), CalendarYearsAhead))
	}

	cm := CalendarMonth{
		Year:         year,
		Month:        month,
		MonthName:    month.String(),
		DaysInMonth:  start.AddDate(0, 1, -1).Day(),
		FirstWeekday: start.Weekday(),
		Days:         []CalendarDay{},
	}

	byDay := make(map[int]*CalendarDay)
	for _, t := range sortedByEntry(trades) {
		lt := t.EntryTime.In(loc)
		if lt.Year() != year || lt.Month() != month {
			continue
		}
		d, ok := byDay[lt.Day()]
		if !ok {
			d = &CalendarDay{Day: lt.Day(), Date: lt.Format("2006-01-02")}
			byDay[lt.Day()] = d
		}
		d.PnL += t.PnL
		d.TradeIDs = append(d.TradeIDs, t.ID)
		cm.TotalPnL += t.PnL
	}
	for day := 1; day <= cm.DaysInMonth; day++ {
		if d, ok := byDay[day]; ok {
			cm.Days = append(cm.Days, *d)
		}
	}
	return cm, nil
}

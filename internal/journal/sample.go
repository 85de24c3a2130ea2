package journal

import (
	"context"
	"strconv"
	"time"

	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
)

func boolPtr(b bool) *bool { return &b }

// SampleEntries returns the guest demo journal with timestamps relative to
// now in loc.
func SampleEntries(now time.Time, loc *time.Location) []Entry {
	at := func(daysAgo, hour, minute int) string {
		d := now.In(loc).AddDate(0, 0, -daysAgo)
		return time.Date(d.Year(), d.Month(), d.Day(), hour, minute, 0, 0, loc).Format(time.RFC3339)
	}
	return []Entry{
		{
			Symbol:             "NVDA",
			Type:               "LONG",
			EntryPrice:         "125.50",
			ExitPrice:          "132.20",
			Quantity:           "100",
			EntryTime:          at(2, 9, 30),
			ExitTime:           at(2, 11, 45),
			Setup:              "Breakout",
			Notes:              "Clean daily breakout with high volume support.",
			Tags:               []string{"Tech", "Momentum", "High Conviction"},
			PreTradeMindset:    "Patient & Calculated",
			DuringTradeMindset: "Calm and observing levels",
			PostTradeMindset:   "Satisfied with execution",
			MentalState:        "Focused",
			RiskReasoning:      "Strong daily trend, 1:3 RR targeted.",
			RiskUsedPct:        "1",
			RRPlanned:          "3",
			RRAchieved:         "2.6",
			MarketCondition:    "Bullish Trending",
			StressLevel:        3,
			DisciplineRating:   10,
			IsPlanned:          boolPtr(true),
		},
		{
			Symbol:             "TSLA",
			Type:               "SHORT",
			EntryPrice:         "180.20",
			ExitPrice:          "185.50",
			Quantity:           "50",
			EntryTime:          at(15, 14, 0),
			ExitTime:           at(15, 14, 15),
			Setup:              "VWAP Rejection",
			Notes:              "Failed to break VWAP, but reversed quickly on macro news.",
			Tags:               []string{"Mean Reversion", "Stop Loss Hit"},
			Mistakes:           []string{"Chasing Price"},
			PreTradeMindset:    "Rushed / Fear of Missing Out",
			DuringTradeMindset: "Anxious, staring at P&L",
			PostTradeMindset:   "Frustrated, revenge trade urge",
			MentalState:        "Anxious",
			RiskReasoning:      "Chasing a breakdown that already moved.",
			RiskUsedPct:        "0.5",
			RRPlanned:          "2",
			RRAchieved:         "-1",
			MarketCondition:    "Volatile",
			StressLevel:        7,
			DisciplineRating:   4,
			IsPlanned:          boolPtr(false),
		},
	}
}

// SeedSample writes the read-only guest journal. Existing sample trades
// are replaced so the demo dates stay recent.
func (s *Service) SeedSample(ctx context.Context) error {
	profile, _ := s.settings.Current()
	for i, e := range SampleEntries(s.now(), s.CalendarZone()) {
		t, err := e.Build(sampleID(i), profile, s.policy)
		if err != nil {
			return err
		}
		if err := s.store.Put(ctx, auth.GuestUserID, t); err != nil {
			return core.WrapError(core.ErrStoreFailed, err)
		}
		s.deriver.Forget(t.ID)
	}
	return nil
}

func sampleID(i int) string {
	return "sample-" + strconv.Itoa(i+1)
}

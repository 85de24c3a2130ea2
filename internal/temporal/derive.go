package temporal

import (
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/zella/internal/core"
)

// DefaultCalendarZone is the zone weekday, week and month are computed in.
const DefaultCalendarZone = "America/New_York"

// Profile is everything temporal derivation depends on besides the
// timestamps themselves.
type Profile struct {
	Sessions     SessionConfig `json:"sessions" mapstructure:"sessions"`
	CalendarZone string        `json:"calendarZone" mapstructure:"calendar_zone"`
}

// DefaultProfile returns default sessions with New York calendar days.
func DefaultProfile() Profile {
	return Profile{
		Sessions:     DefaultSessionConfig(),
		CalendarZone: DefaultCalendarZone,
	}
}

// Validate checks sessions and calendar zone.
func (p Profile) Validate() error {
	if err := p.Sessions.Validate(); err != nil {
		return err
	}
	if _, err := LoadZone(p.CalendarZone); err != nil {
		return fmt.Errorf("calendar zone: %w", err)
	}
	return nil
}

// Fields are the derived temporal attributes of a trade.
type Fields struct {
	HoldingDuration string
	HoldingCategory core.HoldingCategory
	Session         string
	DayOfWeek       string
	WeekOfMonth     int
	Month           string
}

// Derive computes temporal fields from entry/exit and a profile.
func Derive(entry, exit time.Time, p Profile) (Fields, error) {
	sessions, err := p.Sessions.compile()
	if err != nil {
		return Fields{}, err
	}
	calLoc, err := LoadZone(p.CalendarZone)
	if err != nil {
		return Fields{}, err
	}
	return derive(entry, exit, sessions, calLoc), nil
}

func derive(entry, exit time.Time, sessions compiled, calLoc *time.Location) Fields {
	duration, category := Bucket(entry, exit)
	cal := CalendarOf(entry, calLoc)
	return Fields{
		HoldingDuration: duration,
		HoldingCategory: category,
		Session:         sessions.classify(entry),
		DayOfWeek:       cal.DayOfWeek,
		WeekOfMonth:     cal.WeekOfMonth,
		Month:           cal.Month,
	}
}

// Apply returns t with its derived fields replaced by f.
func (f Fields) Apply(t core.Trade) core.Trade {
	t.HoldingDuration = f.HoldingDuration
	t.HoldingCategory = f.HoldingCategory
	t.Session = f.Session
	t.DayOfWeek = f.DayOfWeek
	t.WeekOfMonth = f.WeekOfMonth
	t.Month = f.Month
	return t
}

type cacheKey struct {
	id      string
	version uint64
}

type cacheEntry struct {
	entry, exit time.Time
	fields      Fields
}

// Deriver memoizes derivation by (trade id, profile version). A cached
// entry is only reused when the trade's timestamps are unchanged.
type Deriver struct {
	mu       sync.Mutex
	version  uint64
	profile  compiled
	calLoc   *time.Location
	cache    map[cacheKey]cacheEntry
	hits     uint64
	computes uint64
}

// NewDeriver creates an empty derivation cache.
func NewDeriver() *Deriver {
	return &Deriver{cache: make(map[cacheKey]cacheEntry)}
}

// Apply returns the trade with derived fields computed under profile p at
// the given version. Entries from older versions are dropped when the
// version advances.
func (d *Deriver) Apply(t core.Trade, version uint64, p Profile) (core.Trade, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if version != d.version || d.calLoc == nil {
		sessions, err := p.Sessions.compile()
		if err != nil {
			return t, err
		}
		calLoc, err := LoadZone(p.CalendarZone)
		if err != nil {
			return t, err
		}
		if version != d.version {
			d.cache = make(map[cacheKey]cacheEntry)
		}
		d.version, d.profile, d.calLoc = version, sessions, calLoc
	}

	key := cacheKey{id: t.ID, version: version}
	if e, ok := d.cache[key]; ok && e.entry.Equal(t.EntryTime) && e.exit.Equal(t.ExitTime) {
		d.hits++
		return e.fields.Apply(t), nil
	}

	f := derive(t.EntryTime, t.ExitTime, d.profile, d.calLoc)
	d.computes++
	if t.ID != "" {
		d.cache[key] = cacheEntry{entry: t.EntryTime, exit: t.ExitTime, fields: f}
	}
	return f.Apply(t), nil
}

// Forget drops any cached derivation for a trade id.
func (d *Deriver) Forget(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.cache, cacheKey{id: id, version: d.version})
}

// DeriverStats reports cache effectiveness.
type DeriverStats struct {
	Version  uint64 `json:"version"`
	Entries  int    `json:"entries"`
	Hits     uint64 `json:"hits"`
	Computes uint64 `json:"computes"`
}

// Stats returns a snapshot of cache counters.
func (d *Deriver) Stats() DeriverStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DeriverStats{Version: d.version, Entries: len(d.cache), Hits: d.hits, Computes: d.computes}
}

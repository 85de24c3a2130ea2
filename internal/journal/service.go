package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/analytics"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/metrics"
	"github.com/newthinker/zella/internal/risk"
	"github.com/newthinker/zella/internal/settings"
	"github.com/newthinker/zella/internal/storage/archive"
	"github.com/newthinker/zella/internal/storage/trade"
	"github.com/newthinker/zella/internal/temporal"
)

// Event types published to subscribers.
const (
	EventTradesChanged   = "trades_changed"
	EventSessionsChanged = "sessions_changed"
)

// Event describes a change to a journal or to the session profile.
type Event struct {
	Type    string    `json:"type"`
	UserID  string    `json:"userId,omitempty"`
	TradeID string    `json:"tradeId,omitempty"`
	Version uint64    `json:"version,omitempty"`
	At      time.Time `json:"at"`

	// AccountID and Breaches are set when a recorded trade broke the
	// rules of its account.
	AccountID string   `json:"accountId,omitempty"`
	Breaches  []string `json:"breaches,omitempty"`
}

// Subscriber receives events synchronously; it must not block.
type Subscriber func(Event)

// Options configures a Service.
type Options struct {
	Policy   risk.Policy
	Accounts []core.Account
	Archive  archive.Storage
	Metrics  *metrics.Registry
	Logger   *zap.Logger
	Now      func() time.Time
}

// Recorded is the result of journaling one trade.
type Recorded struct {
	Trade core.Trade       `json:"trade"`
	Check risk.CheckResult `json:"accountCheck"`
}

// ImportError reports why one entry of an import was rejected.
type ImportError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Imported int           `json:"imported"`
	IDs      []string      `json:"ids"`
	Errors   []ImportError `json:"errors,omitempty"`
}

// Service is the journal: it validates entries, persists trades and
// serves analytics over per-user snapshots.
type Service struct {
	store    trade.Store
	settings *settings.Store
	deriver  *temporal.Deriver
	policy   risk.Policy
	accounts []core.Account
	archive  archive.Storage
	metrics  *metrics.Registry
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string

	mu   sync.RWMutex
	subs []Subscriber
}

// NewService wires a journal over a trade store and session settings.
func NewService(store trade.Store, st *settings.Store, opts Options) (*Service, error) {
	if store == nil || st == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("journal needs a trade store and settings"))
	}
	if opts.Policy == (risk.Policy{}) {
		opts.Policy = risk.DefaultPolicy()
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Service{
		store:    store,
		settings: st,
		deriver:  temporal.NewDeriver(),
		policy:   opts.Policy,
		accounts: opts.Accounts,
		archive:  opts.Archive,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
		now:      opts.Now,
		newID:    uuid.NewString,
	}

	_, version := st.Current()
	s.metrics.SetProfileVersion(version)
	st.Subscribe(func(p temporal.Profile, version uint64) {
		s.metrics.SetProfileVersion(version)
		s.publish(Event{Type: EventSessionsChanged, Version: version, At: s.now()})
	})
	return s, nil
}

// Subscribe registers fn for journal and profile change events.
func (s *Service) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

func (s *Service) publish(e Event) {
	s.mu.RLock()
	subs := append([]Subscriber(nil), s.subs...)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(e)
	}
}

// Policy returns the risk policy in use.
func (s *Service) Policy() risk.Policy { return s.policy }

// Accounts returns the configured trading accounts.
func (s *Service) Accounts() []core.Account {
	return append([]core.Account(nil), s.accounts...)
}

// Account looks up an account by id.
func (s *Service) Account(id string) (core.Account, bool) {
	for _, a := range s.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return core.Account{}, false
}

// Profile returns the active session profile and its version.
func (s *Service) Profile() (temporal.Profile, uint64) {
	return s.settings.Current()
}

// UpdateProfile installs a new session profile. Admin only. Stored trades
// are re-derived lazily on their next read.
func (s *Service) UpdateProfile(ctx context.Context, p auth.Principal, profile temporal.Profile) (uint64, error) {
	if !p.IsAdmin() {
		return 0, core.WrapError(core.ErrForbidden, fmt.Errorf("only admins may change sessions"))
	}
	return s.settings.Update(ctx, profile)
}

// CalendarZone resolves the calendar zone of the active profile.
func (s *Service) CalendarZone() *time.Location {
	profile, _ := s.settings.Current()
	loc, err := temporal.LoadZone(profile.CalendarZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Record validates e and journals it for user. Account rule breaches are
// reported in the result and logged; they do not block the trade.
func (s *Service) Record(ctx context.Context, p auth.Principal, user string, e Entry) (Recorded, error) {
	if err := p.CanWrite(user); err != nil {
		return Recorded{}, err
	}
	profile, _ := s.settings.Current()
	t, err := e.Build(s.newID(), profile, s.policy)
	if err != nil {
		s.metrics.RecordRejected()
		return Recorded{}, err
	}
	return s.put(ctx, user, t)
}

func (s *Service) put(ctx context.Context, user string, t core.Trade) (Recorded, error) {
	res := Recorded{Trade: t, Check: risk.CheckResult{Allowed: true}}

	if acct, ok := s.Account(t.AccountID); ok {
		sameDay, err := s.sameDay(ctx, user, t)
		if err != nil {
			return Recorded{}, err
		}
		res.Check = risk.CheckAccount(acct, sameDay, t)
		if !res.Check.Allowed {
			s.metrics.RecordRuleBreach(acct.ID)
			s.logger.Warn("trade breaches account rules",
				zap.String("user", user),
				zap.String("account", acct.ID),
				zap.String("trade", t.ID),
				zap.Strings("reasons", res.Check.Reasons))
		}
	}

	if err := s.store.Put(ctx, user, t); err != nil {
		return Recorded{}, err
	}
	s.deriver.Forget(t.ID)
	s.metrics.RecordTrade(string(t.Status))
	s.logger.Info("trade recorded",
		zap.String("user", user),
		zap.String("trade", t.ID),
		zap.String("symbol", t.Symbol),
		zap.Float64("pnl", t.PnL))
	e := Event{Type: EventTradesChanged, UserID: user, TradeID: t.ID, At: s.now()}
	if !res.Check.Allowed {
		e.AccountID = t.AccountID
		e.Breaches = res.Check.Reasons
	}
	s.publish(e)
	return res, nil
}

// sameDay returns the user's other trades on the same account and calendar
// day as t.
func (s *Service) sameDay(ctx context.Context, user string, t core.Trade) ([]core.Trade, error) {
	snap, err := s.store.Snapshot(ctx, user)
	if err != nil {
		return nil, err
	}
	loc := s.CalendarZone()
	day := t.EntryTime.In(loc).Format("2006-01-02")
	var out []core.Trade
	for _, o := range trade.Ordered(snap) {
		if o.ID == t.ID || o.AccountID != t.AccountID {
			continue
		}
		if o.EntryTime.In(loc).Format("2006-01-02") == day {
			out = append(out, o)
		}
	}
	return out, nil
}

// Import journals a batch of entries. Invalid entries are skipped and
// reported; valid ones are stored.
func (s *Service) Import(ctx context.Context, p auth.Principal, user string, entries []Entry) (ImportResult, error) {
	if err := p.CanWrite(user); err != nil {
		return ImportResult{}, err
	}
	profile, _ := s.settings.Current()
	res := ImportResult{IDs: make([]string, 0, len(entries))}
	for i, e := range entries {
		t, err := e.Build(s.newID(), profile, s.policy)
		if err != nil {
			s.metrics.RecordRejected()
			res.Errors = append(res.Errors, ImportError{Index: i, Message: err.Error()})
			continue
		}
		if _, err := s.put(ctx, user, t); err != nil {
			return res, err
		}
		res.Imported++
		res.IDs = append(res.IDs, t.ID)
	}
	s.logger.Info("import finished",
		zap.String("user", user),
		zap.Int("imported", res.Imported),
		zap.Int("rejected", len(res.Errors)))
	return res, nil
}

// Get returns one trade with derived fields under the current profile.
func (s *Service) Get(ctx context.Context, p auth.Principal, user, id string) (core.Trade, error) {
	if err := p.CanRead(user); err != nil {
		return core.Trade{}, err
	}
	t, err := s.store.Get(ctx, user, id)
	if err != nil {
		return core.Trade{}, err
	}
	profile, version := s.settings.Current()
	return s.deriver.Apply(t, version, profile)
}

// Delete removes a trade.
func (s *Service) Delete(ctx context.Context, p auth.Principal, user, id string) error {
	if err := p.CanWrite(user); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, user, id); err != nil {
		return err
	}
	s.deriver.Forget(id)
	s.metrics.RecordDeleted()
	s.logger.Info("trade deleted", zap.String("user", user), zap.String("trade", id))
	s.publish(Event{Type: EventTradesChanged, UserID: user, TradeID: id, At: s.now()})
	return nil
}

// List returns the user's trades ordered by entry time then id, with
// derived fields current for the active profile, narrowed by f.
func (s *Service) List(ctx context.Context, p auth.Principal, user string, f trade.Filter) ([]core.Trade, error) {
	if err := p.CanRead(user); err != nil {
		return nil, err
	}
	trades, err := s.snapshot(ctx, user)
	if err != nil {
		return nil, err
	}
	return f.Apply(trades), nil
}

func (s *Service) snapshot(ctx context.Context, user string) ([]core.Trade, error) {
	snap, err := s.store.Snapshot(ctx, user)
	if err != nil {
		return nil, err
	}
	profile, version := s.settings.Current()
	ordered := trade.Ordered(snap)
	for i, t := range ordered {
		derived, err := s.deriver.Apply(t, version, profile)
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, err)
		}
		ordered[i] = derived
	}
	return ordered, nil
}

// AnalyticsOptions returns report options for the active profile.
func (s *Service) AnalyticsOptions(window analytics.Window) analytics.Options {
	return analytics.Options{
		Window:       window,
		Now:          s.now(),
		Policy:       s.policy,
		CalendarZone: s.CalendarZone(),
		Accounts:     s.accounts,
	}
}

// Report builds every dashboard for the user's journal.
func (s *Service) Report(ctx context.Context, p auth.Principal, user string, window analytics.Window) (analytics.Report, error) {
	trades, err := s.List(ctx, p, user, trade.Filter{})
	if err != nil {
		return analytics.Report{}, err
	}
	start := time.Now()
	r := analytics.Build(trades, s.AnalyticsOptions(window))
	s.metrics.RecordReport(string(window), time.Since(start).Seconds())
	return r, nil
}

// Export writes the user's journal to the archive and returns its path.
func (s *Service) Export(ctx context.Context, p auth.Principal, user string) (string, error) {
	if s.archive == nil {
		return "", core.WrapError(core.ErrConfigMissing, fmt.Errorf("no archive configured"))
	}
	trades, err := s.List(ctx, p, user, trade.Filter{})
	if err != nil {
		return "", err
	}
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(trades, "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrStoreFailed, err)
	}
	path := archive.ExportPath(user, s.now())
	if err := s.archive.Write(ctx, path, data); err != nil {
		return "", core.WrapError(core.ErrStoreFailed, err)
	}
	s.logger.Info("journal exported", zap.String("user", user), zap.String("path", path), zap.Int("trades", len(trades)))
	return path, nil
}

// DeriverStats exposes derivation cache counters.
func (s *Service) DeriverStats() temporal.DeriverStats {
	return s.deriver.Stats()
}

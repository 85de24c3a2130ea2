package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/journal"
	"github.com/newthinker/zella/internal/metrics"
	"github.com/newthinker/zella/internal/notifier"
	"github.com/newthinker/zella/internal/storage/trade"
)

const (
	// RuleAccountBreach names alerts raised from account rule checks.
	RuleAccountBreach = "account_rules"

	DefaultCooldown    = time.Hour
	DefaultQueueSize   = 256
	DefaultSendTimeout = 30 * time.Second
	DefaultRecent      = 50
)

// Journal is the read access the watcher needs.
type Journal interface {
	Get(ctx context.Context, p auth.Principal, user, id string) (core.Trade, error)
	List(ctx context.Context, p auth.Principal, user string, f trade.Filter) ([]core.Trade, error)
	CalendarZone() *time.Location
}

// Sender delivers an alert to every configured channel.
type Sender interface {
	NotifyAll(ctx context.Context, alert notifier.Alert) map[string]error
}

// Options configures a Watcher. Zero values take defaults; nil Rules means
// DefaultRules.
type Options struct {
	Rules       []Rule
	Cooldown    time.Duration
	QueueSize   int
	SendTimeout time.Duration
	Recent      int
	Metrics     *metrics.Registry
	Logger      *zap.Logger
	Now         func() time.Time
}

// Watcher evaluates rules after each recorded trade and sends alerts. A
// rule fires at most once per user and day within the cooldown.
type Watcher struct {
	journal     Journal
	sender      Sender
	rules       []Rule
	cooldown    time.Duration
	sendTimeout time.Duration
	keep        int
	metrics     *metrics.Registry
	logger      *zap.Logger
	now         func() time.Time

	queue chan journal.Event

	mu        sync.Mutex
	lastFired map[string]time.Time
	recent    map[string][]notifier.Alert
}

// NewWatcher validates the rules and builds a watcher. Call Run to start
// processing events passed to Handle.
func NewWatcher(j Journal, s Sender, opts Options) (*Watcher, error) {
	if j == nil || s == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("alert watcher needs a journal and a sender"))
	}
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if err := ValidateRules(opts.Rules); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = DefaultSendTimeout
	}
	if opts.Recent <= 0 {
		opts.Recent = DefaultRecent
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	w := &Watcher{
		journal:     j,
		sender:      s,
		rules:       opts.Rules,
		cooldown:    opts.Cooldown,
		sendTimeout: opts.SendTimeout,
		keep:        opts.Recent,
		metrics:     opts.Metrics,
		logger:      opts.Logger.Named("alert"),
		now:         opts.Now,
		queue:       make(chan journal.Event, opts.QueueSize),
		lastFired:   make(map[string]time.Time),
		recent:      make(map[string][]notifier.Alert),
	}
	w.logger.Info("alert watcher ready", zap.Strings("rules", ruleNames(w.rules)))
	return w, nil
}

// Handle queues a journal event. It never blocks; events are dropped when
// the queue is full.
func (w *Watcher) Handle(e journal.Event) {
	if e.Type != journal.EventTradesChanged || e.TradeID == "" {
		return
	}
	select {
	case w.queue <- e:
	default:
		w.logger.Warn("alert queue full, dropping event",
			zap.String("user", e.UserID), zap.String("trade", e.TradeID))
	}
}

// Run processes queued events until ctx is canceled.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-w.queue:
			if _, err := w.Process(ctx, e); err != nil {
				w.logger.Warn("alert evaluation failed",
					zap.String("user", e.UserID),
					zap.String("trade", e.TradeID),
					zap.Error(err))
			}
		}
	}
}

// Process evaluates one event synchronously and returns the alerts sent.
func (w *Watcher) Process(ctx context.Context, e journal.Event) ([]notifier.Alert, error) {
	t, err := w.journal.Get(ctx, auth.Admin(), e.UserID, e.TradeID)
	if errors.Is(err, core.ErrTradeNotFound) {
		// deleted since
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	loc := w.journal.CalendarZone()
	local := t.EntryTime.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	day := start.Format(time.DateOnly)
	trades, err := w.journal.List(ctx, auth.Admin(), e.UserID, trade.Filter{
		From: start,
		To:   start.AddDate(0, 0, 1).Add(-time.Nanosecond),
	})
	if err != nil {
		return nil, err
	}
	m := DayMetrics(trades)

	var alerts []notifier.Alert
	if len(e.Breaches) > 0 {
		a := notifier.Alert{
			Rule:      RuleAccountBreach,
			Severity:  notifier.SeverityCritical,
			UserID:    e.UserID,
			AccountID: e.AccountID,
			TradeID:   e.TradeID,
			Title:     "Account rules breached",
			Message:   strings.Join(e.Breaches, "; "),
			Metrics:   m,
		}
		if w.claim(e.UserID, RuleAccountBreach+":"+e.AccountID, day) {
			alerts = append(alerts, a)
		}
	}
	for i := range w.rules {
		r := &w.rules[i]
		if !r.Evaluate(m) || !w.claim(e.UserID, r.Name, day) {
			continue
		}
		title := r.Title
		if title == "" {
			title = r.Name
		}
		alerts = append(alerts, notifier.Alert{
			Rule:     r.Name,
			Severity: r.Severity,
			UserID:   e.UserID,
			TradeID:  e.TradeID,
			Title:    title,
			Message:  r.FormatMessage(m),
			Metrics:  m,
		})
	}

	for i := range alerts {
		alerts[i].At = w.now()
		w.send(ctx, alerts[i])
	}
	return alerts, nil
}

// claim reports whether a rule may fire now and records the firing.
func (w *Watcher) claim(user, rule, day string) bool {
	key := user + "|" + rule + "|" + day
	now := w.now()

	w.mu.Lock()
	defer w.mu.Unlock()
	if last, ok := w.lastFired[key]; ok && now.Sub(last) < w.cooldown {
		return false
	}
	w.lastFired[key] = now
	w.pruneLocked(now)
	return true
}

// pruneLocked forgets firings older than two days or the cooldown,
// whichever is longer.
func (w *Watcher) pruneLocked(now time.Time) {
	horizon := 48 * time.Hour
	if w.cooldown > horizon {
		horizon = w.cooldown
	}
	for k, at := range w.lastFired {
		if now.Sub(at) > horizon {
			delete(w.lastFired, k)
		}
	}
}

func (w *Watcher) send(ctx context.Context, a notifier.Alert) {
	w.mu.Lock()
	list := append(w.recent[a.UserID], a)
	if len(list) > w.keep {
		list = list[len(list)-w.keep:]
	}
	w.recent[a.UserID] = list
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	errs := w.sender.NotifyAll(ctx, a)
	if len(errs) == 0 {
		w.metrics.RecordAlert(a.Rule, "sent")
		w.logger.Info("alert sent",
			zap.String("rule", a.Rule),
			zap.String("user", a.UserID),
			zap.String("severity", string(a.Severity)))
		return
	}
	w.metrics.RecordAlert(a.Rule, "failed")
	for name, err := range errs {
		w.logger.Warn("alert delivery failed",
			zap.String("rule", a.Rule),
			zap.String("notifier", name),
			zap.Error(err))
	}
}

// Recent returns the latest alerts raised for user, newest first.
func (w *Watcher) Recent(user string) []notifier.Alert {
	w.mu.Lock()
	defer w.mu.Unlock()
	list := w.recent[user]
	out := make([]notifier.Alert, len(list))
	for i, a := range list {
		out[len(list)-1-i] = a
	}
	return out
}

// Rules returns the active rules.
func (w *Watcher) Rules() []Rule {
	return append([]Rule(nil), w.rules...)
}

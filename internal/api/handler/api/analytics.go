package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/newthinker/zella/internal/analytics"
	"github.com/newthinker/zella/internal/api/response"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/risk"
	"github.com/newthinker/zella/internal/storage/trade"
)

// AnalyticsJournal is the journal surface the dashboard routes need.
type AnalyticsJournal interface {
	List(ctx context.Context, p auth.Principal, user string, f trade.Filter) ([]core.Trade, error)
	Report(ctx context.Context, p auth.Principal, user string, window analytics.Window) (analytics.Report, error)
	AnalyticsOptions(window analytics.Window) analytics.Options
	Account(id string) (core.Account, bool)
}

// AnalyticsHandler serves the dashboard views.
type AnalyticsHandler struct {
	journal AnalyticsJournal
	views   map[string]viewFunc
}

type viewFunc func(trades []core.Trade, opts analytics.Options) any

// NewAnalyticsHandler creates an analytics handler.
func NewAnalyticsHandler(j AnalyticsJournal) *AnalyticsHandler {
	return &AnalyticsHandler{
		journal: j,
		views: map[string]viewFunc{
			"performance": func(trades []core.Trade, opts analytics.Options) any {
				return analytics.Performance(trades, analytics.PerformanceOptions{Window: opts.Window, Now: opts.Now, Policy: opts.Policy})
			},
			"temporal": func(trades []core.Trade, _ analytics.Options) any {
				return analytics.Temporal(trades)
			},
			"risk": func(trades []core.Trade, opts analytics.Options) any {
				return risk.Summarize(trades, opts.Policy)
			},
			"monthly": func(trades []core.Trade, opts analytics.Options) any {
				return map[string]any{
					"months": analytics.Monthly(trades, opts.CalendarZone),
					"growth": analytics.Growth(trades),
				}
			},
			"psychology": func(trades []core.Trade, _ analytics.Options) any {
				return analytics.Psychology(trades)
			},
			"playbook": func(trades []core.Trade, _ analytics.Options) any {
				return analytics.Playbook(trades)
			},
			"holding": func(trades []core.Trade, _ analytics.Options) any {
				return analytics.Enumerated(analytics.HoldingCategories()...).Fold(trades, analytics.ByHoldingCategory).List()
			},
		},
	}
}

// Views lists the view names served by View.
func (h *AnalyticsHandler) Views() []string {
	return []string{"performance", "temporal", "risk", "monthly", "psychology", "playbook", "holding"}
}

// Report returns every dashboard at once. ?range= selects LIFETIME or 30D
// for the performance view.
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	window, err := analytics.ParseWindow(strings.ToUpper(r.URL.Query().Get("range")))
	if err != nil {
		response.Fail(w, err)
		return
	}
	rep, err := h.journal.Report(r.Context(), p, journalOwner(r, p), window)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, rep)
}

// View returns the single dashboard named by the {view} route variable.
func (h *AnalyticsHandler) View(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["view"]
	view, ok := h.views[name]
	if !ok {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrNoData, fmt.Errorf("unknown view %q", name)))
		return
	}
	window, err := analytics.ParseWindow(strings.ToUpper(r.URL.Query().Get("range")))
	if err != nil {
		response.Fail(w, err)
		return
	}
	trades, opts, err := h.snapshot(r, window)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, view(trades, opts))
}

// Calendar returns the P&L calendar of ?year=&month=, defaulting to the
// current month in the calendar zone.
func (h *AnalyticsHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	trades, opts, err := h.snapshot(r, analytics.WindowLifetime)
	if err != nil {
		response.Fail(w, err)
		return
	}
	now := opts.Now.In(opts.CalendarZone)
	year, err := queryInt(r, "year", now.Year())
	if err != nil {
		response.Fail(w, err)
		return
	}
	month, err := queryInt(r, "month", int(now.Month()))
	if err != nil {
		response.Fail(w, err)
		return
	}

	cm, err := analytics.Calendar(trades, year, time.Month(month), opts.CalendarZone, opts.Now)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, cm)
}

// Overtrading reports trades past the daily limit for ?account=, or for
// every configured account, along with the sequence audit.
func (h *AnalyticsHandler) Overtrading(w http.ResponseWriter, r *http.Request) {
	trades, opts, err := h.snapshot(r, analytics.WindowLifetime)
	if err != nil {
		response.Fail(w, err)
		return
	}

	accounts := opts.Accounts
	if id := strings.TrimSpace(r.URL.Query().Get("account")); id != "" {
		acct, ok := h.journal.Account(id)
		if !ok {
			response.Fail(w, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown account %q", id)))
			return
		}
		accounts = []core.Account{acct}
	}
	if len(accounts) == 0 {
		accounts = []core.Account{{}}
	}

	views := make([]analytics.OvertradingView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, analytics.Overtrading(trades, a))
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"accounts":      views,
		"sequenceAudit": analytics.SequenceAudit(trades, opts.CalendarZone),
	})
}

func (h *AnalyticsHandler) snapshot(r *http.Request, window analytics.Window) ([]core.Trade, analytics.Options, error) {
	p, err := caller(r)
	if err != nil {
		return nil, analytics.Options{}, err
	}
	trades, err := h.journal.List(r.Context(), p, journalOwner(r, p), trade.Filter{})
	if err != nil {
		return nil, analytics.Options{}, err
	}
	opts := h.journal.AnalyticsOptions(window)
	if opts.CalendarZone == nil {
		opts.CalendarZone = time.UTC
	}
	return trades, opts, nil
}

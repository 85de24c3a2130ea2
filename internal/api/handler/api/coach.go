package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/newthinker/zella/internal/api/job"
	"github.com/newthinker/zella/internal/api/response"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/coach"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/llm"
	"github.com/newthinker/zella/internal/storage/trade"
)

// DefaultInsightTrades is how many recent trades an audit covers.
const DefaultInsightTrades = 50

// CoachJournal is the journal surface the coach routes need.
type CoachJournal interface {
	List(ctx context.Context, p auth.Principal, user string, f trade.Filter) ([]core.Trade, error)
	Account(id string) (core.Account, bool)
	CalendarZone() *time.Location
}

// Grader grades a set of trades.
type Grader interface {
	Grade(ctx context.Context, trades []core.Trade, acct *core.Account) (*coach.ExecutionGrade, error)
}

// Auditor produces performance insights.
type Auditor interface {
	Insights(ctx context.Context, trades []core.Trade) ([]coach.Insight, error)
}

// Chat is a per-user coaching conversation.
type Chat interface {
	Send(ctx context.Context, user, text string) (string, error)
	History(user string) []llm.Message
	Reset(user string)
}

// Runner runs coach work as async jobs.
type Runner interface {
	Submit(user, kind string, task coach.Task) job.Job
	Jobs() *job.Store
}

// CoachHandler serves grading, insights, mindset chat and job polling.
type CoachHandler struct {
	journal CoachJournal
	grader  Grader
	auditor Auditor
	chat    Chat
	runner  Runner
	now     func() time.Time
}

// NewCoachHandler creates a coach handler.
func NewCoachHandler(j CoachJournal, g Grader, a Auditor, c Chat, r Runner) *CoachHandler {
	return &CoachHandler{journal: j, grader: g, auditor: a, chat: c, runner: r, now: time.Now}
}

// GradeRequest selects the trades to grade: explicit ids, or the trades of
// one calendar day (today when empty), optionally limited to an account.
type GradeRequest struct {
	TradeIDs  []string `json:"tradeIds,omitempty"`
	Date      string   `json:"date,omitempty"`
	AccountID string   `json:"accountId,omitempty"`
}

// InsightsRequest bounds the trades an audit covers.
type InsightsRequest struct {
	Limit int `json:"limit,omitempty"`
}

// ChatRequest is one message to the mindset coach.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatTurn is one message of a coaching conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Grade starts an execution grading job and returns it with 202.
func (h *CoachHandler) Grade(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var req GradeRequest
	if r.ContentLength != 0 {
		if err := response.Decode(r, &req, core.ErrInvalidTrade); err != nil {
			response.Fail(w, err)
			return
		}
	}

	var acct *core.Account
	if req.AccountID != "" {
		a, ok := h.journal.Account(req.AccountID)
		if !ok {
			response.Fail(w, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown account %q", req.AccountID)))
			return
		}
		acct = &a
	}

	trades, err := h.gradeSelection(r, p, req)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if len(trades) == 0 {
		response.Fail(w, core.WrapError(core.ErrNoData, fmt.Errorf("no trades to grade")))
		return
	}

	j := h.runner.Submit(p.UserID, coach.KindGrade, func(ctx context.Context) (any, error) {
		return h.grader.Grade(ctx, trades, acct)
	})
	response.JSON(w, http.StatusAccepted, j)
}

func (h *CoachHandler) gradeSelection(r *http.Request, p auth.Principal, req GradeRequest) ([]core.Trade, error) {
	user := journalOwner(r, p)
	if len(req.TradeIDs) > 0 {
		all, err := h.journal.List(r.Context(), p, user, trade.Filter{AccountID: req.AccountID})
		if err != nil {
			return nil, err
		}
		want := make(map[string]bool, len(req.TradeIDs))
		for _, id := range req.TradeIDs {
			want[id] = true
		}
		out := make([]core.Trade, 0, len(req.TradeIDs))
		for _, t := range all {
			if want[t.ID] {
				out = append(out, t)
			}
		}
		return out, nil
	}

	loc := h.journal.CalendarZone()
	day := h.now().In(loc)
	if s := strings.TrimSpace(req.Date); s != "" {
		d, err := time.ParseInLocation(time.DateOnly, s, loc)
		if err != nil {
			return nil, core.WrapError(core.ErrOutOfRange, fmt.Errorf("date: %w", err))
		}
		day = d
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)
	return h.journal.List(r.Context(), p, user, trade.Filter{
		AccountID: req.AccountID,
		From:      start,
		To:        start.AddDate(0, 0, 1).Add(-time.Nanosecond),
	})
}

// Insights starts a performance audit job over the most recent trades.
func (h *CoachHandler) Insights(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var req InsightsRequest
	if r.ContentLength != 0 {
		if err := response.Decode(r, &req, core.ErrInvalidTrade); err != nil {
			response.Fail(w, err)
			return
		}
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultInsightTrades
	}

	trades, err := h.journal.List(r.Context(), p, journalOwner(r, p), trade.Filter{})
	if err != nil {
		response.Fail(w, err)
		return
	}
	if len(trades) == 0 {
		response.Fail(w, core.WrapError(core.ErrNoData, fmt.Errorf("no trades to audit")))
		return
	}
	if len(trades) > limit {
		trades = trades[len(trades)-limit:]
	}

	j := h.runner.Submit(p.UserID, coach.KindInsights, func(ctx context.Context) (any, error) {
		return h.auditor.Insights(ctx, trades)
	})
	response.JSON(w, http.StatusAccepted, j)
}

// Chat sends one message to the caller's mindset coach.
func (h *CoachHandler) Chat(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var req ChatRequest
	if err := response.Decode(r, &req, core.ErrNoData); err != nil {
		response.Fail(w, err)
		return
	}
	reply, err := h.chat.Send(r.Context(), p.UserID, req.Message)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, ChatTurn{Role: "assistant", Content: reply})
}

// ChatHistory returns the caller's conversation.
func (h *CoachHandler) ChatHistory(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	history := h.chat.History(p.UserID)
	turns := make([]ChatTurn, len(history))
	for i, m := range history {
		turns[i] = ChatTurn{Role: m.Role, Content: m.Content}
	}
	response.JSON(w, http.StatusOK, map[string]any{"messages": turns})
}

// ResetChat forgets the caller's conversation.
func (h *CoachHandler) ResetChat(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	h.chat.Reset(p.UserID)
	response.JSON(w, http.StatusOK, map[string]any{"reset": true})
}

// Jobs lists the caller's jobs, newest first. The administrator may
// pass ?user= to read another journal's jobs.
func (h *CoachHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	owner := p.UserID
	if u := r.URL.Query().Get("user"); u != "" && p.IsAdmin() {
		owner = u
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		response.Fail(w, err)
		return
	}
	jobs := h.runner.Jobs().ListOwner(owner)
	if limit > 0 && len(jobs) > limit {
		jobs = jobs[:limit]
	}
	response.JSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// Job returns an async job. Jobs of other users are reported as missing
// unless the caller is the administrator.
func (h *CoachHandler) Job(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	j, err := h.runner.Jobs().Get(id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if j.Owner != p.UserID && !p.IsAdmin() {
		response.Fail(w, core.WrapError(core.ErrJobNotFound, fmt.Errorf("job %s", id)))
		return
	}
	response.JSON(w, http.StatusOK, j)
}

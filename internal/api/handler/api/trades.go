package api

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"

	"github.com/newthinker/zella/internal/api/response"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/journal"
	"github.com/newthinker/zella/internal/storage/trade"
)

// maxImportBytes caps an import request body.
const maxImportBytes = 8 << 20

// TradeJournal is the journal surface the trade routes need.
type TradeJournal interface {
	Record(ctx context.Context, p auth.Principal, user string, e journal.Entry) (journal.Recorded, error)
	Import(ctx context.Context, p auth.Principal, user string, entries []journal.Entry) (journal.ImportResult, error)
	Get(ctx context.Context, p auth.Principal, user, id string) (core.Trade, error)
	Delete(ctx context.Context, p auth.Principal, user, id string) error
	List(ctx context.Context, p auth.Principal, user string, f trade.Filter) ([]core.Trade, error)
	CalendarZone() *time.Location
}

// TradeHandler serves trade CRUD and import.
type TradeHandler struct {
	journal TradeJournal
}

// NewTradeHandler creates a trade handler.
func NewTradeHandler(j TradeJournal) *TradeHandler {
	return &TradeHandler{journal: j}
}

// List returns the caller's trades ordered by entry time. Supports symbol,
// account, setup, from, to, limit and offset query parameters.
func (h *TradeHandler) List(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	f, err := h.filter(r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	trades, err := h.journal.List(r.Context(), p, journalOwner(r, p), f)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"trades": trades,
		"count":  len(trades),
	})
}

func (h *TradeHandler) filter(r *http.Request) (trade.Filter, error) {
	q := r.URL.Query()
	f := trade.Filter{
		Symbol:    q.Get("symbol"),
		AccountID: q.Get("account"),
		Setup:     q.Get("setup"),
	}
	loc := h.journal.CalendarZone()
	var err error
	if f.From, err = queryTime(r, "from", loc); err != nil {
		return f, err
	}
	if f.To, err = queryTime(r, "to", loc); err != nil {
		return f, err
	}
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(r, "offset", 0); err != nil {
		return f, err
	}
	return f, nil
}

// Create records one trade from a form entry.
func (h *TradeHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var e journal.Entry
	if err := response.Decode(r, &e, core.ErrInvalidTrade); err != nil {
		response.Fail(w, err)
		return
	}

	rec, err := h.journal.Record(r.Context(), p, journalOwner(r, p), e)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, rec)
}

// Get returns one trade.
func (h *TradeHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	t, err := h.journal.Get(r.Context(), p, journalOwner(r, p), mux.Vars(r)["id"])
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, t)
}

// Delete removes one trade.
func (h *TradeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	id := mux.Vars(r)["id"]
	if err := h.journal.Delete(r.Context(), p, journalOwner(r, p), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"id":      id,
		"deleted": true,
	})
}

// Import records a batch of entries given as a JSON or YAML list. Invalid
// entries are reported per index without aborting the batch.
func (h *TradeHandler) Import(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	entries, err := decodeEntries(w, r)
	if err != nil {
		response.Fail(w, err)
		return
	}

	res, err := h.journal.Import(r.Context(), p, journalOwner(r, p), entries)
	if err != nil {
		response.Fail(w, err)
		return
	}
	status := http.StatusCreated
	if res.Imported == 0 && len(res.Errors) > 0 {
		status = http.StatusBadRequest
	}
	response.JSON(w, status, res)
}

func decodeEntries(w http.ResponseWriter, r *http.Request) ([]journal.Entry, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var entries []journal.Entry
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml":
		data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
		if err != nil {
			return nil, core.WrapError(core.ErrInvalidTrade, err)
		}
		if err := yaml.Unmarshal(data, &entries); err != nil {
			return nil, core.WrapError(core.ErrInvalidTrade, err)
		}
	default:
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		if err := response.Decode(r, &entries, core.ErrInvalidTrade); err != nil {
			return nil, err
		}
	}
	if len(entries) == 0 {
		return nil, core.WrapError(core.ErrNoData, fmt.Errorf("import contains no entries"))
	}
	return entries, nil
}

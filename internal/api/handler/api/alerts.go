package api

import (
	"net/http"

	"github.com/newthinker/zella/internal/alert"
	"github.com/newthinker/zella/internal/api/response"
	"github.com/newthinker/zella/internal/notifier"
)

// AlertFeed exposes raised alerts and the rules that raise them.
type AlertFeed interface {
	Recent(user string) []notifier.Alert
	Rules() []alert.Rule
}

// AlertHandler serves discipline alerts.
type AlertHandler struct {
	feed AlertFeed
}

// NewAlertHandler creates an alert handler.
func NewAlertHandler(feed AlertFeed) *AlertHandler {
	return &AlertHandler{feed: feed}
}

// Recent lists the latest alerts of a journal, newest first.
func (h *AlertHandler) Recent(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	user := journalOwner(r, p)
	if err := p.CanRead(user); err != nil {
		response.Fail(w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		response.Fail(w, err)
		return
	}

	alerts := h.feed.Recent(user)
	if limit > 0 && len(alerts) > limit {
		alerts = alerts[:limit]
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// Rules lists the active alert rules.
func (h *AlertHandler) Rules(w http.ResponseWriter, r *http.Request) {
	rules := h.feed.Rules()
	response.JSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

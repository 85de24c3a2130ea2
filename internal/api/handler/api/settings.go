package api

import (
	"context"
	"net/http"

	"github.com/newthinker/zella/internal/api/response"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
	"github.com/newthinker/zella/internal/temporal"
)

// SettingsJournal is the journal surface the settings routes need.
type SettingsJournal interface {
	Profile() (temporal.Profile, uint64)
	UpdateProfile(ctx context.Context, p auth.Principal, profile temporal.Profile) (uint64, error)
	Accounts() []core.Account
}

// SettingsHandler serves session configuration and accounts.
type SettingsHandler struct {
	journal SettingsJournal
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(j SettingsJournal) *SettingsHandler {
	return &SettingsHandler{journal: j}
}

// Sessions returns the active session profile and its version.
func (h *SettingsHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	profile, version := h.journal.Profile()
	response.JSON(w, http.StatusOK, map[string]any{
		"profile": profile,
		"version": version,
	})
}

// UpdateSessions replaces the session profile. Every trade served after
// the update is derived under the new profile.
func (h *SettingsHandler) UpdateSessions(w http.ResponseWriter, r *http.Request) {
	p, err := caller(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var profile temporal.Profile
	if err := response.Decode(r, &profile, core.ErrConfigInvalid); err != nil {
		response.Fail(w, err)
		return
	}

	version, err := h.journal.UpdateProfile(r.Context(), p, profile)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"profile": profile,
		"version": version,
	})
}

// Accounts lists the configured trading accounts.
func (h *SettingsHandler) Accounts(w http.ResponseWriter, r *http.Request) {
	accounts := h.journal.Accounts()
	response.JSON(w, http.StatusOK, map[string]any{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

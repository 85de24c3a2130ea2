package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/newthinker/zella/internal/api/response"
	"github.com/newthinker/zella/internal/core"
)

// Vault is the admin credential surface the auth routes need.
type Vault interface {
	Login(password string) (string, time.Time, error)
	Logout(token string)
	ChangePassword(current, next, confirm string) error
}

// AuthHandler serves admin login and password changes.
type AuthHandler struct {
	vault Vault
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(v Vault) *AuthHandler {
	return &AuthHandler{vault: v}
}

// LoginRequest is the request body of Login.
type LoginRequest struct {
	Password string `json:"password"`
}

// PasswordRequest is the request body of ChangePassword.
type PasswordRequest struct {
	Current string `json:"currentPassword"`
	Next    string `json:"newPassword"`
	Confirm string `json:"confirmPassword"`
}

// Login exchanges the admin password for a bearer session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := response.Decode(r, &req, core.ErrUnauthorized); err != nil {
		response.Fail(w, err)
		return
	}
	token, expires, err := h.vault.Login(req.Password)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"token":     token,
		"expiresAt": expires,
		"role":      core.RoleAdmin,
	})
}

// Logout revokes the bearer token of the request.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	h.vault.Logout(strings.TrimSpace(token))
	response.JSON(w, http.StatusOK, map[string]any{"loggedOut": true})
}

// ChangePassword rotates the admin password. Existing sessions are revoked.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if err := response.Decode(r, &req, core.ErrPasswordRejected); err != nil {
		response.Fail(w, err)
		return
	}
	if err := h.vault.ChangePassword(req.Current, req.Next, req.Confirm); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"changed": true})
}

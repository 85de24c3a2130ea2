// internal/auth/resolver.go
package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/newthinker/zella/internal/core"
)

// APIKey maps a static key to a journal owner.
type APIKey struct {
	Key    string `mapstructure:"key"`
	UserID string `mapstructure:"user_id"`
	Email  string `mapstructure:"email"`
}

// Resolver turns request credentials into a Principal.
type Resolver struct {
	vault *Vault
	keys  []APIKey
	guest bool
}

// NewResolver creates a resolver. vault may be nil, which disables
// admin sessions.
func NewResolver(vault *Vault, keys []APIKey, allowGuest bool) *Resolver {
	return &Resolver{vault: vault, keys: keys, guest: allowGuest}
}

// Resolve checks, in order, a bearer session token, the X-API-Key header
// and finally falls back to guest access when enabled.
func (r *Resolver) Resolve(req *http.Request) (Principal, error) {
	if authz := req.Header.Get("Authorization"); authz != "" {
		token, ok := strings.CutPrefix(authz, "Bearer ")
		if !ok || r.vault == nil || !r.vault.Valid(strings.TrimSpace(token)) {
			return Principal{}, core.WrapError(core.ErrUnauthorized, fmt.Errorf("invalid session token"))
		}
		return Admin(), nil
	}

	if provided := req.Header.Get("X-API-Key"); provided != "" {
		if k, ok := r.matchKey(provided); ok {
			return User(k.UserID, k.Email), nil
		}
		return Principal{}, core.WrapError(core.ErrUnauthorized, fmt.Errorf("invalid API key"))
	}

	if r.guest {
		return Guest(), nil
	}
	return Principal{}, core.WrapError(core.ErrUnauthorized, fmt.Errorf("no credentials"))
}

// matchKey compares against every configured key so timing does not
// depend on which one matched.
func (r *Resolver) matchKey(provided string) (APIKey, bool) {
	var found APIKey
	matched := false
	for _, k := range r.keys {
		if k.Key == "" {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(provided), []byte(k.Key)) == 1 {
			found = k
			matched = true
		}
	}
	return found, matched
}

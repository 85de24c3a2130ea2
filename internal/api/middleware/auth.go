// Package middleware holds the HTTP middleware chain of the API server.
package middleware

import (
	"fmt"
	"net/http"

	"github.com/newthinker/zella/internal/api/response"
	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
)

// Resolver turns request credentials into a principal.
type Resolver interface {
	Resolve(r *http.Request) (auth.Principal, error)
}

// Authenticate resolves the caller once per request and stores the
// principal in the request context. Browsers cannot set headers on a
// websocket handshake, so an access_token query parameter is accepted as a
// bearer token.
func Authenticate(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				if token := r.URL.Query().Get("access_token"); token != "" {
					r = r.Clone(r.Context())
					r.Header.Set("Authorization", "Bearer "+token)
				}
			}

			p, err := resolver.Resolve(r)
			if err != nil {
				response.Fail(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin rejects every principal but the administrator.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := auth.FromContext(r.Context())
		if !ok {
			response.Fail(w, core.ErrUnauthorized)
			return
		}
		if !p.IsAdmin() {
			response.Fail(w, core.WrapError(core.ErrForbidden, fmt.Errorf("%s cannot use admin routes", p.Role)))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Package api holds the JSON handlers of the /api/v1 routes.
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/zella/internal/auth"
	"github.com/newthinker/zella/internal/core"
)

// caller returns the request principal. Routes are always mounted behind
// the authentication middleware, so a missing principal is unauthorized.
func caller(r *http.Request) (auth.Principal, error) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		return auth.Principal{}, core.ErrUnauthorized
	}
	return p, nil
}

// journalOwner picks the journal a request addresses: the ?user= query
// parameter when given, otherwise the caller's own journal. Access is
// checked by the journal service.
func journalOwner(r *http.Request, p auth.Principal) string {
	if u := strings.TrimSpace(r.URL.Query().Get("user")); u != "" {
		return u
	}
	return p.UserID
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, core.WrapError(core.ErrOutOfRange, fmt.Errorf("%s: want a non-negative integer, got %q", name, s))
	}
	return n, nil
}

// queryTime accepts RFC 3339 timestamps or plain dates, read in loc.
func queryTime(r *http.Request, name string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, core.WrapError(core.ErrOutOfRange, fmt.Errorf("%s: unrecognized time %q", name, s))
}

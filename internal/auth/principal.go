// internal/auth/principal.go
package auth

import (
	"context"
	"fmt"

	"github.com/newthinker/zella/internal/core"
)

// Fixed journal owners for the two non-user roles.
const (
	AdminUserID = "admin"
	GuestUserID = "guest"
)

// Principal is the caller identity resolved once per request.
type Principal struct {
	Role   core.Role `json:"role"`
	UserID string    `json:"userId"`
	Email  string    `json:"email,omitempty"`
}

// Admin returns the administrator principal.
func Admin() Principal {
	return Principal{Role: core.RoleAdmin, UserID: AdminUserID}
}

// Guest returns the read-only guest principal.
func Guest() Principal {
	return Principal{Role: core.RoleGuest, UserID: GuestUserID}
}

// User returns a principal for a regular journal owner.
func User(id, email string) Principal {
	return Principal{Role: core.RoleUser, UserID: id, Email: email}
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool { return p.Role == core.RoleAdmin }

// IsGuest reports whether the principal is an unauthenticated guest.
func (p Principal) IsGuest() bool { return p.Role == core.RoleGuest }

// CanRead checks read access to the journal owned by user.
// Guests see only the sample journal; users only their own.
func (p Principal) CanRead(user string) error {
	switch p.Role {
	case core.RoleAdmin:
		return nil
	case core.RoleUser:
		if user == p.UserID {
			return nil
		}
	case core.RoleGuest:
		if user == GuestUserID {
			return nil
		}
	default:
		return core.WrapError(core.ErrUnauthorized, fmt.Errorf("unknown role %q", p.Role))
	}
	return core.WrapError(core.ErrForbidden, fmt.Errorf("%s %q cannot read journal %q", p.Role, p.UserID, user))
}

// CanWrite checks write access to the journal owned by user.
// The guest sample journal is read-only.
func (p Principal) CanWrite(user string) error {
	if p.Role == core.RoleGuest {
		return core.WrapError(core.ErrForbidden, fmt.Errorf("guest journal is read-only"))
	}
	return p.CanRead(user)
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext extracts the principal stored by WithPrincipal.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

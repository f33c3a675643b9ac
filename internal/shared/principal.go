package shared

import (
	"context"
	"time"
)

const (
	authTokenKey  = "auth.token"
	authRoleKey   = "auth.role"
	authGroupKey  = "auth.group"
	authPermsKey  = "auth.perms"
	authExpiryKey = "auth.expires_at"
)

// Login roles understood by the GreenLife backend.
const (
	RoleAdmin   = "Admin"
	RoleManager = "Manager"
)

// Principal is the operator signed in through the GreenLife backend.
type Principal struct {
	User        string
	Role        string
	Group       string
	Token       string
	Permissions map[string]bool
	ExpiresAt   time.Time
}

// Can reports whether the group grants the named flag. Absent flags deny.
func (p Principal) Can(flag string) bool {
	if p.Permissions == nil {
		return false
	}
	return p.Permissions[flag]
}

// TokenExpired reports whether the bearer token is known to be past expiry.
func (p Principal) TokenExpired(now time.Time) bool {
	return !p.ExpiresAt.IsZero() && !now.Before(p.ExpiresAt)
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal placed by the login guard.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/rbac"
	"github.com/greenlife/greenlife-admin/internal/shared"
)

// ExpiryRecorder counts expired sessions.
type ExpiryRecorder interface {
	SessionExpired()
}

// Guard admits signed-in operators and runs the session-expiry path.
type Guard struct {
	Sessions *shared.SessionManager
	Logger   *slog.Logger
	Recorder ExpiryRecorder
	Now      func() time.Time
}

// RequireLogin loads the principal from the session and places it, and its
// bearer token, in the request context. A token already past its exp claim
// is expired here, before any backend call.
func (g *Guard) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := shared.SessionFromContext(r.Context())
		principal, ok := g.Sessions.Principal(sess)
		if !ok {
			rbac.Unauthenticated(w, r)
			return
		}
		if g.Sessions.Expired(r.Context(), sess) {
			// A concurrent request wrote the stale token back after a 401.
			sess.ClearAuth()
			rbac.Unauthenticated(w, r)
			return
		}
		if principal.TokenExpired(g.now()) {
			g.Expire(w, r)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), principal)
		ctx = greenlife.WithToken(ctx, principal.Token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Expire clears the token and permissions from the session and sends the
// browser to the login page. Of several requests failing together only the
// first queues the "session expired" notice.
func (g *Guard) Expire(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	first, err := g.Sessions.MarkExpired(r.Context(), sess)
	if err != nil && g.Logger != nil {
		g.Logger.Error("mark session expired", slog.Any("error", err))
	}
	if first {
		if g.Recorder != nil {
			g.Recorder.SessionExpired()
		}
		if g.Logger != nil {
			g.Logger.Info("session expired", slog.String("path", r.URL.Path))
		}
	}
	rbac.Unauthenticated(w, r)
}

func (g *Guard) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

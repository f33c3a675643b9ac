package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/greenlife/greenlife-admin/internal/platform/httpx"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
)

// LoginPath is where unauthenticated browsers are sent.
const LoginPath = "/auth/login"

// Middleware gates handlers on the permission flags of the signed-in group.
type Middleware struct {
	Templates *view.Engine
	CSRF      *shared.CSRFManager
	Logger    *slog.Logger
}

// RequireAny lets the request through when at least one flag is granted.
func (m Middleware) RequireAny(flags ...string) func(http.Handler) http.Handler {
	return m.require(flags, func(p shared.Principal) bool {
		for _, f := range flags {
			if p.Can(f) {
				return true
			}
		}
		return false
	})
}

// RequireAll lets the request through only when every flag is granted.
func (m Middleware) RequireAll(flags ...string) func(http.Handler) http.Handler {
	return m.require(flags, func(p shared.Principal) bool {
		for _, f := range flags {
			if !p.Can(f) {
				return false
			}
		}
		return true
	})
}

func (m Middleware) require(flags []string, allowed func(shared.Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				Unauthenticated(w, r)
				return
			}
			if len(flags) == 0 || allowed(principal) {
				next.ServeHTTP(w, r)
				return
			}
			m.Deny(w, r, strings.Join(flags, ", "))
		})
	}
}

// Check reports whether the request's principal holds flag.
func Check(r *http.Request, flag string) bool {
	p, ok := shared.PrincipalFromContext(r.Context())
	return ok && p.Can(flag)
}

type deniedPage struct {
	Required string
}

// Deny renders the access-denied page with status 403.
func (m Middleware) Deny(w http.ResponseWriter, r *http.Request, required string) {
	if m.Logger != nil {
		m.Logger.Info("access denied", slog.String("path", r.URL.Path), slog.String("required", required))
	}
	if httpx.WantsJSON(r) || m.Templates == nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing permission "+required)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	data := view.TemplateData{
		Title:       "Access denied",
		CurrentPath: r.URL.Path,
		Data:        deniedPage{Required: required},
	}
	if m.CSRF != nil {
		data.CSRFToken, _ = m.CSRF.EnsureToken(r.Context(), sess)
	}
	if p, ok := shared.PrincipalFromContext(r.Context()); ok {
		data.Principal = &p
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	if err := m.Templates.Render(w, "pages/denied.html", data); err != nil && m.Logger != nil {
		m.Logger.Error("render denied", slog.Any("error", err))
	}
}

// Unauthenticated redirects browsers to the login page and answers 401 to
// script requests.
func Unauthenticated(w http.ResponseWriter, r *http.Request) {
	if httpx.WantsJSON(r) {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sign in required")
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
)

// SessionExpiredMessage is shown once on the login page after a 401.
const SessionExpiredMessage = "Your session has expired. Please sign in again."

const invalidCredentialsMessage = "Invalid username or password"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      shared.NewValidator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginPageData struct {
	Form   LoginInput
	Roles  []string
	Errors map[string]string
}

var loginLabels = map[string]string{"username": "Username", "password": "Password", "role": "Role"}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if _, ok := h.sessionManager.Principal(sess); ok && !h.sessionManager.Expired(r.Context(), sess) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, loginPageData{Form: LoginInput{Role: shared.RoleAdmin}}, http.StatusOK)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())
	form := LoginInput{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
		Role:     r.PostFormValue("role"),
	}

	errs := shared.FormErrors(h.validator.Struct(form), loginLabels)
	if len(errs) == 0 {
		principal, err := h.service.Authenticate(r.Context(), form)
		switch {
		case err == nil:
			if err := h.signIn(r, sess, principal); err != nil {
				h.logger.Error("store auth", slog.Any("error", err))
				errs["general"] = shared.GenericFailure
				break
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		case errors.Is(err, shared.ErrInvalidCredentials):
			errs["general"] = invalidCredentialsMessage
		default:
			h.logger.Warn("login failed", slog.String("role", form.Role), slog.Any("error", err))
			errs["general"] = greenlife.Message(err)
		}
	}

	form.Password = ""
	h.renderLogin(w, r, loginPageData{Form: form, Errors: errs}, http.StatusBadRequest)
}

func (h *Handler) signIn(r *http.Request, sess *shared.Session, principal shared.Principal) error {
	if sess == nil {
		return errors.New("session missing during login")
	}
	if err := h.sessionManager.StoreAuth(sess, principal); err != nil {
		return err
	}
	if err := h.sessionManager.ResetExpiry(r.Context(), sess); err != nil {
		h.logger.Warn("reset expiry guard", slog.Any("error", err))
	}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + principal.User})

	now := time.Now().UTC()
	expiresAt := now.Add(h.sessionManager.TTL())
	if !principal.ExpiresAt.IsZero() && principal.ExpiresAt.Before(expiresAt) {
		expiresAt = principal.ExpiresAt
	}
	if err := h.service.RegisterSession(r.Context(), LoginSession{
		ID:        sess.ID,
		Username:  principal.User,
		Role:      principal.Role,
		Group:     principal.Group,
		CreatedAt: now,
		ExpiresAt: expiresAt,
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	}); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}
	return nil
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, data loginPageData, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	data.Roles = []string{shared.RoleAdmin, shared.RoleManager}

	var flash *shared.FlashMessage
	if h.sessionManager.TakeExpiredNotice(r.Context(), sess) {
		flash = &shared.FlashMessage{Kind: "warning", Message: SessionExpiredMessage}
	} else if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

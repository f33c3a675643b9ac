package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
)

// PermissionsHandler shows the signed-in operator what their group grants.
type PermissionsHandler struct {
	logger    *slog.Logger
	templates *view.Engine
	csrf      *shared.CSRFManager
}

// NewPermissionsHandler builds a PermissionsHandler.
func NewPermissionsHandler(logger *slog.Logger, templates *view.Engine, csrf *shared.CSRFManager) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, templates: templates, csrf: csrf}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

type accessPage struct {
	Matrix   []MatrixRow
	Actions  []string
	Workflow []WorkflowFlag
	Granted  int
	Total    int
}

func (h *PermissionsHandler) show(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		Unauthenticated(w, r)
		return
	}
	catalog := Catalog()
	granted := 0
	for _, flag := range catalog {
		if principal.Can(flag) {
			granted++
		}
	}
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	data := view.TemplateData{
		Title:       "My access",
		CSRFToken:   csrfToken,
		CurrentPath: r.URL.Path,
		Principal:   &principal,
		Data: accessPage{
			Matrix:   Matrix(),
			Actions:  Actions,
			Workflow: Workflow,
			Granted:  granted,
			Total:    len(catalog),
		},
	}
	if sess != nil {
		data.Flash = sess.PopFlash()
	}
	if err := h.templates.Render(w, "pages/access.html", data); err != nil {
		h.logger.Error("render access", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

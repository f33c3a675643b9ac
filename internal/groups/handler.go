package groups

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/rbac"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
)

// SessionExpirer runs the session-expiry path after an upstream 401.
type SessionExpirer interface {
	Expire(w http.ResponseWriter, r *http.Request)
}

// Handler manages group endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	expirer   SessionExpirer
	validator *validator.Validate
	pageSize  int
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware, expirer SessionExpirer, pageSize int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		rbac:      rbac,
		expirer:   expirer,
		validator: shared.NewValidator(),
		pageSize:  pageSize,
	}
}

// MountRoutes registers group routes.
func (h *Handler) MountRoutes(r chi.Router) {
	read := rbac.Flag(rbac.ActionRead, "Group")
	r.With(h.rbac.RequireAll(read)).Get("/", h.listGroups)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.Flag(rbac.ActionCreate, "Group")))
		r.Get("/new", h.showCreateForm)
		r.Post("/", h.createGroup)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(rbac.Flag(rbac.ActionUpdate, "Group")))
		r.Get("/{id}/edit", h.showEditForm)
		r.Post("/{id}/edit", h.updateGroup)
	})
	r.With(h.rbac.RequireAll(rbac.Flag(rbac.ActionDelete, "Group"))).Post("/{id}/delete", h.deleteGroup)
}

type listPage struct {
	Groups     []Group
	Pagination shared.Pagination
	Search     string
}

type formPage struct {
	ID       string
	Action   string
	Name     string
	Matrix   []rbac.MatrixRow
	Actions  []string
	Workflow []rbac.WorkflowFlag
	Checked  map[string]bool
	Errors   map[string]string
}

var groupLabels = map[string]string{"groupName": "Group name"}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, err, "/")
		return
	}
	sess := shared.SessionFromContext(r.Context())
	state := shared.ResolveListState(sess, "groups", r.URL.Query())
	filtered := shared.Filter(groups, state.Search, func(g Group) []string { return []string{g.Name} })
	pagination := shared.NewPagination(state.Page, h.pageSize, len(filtered))
	state.Remember(sess, pagination.Page)

	h.render(w, r, "Groups", "pages/groups_list.html", listPage{
		Groups:     shared.Paginate(filtered, pagination),
		Pagination: pagination,
		Search:     state.Search,
	}, http.StatusOK)
}

func (h *Handler) showCreateForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, "", Input{Permissions: map[string]bool{}}, nil, http.StatusOK)
}

func (h *Handler) showEditForm(w http.ResponseWriter, r *http.Request) {
	g, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, shared.ErrNotFound) {
		h.redirectWithFlash(w, r, "/groups", "warning", "Group not found")
		return
	}
	if err != nil {
		h.fail(w, r, err, "/groups")
		return
	}
	h.renderForm(w, r, g.ID, Input{Name: g.Name, Permissions: g.Permissions}, nil, http.StatusOK)
}

func (h *Handler) createGroup(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parse(w, r, "")
	if !ok {
		return
	}
	if err := h.service.Create(r.Context(), in); err != nil {
		h.failForm(w, r, "", in, err)
		return
	}
	h.logger.Info("group created", slog.String("group", in.Name))
	h.redirectWithFlash(w, r, "/groups", "success", "Group created")
}

func (h *Handler) updateGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, ok := h.parse(w, r, id)
	if !ok {
		return
	}
	if err := h.service.Update(r.Context(), id, in); err != nil {
		h.failForm(w, r, id, in, err)
		return
	}
	h.logger.Info("group updated", slog.String("id", id), slog.Int("granted", len(in.Permissions)))
	h.redirectWithFlash(w, r, "/groups", "success", "Group updated")
}

func (h *Handler) deleteGroup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := h.service.Delete(r.Context(), id, r.PostFormValue(shared.ConfirmationField))
	switch {
	case errors.Is(err, shared.ErrNotConfirmed):
		h.redirectWithFlash(w, r, "/groups", "warning", `Type "yes" to confirm the delete`)
		return
	case err != nil:
		h.fail(w, r, err, "/groups")
		return
	}
	h.redirectWithFlash(w, r, "/groups", "success", "Group deleted")
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request, id string) (Input, bool) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return Input{}, false
	}
	in := ParseInput(r.PostForm.Get("groupName"), r.PostForm["perm"])
	if errs := shared.FormErrors(h.validator.Struct(in), groupLabels); len(errs) > 0 {
		h.renderForm(w, r, id, in, errs, http.StatusBadRequest)
		return Input{}, false
	}
	return in, true
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, id string, in Input, errs map[string]string, status int) {
	page := formPage{
		ID:       id,
		Action:   "/groups",
		Name:     in.Name,
		Matrix:   rbac.Matrix(),
		Actions:  rbac.Actions,
		Workflow: rbac.Workflow,
		Checked:  in.Permissions,
		Errors:   errs,
	}
	title := "New group"
	if id != "" {
		page.Action = "/groups/" + id + "/edit"
		title = "Edit group"
	}
	h.render(w, r, title, "pages/groups_form.html", page, status)
}

func (h *Handler) failForm(w http.ResponseWriter, r *http.Request, id string, in Input, err error) {
	if greenlife.IsUnauthorized(err) {
		h.expirer.Expire(w, r)
		return
	}
	h.logger.Warn("group mutation failed", slog.Any("error", err))
	h.renderForm(w, r, id, in, map[string]string{"general": greenlife.Message(err)}, http.StatusBadGateway)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, location string) {
	if greenlife.IsUnauthorized(err) {
		h.expirer.Expire(w, r)
		return
	}
	h.logger.Warn("upstream call failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	h.redirectWithFlash(w, r, location, "danger", greenlife.Message(err))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, title, template string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{Title: title, CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: data}
	if p, ok := shared.PrincipalFromContext(r.Context()); ok {
		viewData.Principal = &p
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	shared.Flash(r.Context(), kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}

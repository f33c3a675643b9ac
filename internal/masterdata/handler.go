package masterdata

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/greenlife/greenlife-admin/internal/lookup"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/rbac"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
)

// Lookups supplies dropdown options.
type Lookups interface {
	Options(ctx context.Context, owner lookup.Owner, kind lookup.Kind) ([]view.Option, error)
}

// SessionExpirer runs the session-expiry path after an upstream 401.
type SessionExpirer interface {
	Expire(w http.ResponseWriter, r *http.Request)
}

// Handler manages master data endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	lookups   Lookups
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	expirer   SessionExpirer
	pageSize  int
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, lookups Lookups, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware, expirer SessionExpirer, pageSize int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		lookups:   lookups,
		templates: templates,
		csrf:      csrf,
		rbac:      rbac,
		expirer:   expirer,
		pageSize:  pageSize,
	}
}

// MountRoutes registers one route group per resource.
func (h *Handler) MountRoutes(r chi.Router) {
	for _, res := range Resources {
		res := res
		r.Route("/"+res.Slug, func(r chi.Router) {
			r.With(h.rbac.RequireAll(res.Perm(rbac.ActionRead))).Get("/", h.list(res))
			r.With(h.rbac.RequireAll(res.Perm(rbac.ActionCreate))).Get("/new", h.showCreate(res))
			r.With(h.rbac.RequireAll(res.Perm(rbac.ActionCreate))).Post("/", h.create(res))
			r.With(h.rbac.RequireAll(res.Perm(rbac.ActionRead))).Get("/{id}", h.show(res))
			r.With(h.rbac.RequireAll(res.Perm(rbac.ActionUpdate))).Get("/{id}/edit", h.showEdit(res))
			r.With(h.rbac.RequireAll(res.Perm(rbac.ActionUpdate))).Post("/{id}/edit", h.update(res))
			if res.Toggle {
				r.With(h.rbac.RequireAll(res.Perm(rbac.ActionUpdate))).Post("/{id}/status", h.toggle(res))
			}
			r.With(h.rbac.RequireAll(res.Perm(rbac.ActionDelete))).Post("/{id}/delete", h.delete(res))
		})
	}
}

type listPage struct {
	Resource   Resource
	Rows       []greenlife.Record
	Pagination shared.Pagination
	Search     string
	Total      int
}

type showPage struct {
	Resource Resource
	Record   greenlife.Record
}

type formInput struct {
	Field    Field
	Value    string
	Error    string
	Dropdown *view.Dropdown
}

type formPage struct {
	Resource Resource
	ID       string
	Action   string
	Creating bool
	Inputs   []formInput
	Error    string
}

func (h *Handler) list(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := h.service.List(r.Context(), res)
		if err != nil {
			h.fail(w, r, err, "/")
			return
		}
		sess := shared.SessionFromContext(r.Context())
		state := shared.ResolveListState(sess, "masterdata:"+res.Slug, r.URL.Query())
		filtered := shared.Filter(records, state.Search, res.SearchFields)
		pagination := shared.NewPagination(state.Page, h.pageSize, len(filtered))
		state.Remember(sess, pagination.Page)

		h.render(w, r, res.Title, "pages/masterdata_list.html", listPage{
			Resource:   res,
			Rows:       shared.Paginate(filtered, pagination),
			Pagination: pagination,
			Search:     state.Search,
			Total:      len(records),
		}, http.StatusOK)
	}
}

func (h *Handler) show(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := h.record(w, r, res)
		if !ok {
			return
		}
		h.render(w, r, res.Singular, "pages/masterdata_show.html", showPage{Resource: res, Record: rec}, http.StatusOK)
	}
}

func (h *Handler) showCreate(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderForm(w, r, res, "", url.Values{}, nil, http.StatusOK)
	}
}

func (h *Handler) showEdit(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, ok := h.record(w, r, res)
		if !ok {
			return
		}
		values := url.Values{}
		for _, f := range res.FormFields(false) {
			values.Set(f.Name, f.ValueFrom(rec))
		}
		h.renderForm(w, r, res, rec.ID(), values, nil, http.StatusOK)
	}
}

func (h *Handler) create(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if errs := h.service.Validate(res, r.PostForm, true); len(errs) > 0 {
			h.renderForm(w, r, res, "", r.PostForm, errs, http.StatusBadRequest)
			return
		}
		if err := h.service.Create(r.Context(), res, r.PostForm); err != nil {
			h.failForm(w, r, res, "", err)
			return
		}
		h.logger.Info("record created", slog.String("resource", res.Slug))
		h.redirectWithFlash(w, r, "/masterdata/"+res.Slug, "success", res.Singular+" created")
	}
}

func (h *Handler) update(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if errs := h.service.Validate(res, r.PostForm, false); len(errs) > 0 {
			h.renderForm(w, r, res, id, r.PostForm, errs, http.StatusBadRequest)
			return
		}
		if err := h.service.Update(r.Context(), res, id, r.PostForm); err != nil {
			h.failForm(w, r, res, id, err)
			return
		}
		h.logger.Info("record updated", slog.String("resource", res.Slug), slog.String("id", id))
		h.redirectWithFlash(w, r, "/masterdata/"+res.Slug, "success", res.Singular+" updated")
	}
}

func (h *Handler) toggle(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		active, err := strconv.ParseBool(r.PostFormValue("active"))
		if err != nil {
			h.redirectWithFlash(w, r, "/masterdata/"+res.Slug, "danger", "Unknown status")
			return
		}
		if err := h.service.SetActive(r.Context(), res, id, active); err != nil {
			h.fail(w, r, err, "/masterdata/"+res.Slug)
			return
		}
		message := res.Singular + " deactivated"
		if active {
			message = res.Singular + " activated"
		}
		h.redirectWithFlash(w, r, "/masterdata/"+res.Slug, "success", message)
	}
}

func (h *Handler) delete(res Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		err := h.service.Delete(r.Context(), res, id, r.PostFormValue(shared.ConfirmationField))
		switch {
		case errors.Is(err, shared.ErrNotConfirmed):
			h.redirectWithFlash(w, r, "/masterdata/"+res.Slug, "warning", `Type "yes" to confirm the delete`)
			return
		case err != nil:
			h.fail(w, r, err, "/masterdata/"+res.Slug)
			return
		}
		h.logger.Info("record deleted", slog.String("resource", res.Slug), slog.String("id", id))
		h.redirectWithFlash(w, r, "/masterdata/"+res.Slug, "success", res.Singular+" deleted")
	}
}

func (h *Handler) record(w http.ResponseWriter, r *http.Request, res Resource) (greenlife.Record, bool) {
	rec, err := h.service.Record(r.Context(), res, chi.URLParam(r, "id"))
	if errors.Is(err, shared.ErrNotFound) {
		h.redirectWithFlash(w, r, "/masterdata/"+res.Slug, "warning", res.Singular+" not found")
		return nil, false
	}
	if err != nil {
		h.fail(w, r, err, "/masterdata/"+res.Slug)
		return nil, false
	}
	return rec, true
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, res Resource, id string, values url.Values, errs map[string]string, status int) {
	creating := id == ""
	page := formPage{Resource: res, ID: id, Creating: creating, Error: errs["general"]}
	page.Action = "/masterdata/" + res.Slug
	title := "New " + res.Singular
	if !creating {
		page.Action += "/" + id + "/edit"
		title = "Edit " + res.Singular
	}

	var owner lookup.Owner
	if p, ok := shared.PrincipalFromContext(r.Context()); ok {
		owner = lookup.Owner{User: p.User, Role: p.Role}
	}
	for _, f := range res.FormFields(creating) {
		in := formInput{Field: f, Value: values.Get(f.Name), Error: errs[f.Name]}
		if f.Kind == LookupInput {
			opts, err := h.lookups.Options(r.Context(), owner, f.Lookup)
			if err != nil {
				if greenlife.IsUnauthorized(err) {
					h.expirer.Expire(w, r)
					return
				}
				h.logger.Warn("load lookup", slog.String("lookup", f.Lookup.Name), slog.Any("error", err))
			}
			dd := view.NewDropdown(f.Name, f.Label, in.Value, opts)
			dd.Required = f.Required()
			dd.Error = in.Error
			in.Dropdown = &dd
		}
		page.Inputs = append(page.Inputs, in)
	}
	h.render(w, r, title, "pages/masterdata_form.html", page, status)
}

// failForm keeps the operator on the form after a rejected mutation.
func (h *Handler) failForm(w http.ResponseWriter, r *http.Request, res Resource, id string, err error) {
	if greenlife.IsUnauthorized(err) {
		h.expirer.Expire(w, r)
		return
	}
	h.logger.Warn("mutation failed", slog.String("resource", res.Slug), slog.Any("error", err))
	h.renderForm(w, r, res, id, r.PostForm, map[string]string{"general": greenlife.Message(err)}, http.StatusBadGateway)
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
	viewData := view.TemplateData{
		Title:       title,
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	if p, ok := shared.PrincipalFromContext(r.Context()); ok {
		viewData.Principal = &p
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	shared.Flash(r.Context(), kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}

package sales

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/platform/httpx"
	"github.com/greenlife/greenlife-admin/internal/rbac"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
)

// SessionExpirer runs the session-expiry path after an upstream 401.
type SessionExpirer interface {
	Expire(w http.ResponseWriter, r *http.Request)
}

// Renderer converts HTML into PDF.
type Renderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Handler manages sales endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
	expirer   SessionExpirer
	pdf       Renderer
	pageSize  int
}

// NewHandler builds Handler instance. pdf may be nil, which disables
// statement export.
func NewHandler(
	logger *slog.Logger,
	service *Service,
	templates *view.Engine,
	csrf *shared.CSRFManager,
	rbac rbac.Middleware,
	expirer SessionExpirer,
	pdf Renderer,
	pageSize int,
) *Handler {
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
		pdf:       pdf,
		pageSize:  pageSize,
	}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.SalesFlags...))
		r.Get("/", h.listQueue)
		r.Get("/batches/{ref}", h.showBatch)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(rbac.CloseBatch, rbac.Pay))
		r.Get("/batches/{ref}/csv", h.downloadCSV)
		r.Get("/batches/{ref}/statement.pdf", h.downloadStatement)
	})
	for _, t := range Transitions {
		r.With(h.rbac.RequireAll(t.Perm)).Post("/transitions/"+t.Name, h.applyTransition(t))
	}
	r.With(h.rbac.RequireAll(rbac.ViewReceiptImage)).Get("/receipts/*", h.serveReceipt)
}

type queuePage struct {
	Tabs       []Tab
	Active     Tab
	Sales      []Sale
	Batches    []Batch
	Open       *Batch
	Pagination shared.Pagination
	Search     string
}

type batchPage struct {
	Batch   Batch
	History []ApprovalEntry
	CanPDF  bool
}

type statementPage struct {
	Batch       Batch
	History     []ApprovalEntry
	GeneratedAt time.Time
}

func (h *Handler) listQueue(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	var visible []Tab
	for _, t := range Tabs {
		if t.Visible(principal.Can) {
			visible = append(visible, t)
		}
	}
	active, ok := TabByKey(r.URL.Query().Get("tab"))
	if !ok || !active.Visible(principal.Can) {
		if len(visible) == 0 {
			h.rbac.Deny(w, r, strings.Join(rbac.SalesFlags, ", "))
			return
		}
		active = visible[0]
	}

	page := queuePage{Tabs: visible, Active: active}
	sess := shared.SessionFromContext(r.Context())
	state := shared.ResolveListState(sess, "sales:"+active.Key, r.URL.Query())
	page.Search = state.Search

	switch active.Kind {
	case SaleQueue:
		sales, err := h.service.Sales(r.Context(), active)
		if err != nil {
			h.fail(w, r, err, "/")
			return
		}
		sales = shared.Filter(sales, state.Search, saleSearch)
		page.Pagination = shared.NewPagination(state.Page, h.pageSize, len(sales))
		page.Sales = withActions(shared.Paginate(sales, page.Pagination), principal.Can)
	case BatchQueue:
		batches, err := h.service.Batches(r.Context(), active)
		if err != nil {
			h.fail(w, r, err, "/")
			return
		}
		batches = shared.Filter(batches, state.Search, func(b Batch) []string { return []string{b.Ref} })
		page.Pagination = shared.NewPagination(state.Page, h.pageSize, len(batches))
		page.Batches = shared.Paginate(batches, page.Pagination)
		for i := range page.Batches {
			page.Batches[i].Actions = Available(page.Batches[i].Status, true, principal.Can)
		}
	case SingleBatch:
		batch, err := h.service.OpenBatch(r.Context())
		if err != nil {
			h.fail(w, r, err, "/")
			return
		}
		batch.Actions = Available(batch.Status, true, principal.Can)
		sales := shared.Filter(batch.Sales, state.Search, saleSearch)
		page.Pagination = shared.NewPagination(state.Page, h.pageSize, len(sales))
		batch.Sales = shared.Paginate(sales, page.Pagination)
		page.Open = &batch
	}
	state.Remember(sess, page.Pagination.Page)
	h.render(w, r, "Sales", "pages/sales_list.html", page, http.StatusOK)
}

func (h *Handler) showBatch(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	batch, history, ok := h.loadBatch(w, r)
	if !ok {
		return
	}
	batch.Actions = Available(batch.Status, true, principal.Can)
	batch.Sales = withActions(batch.Sales, principal.Can)
	h.render(w, r, "Batch "+batch.Ref, "pages/sales_batch.html", batchPage{
		Batch:   batch,
		History: history,
		CanPDF:  h.pdf != nil && batch.Status == Paid,
	}, http.StatusOK)
}

func (h *Handler) loadBatch(w http.ResponseWriter, r *http.Request) (Batch, []ApprovalEntry, bool) {
	ref := chi.URLParam(r, "ref")
	batch, err := h.service.Batch(r.Context(), ref)
	if err != nil {
		h.fail(w, r, err, "/sales?tab=closed")
		return Batch{}, nil, false
	}
	history, err := h.service.History(r.Context(), batch)
	if err != nil {
		h.logger.Error("approval history", slog.String("ref", ref), slog.Any("error", err))
	}
	return batch, history, true
}

func (h *Handler) applyTransition(t Transition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		target := Target{
			SaleID:   strings.TrimSpace(r.PostForm.Get("id")),
			BatchRef: strings.TrimSpace(r.PostForm.Get("ref")),
			Current:  ParseStatus(r.PostForm.Get("status")),
		}
		back := returnPath(r.PostForm.Get("return"))
		principal, _ := shared.PrincipalFromContext(r.Context())

		err := h.service.Apply(r.Context(), principal.User, t, target)
		if greenlife.IsUnauthorized(err) {
			h.expirer.Expire(w, r)
			return
		}
		if httpx.WantsJSON(r) {
			if err != nil {
				if errors.Is(err, ErrInvalidTransition) {
					httpx.Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
					return
				}
				httpx.RespondError(w, err)
				return
			}
			httpx.JSON(w, http.StatusOK, map[string]string{"status": string(t.To)})
			return
		}
		switch {
		case errors.Is(err, ErrInvalidTransition):
			h.redirectWithFlash(w, r, back, "warning", t.Label+" is not possible for a "+string(target.Current)+" item")
		case err != nil:
			h.fail(w, r, err, back)
		default:
			h.logger.Info("sales transition", slog.String("transition", t.Name), slog.String("sale", target.SaleID), slog.String("batch", target.BatchRef), slog.String("actor", principal.User))
			h.redirectWithFlash(w, r, back, "success", t.Label+" done")
		}
	}
}

func (h *Handler) downloadCSV(w http.ResponseWriter, r *http.Request) {
	ref := chi.URLParam(r, "ref")
	stream, err := h.service.CSV(r.Context(), ref)
	if err != nil {
		h.fail(w, r, err, "/sales/batches/"+ref)
		return
	}
	filename := stream.Filename
	if filename == "" {
		filename = "batch-" + safeName(ref) + ".csv"
	}
	contentType := stream.ContentType
	if contentType == "" {
		contentType = "text/csv"
	}
	h.copyStream(w, stream, contentType, `attachment; filename="`+filename+`"`)
}

func (h *Handler) downloadStatement(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		h.redirectWithFlash(w, r, "/sales/batches/"+chi.URLParam(r, "ref"), "warning", "PDF export is not configured")
		return
	}
	batch, history, ok := h.loadBatch(w, r)
	if !ok {
		return
	}
	if batch.Status != Paid {
		h.redirectWithFlash(w, r, "/sales/batches/"+batch.Ref, "warning", "Statements are available for paid batches only")
		return
	}
	html, err := h.templates.RenderString("pages/sales_statement.html", view.TemplateData{
		Title: "Statement " + batch.Ref,
		Data:  statementPage{Batch: batch, History: history, GeneratedAt: time.Now()},
	})
	if err != nil {
		h.logger.Error("render statement", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/sales/batches/"+batch.Ref, "danger", shared.GenericFailure)
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("convert statement", slog.String("ref", batch.Ref), slog.Any("error", err))
		h.redirectWithFlash(w, r, "/sales/batches/"+batch.Ref, "danger", "The PDF service is unavailable, please try again")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="statement-`+safeName(batch.Ref)+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) serveReceipt(w http.ResponseWriter, r *http.Request) {
	stream, err := h.service.Receipt(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		switch {
		case greenlife.IsUnauthorized(err):
			h.expirer.Expire(w, r)
		case errors.Is(err, shared.ErrNotFound):
			http.NotFound(w, r)
		default:
			h.logger.Warn("receipt image", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	contentType := stream.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Cache-Control", "private, max-age=300")
	h.copyStream(w, stream, contentType, "inline")
}

func (h *Handler) copyStream(w http.ResponseWriter, stream *greenlife.Stream, contentType, disposition string) {
	defer func() { _ = stream.Body.Close() }()
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if stream.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(stream.ContentLength, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, stream.Body); err != nil {
		h.logger.Warn("stream copy", slog.Any("error", err))
	}
}

func withActions(sales []Sale, can func(string) bool) []Sale {
	for i := range sales {
		sales[i].Actions = Available(sales[i].Status, false, can)
	}
	return sales
}

func saleSearch(s Sale) []string {
	return []string{s.Reference, s.Agent, s.Distributor, s.Region, s.SubRegion, s.Product}
}

// returnPath keeps redirects inside the sales screens.
func returnPath(p string) string {
	if strings.HasPrefix(p, "/sales") && !strings.HasPrefix(p, "//") && !strings.Contains(p, "\\") {
		return p
	}
	return "/sales"
}

func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
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
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", template))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	shared.Flash(r.Context(), kind, message)
	http.Redirect(w, r, location, http.StatusSeeOther)
}

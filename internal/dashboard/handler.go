package dashboard

import (
	"context"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/greenlife/greenlife-admin/internal/dashboard/chart"
	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/rbac"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/internal/view"
)

const (
	loadTimeout = 8 * time.Second
	topN        = 5
)

// SessionExpirer runs the session-expiry path after an upstream 401.
type SessionExpirer interface {
	Expire(w http.ResponseWriter, r *http.Request)
}

// Handler serves the landing page.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	expirer   SessionExpirer
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, expirer SessionExpirer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, expirer: expirer}
}

// MountRoutes registers the dashboard at the router root.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.show)
}

// Card is a headline figure.
type Card struct {
	Label string
	Value float64
	Ready bool
}

// ChartView is a rendered chart or the reason it is missing.
type ChartView struct {
	Title string
	SVG   template.HTML
	Error string
}

// Table is a top-N listing.
type Table struct {
	Title   string
	Heading string
	Rows    []chart.Point
	Error   string
}

type dashboardPage struct {
	Allowed bool
	User    string
	Cards   []Card
	Charts  []ChartView
	Tables  []Table
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	page := dashboardPage{User: principal.User}
	// Operators without the flag still land here after login; they get the
	// welcome panel and no aggregate requests.
	if !principal.Can(rbac.ViewDashboard) {
		h.render(w, r, page)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), loadTimeout)
	defer cancel()
	panels, err := h.service.Load(ctx)
	if err != nil {
		if greenlife.IsUnauthorized(err) {
			h.expirer.Expire(w, r)
			return
		}
		h.logger.Error("load dashboard", slog.Any("error", err))
		shared.Flash(r.Context(), "danger", shared.GenericFailure)
	}

	page.Allowed = true
	page.Cards = []Card{
		latestCard("Today", panels[Daily.Key]),
		latestCard("This month", panels[Monthly.Key]),
		latestCard("This year", panels[Annual.Key]),
	}
	page.Charts = []ChartView{
		h.chart(panels[Daily.Key], chart.Line, chart.Options{Dots: true}),
		h.chart(panels[Monthly.Key], chart.Bars, chart.Options{}),
		h.chart(panels[AllMonthly.Key], chart.Bars, chart.Options{Color: "#0f766e"}),
	}
	page.Tables = []Table{
		table(panels[BySubRegion.Key], "Sub-region"),
		table(panels[ByAgent.Key], "Agent"),
		table(panels[SoldProducts.Key], "Product"),
	}
	h.render(w, r, page)
}

func latestCard(label string, p Panel) Card {
	if p.Err != nil || len(p.Points) == 0 {
		return Card{Label: label}
	}
	return Card{Label: label, Value: p.Points[len(p.Points)-1].Value, Ready: true}
}

type drawFunc func([]chart.Point, chart.Options) (template.HTML, error)

func (h *Handler) chart(p Panel, draw drawFunc, opts chart.Options) ChartView {
	cv := ChartView{Title: p.Metric.Title}
	switch {
	case p.Err != nil:
		cv.Error = greenlife.Message(p.Err)
		return cv
	case len(p.Points) == 0:
		cv.Error = "No sales recorded yet"
		return cv
	}
	opts.Title = p.Metric.Title
	svg, err := draw(p.Points, opts)
	if err != nil {
		h.logger.Warn("draw chart", slog.String("metric", p.Metric.Key), slog.Any("error", err))
		cv.Error = "Chart unavailable"
		return cv
	}
	cv.SVG = svg
	return cv
}

func table(p Panel, heading string) Table {
	t := Table{Title: p.Metric.Title, Heading: heading}
	if p.Err != nil {
		t.Error = greenlife.Message(p.Err)
		return t
	}
	t.Rows = p.Top(topN)
	return t
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page dashboardPage) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	data := view.TemplateData{Title: "Dashboard", CSRFToken: csrfToken, Flash: flash, CurrentPath: r.URL.Path, Data: page}
	if p, ok := shared.PrincipalFromContext(r.Context()); ok {
		data.Principal = &p
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.templates.Render(w, "pages/dashboard.html", data); err != nil {
		h.logger.Error("render template", slog.Any("error", err), slog.String("template", "pages/dashboard.html"))
	}
}

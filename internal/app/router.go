package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/greenlife/greenlife-admin/internal/auth"
	"github.com/greenlife/greenlife-admin/internal/dashboard"
	"github.com/greenlife/greenlife-admin/internal/groups"
	"github.com/greenlife/greenlife-admin/internal/live"
	"github.com/greenlife/greenlife-admin/internal/masterdata"
	"github.com/greenlife/greenlife-admin/internal/observability"
	"github.com/greenlife/greenlife-admin/internal/platform/httpx"
	"github.com/greenlife/greenlife-admin/internal/rbac"
	"github.com/greenlife/greenlife-admin/internal/sales"
	"github.com/greenlife/greenlife-admin/internal/shared"
	"github.com/greenlife/greenlife-admin/jobs"
	"github.com/greenlife/greenlife-admin/report"
	"github.com/greenlife/greenlife-admin/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
	Guard          *auth.Guard

	AuthHandler        *auth.Handler
	DashboardHandler   *dashboard.Handler
	MasterDataHandler  *masterdata.Handler
	GroupsHandler      *groups.Handler
	SalesHandler       *sales.Handler
	PermissionsHandler *rbac.PermissionsHandler
	LiveHandler        *live.Handler
	ReportHandler      *report.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router with GreenLife defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	stack := MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		r.Use(stack.Base...)

		// The websocket must outlive the page timeout.
		if params.LiveHandler != nil {
			r.With(params.Guard.RequireLogin).Handle("/live/sales", params.LiveHandler)
		}

		r.Group(func(r chi.Router) {
			r.Use(stack.Page...)
			r.Use(chimw.Logger)

			r.Route("/auth", params.AuthHandler.MountRoutes)

			r.Group(func(r chi.Router) {
				r.Use(params.Guard.RequireLogin)
				if params.DashboardHandler != nil {
					params.DashboardHandler.MountRoutes(r)
				}
				if params.MasterDataHandler != nil {
					r.Route("/masterdata", params.MasterDataHandler.MountRoutes)
				}
				if params.GroupsHandler != nil {
					r.Route("/groups", params.GroupsHandler.MountRoutes)
				}
				if params.SalesHandler != nil {
					r.Route("/sales", params.SalesHandler.MountRoutes)
				}
				if params.PermissionsHandler != nil {
					r.Route("/access", params.PermissionsHandler.MountRoutes)
				}
				if params.ReportHandler != nil {
					r.Route("/reports", params.ReportHandler.MountRoutes)
				}
			})
		})
	})

	return r
}

// staticCacheHandler lets browsers keep static assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}

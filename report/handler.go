package report

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/greenlife/greenlife-admin/internal/platform/httpx"
)

// Handler exposes the PDF service health.
type Handler struct {
	client *Client
	logger *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client *Client, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	err := h.client.Ping(r.Context())
	switch {
	case errors.Is(err, ErrNotConfigured):
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "disabled"})
	case err != nil:
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF service unavailable", "gotenberg did not answer")
	default:
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

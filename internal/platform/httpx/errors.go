package httpx

import (
	"errors"
	"net/http"

	"github.com/greenlife/greenlife-admin/internal/platform/greenlife"
	"github.com/greenlife/greenlife-admin/internal/shared"
)

// RespondError maps dashboard and backend errors to problem responses for
// script clients.
func RespondError(w http.ResponseWriter, err error) {
	var apiErr *greenlife.APIError
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrNotConfirmed):
		Problem(w, http.StatusBadRequest, "Confirmation Required", err.Error())
	case errors.Is(err, shared.ErrPermissionDenied):
		Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, shared.ErrCSRFTokenMissing), errors.Is(err, shared.ErrCSRFTokenMismatch):
		Problem(w, http.StatusForbidden, "Forbidden", "invalid csrf token")
	case greenlife.IsUnauthorized(err):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "session expired")
	case errors.Is(err, greenlife.ErrUnavailable):
		Problem(w, http.StatusServiceUnavailable, "Backend Unavailable", shared.GenericFailure)
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		Problem(w, apiErr.Status, http.StatusText(apiErr.Status), greenlife.Message(err))
	default:
		Problem(w, http.StatusBadGateway, "Upstream Error", shared.GenericFailure)
	}
}

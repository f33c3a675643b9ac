package greenlife

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/greenlife/greenlife-admin/internal/shared"
)

var (
	// ErrUnauthorized is returned when the backend answers 401.
	ErrUnauthorized = errors.New("greenlife: unauthorized")
	// ErrUnavailable is returned while the circuit breaker rejects calls.
	ErrUnavailable = errors.New("greenlife: backend unavailable")
)

// APIError carries a non-2xx answer and the backend's error text.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("greenlife: status %d", e.Status)
	}
	return fmt.Sprintf("greenlife: status %d: %s", e.Status, e.Message)
}

// Message returns the text an operator should see for err: the backend's own
// message for client errors, the generic fallback otherwise.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError && apiErr.Message != "" {
		return apiErr.Message
	}
	return shared.GenericFailure
}

// IsUnauthorized reports whether err came from a 401.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func statusError(status int, body []byte) error {
	if status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return &APIError{Status: status, Message: extractMessage(body)}
}

const maxMessageLen = 300

func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "{") {
		var fields map[string]any
		if err := json.Unmarshal(body, &fields); err == nil {
			for _, key := range []string{"message", "error", "detail", "msg"} {
				if s, ok := fields[key].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
		return ""
	}
	if strings.HasPrefix(trimmed, "<") || len(trimmed) > maxMessageLen {
		return ""
	}
	return trimmed
}

func retryable(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	return true
}

// breakerSuccess keeps client errors out of the breaker's failure count.
func breakerSuccess(err error) bool {
	if err == nil || errors.Is(err, ErrUnauthorized) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError
}

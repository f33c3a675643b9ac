package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
	// ErrNotConfirmed occurs when a destructive action lacks the typed confirmation.
	ErrNotConfirmed = errors.New("confirmation required")
	// ErrPermissionDenied occurs when the group lacks a permission flag.
	ErrPermissionDenied = errors.New("permission denied")
)

// GenericFailure is shown when the backend gives no usable error text.
const GenericFailure = "Something went wrong, please try again"

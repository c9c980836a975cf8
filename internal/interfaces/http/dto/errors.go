package dto

import (
	"net/http"
	"strings"
)

// ErrorCodeHTTPStatus maps domain error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	"UNAUTHENTICATED":     http.StatusUnauthorized,
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"ACCOUNT_DEACTIVATED": http.StatusForbidden,
	"FORBIDDEN":           http.StatusForbidden,
	"NOT_FOUND":           http.StatusNotFound,
	"ALREADY_EXISTS":      http.StatusBadRequest,
	"VALIDATION_ERROR":    http.StatusBadRequest,
	"INVALID_STATE":       http.StatusBadRequest,
	"RATE_LIMITED":        http.StatusTooManyRequests,

	// Upstream failures are the caller's integration misbehaving, not
	// ours; they stay in the 4xx band the API contract allows.
	"UPSTREAM_TIMEOUT":     http.StatusBadRequest,
	"UPSTREAM_REJECTED":    http.StatusBadRequest,
	"TOKEN_REFRESH_FAILED": http.StatusBadRequest,

	"INTERNAL_ERROR": http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for a domain error code.
// Unknown codes are treated as internal errors.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// safeMessagePrefixes is the allow-list of error messages that may cross
// the API boundary verbatim. Everything else collapses to a generic
// message; the true cause is only ever logged server-side.
var safeMessagePrefixes = []string{
	"Authentication required",
	"Access to this resource is forbidden",
	"Resource not found",
	"Rate limit exceeded",
	"Invalid email or password",
	"Account has been deactivated",
	"Invalid input",
	"Connection credentials are incomplete",
	"Unsupported ERP system",
	"Upstream system",
	"OAuth token refresh failed",
	"Operation not allowed",
	"Integration is disabled",
	"Only dead-lettered jobs",
	"Entity type is",
	"Mapping fields",
	"Idempotency-Key header is required",
	"Request validation failed",
}

// GenericFailureMessage replaces any message not on the allow-list
const GenericFailureMessage = "The request could not be processed"

// SanitizeMessage returns the message if it starts with an allow-listed
// prefix and the generic failure message otherwise.
func SanitizeMessage(message string) string {
	for _, prefix := range safeMessagePrefixes {
		if strings.HasPrefix(message, prefix) {
			return message
		}
	}
	return GenericFailureMessage
}

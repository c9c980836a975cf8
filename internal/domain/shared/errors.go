package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrUnauthenticated    = NewDomainError("UNAUTHENTICATED", "Authentication required")
	ErrForbidden          = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrNotFound           = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists      = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput       = NewDomainError("VALIDATION_ERROR", "Invalid input provided")
	ErrRateLimited        = NewDomainError("RATE_LIMITED", "Rate limit exceeded")
	ErrUpstreamTimeout    = NewDomainError("UPSTREAM_TIMEOUT", "Upstream system did not respond in time")
	ErrUpstreamRejected   = NewDomainError("UPSTREAM_REJECTED", "Upstream system rejected the request")
	ErrTokenRefreshFailed = NewDomainError("TOKEN_REFRESH_FAILED", "OAuth token refresh failed, re-authentication required")
	ErrInvalidState       = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInternal           = NewDomainError("INTERNAL_ERROR", "An unexpected error occurred")
)

// RateLimitedError is a DomainError variant that carries the delay after
// which the caller may retry. errors.Is(err, ErrRateLimited) holds for it.
type RateLimitedError struct {
	RetryAfterSeconds int
}

// Error implements the error interface
func (e *RateLimitedError) Error() string {
	return ErrRateLimited.Message
}

// Is reports whether this error matches ErrRateLimited
func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// NewRateLimitedError creates a rate-limited error with the given retry delay
func NewRateLimitedError(retryAfterSeconds int) *RateLimitedError {
	if retryAfterSeconds < 1 {
		retryAfterSeconds = 1
	}
	return &RateLimitedError{RetryAfterSeconds: retryAfterSeconds}
}

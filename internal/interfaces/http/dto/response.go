package dto

import "time"

// Response is the uniform API envelope. RateLimited is true only on 429
// responses; Timestamp is set at render time.
type Response struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	RateLimited bool      `json:"rateLimited"`
	Timestamp   time.Time `json:"timestamp"`
	Code        string    `json:"code,omitempty"`
	Data        any       `json:"data,omitempty"`
	Meta        *Meta     `json:"meta,omitempty"`
	Idempotent  bool      `json:"idempotent,omitempty"`
}

// Meta carries pagination totals for list responses
type Meta struct {
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// NewSuccessResponse creates a success envelope
func NewSuccessResponse(message string, data any) Response {
	return Response{
		Success:   true,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// NewSuccessResponseWithMeta creates a success envelope with pagination meta
func NewSuccessResponseWithMeta(message string, data any, total int64, limit, offset int) Response {
	return Response{
		Success:   true,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Data:      data,
		Meta: &Meta{
			Total:  total,
			Limit:  limit,
			Offset: offset,
		},
	}
}

// NewErrorResponse creates an error envelope
func NewErrorResponse(code, message string) Response {
	return Response{
		Success:     false,
		Message:     message,
		RateLimited: code == "RATE_LIMITED",
		Timestamp:   time.Now().UTC(),
		Code:        code,
	}
}

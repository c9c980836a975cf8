package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/identity"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/logger"
	"github.com/erpsync/backend/internal/interfaces/http/dto"
	"github.com/erpsync/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides the envelope and error rendering shared by all
// handlers.
type BaseHandler struct{}

// Success sends a 200 success envelope
func (h *BaseHandler) Success(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(message, data))
}

// SuccessWithMeta sends a 200 success envelope with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, message string, data any, total int64, limit, offset int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(message, data, total, limit, offset))
}

// Created sends a 201 success envelope
func (h *BaseHandler) Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(message, data))
}

// Error sends an error envelope with an explicit status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message))
}

// BadRequest sends a 400 validation error envelope
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", message)
}

// HandleError renders a domain error with its mapped status. Rate-limit
// denials additionally carry the Retry-After header; messages outside the
// boundary allow-list collapse to a generic failure with the true cause
// logged.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var rateErr *shared.RateLimitedError
	if errors.As(err, &rateErr) {
		c.Header("Retry-After", strconv.Itoa(rateErr.RetryAfterSeconds))
		c.JSON(http.StatusTooManyRequests,
			dto.NewErrorResponse("RATE_LIMITED", shared.ErrRateLimited.Message))
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		message := dto.SanitizeMessage(domainErr.Message)
		if message != domainErr.Message {
			logger.FromContext(c.Request.Context()).Warn("Error message withheld at boundary",
				zap.String("code", domainErr.Code),
				zap.String("message", domainErr.Message),
			)
		}
		c.JSON(dto.GetHTTPStatus(domainErr.Code), dto.NewErrorResponse(domainErr.Code, message))
		return
	}

	logger.FromContext(c.Request.Context()).Error("Unhandled error at boundary", zap.Error(err))
	c.JSON(http.StatusInternalServerError,
		dto.NewErrorResponse("INTERNAL_ERROR", dto.GenericFailureMessage))
}

// principal returns the authenticated principal; a missing one aborts
// with 401 and reports false.
func (h *BaseHandler) principal(c *gin.Context) (identity.Principal, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		h.Error(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required")
		return identity.Principal{}, false
	}
	return principal, true
}

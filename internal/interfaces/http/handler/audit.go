package handler

import (
	"github.com/gin-gonic/gin"

	connectorapp "github.com/erpsync/backend/internal/application/connector"
	"github.com/erpsync/backend/internal/interfaces/http/dto"
	"github.com/erpsync/backend/internal/interfaces/http/middleware"
)

// AuditHandler serves the tenant audit trail
type AuditHandler struct {
	BaseHandler
	audit *connectorapp.AuditService
}

// NewAuditHandler creates the audit handler
func NewAuditHandler(audit *connectorapp.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// RegisterRoutes registers audit routes
func (h *AuditHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/audit", h.List)
}

// List returns the caller's tenant audit trail, newest first
func (h *AuditHandler) List(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	results, total, err := h.audit.List(c.Request.Context(), principal, req.Limit, req.Offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, "Audit entries retrieved", results, total, req.Limit, req.Offset)
}

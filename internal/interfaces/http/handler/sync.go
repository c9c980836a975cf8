package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	connectorapp "github.com/erpsync/backend/internal/application/connector"
	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/sync"
	"github.com/erpsync/backend/internal/interfaces/http/dto"
	"github.com/erpsync/backend/internal/interfaces/http/middleware"
)

// IdempotencyKeyHeader carries the caller-chosen dedup key for sync
// triggers.
const IdempotencyKeyHeader = "Idempotency-Key"

// SyncHandler serves sync triggering and the job trail
type SyncHandler struct {
	BaseHandler
	syncs *connectorapp.SyncService
}

// NewSyncHandler creates the sync handler
func NewSyncHandler(syncs *connectorapp.SyncService) *SyncHandler {
	return &SyncHandler{syncs: syncs}
}

// RegisterRoutes registers sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sync", h.Trigger)
	jobs := rg.Group("/jobs")
	{
		jobs.GET("", h.ListJobs)
		jobs.GET("/:id", h.GetJob)
		jobs.POST("/:id/requeue", h.Requeue)
	}
}

// Trigger runs one sync for an integration entity. User-triggered calls
// must carry an Idempotency-Key header; the system identity (scheduler)
// is exempt.
func (h *SyncHandler) Trigger(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req dto.TriggerSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	idempotencyKey := c.GetHeader(IdempotencyKeyHeader)
	if !principal.IsSystem && idempotencyKey == "" {
		h.BadRequest(c, "Idempotency-Key header is required")
		return
	}

	integrationID, err := uuid.Parse(req.IntegrationID)
	if err != nil {
		h.BadRequest(c, "Request validation failed: integration_id must be a valid UUID")
		return
	}

	result, err := h.syncs.TriggerSync(c.Request.Context(), principal, connectorapp.TriggerSyncInput{
		IntegrationID:  integrationID,
		EntityType:     connector.EntityType(req.EntityType),
		Direction:      sync.Direction(req.Direction),
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Deduplicated {
		resp := dto.NewSuccessResponse("Sync already executed for this key", result)
		resp.Idempotent = true
		c.JSON(200, resp)
		return
	}

	h.Success(c, "Sync executed", result)
}

// ListJobs returns the caller's sync jobs, newest first
func (h *SyncHandler) ListJobs(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	results, total, err := h.syncs.ListJobs(c.Request.Context(), principal, req.Limit, req.Offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, "Jobs retrieved", results, total, req.Limit, req.Offset)
}

// GetJob returns one sync job
func (h *SyncHandler) GetJob(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Request validation failed: id must be a valid UUID")
		return
	}

	result, err := h.syncs.GetJob(c.Request.Context(), principal, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Job retrieved", result)
}

// Requeue resets a dead-lettered job and runs it again
func (h *SyncHandler) Requeue(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Request validation failed: id must be a valid UUID")
		return
	}

	result, err := h.syncs.RequeueJob(c.Request.Context(), principal, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Job requeued", result)
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/erpsync/backend/internal/infrastructure/persistence"
	"github.com/erpsync/backend/internal/interfaces/http/dto"
)

// SystemHandler serves health checks
type SystemHandler struct {
	BaseHandler
	db      *persistence.Database
	redis   *redis.Client
	version string
}

// NewSystemHandler creates the system handler. redis may be nil when the
// deployment runs on the in-memory idempotency store.
func NewSystemHandler(db *persistence.Database, redisClient *redis.Client, version string) *SystemHandler {
	return &SystemHandler{db: db, redis: redisClient, version: version}
}

// RegisterRoutes registers system routes
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health reports liveness of the service and its backing stores
func (h *SystemHandler) Health(c *gin.Context) {
	checks := gin.H{}
	healthy := true

	if h.db != nil {
		if err := h.db.Ping(); err != nil {
			checks["database"] = "unavailable"
			healthy = false
		} else {
			checks["database"] = "ok"
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(c.Request.Context()).Err(); err != nil {
			checks["redis"] = "unavailable"
			healthy = false
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	message := "Service healthy"
	if !healthy {
		status = http.StatusServiceUnavailable
		message = "Service degraded"
	}

	resp := dto.Response{
		Success:   healthy,
		Message:   message,
		Timestamp: time.Now().UTC(),
		Data: gin.H{
			"version": h.version,
			"checks":  checks,
		},
	}
	c.JSON(status, resp)
}

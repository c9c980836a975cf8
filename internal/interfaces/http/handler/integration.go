package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	connectorapp "github.com/erpsync/backend/internal/application/connector"
	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/interfaces/http/dto"
	"github.com/erpsync/backend/internal/interfaces/http/middleware"
)

// IntegrationHandler serves integration lifecycle and per-entity sync
// configuration.
type IntegrationHandler struct {
	BaseHandler
	integrations *connectorapp.IntegrationService
	tokens       *connectorapp.TokenService
}

// NewIntegrationHandler creates the integration handler
func NewIntegrationHandler(integrations *connectorapp.IntegrationService, tokens *connectorapp.TokenService) *IntegrationHandler {
	return &IntegrationHandler{integrations: integrations, tokens: tokens}
}

// RegisterRoutes registers integration routes
func (h *IntegrationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	integrations := rg.Group("/integrations")
	{
		integrations.POST("", h.Connect)
		integrations.GET("", h.List)
		integrations.GET("/:id", h.Get)
		integrations.POST("/:id/test", h.Test)
		integrations.DELETE("/:id", h.Disable)
		integrations.GET("/:id/entities", h.ListEntities)
		integrations.PATCH("/:id/entities/:entityType", h.SetEntityEnabled)
		integrations.GET("/:id/entities/:entityType/mappings", h.ListMappings)
		integrations.PUT("/:id/entities/:entityType/mappings", h.ReplaceMappings)
	}
	rg.POST("/tokens/refresh", h.RefreshToken)
}

// Connect links the caller's tenant to an ERP system after probing the
// connection.
func (h *IntegrationHandler) Connect(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req dto.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.integrations.Connect(c.Request.Context(), principal, connectorapp.ConnectInput{
		System:      connector.ERPSystem(req.ERPSystem),
		Name:        req.Name,
		APIEndpoint: req.APIEndpoint,
		IsSandbox:   req.IsSandbox,
		Credentials: connector.Credentials{
			Username:   req.Credentials.Username,
			Password:   req.Credentials.Password,
			APIKey:     req.Credentials.APIKey,
			Database:   req.Credentials.Database,
			CompanyDB:  req.Credentials.CompanyDB,
			RealmID:    req.Credentials.RealmID,
			AuthMethod: connector.AuthMethod(req.Credentials.AuthMethod),
		},
		OAuthClientID:     req.OAuthClientID,
		OAuthClientSecret: req.OAuthClientSecret,
		OAuthTokenURL:     req.OAuthTokenURL,
		OAuthScopes:       req.OAuthScopes,
		AccessToken:       req.AccessToken,
		RefreshToken:      req.RefreshToken,
		TokenExpiresAt:    req.TokenExpiresAt,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, "Integration connected", result)
}

// List returns the caller's integrations
func (h *IntegrationHandler) List(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	results, err := h.integrations.List(c.Request.Context(), principal)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Integrations retrieved", results)
}

// Get returns one integration
func (h *IntegrationHandler) Get(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.integrations.Get(c.Request.Context(), principal, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Integration retrieved", result)
}

// Test re-probes an integration's connection
func (h *IntegrationHandler) Test(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.integrations.Test(c.Request.Context(), principal, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Connection test passed", result)
}

// Disable deactivates an integration
func (h *IntegrationHandler) Disable(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	if err := h.integrations.Disable(c.Request.Context(), principal, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Integration disabled", nil)
}

// ListEntities returns the per-entity sync configuration
func (h *IntegrationHandler) ListEntities(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	results, err := h.integrations.ListEntities(c.Request.Context(), principal, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Sync entities retrieved", results)
}

// SetEntityEnabled toggles sync for one entity type
func (h *IntegrationHandler) SetEntityEnabled(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	entityType, ok := h.pathEntityType(c)
	if !ok {
		return
	}

	var req dto.SetEntityEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.integrations.SetEntityEnabled(c.Request.Context(), principal, id, entityType, *req.Enabled)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Sync entity updated", result)
}

// ListMappings returns the field mappings for one entity type
func (h *IntegrationHandler) ListMappings(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	entityType, ok := h.pathEntityType(c)
	if !ok {
		return
	}

	results, err := h.integrations.ListMappings(c.Request.Context(), principal, id, entityType)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Field mappings retrieved", results)
}

// ReplaceMappings replaces the field mappings for one entity type
func (h *IntegrationHandler) ReplaceMappings(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	entityType, ok := h.pathEntityType(c)
	if !ok {
		return
	}

	var req dto.ReplaceMappingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	inputs := make([]connectorapp.MappingInput, 0, len(req.Mappings))
	for _, m := range req.Mappings {
		inputs = append(inputs, connectorapp.MappingInput{
			LocalField: m.LocalField,
			ERPField:   m.RemoteField,
			IsCustom:   m.IsCustom,
		})
	}

	results, err := h.integrations.ReplaceMappings(c.Request.Context(), principal, id, entityType, inputs)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Field mappings replaced", results)
}

// RefreshToken forces an OAuth token refresh for an integration
func (h *IntegrationHandler) RefreshToken(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var req dto.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}
	id, err := uuid.Parse(req.IntegrationID)
	if err != nil {
		h.BadRequest(c, "Request validation failed: integration_id must be a valid UUID")
		return
	}

	if err := h.tokens.RefreshNow(c.Request.Context(), principal, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Token refreshed", nil)
}

func (h *IntegrationHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Request validation failed: id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *IntegrationHandler) pathEntityType(c *gin.Context) (connector.EntityType, bool) {
	entityType := connector.EntityType(c.Param("entityType"))
	if !entityType.IsValid() {
		h.BadRequest(c, "Entity type is not syncable")
		return "", false
	}
	return entityType, true
}

package handler

import (
	"github.com/gin-gonic/gin"

	identityapp "github.com/erpsync/backend/internal/application/identity"
	"github.com/erpsync/backend/internal/interfaces/http/dto"
	"github.com/erpsync/backend/internal/interfaces/http/middleware"
)

// AuthHandler serves login
type AuthHandler struct {
	BaseHandler
	auth *identityapp.AuthService
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(auth *identityapp.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes registers auth routes
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/login", h.Login)
	}
}

// Login authenticates a user and issues an access token
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.auth.Login(c.Request.Context(), identityapp.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, "Login successful", result)
}

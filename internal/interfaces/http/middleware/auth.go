package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	identityapp "github.com/erpsync/backend/internal/application/identity"
	"github.com/erpsync/backend/internal/domain/identity"
	"github.com/erpsync/backend/internal/infrastructure/logger"
	"github.com/erpsync/backend/internal/interfaces/http/dto"
)

// Auth context keys
const (
	PrincipalKey  = "principal"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// AuthConfig holds configuration for the authentication middleware
type AuthConfig struct {
	Gate      *identityapp.AuthGate
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultAuthConfig returns the default authentication configuration
func DefaultAuthConfig(gate *identityapp.AuthGate) AuthConfig {
	return AuthConfig{
		Gate: gate,
		SkipPaths: []string{
			"/health",
			"/api/v1/health",
			"/api/v1/auth/login",
		},
	}
}

// Auth creates authentication middleware with default configuration
func Auth(gate *identityapp.AuthGate) gin.HandlerFunc {
	return AuthWithConfig(DefaultAuthConfig(gate))
}

// AuthWithConfig authenticates the bearer credential. The credential is
// either a user JWT, resolved to a stored profile, or the shared system
// secret used by the scheduler. Tenant and role always come from the
// resolved profile, never from token claims.
func AuthWithConfig(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}

		authHeader := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthenticated(c, cfg, "Missing or malformed authorization header")
			return
		}
		credential := strings.TrimPrefix(authHeader, BearerPrefix)
		if credential == "" {
			abortUnauthenticated(c, cfg, "Missing bearer credential")
			return
		}

		principal, err := cfg.Gate.VerifyUser(c.Request.Context(), credential)
		if err != nil {
			principal, err = cfg.Gate.VerifySystemKey(credential)
		}
		if err != nil {
			abortUnauthenticated(c, cfg, "Credential rejected")
			return
		}

		c.Set(PrincipalKey, principal)

		ctx := c.Request.Context()
		log := logger.FromContext(ctx)
		if !principal.IsSystem {
			ctx, _ = logger.WithTenantID(ctx, log, principal.TenantID.String())
			if principal.UserID != nil {
				ctx, _ = logger.WithUserID(ctx, log, principal.UserID.String())
			}
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireElevated rejects principals whose role may not manage
// integrations or trigger syncs. Must run after Auth.
func RequireElevated(gate *identityapp.AuthGate) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponse("UNAUTHENTICATED", "Authentication required"))
			return
		}
		if err := gate.RequireElevated(principal); err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse("FORBIDDEN", "Access to this resource is forbidden"))
			return
		}
		c.Next()
	}
}

// RequireElevatedForWrites applies the elevated-role check to mutating
// methods only. Read access stays open to every authenticated role, and
// paths the Auth middleware skips never carry a principal to check.
func RequireElevatedForWrites(gate *identityapp.AuthGate) gin.HandlerFunc {
	elevated := RequireElevated(gate)
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		default:
			c.Next()
			return
		}
		if _, ok := GetPrincipal(c); !ok {
			c.Next()
			return
		}
		elevated(c)
	}
}

// GetPrincipal retrieves the authenticated principal from gin.Context
func GetPrincipal(c *gin.Context) (identity.Principal, bool) {
	if v, exists := c.Get(PrincipalKey); exists {
		if p, ok := v.(identity.Principal); ok {
			return p, true
		}
	}
	return identity.Principal{}, false
}

func abortUnauthenticated(c *gin.Context, cfg AuthConfig, reason string) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("Authentication failed",
			zap.String("reason", reason),
			zap.String("path", c.Request.URL.Path),
		)
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponse("UNAUTHENTICATED", "Authentication required"))
}

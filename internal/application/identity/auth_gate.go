package identity

import (
	"context"
	"crypto/subtle"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/identity"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/auth"
	"github.com/erpsync/backend/internal/infrastructure/config"
)

// AuthGate turns bearer material into a verified principal. The JWT only
// identifies the user; tenant and role always come from the stored profile,
// so a role change or deactivation takes effect on the next request even for
// tokens issued before it.
type AuthGate struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	systemKey  string
	logger     *zap.Logger
}

// NewAuthGate creates the auth gate
func NewAuthGate(
	userRepo identity.UserRepository,
	jwtService *auth.JWTService,
	cfg config.SystemAuthConfig,
	logger *zap.Logger,
) *AuthGate {
	return &AuthGate{
		userRepo:   userRepo,
		jwtService: jwtService,
		systemKey:  cfg.Key,
		logger:     logger,
	}
}

// VerifyUser validates a bearer JWT and resolves the caller from storage
func (g *AuthGate) VerifyUser(ctx context.Context, token string) (identity.Principal, error) {
	claims, err := g.jwtService.Validate(token)
	if err != nil {
		g.logger.Debug("Token validation failed", zap.Error(err))
		return identity.Principal{}, shared.ErrUnauthenticated
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		g.logger.Warn("Token carries malformed user id", zap.String("user_id", claims.UserID))
		return identity.Principal{}, shared.ErrUnauthenticated
	}

	user, err := g.userRepo.FindByID(ctx, userID)
	if err != nil {
		g.logger.Warn("Token subject has no stored profile", zap.String("user_id", userID.String()))
		return identity.Principal{}, shared.ErrUnauthenticated
	}

	if !user.IsActive() {
		g.logger.Warn("Deactivated user presented a valid token",
			zap.String("user_id", user.ID.String()),
			zap.String("tenant_id", user.TenantID.String()),
		)
		return identity.Principal{}, shared.ErrForbidden
	}

	return identity.Principal{
		UserID:   &user.ID,
		TenantID: user.TenantID,
		Role:     user.Role,
	}, nil
}

// VerifySystemKey validates the shared secret presented by trusted non-human
// callers and returns the system principal.
func (g *AuthGate) VerifySystemKey(key string) (identity.Principal, error) {
	if g.systemKey == "" || key == "" {
		return identity.Principal{}, shared.ErrUnauthenticated
	}
	if subtle.ConstantTimeCompare([]byte(g.systemKey), []byte(key)) != 1 {
		g.logger.Warn("System key mismatch")
		return identity.Principal{}, shared.ErrUnauthenticated
	}
	return identity.System(), nil
}

// RequireElevated rejects principals whose role may not manage integrations
// or trigger sync operations. The system principal always passes.
func (g *AuthGate) RequireElevated(principal identity.Principal) error {
	if principal.IsSystem {
		return nil
	}
	if !principal.Role.IsElevated() {
		return shared.ErrForbidden
	}
	return nil
}

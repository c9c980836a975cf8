package connector

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/identity"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/vault"
)

// RefreshSkew is how close to expiry an access token may get before a sync
// run refreshes it first.
const RefreshSkew = 5 * time.Minute

// TokenService keeps OAuth access tokens fresh. Refreshed tokens are
// re-encrypted before they are persisted; a failed refresh aborts the
// caller's sync but leaves the integration enabled so the tenant can
// re-authenticate.
type TokenService struct {
	integrations connector.IntegrationRepository
	registry     connector.Registry
	builder      *connectionBuilder
	vault        *vault.Vault
	audit        *AuditService
	logger       *zap.Logger
	now          func() time.Time
}

// NewTokenService creates the token lifecycle service
func NewTokenService(
	integrations connector.IntegrationRepository,
	registry connector.Registry,
	v *vault.Vault,
	audit *AuditService,
	logger *zap.Logger,
) *TokenService {
	return &TokenService{
		integrations: integrations,
		registry:     registry,
		builder:      &connectionBuilder{vault: v},
		vault:        v,
		audit:        audit,
		logger:       logger,
		now:          time.Now,
	}
}

// EnsureFresh refreshes the integration's access token when it expires
// within the skew window. Integrations on session-auth systems and tokens
// with enough lifetime left are a no-op.
func (s *TokenService) EnsureFresh(ctx context.Context, integration *connector.Integration) error {
	if !integration.NeedsRefresh(s.now(), RefreshSkew) {
		return nil
	}
	return s.refresh(ctx, integration)
}

// RunRefreshPass proactively refreshes every active OAuth integration whose
// token expires within the skew window. Failures are logged and audited per
// integration; the pass continues.
func (s *TokenService) RunRefreshPass(ctx context.Context, skew time.Duration) (int, error) {
	cutoff := s.now().Add(skew)
	expiring, err := s.integrations.FindExpiringTokens(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, integration := range expiring {
		if err := s.refresh(ctx, integration); err != nil {
			s.logger.Warn("Scheduled token refresh failed",
				zap.String("integration_id", integration.ID.String()),
				zap.String("system", integration.System.String()),
				zap.Error(err),
			)
			continue
		}
		refreshed++
	}
	return refreshed, nil
}

// RefreshNow forces a refresh of an integration's access token on behalf
// of a caller, regardless of remaining lifetime. The cross-tenant guard
// applies as for every integration operation.
func (s *TokenService) RefreshNow(ctx context.Context, principal identity.Principal, integrationID uuid.UUID) error {
	integration, err := s.integrations.FindByID(ctx, integrationID)
	if err != nil {
		return shared.ErrNotFound
	}
	if !principal.ActsFor(integration.TenantID) {
		s.audit.Record(principal.TenantID, principal.UserID, connector.ActionAccessDenied, map[string]string{
			"integration_id": integrationID.String(),
		})
		return shared.ErrForbidden
	}
	return s.refresh(ctx, integration)
}

func (s *TokenService) refresh(ctx context.Context, integration *connector.Integration) error {
	adapter, err := s.registry.Adapter(integration.System)
	if err != nil {
		return shared.ErrTokenRefreshFailed
	}

	conn, err := s.builder.build(integration)
	if err != nil {
		s.logger.Error("Failed to assemble connection for refresh",
			zap.String("integration_id", integration.ID.String()),
			zap.Error(err),
		)
		return shared.ErrTokenRefreshFailed
	}

	token, err := adapter.RefreshToken(ctx, conn)
	if err != nil {
		s.logger.Warn("Token refresh rejected by upstream",
			zap.String("integration_id", integration.ID.String()),
			zap.String("system", integration.System.String()),
			zap.Error(err),
		)
		s.audit.Record(integration.TenantID, nil, connector.ActionTokenRefreshFailed, map[string]string{
			"integration_id": integration.ID.String(),
			"system":         integration.System.String(),
		})
		return shared.ErrTokenRefreshFailed
	}

	encryptedAccess, err := s.vault.Encrypt(token.AccessToken)
	if err != nil {
		return shared.ErrTokenRefreshFailed
	}
	encryptedRefresh, err := s.vault.Encrypt(token.RefreshToken)
	if err != nil {
		return shared.ErrTokenRefreshFailed
	}

	integration.SetTokens(encryptedAccess, encryptedRefresh, token.ExpiresAt, s.now())
	if err := s.integrations.Save(ctx, integration); err != nil {
		s.logger.Error("Failed to persist refreshed tokens",
			zap.String("integration_id", integration.ID.String()),
			zap.Error(err),
		)
		return shared.ErrTokenRefreshFailed
	}

	s.audit.Record(integration.TenantID, nil, connector.ActionTokenRefreshed, map[string]string{
		"integration_id": integration.ID.String(),
		"system":         integration.System.String(),
	})
	return nil
}

package connector

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/vault"
)

func newOAuthIntegration(t *testing.T, v *vault.Vault, expiresAt time.Time) *connector.Integration {
	t.Helper()

	integration, err := connector.NewIntegration(uuid.New(), connector.ERPSystemQuickBooks, "Books", "https://qb.example.com", false)
	require.NoError(t, err)

	creds, err := encryptCredentials(v, connector.Credentials{RealmID: "12345"})
	require.NoError(t, err)
	integration.EncryptedCredentials = creds

	access, err := v.Encrypt("old-access")
	require.NoError(t, err)
	refresh, err := v.Encrypt("old-refresh")
	require.NoError(t, err)
	integration.SetTokens(access, refresh, expiresAt, time.Now())
	return integration
}

func TestTokenService_EnsureFresh(t *testing.T) {
	v := newTestVault(t)

	t.Run("token with lifetime left is a no-op", func(t *testing.T) {
		repo := new(MockIntegrationRepository)
		adapter := &MockAdapter{system: connector.ERPSystemQuickBooks}
		service := NewTokenService(repo, &stubRegistry{adapter: adapter}, v, NewAuditService(new(MockAuditRepository), zap.NewNop()), zap.NewNop())

		integration := newOAuthIntegration(t, v, time.Now().Add(time.Hour))

		require.NoError(t, service.EnsureFresh(context.Background(), integration))
		adapter.AssertNotCalled(t, "RefreshToken")
		repo.AssertNotCalled(t, "Save")
	})

	t.Run("expiring token is refreshed, re-encrypted and audited", func(t *testing.T) {
		repo := new(MockIntegrationRepository)
		repo.On("Save", mock.Anything, mock.Anything).Return(nil)

		adapter := &MockAdapter{system: connector.ERPSystemQuickBooks}
		newExpiry := time.Now().Add(time.Hour)
		adapter.On("RefreshToken", mock.Anything, mock.MatchedBy(func(conn connector.Connection) bool {
			return conn.Token != nil && conn.Token.AccessToken == "old-access" && conn.Token.RefreshToken == "old-refresh"
		})).Return(&connector.OAuthToken{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresAt: newExpiry}, nil)

		auditRepo := new(MockAuditRepository)
		auditRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *connector.AuditEntry) bool {
			return e.ActionType == connector.ActionTokenRefreshed
		})).Return(nil)
		audit := NewAuditService(auditRepo, zap.NewNop())

		service := NewTokenService(repo, &stubRegistry{adapter: adapter}, v, audit, zap.NewNop())

		integration := newOAuthIntegration(t, v, time.Now().Add(time.Minute))

		require.NoError(t, service.EnsureFresh(context.Background(), integration))

		access, err := v.Decrypt(integration.EncryptedAccessToken)
		require.NoError(t, err)
		assert.Equal(t, "new-access", access)
		refresh, err := v.Decrypt(integration.EncryptedRefreshToken)
		require.NoError(t, err)
		assert.Equal(t, "new-refresh", refresh)
		assert.WithinDuration(t, newExpiry, *integration.TokenExpiresAt, time.Second)

		audit.Flush()
		repo.AssertExpectations(t)
		auditRepo.AssertExpectations(t)
	})

	t.Run("refresh failure aborts without disabling the integration", func(t *testing.T) {
		repo := new(MockIntegrationRepository)

		adapter := &MockAdapter{system: connector.ERPSystemQuickBooks}
		adapter.On("RefreshToken", mock.Anything, mock.Anything).Return(nil, connector.ErrTokenRefreshRejected)

		auditRepo := new(MockAuditRepository)
		auditRepo.On("Append", mock.Anything, mock.MatchedBy(func(e *connector.AuditEntry) bool {
			return e.ActionType == connector.ActionTokenRefreshFailed
		})).Return(nil)
		audit := NewAuditService(auditRepo, zap.NewNop())

		service := NewTokenService(repo, &stubRegistry{adapter: adapter}, v, audit, zap.NewNop())

		integration := newOAuthIntegration(t, v, time.Now().Add(time.Minute))

		err := service.EnsureFresh(context.Background(), integration)

		assert.ErrorIs(t, err, shared.ErrTokenRefreshFailed)
		assert.True(t, integration.IsActive, "failed refresh must not disable the integration")
		repo.AssertNotCalled(t, "Save")

		audit.Flush()
		auditRepo.AssertExpectations(t)
	})

	t.Run("session-auth systems never refresh", func(t *testing.T) {
		repo := new(MockIntegrationRepository)
		adapter := &MockAdapter{system: connector.ERPSystemOdoo}
		service := NewTokenService(repo, &stubRegistry{adapter: adapter}, v, NewAuditService(new(MockAuditRepository), zap.NewNop()), zap.NewNop())

		integration, err := connector.NewIntegration(uuid.New(), connector.ERPSystemOdoo, "Odoo", "https://odoo.example.com", false)
		require.NoError(t, err)

		require.NoError(t, service.EnsureFresh(context.Background(), integration))
		adapter.AssertNotCalled(t, "RefreshToken")
	})
}

func TestTokenService_RunRefreshPass(t *testing.T) {
	v := newTestVault(t)

	t.Run("refreshes expiring integrations and continues past failures", func(t *testing.T) {
		healthy := newOAuthIntegration(t, v, time.Now().Add(time.Minute))
		broken := newOAuthIntegration(t, v, time.Now().Add(time.Minute))

		repo := new(MockIntegrationRepository)
		repo.On("FindExpiringTokens", mock.Anything, mock.Anything).
			Return([]*connector.Integration{broken, healthy}, nil)
		repo.On("Save", mock.Anything, healthy).Return(nil)

		adapter := &MockAdapter{system: connector.ERPSystemQuickBooks}
		adapter.On("RefreshToken", mock.Anything, mock.Anything).
			Return(nil, connector.ErrTokenRefreshRejected).Once()
		adapter.On("RefreshToken", mock.Anything, mock.Anything).
			Return(&connector.OAuthToken{AccessToken: "a", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)}, nil).Once()

		auditRepo := new(MockAuditRepository)
		auditRepo.On("Append", mock.Anything, mock.Anything).Return(nil)
		audit := NewAuditService(auditRepo, zap.NewNop())

		service := NewTokenService(repo, &stubRegistry{adapter: adapter}, v, audit, zap.NewNop())

		refreshed, err := service.RunRefreshPass(context.Background(), 5*time.Minute)

		require.NoError(t, err)
		assert.Equal(t, 1, refreshed)
		audit.Flush()
		repo.AssertExpectations(t)
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		repo := new(MockIntegrationRepository)
		repo.On("FindExpiringTokens", mock.Anything, mock.Anything).Return(nil, shared.ErrInternal)

		service := NewTokenService(repo, &stubRegistry{}, v, NewAuditService(new(MockAuditRepository), zap.NewNop()), zap.NewNop())

		_, err := service.RunRefreshPass(context.Background(), 5*time.Minute)
		assert.Error(t, err)
	})
}

package connector

import (
	"time"

	"github.com/google/uuid"

	"github.com/erpsync/backend/internal/domain/shared"
)

// ConnectionStatus is the last observed connectivity state of an integration
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusError        ConnectionStatus = "error"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
)

// Integration is one tenant's link to one ERP system; at most one exists per
// (tenant, system). Credential and token fields hold vault ciphertext only;
// no code path stores their plaintext.
type Integration struct {
	shared.TenantEntity
	System      ERPSystem
	Name        string
	APIEndpoint string
	IsSandbox   bool
	IsActive    bool

	// Vault ciphertext. The client secret lives in its own column, never
	// embedded in the OAuth config.
	EncryptedCredentials  string
	EncryptedAccessToken  string
	EncryptedRefreshToken string
	EncryptedClientSecret string

	// OAuth config (non-secret part)
	OAuthClientID  string
	OAuthTokenURL  string
	OAuthScopes    string
	TokenExpiresAt *time.Time

	ConnectionStatus ConnectionStatus
	LastTestAt       *time.Time
	LastSyncAt       *time.Time
}

// NewIntegration creates an integration for a tenant and system. It starts
// disconnected; a successful connection test flips it to connected.
func NewIntegration(tenantID uuid.UUID, system ERPSystem, name, endpoint string, sandbox bool) (*Integration, error) {
	if !system.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unsupported ERP system")
	}
	if name == "" {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Integration name is required")
	}
	return &Integration{
		TenantEntity:     shared.NewTenantEntity(tenantID),
		System:           system,
		Name:             name,
		APIEndpoint:      endpoint,
		IsSandbox:        sandbox,
		IsActive:         true,
		ConnectionStatus: ConnectionStatusDisconnected,
	}, nil
}

// MarkConnected records a successful connection test
func (i *Integration) MarkConnected(at time.Time) {
	i.ConnectionStatus = ConnectionStatusConnected
	i.LastTestAt = &at
	i.UpdatedAt = at
}

// MarkTestFailed records a failed connection test without disabling the
// integration
func (i *Integration) MarkTestFailed(at time.Time) {
	i.ConnectionStatus = ConnectionStatusError
	i.LastTestAt = &at
	i.UpdatedAt = at
}

// MarkSynced records a completed sync run
func (i *Integration) MarkSynced(at time.Time) {
	i.LastSyncAt = &at
	i.UpdatedAt = at
}

// Disable soft-disables the integration. Integrations are never deleted.
func (i *Integration) Disable(at time.Time) {
	i.IsActive = false
	i.ConnectionStatus = ConnectionStatusDisconnected
	i.UpdatedAt = at
}

// SetTokens stores freshly encrypted token ciphertext and expiry
func (i *Integration) SetTokens(encryptedAccess, encryptedRefresh string, expiresAt time.Time, now time.Time) {
	i.EncryptedAccessToken = encryptedAccess
	i.EncryptedRefreshToken = encryptedRefresh
	i.TokenExpiresAt = &expiresAt
	i.UpdatedAt = now
}

// NeedsRefresh reports whether the access token expires within the skew
// window. Systems without OAuth never need a refresh.
func (i *Integration) NeedsRefresh(now time.Time, skew time.Duration) bool {
	if !i.System.UsesOAuth() {
		return false
	}
	if i.TokenExpiresAt == nil {
		return true
	}
	return !now.Add(skew).Before(*i.TokenExpiresAt)
}

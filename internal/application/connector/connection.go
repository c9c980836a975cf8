package connector

import (
	"encoding/json"
	"fmt"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/infrastructure/vault"
)

// connectionBuilder assembles an adapter Connection from an integration row.
// Decrypted secrets live only in the returned value; callers discard it as
// soon as the external call finishes.
type connectionBuilder struct {
	vault *vault.Vault
}

func (b *connectionBuilder) build(i *connector.Integration) (connector.Connection, error) {
	conn := connector.Connection{
		Endpoint:      i.APIEndpoint,
		IsSandbox:     i.IsSandbox,
		OAuthClientID: i.OAuthClientID,
		OAuthTokenURL: i.OAuthTokenURL,
		OAuthScopes:   i.OAuthScopes,
	}

	if i.EncryptedCredentials != "" {
		plain, err := b.vault.Decrypt(i.EncryptedCredentials)
		if err != nil {
			return connector.Connection{}, fmt.Errorf("decrypt credentials: %w", err)
		}
		if err := json.Unmarshal([]byte(plain), &conn.Credentials); err != nil {
			return connector.Connection{}, fmt.Errorf("parse credentials: %w", err)
		}
	}

	if i.EncryptedClientSecret != "" {
		secret, err := b.vault.Decrypt(i.EncryptedClientSecret)
		if err != nil {
			return connector.Connection{}, fmt.Errorf("decrypt client secret: %w", err)
		}
		conn.OAuthClientSecret = secret
	}

	if i.EncryptedAccessToken != "" {
		token := &connector.OAuthToken{}
		access, err := b.vault.Decrypt(i.EncryptedAccessToken)
		if err != nil {
			return connector.Connection{}, fmt.Errorf("decrypt access token: %w", err)
		}
		token.AccessToken = access

		if i.EncryptedRefreshToken != "" {
			refresh, err := b.vault.Decrypt(i.EncryptedRefreshToken)
			if err != nil {
				return connector.Connection{}, fmt.Errorf("decrypt refresh token: %w", err)
			}
			token.RefreshToken = refresh
		}
		if i.TokenExpiresAt != nil {
			token.ExpiresAt = *i.TokenExpiresAt
		}
		conn.Token = token
	}

	return conn, nil
}

// encryptCredentials serializes and encrypts a credential set for storage
func encryptCredentials(v *vault.Vault, creds connector.Credentials) (string, error) {
	raw, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("serialize credentials: %w", err)
	}
	return v.Encrypt(string(raw))
}

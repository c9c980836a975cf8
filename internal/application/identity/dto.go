package identity

import (
	"time"

	"github.com/google/uuid"
)

// LoginInput carries the credentials for a login attempt
type LoginInput struct {
	Email    string
	Password string
}

// UserInfo is the caller-visible slice of a user profile
type UserInfo struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenantId"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Role        string    `json:"role"`
}

// LoginResult is a successful authentication outcome
type LoginResult struct {
	AccessToken string    `json:"accessToken"`
	TokenType   string    `json:"tokenType"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        UserInfo  `json:"user"`
}

package dto

import "time"

// LoginRequest is the body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// CredentialsRequest is the adapter-specific secret material of a connect
// request. It is encrypted before anything is persisted and never echoed
// back.
type CredentialsRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	APIKey     string `json:"api_key"`
	Database   string `json:"database"`
	CompanyDB  string `json:"company_db"`
	RealmID    string `json:"realm_id"`
	AuthMethod string `json:"auth_method"`
}

// ConnectRequest is the body for POST /integrations
type ConnectRequest struct {
	ERPSystem   string             `json:"erp_system" binding:"required,erpsystem"`
	Name        string             `json:"name" binding:"required,max=255"`
	APIEndpoint string             `json:"api_endpoint" binding:"required,url"`
	IsSandbox   bool               `json:"is_sandbox"`
	Credentials CredentialsRequest `json:"credentials" binding:"required"`

	OAuthClientID     string     `json:"oauth_client_id"`
	OAuthClientSecret string     `json:"oauth_client_secret"`
	OAuthTokenURL     string     `json:"oauth_token_url" binding:"omitempty,url"`
	OAuthScopes       string     `json:"oauth_scopes"`
	AccessToken       string     `json:"access_token"`
	RefreshToken      string     `json:"refresh_token"`
	TokenExpiresAt    *time.Time `json:"token_expires_at"`
}

// TriggerSyncRequest is the body for POST /sync
type TriggerSyncRequest struct {
	IntegrationID string `json:"integration_id" binding:"required,uuid"`
	EntityType    string `json:"entity_type" binding:"required,entitytype"`
	Direction     string `json:"direction" binding:"required,syncdirection"`
}

// RefreshTokenRequest is the body for POST /tokens/refresh
type RefreshTokenRequest struct {
	IntegrationID string `json:"integration_id" binding:"required,uuid"`
}

// SetEntityEnabledRequest toggles sync for one entity type
type SetEntityEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// FieldMappingRequest is one mapping row in a PUT /mappings body
type FieldMappingRequest struct {
	LocalField  string `json:"local_field" binding:"required,max=255"`
	RemoteField string `json:"remote_field" binding:"required,max=255"`
	IsCustom    bool   `json:"is_custom"`
}

// ReplaceMappingsRequest is the body for PUT .../mappings
type ReplaceMappingsRequest struct {
	Mappings []FieldMappingRequest `json:"mappings" binding:"required,min=1,dive"`
}

// ListRequest carries limit/offset pagination for list endpoints
type ListRequest struct {
	Limit  int `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset int `form:"offset" binding:"omitempty,min=0"`
}

// DefaultListRequest returns a list request with defaults
func DefaultListRequest() ListRequest {
	return ListRequest{Limit: 20, Offset: 0}
}

// IDRequest represents a request with an ID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

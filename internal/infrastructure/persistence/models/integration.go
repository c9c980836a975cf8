package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/erpsync/backend/internal/domain/connector"
)

// IntegrationModel is the persistence model for the Integration domain
// entity. The unique index on (tenant_id, erp_system) enforces at most one
// integration per tenant and system.
type IntegrationModel struct {
	ID          uuid.UUID           `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_integrations_tenant_system,priority:1"`
	System      connector.ERPSystem `gorm:"column:erp_system;type:varchar(20);not null;uniqueIndex:idx_integrations_tenant_system,priority:2"`
	Name        string              `gorm:"type:varchar(255);not null"`
	APIEndpoint string              `gorm:"type:varchar(500)"`
	IsSandbox   bool                `gorm:"not null;default:false"`
	IsActive    bool                `gorm:"not null;default:true"`

	EncryptedCredentials  string `gorm:"type:text"`
	EncryptedAccessToken  string `gorm:"type:text"`
	EncryptedRefreshToken string `gorm:"type:text"`
	EncryptedClientSecret string `gorm:"type:text"`

	OAuthClientID  string     `gorm:"column:oauth_client_id;type:varchar(255)"`
	OAuthTokenURL  string     `gorm:"column:oauth_token_url;type:varchar(500)"`
	OAuthScopes    string     `gorm:"column:oauth_scopes;type:varchar(500)"`
	TokenExpiresAt *time.Time `gorm:"index"`

	ConnectionStatus connector.ConnectionStatus `gorm:"type:varchar(20);not null;default:'disconnected'"`
	LastTestAt       *time.Time
	LastSyncAt       *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IntegrationModel) TableName() string {
	return "integrations"
}

// ToDomain converts the persistence model to a domain Integration entity
func (m *IntegrationModel) ToDomain() *connector.Integration {
	i := &connector.Integration{
		System:                m.System,
		Name:                  m.Name,
		APIEndpoint:           m.APIEndpoint,
		IsSandbox:             m.IsSandbox,
		IsActive:              m.IsActive,
		EncryptedCredentials:  m.EncryptedCredentials,
		EncryptedAccessToken:  m.EncryptedAccessToken,
		EncryptedRefreshToken: m.EncryptedRefreshToken,
		EncryptedClientSecret: m.EncryptedClientSecret,
		OAuthClientID:         m.OAuthClientID,
		OAuthTokenURL:         m.OAuthTokenURL,
		OAuthScopes:           m.OAuthScopes,
		TokenExpiresAt:        m.TokenExpiresAt,
		ConnectionStatus:      m.ConnectionStatus,
		LastTestAt:            m.LastTestAt,
		LastSyncAt:            m.LastSyncAt,
	}
	i.ID = m.ID
	i.TenantID = m.TenantID
	i.CreatedAt = m.CreatedAt
	i.UpdatedAt = m.UpdatedAt
	return i
}

// FromDomain populates the persistence model from a domain Integration entity
func (m *IntegrationModel) FromDomain(i *connector.Integration) {
	m.ID = i.ID
	m.TenantID = i.TenantID
	m.System = i.System
	m.Name = i.Name
	m.APIEndpoint = i.APIEndpoint
	m.IsSandbox = i.IsSandbox
	m.IsActive = i.IsActive
	m.EncryptedCredentials = i.EncryptedCredentials
	m.EncryptedAccessToken = i.EncryptedAccessToken
	m.EncryptedRefreshToken = i.EncryptedRefreshToken
	m.EncryptedClientSecret = i.EncryptedClientSecret
	m.OAuthClientID = i.OAuthClientID
	m.OAuthTokenURL = i.OAuthTokenURL
	m.OAuthScopes = i.OAuthScopes
	m.TokenExpiresAt = i.TokenExpiresAt
	m.ConnectionStatus = i.ConnectionStatus
	m.LastTestAt = i.LastTestAt
	m.LastSyncAt = i.LastSyncAt
	m.CreatedAt = i.CreatedAt
	m.UpdatedAt = i.UpdatedAt
}

// IntegrationModelFromDomain creates a persistence model from a domain entity
func IntegrationModelFromDomain(i *connector.Integration) *IntegrationModel {
	m := &IntegrationModel{}
	m.FromDomain(i)
	return m
}

// SyncEntityModel is the persistence model for SyncEntity. One row per
// (integration, entity_type).
type SyncEntityModel struct {
	ID            uuid.UUID            `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID            `gorm:"type:uuid;not null;index"`
	IntegrationID uuid.UUID            `gorm:"type:uuid;not null;uniqueIndex:idx_sync_entities_integration_type,priority:1"`
	EntityType    connector.EntityType `gorm:"type:varchar(20);not null;uniqueIndex:idx_sync_entities_integration_type,priority:2"`
	ResourceName  string               `gorm:"type:varchar(100);not null"`
	IsEnabled     bool                 `gorm:"not null;default:true"`
	CreatedAt     time.Time            `gorm:"not null"`
	UpdatedAt     time.Time            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncEntityModel) TableName() string {
	return "sync_entities"
}

// ToDomain converts the persistence model to a domain SyncEntity
func (m *SyncEntityModel) ToDomain() *connector.SyncEntity {
	e := &connector.SyncEntity{
		IntegrationID: m.IntegrationID,
		EntityType:    m.EntityType,
		ResourceName:  m.ResourceName,
		IsEnabled:     m.IsEnabled,
	}
	e.ID = m.ID
	e.TenantID = m.TenantID
	e.CreatedAt = m.CreatedAt
	e.UpdatedAt = m.UpdatedAt
	return e
}

// FromDomain populates the persistence model from a domain SyncEntity
func (m *SyncEntityModel) FromDomain(e *connector.SyncEntity) {
	m.ID = e.ID
	m.TenantID = e.TenantID
	m.IntegrationID = e.IntegrationID
	m.EntityType = e.EntityType
	m.ResourceName = e.ResourceName
	m.IsEnabled = e.IsEnabled
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// FieldMappingModel is the persistence model for FieldMapping
type FieldMappingModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	TenantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index"`
	LocalField string    `gorm:"type:varchar(100);not null"`
	ERPField   string    `gorm:"column:erp_field;type:varchar(200);not null"`
	IsCustom   bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FieldMappingModel) TableName() string {
	return "field_mappings"
}

// ToDomain converts the persistence model to a domain FieldMapping
func (m *FieldMappingModel) ToDomain() *connector.FieldMapping {
	f := &connector.FieldMapping{
		EntityID:   m.EntityID,
		LocalField: m.LocalField,
		ERPField:   m.ERPField,
		IsCustom:   m.IsCustom,
	}
	f.ID = m.ID
	f.TenantID = m.TenantID
	f.CreatedAt = m.CreatedAt
	f.UpdatedAt = m.UpdatedAt
	return f
}

// FromDomain populates the persistence model from a domain FieldMapping
func (m *FieldMappingModel) FromDomain(f *connector.FieldMapping) {
	m.ID = f.ID
	m.TenantID = f.TenantID
	m.EntityID = f.EntityID
	m.LocalField = f.LocalField
	m.ERPField = f.ERPField
	m.IsCustom = f.IsCustom
	m.CreatedAt = f.CreatedAt
	m.UpdatedAt = f.UpdatedAt
}

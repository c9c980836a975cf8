package connector

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/sync"
)

// ConnectInput carries everything needed to link a tenant to an ERP system.
// Credential fields arrive in plaintext over TLS and are encrypted before
// anything touches storage.
type ConnectInput struct {
	System      connector.ERPSystem
	Name        string
	APIEndpoint string
	IsSandbox   bool

	Credentials connector.Credentials

	OAuthClientID     string
	OAuthClientSecret string
	OAuthTokenURL     string
	OAuthScopes       string
	AccessToken       string
	RefreshToken      string
	TokenExpiresAt    *time.Time
}

// IntegrationResult is the caller-visible view of an integration. It never
// carries credential or token material.
type IntegrationResult struct {
	ID               uuid.UUID  `json:"id"`
	System           string     `json:"system"`
	SystemName       string     `json:"systemName"`
	Name             string     `json:"name"`
	APIEndpoint      string     `json:"apiEndpoint"`
	IsSandbox        bool       `json:"isSandbox"`
	IsActive         bool       `json:"isActive"`
	ConnectionStatus string     `json:"connectionStatus"`
	LastTestAt       *time.Time `json:"lastTestAt,omitempty"`
	LastSyncAt       *time.Time `json:"lastSyncAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// EntityResult is the caller-visible view of a sync entity
type EntityResult struct {
	ID           uuid.UUID `json:"id"`
	EntityType   string    `json:"entityType"`
	ResourceName string    `json:"resourceName"`
	IsEnabled    bool      `json:"isEnabled"`
}

// MappingInput is one field binding in a mapping update
type MappingInput struct {
	LocalField string
	ERPField   string
	IsCustom   bool
}

// MappingResult is the caller-visible view of a field mapping
type MappingResult struct {
	ID         uuid.UUID `json:"id"`
	LocalField string    `json:"localField"`
	ERPField   string    `json:"erpField"`
	IsCustom   bool      `json:"isCustom"`
}

// TriggerSyncInput carries a sync trigger request
type TriggerSyncInput struct {
	IntegrationID  uuid.UUID
	EntityType     connector.EntityType
	Direction      sync.Direction
	IdempotencyKey string
}

// JobResult is the caller-visible view of a sync job. Deduplicated marks a
// trigger that was short-circuited by its idempotency key; no new job ran.
type JobResult struct {
	ID            uuid.UUID  `json:"id"`
	IntegrationID uuid.UUID  `json:"integrationId"`
	EntityType    string     `json:"entityType"`
	Direction     string     `json:"direction"`
	Status        string     `json:"status"`
	Processed     int        `json:"processed"`
	Succeeded     int        `json:"succeeded"`
	Failed        int        `json:"failed"`
	RetryCount    int        `json:"retryCount"`
	ErrorMessage  string     `json:"errorMessage,omitempty"`
	StartedAt     *time.Time `json:"startedAt,omitempty"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	Deduplicated  bool       `json:"deduplicated,omitempty"`
}

// AuditEntryResult is the caller-visible view of an audit entry
type AuditEntryResult struct {
	ID          uuid.UUID         `json:"id"`
	PerformedBy *uuid.UUID        `json:"performedBy,omitempty"`
	ActionType  string            `json:"actionType"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// RecordSource supplies the local records an export run pushes to the ERP.
// The control plane does not own the business data; deployments wire their
// own source.
type RecordSource interface {
	RecordsForExport(ctx context.Context, tenantID uuid.UUID, entity connector.EntityType, since time.Time) ([]connector.Record, error)
}

func toIntegrationResult(i *connector.Integration) *IntegrationResult {
	return &IntegrationResult{
		ID:               i.ID,
		System:           i.System.String(),
		SystemName:       i.System.DisplayName(),
		Name:             i.Name,
		APIEndpoint:      i.APIEndpoint,
		IsSandbox:        i.IsSandbox,
		IsActive:         i.IsActive,
		ConnectionStatus: string(i.ConnectionStatus),
		LastTestAt:       i.LastTestAt,
		LastSyncAt:       i.LastSyncAt,
		CreatedAt:        i.CreatedAt,
	}
}

func toEntityResult(e *connector.SyncEntity) *EntityResult {
	return &EntityResult{
		ID:           e.ID,
		EntityType:   e.EntityType.String(),
		ResourceName: e.ResourceName,
		IsEnabled:    e.IsEnabled,
	}
}

func toMappingResult(m *connector.FieldMapping) *MappingResult {
	return &MappingResult{
		ID:         m.ID,
		LocalField: m.LocalField,
		ERPField:   m.ERPField,
		IsCustom:   m.IsCustom,
	}
}

func toJobResult(j *sync.Job) *JobResult {
	return &JobResult{
		ID:            j.ID,
		IntegrationID: j.IntegrationID,
		EntityType:    j.EntityType.String(),
		Direction:     string(j.Direction),
		Status:        string(j.Status),
		Processed:     j.Processed,
		Succeeded:     j.Succeeded,
		Failed:        j.Failed,
		RetryCount:    j.RetryCount,
		ErrorMessage:  j.ErrorMessage,
		StartedAt:     j.StartedAt,
		FinishedAt:    j.FinishedAt,
		CreatedAt:     j.CreatedAt,
	}
}

func toAuditEntryResult(e *connector.AuditEntry) *AuditEntryResult {
	return &AuditEntryResult{
		ID:          e.ID,
		PerformedBy: e.PerformedBy,
		ActionType:  string(e.ActionType),
		Metadata:    e.Metadata,
		CreatedAt:   e.CreatedAt,
	}
}

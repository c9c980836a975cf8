package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/erpsync/backend/internal/domain/connector"
)

// AuditLogModel is the persistence model for audit entries. Rows are
// append-only; there is no update or delete path.
type AuditLogModel struct {
	ID           uuid.UUID            `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID            `gorm:"type:uuid;not null;index:idx_audit_logs_tenant_created,priority:1"`
	PerformedBy  *uuid.UUID           `gorm:"type:uuid"`
	ActionType   connector.ActionType `gorm:"type:varchar(50);not null;index"`
	MetadataJSON string               `gorm:"type:jsonb;column:metadata"`
	CreatedAt    time.Time            `gorm:"not null;index:idx_audit_logs_tenant_created,priority:2,sort:desc"`
}

// TableName returns the table name for GORM
func (AuditLogModel) TableName() string {
	return "audit_logs"
}

// ToDomain converts the persistence model to a domain AuditEntry
func (m *AuditLogModel) ToDomain() *connector.AuditEntry {
	entry := &connector.AuditEntry{
		ID:          m.ID,
		TenantID:    m.TenantID,
		PerformedBy: m.PerformedBy,
		ActionType:  m.ActionType,
		Metadata:    make(map[string]string),
		CreatedAt:   m.CreatedAt,
	}
	if m.MetadataJSON != "" {
		var metadata map[string]string
		if err := json.Unmarshal([]byte(m.MetadataJSON), &metadata); err == nil {
			entry.Metadata = metadata
		}
	}
	return entry
}

// FromDomain populates the persistence model from a domain AuditEntry
func (m *AuditLogModel) FromDomain(e *connector.AuditEntry) {
	m.ID = e.ID
	m.TenantID = e.TenantID
	m.PerformedBy = e.PerformedBy
	m.ActionType = e.ActionType
	m.CreatedAt = e.CreatedAt

	if len(e.Metadata) > 0 {
		if jsonBytes, err := json.Marshal(e.Metadata); err == nil {
			m.MetadataJSON = string(jsonBytes)
		}
	} else {
		m.MetadataJSON = "{}"
	}
}

package connector

import (
	"time"

	"github.com/google/uuid"
)

// ActionType classifies a security-relevant action in the audit trail
type ActionType string

const (
	ActionIntegrationConnected  ActionType = "integration.connected"
	ActionIntegrationTestFailed ActionType = "integration.test_failed"
	ActionIntegrationDisabled   ActionType = "integration.disabled"
	ActionTokenRefreshed        ActionType = "token.refreshed"
	ActionTokenRefreshFailed    ActionType = "token.refresh_failed"
	ActionSyncStarted           ActionType = "sync.started"
	ActionSyncCompleted         ActionType = "sync.completed"
	ActionSyncRetrying          ActionType = "sync.retrying"
	ActionSyncDeadLetter        ActionType = "sync.dead_letter"
	ActionSyncRequeued          ActionType = "sync.requeued"
	ActionAccessDenied          ActionType = "access.denied"
	ActionRateLimited           ActionType = "rate.limited"
)

// AuditEntry is one append-only record of a security-relevant action.
// PerformedBy is nil for system actions. Metadata carries identifiers and
// status enums only; callers must never pass credential or token material.
type AuditEntry struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	PerformedBy *uuid.UUID
	ActionType  ActionType
	Metadata    map[string]string
	CreatedAt   time.Time
}

// NewAuditEntry builds an audit entry stamped with the current time
func NewAuditEntry(tenantID uuid.UUID, performedBy *uuid.UUID, action ActionType, metadata map[string]string) *AuditEntry {
	return &AuditEntry{
		ID:          uuid.New(),
		TenantID:    tenantID,
		PerformedBy: performedBy,
		ActionType:  action,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}
}

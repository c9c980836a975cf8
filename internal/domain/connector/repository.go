package connector

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IntegrationRepository persists integrations and their sync entities
type IntegrationRepository interface {
	// Save inserts or updates an integration. Creation enforces the unique
	// (tenant_id, erp_system) constraint.
	Save(ctx context.Context, integration *Integration) error

	// FindByID loads an integration regardless of tenant. Callers must
	// apply the cross-tenant guard themselves.
	FindByID(ctx context.Context, id uuid.UUID) (*Integration, error)

	// FindByTenantAndSystem loads the single integration a tenant has for a
	// system, if any.
	FindByTenantAndSystem(ctx context.Context, tenantID uuid.UUID, system ERPSystem) (*Integration, error)

	// FindAllForTenant lists a tenant's integrations
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*Integration, error)

	// FindExpiringTokens lists active OAuth integrations whose tokens
	// expire before the cutoff; used by the scheduled refresh pass.
	FindExpiringTokens(ctx context.Context, cutoff time.Time) ([]*Integration, error)
}

// EntityRepository persists sync entities and field mappings
type EntityRepository interface {
	SaveEntity(ctx context.Context, entity *SyncEntity) error
	FindEntities(ctx context.Context, integrationID uuid.UUID) ([]*SyncEntity, error)
	FindEntity(ctx context.Context, integrationID uuid.UUID, entityType EntityType) (*SyncEntity, error)
	SaveMapping(ctx context.Context, mapping *FieldMapping) error

	// ReplaceMappings swaps the entity's field mappings for the given set
	// atomically; a failure leaves the previous set intact.
	ReplaceMappings(ctx context.Context, entityID uuid.UUID, mappings []*FieldMapping) error

	FindMappings(ctx context.Context, entityID uuid.UUID) ([]*FieldMapping, error)
}

// AuditRepository appends audit entries and queries them per tenant
type AuditRepository interface {
	Append(ctx context.Context, entry *AuditEntry) error
	FindForTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*AuditEntry, int64, error)
}

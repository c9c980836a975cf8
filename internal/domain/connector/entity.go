package connector

import (
	"github.com/google/uuid"

	"github.com/erpsync/backend/internal/domain/shared"
)

// EntityType is a syncable resource type
type EntityType string

const (
	EntityTypeOrders    EntityType = "orders"
	EntityTypeCustomers EntityType = "customers"
	EntityTypeProducts  EntityType = "products"
	EntityTypeInvoices  EntityType = "invoices"
	EntityTypePayments  EntityType = "payments"
)

// AllEntityTypes lists every syncable entity type
func AllEntityTypes() []EntityType {
	return []EntityType{
		EntityTypeOrders, EntityTypeCustomers, EntityTypeProducts,
		EntityTypeInvoices, EntityTypePayments,
	}
}

// IsValid returns true if the entity type is a known value
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeOrders, EntityTypeCustomers, EntityTypeProducts,
		EntityTypeInvoices, EntityTypePayments:
		return true
	default:
		return false
	}
}

// String returns the string representation of the entity type
func (t EntityType) String() string {
	return string(t)
}

// SyncEntity binds one entity type of an integration to the adapter's
// resource name, with a per-entity enable toggle.
type SyncEntity struct {
	shared.TenantEntity
	IntegrationID uuid.UUID
	EntityType    EntityType
	ResourceName  string
	IsEnabled     bool
}

// NewSyncEntity creates an enabled sync entity bound to the adapter's
// resource name
func NewSyncEntity(tenantID, integrationID uuid.UUID, entityType EntityType, resourceName string) *SyncEntity {
	return &SyncEntity{
		TenantEntity:  shared.NewTenantEntity(tenantID),
		IntegrationID: integrationID,
		EntityType:    entityType,
		ResourceName:  resourceName,
		IsEnabled:     true,
	}
}

// FieldMapping binds a local field to an ERP field for one sync entity.
// Adapter-specific defaults are seeded when the integration connects.
type FieldMapping struct {
	shared.TenantEntity
	EntityID   uuid.UUID
	LocalField string
	ERPField   string
	IsCustom   bool
}

// NewFieldMapping creates a field mapping for a sync entity
func NewFieldMapping(tenantID, entityID uuid.UUID, localField, erpField string, custom bool) *FieldMapping {
	return &FieldMapping{
		TenantEntity: shared.NewTenantEntity(tenantID),
		EntityID:     entityID,
		LocalField:   localField,
		ERPField:     erpField,
		IsCustom:     custom,
	}
}

// DefaultFieldMappings is the seed set of local field names mapped onto the
// adapter's entity map when an integration first connects.
var DefaultFieldMappings = map[EntityType][]string{
	EntityTypeOrders:    {"order_number", "total", "currency", "status", "ordered_at"},
	EntityTypeCustomers: {"name", "email", "phone", "billing_address"},
	EntityTypeProducts:  {"sku", "name", "price", "stock_quantity"},
	EntityTypeInvoices:  {"invoice_number", "amount_due", "due_date", "status"},
	EntityTypePayments:  {"reference", "amount", "method", "paid_at"},
}

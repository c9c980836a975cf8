package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/infrastructure/persistence/models"
)

// GormAuditRepository implements AuditRepository using GORM
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// Append inserts an audit entry. Entries are immutable once written.
func (r *GormAuditRepository) Append(ctx context.Context, entry *connector.AuditEntry) error {
	model := &models.AuditLogModel{}
	model.FromDomain(entry)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindForTenant lists a tenant's audit entries newest first, with the total
// count for pagination
func (r *GormAuditRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*connector.AuditEntry, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.AuditLogModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*models.AuditLogModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]*connector.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.ToDomain())
	}
	return entries, total, nil
}

var _ connector.AuditRepository = (*GormAuditRepository)(nil)

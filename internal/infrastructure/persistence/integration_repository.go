package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/persistence/models"
)

// GormIntegrationRepository implements IntegrationRepository using GORM
type GormIntegrationRepository struct {
	db *gorm.DB
}

// NewGormIntegrationRepository creates a new GormIntegrationRepository
func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

// Save creates or updates an integration. The unique index on
// (tenant_id, erp_system) rejects a second integration for the same system.
func (r *GormIntegrationRepository) Save(ctx context.Context, integration *connector.Integration) error {
	model := models.IntegrationModelFromDomain(integration)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindByID finds an integration by its ID
func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*connector.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByTenantAndSystem finds the tenant's integration for an ERP system
func (r *GormIntegrationRepository) FindByTenantAndSystem(ctx context.Context, tenantID uuid.UUID, system connector.ERPSystem) (*connector.Integration, error) {
	var model models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND erp_system = ?", tenantID, system).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists all integrations for a tenant
func (r *GormIntegrationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*connector.Integration, error) {
	var rows []*models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	integrations := make([]*connector.Integration, 0, len(rows))
	for _, row := range rows {
		integrations = append(integrations, row.ToDomain())
	}
	return integrations, nil
}

// FindExpiringTokens lists active OAuth integrations whose tokens expire
// before the cutoff. Rows without an expiry are skipped; they have never
// connected and hold nothing to refresh.
func (r *GormIntegrationRepository) FindExpiringTokens(ctx context.Context, cutoff time.Time) ([]*connector.Integration, error) {
	oauthSystems := []connector.ERPSystem{}
	for _, s := range connector.AllERPSystems() {
		if s.UsesOAuth() {
			oauthSystems = append(oauthSystems, s)
		}
	}

	var rows []*models.IntegrationModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND erp_system IN ? AND token_expires_at IS NOT NULL AND token_expires_at < ?",
			true, oauthSystems, cutoff).
		Order("token_expires_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	integrations := make([]*connector.Integration, 0, len(rows))
	for _, row := range rows {
		integrations = append(integrations, row.ToDomain())
	}
	return integrations, nil
}

var _ connector.IntegrationRepository = (*GormIntegrationRepository)(nil)

package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/persistence/models"
)

// GormEntityRepository implements EntityRepository using GORM
type GormEntityRepository struct {
	db *gorm.DB
}

// NewGormEntityRepository creates a new GormEntityRepository
func NewGormEntityRepository(db *gorm.DB) *GormEntityRepository {
	return &GormEntityRepository{db: db}
}

// SaveEntity creates or updates a sync entity
func (r *GormEntityRepository) SaveEntity(ctx context.Context, entity *connector.SyncEntity) error {
	model := &models.SyncEntityModel{}
	model.FromDomain(entity)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// FindEntities lists the sync entities of an integration
func (r *GormEntityRepository) FindEntities(ctx context.Context, integrationID uuid.UUID) ([]*connector.SyncEntity, error) {
	var rows []*models.SyncEntityModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ?", integrationID).
		Order("entity_type ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	entities := make([]*connector.SyncEntity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, row.ToDomain())
	}
	return entities, nil
}

// FindEntity finds one sync entity of an integration by type
func (r *GormEntityRepository) FindEntity(ctx context.Context, integrationID uuid.UUID, entityType connector.EntityType) (*connector.SyncEntity, error) {
	var model models.SyncEntityModel
	if err := r.db.WithContext(ctx).
		Where("integration_id = ? AND entity_type = ?", integrationID, entityType).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SaveMapping creates or updates a field mapping
func (r *GormEntityRepository) SaveMapping(ctx context.Context, mapping *connector.FieldMapping) error {
	model := &models.FieldMappingModel{}
	model.FromDomain(mapping)
	return r.db.WithContext(ctx).Save(model).Error
}

// ReplaceMappings deletes the entity's mappings and inserts the new set in
// one transaction so a mid-way failure rolls back to the previous set
func (r *GormEntityRepository) ReplaceMappings(ctx context.Context, entityID uuid.UUID, mappings []*connector.FieldMapping) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("entity_id = ?", entityID).Delete(&models.FieldMappingModel{}).Error; err != nil {
			return err
		}
		if len(mappings) == 0 {
			return nil
		}

		rows := make([]*models.FieldMappingModel, 0, len(mappings))
		for _, mapping := range mappings {
			model := &models.FieldMappingModel{}
			model.FromDomain(mapping)
			rows = append(rows, model)
		}
		return tx.Create(rows).Error
	})
}

// FindMappings lists the field mappings of a sync entity
func (r *GormEntityRepository) FindMappings(ctx context.Context, entityID uuid.UUID) ([]*connector.FieldMapping, error) {
	var rows []*models.FieldMappingModel
	if err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("local_field ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	mappings := make([]*connector.FieldMapping, 0, len(rows))
	for _, row := range rows {
		mappings = append(mappings, row.ToDomain())
	}
	return mappings, nil
}

var _ connector.EntityRepository = (*GormEntityRepository)(nil)

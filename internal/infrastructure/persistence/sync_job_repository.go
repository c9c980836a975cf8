package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/domain/sync"
	"github.com/erpsync/backend/internal/infrastructure/persistence/models"
)

// GormSyncJobRepository implements JobRepository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// Save creates or updates a sync job
func (r *GormSyncJobRepository) Save(ctx context.Context, job *sync.Job) error {
	model := models.SyncJobModelFromDomain(job)
	return r.db.WithContext(ctx).Save(model).Error
}

// FindByID finds a sync job by its ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.Job, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindForTenant lists a tenant's jobs newest first, with the total count
// for pagination
func (r *GormSyncJobRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*sync.Job, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Where("tenant_id = ?", tenantID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []*models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	jobs := make([]*sync.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.ToDomain())
	}
	return jobs, total, nil
}

// FindRetrying lists jobs waiting for the scheduled retry pass, oldest first
func (r *GormSyncJobRepository) FindRetrying(ctx context.Context, limit int) ([]*sync.Job, error) {
	var rows []*models.SyncJobModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", sync.StatusRetrying).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	jobs := make([]*sync.Job, 0, len(rows))
	for _, row := range rows {
		jobs = append(jobs, row.ToDomain())
	}
	return jobs, nil
}

var _ sync.JobRepository = (*GormSyncJobRepository)(nil)

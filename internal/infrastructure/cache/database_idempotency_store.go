package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/persistence/models"
)

// DatabaseIdempotencyStore implements IdempotencyStore on the primary
// database. This is the durable backend: recorded keys survive restarts,
// which matters because a replayed sync trigger after a deploy must still
// be deduplicated within the retention window.
type DatabaseIdempotencyStore struct {
	db *gorm.DB
}

// NewDatabaseIdempotencyStore creates a database-backed idempotency store
func NewDatabaseIdempotencyStore(db *gorm.DB) *DatabaseIdempotencyStore {
	return &DatabaseIdempotencyStore{db: db}
}

// Seen reports whether the tenant has a live entry for the key
func (s *DatabaseIdempotencyStore) Seen(ctx context.Context, tenantID uuid.UUID, key string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.IdempotencyKey{}).
		Where("tenant_id = ? AND key = ? AND expires_at > ?", tenantID, key, time.Now()).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check idempotency key: %w", err)
	}
	return count > 0, nil
}

// Record inserts an entry for (tenant, key). Returns true if newly
// recorded, false if a live entry already existed. The composite unique
// index on (tenant_id, key) makes concurrent inserts race-safe; the loser
// sees a duplicate-key error and reports the key as already seen.
func (s *DatabaseIdempotencyStore) Record(ctx context.Context, tenantID uuid.UUID, key string, ttl time.Duration) (bool, error) {
	row := &models.IdempotencyKey{
		TenantID:  tenantID,
		Key:       key,
		ExpiresAt: time.Now().Add(ttl),
	}

	err := s.db.WithContext(ctx).Create(row).Error
	if err == nil {
		return true, nil
	}
	if err == gorm.ErrDuplicatedKey {
		return false, nil
	}

	// Expired rows keep the unique slot occupied until swept; reclaim in
	// place so a stale row never blocks a fresh request.
	res := s.db.WithContext(ctx).
		Model(&models.IdempotencyKey{}).
		Where("tenant_id = ? AND key = ? AND expires_at <= ?", tenantID, key, time.Now()).
		Update("expires_at", time.Now().Add(ttl))
	if res.Error != nil {
		return false, fmt.Errorf("failed to record idempotency key: %w", err)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	return false, nil
}

// Release deletes the tenant's entry for the key
func (s *DatabaseIdempotencyStore) Release(ctx context.Context, tenantID uuid.UUID, key string) error {
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND key = ?", tenantID, key).
		Delete(&models.IdempotencyKey{}).Error
	if err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// Sweep deletes expired entries and returns how many rows were removed
func (s *DatabaseIdempotencyStore) Sweep(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at <= ?", time.Now()).
		Delete(&models.IdempotencyKey{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep idempotency keys: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Close is a no-op; the shared database handle is owned by the caller
func (s *DatabaseIdempotencyStore) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*DatabaseIdempotencyStore)(nil)

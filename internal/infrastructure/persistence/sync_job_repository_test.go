package persistence

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/domain/sync"
)

func syncJobColumns() []string {
	return []string{
		"id", "tenant_id", "integration_id", "entity_type", "direction", "status", "triggered_by",
		"processed", "succeeded", "failed", "retry_count", "error_message",
		"started_at", "finished_at", "created_at", "updated_at",
	}
}

func syncJobRow(id, tenantID uuid.UUID, status sync.Status, retries int) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, tenantID, uuid.New(), connector.EntityTypeOrders, sync.DirectionImport, status, nil,
		0, 0, 0, retries, "",
		nil, nil, now, now,
	}
}

func TestGormSyncJobRepository_FindByID(t *testing.T) {
	t.Run("returns the job", func(t *testing.T) {
		db, mock, sqlDB := newMockDB(t)
		defer sqlDB.Close()
		repo := NewGormSyncJobRepository(db)

		id := uuid.New()
		tenantID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE id`).
			WillReturnRows(sqlmock.NewRows(syncJobColumns()).
				AddRow(syncJobRow(id, tenantID, sync.StatusDeadLetter, 3)...))

		got, err := repo.FindByID(context.Background(), id)

		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, sync.StatusDeadLetter, got.Status)
		assert.Equal(t, 3, got.RetryCount)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps missing row to ErrNotFound", func(t *testing.T) {
		db, mock, sqlDB := newMockDB(t)
		defer sqlDB.Close()
		repo := NewGormSyncJobRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE id`).
			WillReturnError(gorm.ErrRecordNotFound)

		_, err := repo.FindByID(context.Background(), uuid.New())

		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSyncJobRepository_FindForTenant(t *testing.T) {
	t.Run("returns page and total count", func(t *testing.T) {
		db, mock, sqlDB := newMockDB(t)
		defer sqlDB.Close()
		repo := NewGormSyncJobRepository(db)

		tenantID := uuid.New()
		mock.ExpectQuery(`SELECT count\(\*\) FROM "sync_jobs" WHERE tenant_id`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(12))
		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE tenant_id .* ORDER BY created_at DESC`).
			WillReturnRows(sqlmock.NewRows(syncJobColumns()).
				AddRow(syncJobRow(uuid.New(), tenantID, sync.StatusCompleted, 0)...).
				AddRow(syncJobRow(uuid.New(), tenantID, sync.StatusRetrying, 1)...))

		jobs, total, err := repo.FindForTenant(context.Background(), tenantID, 2, 0)

		require.NoError(t, err)
		assert.Len(t, jobs, 2)
		assert.Equal(t, int64(12), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormSyncJobRepository_FindRetrying(t *testing.T) {
	t.Run("lists only retrying jobs", func(t *testing.T) {
		db, mock, sqlDB := newMockDB(t)
		defer sqlDB.Close()
		repo := NewGormSyncJobRepository(db)

		mock.ExpectQuery(`SELECT \* FROM "sync_jobs" WHERE status`).
			WillReturnRows(sqlmock.NewRows(syncJobColumns()).
				AddRow(syncJobRow(uuid.New(), uuid.New(), sync.StatusRetrying, 1)...))

		jobs, err := repo.FindRetrying(context.Background(), 10)

		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, sync.StatusRetrying, jobs[0].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

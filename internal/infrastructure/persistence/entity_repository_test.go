package persistence

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpsync/backend/internal/domain/connector"
)

func TestGormEntityRepository_ReplaceMappings(t *testing.T) {
	tenantID := uuid.New()
	entityID := uuid.New()

	mappings := []*connector.FieldMapping{
		connector.NewFieldMapping(tenantID, entityID, "total", "amount_total", true),
		connector.NewFieldMapping(tenantID, entityID, "name", "display_name", true),
	}

	t.Run("deletes the old set and inserts the new one in a transaction", func(t *testing.T) {
		db, mock, sqlDB := newMockDB(t)
		defer sqlDB.Close()
		repo := NewGormEntityRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "field_mappings" WHERE entity_id`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(`INSERT INTO "field_mappings"`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := repo.ReplaceMappings(context.Background(), entityID, mappings)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty set clears the mappings without an insert", func(t *testing.T) {
		db, mock, sqlDB := newMockDB(t)
		defer sqlDB.Close()
		repo := NewGormEntityRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "field_mappings" WHERE entity_id`).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectCommit()

		err := repo.ReplaceMappings(context.Background(), entityID, nil)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the delete fails", func(t *testing.T) {
		db, mock, sqlDB := newMockDB(t)
		defer sqlDB.Close()
		repo := NewGormEntityRepository(db)

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM "field_mappings" WHERE entity_id`).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := repo.ReplaceMappings(context.Background(), entityID, mappings)

		require.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

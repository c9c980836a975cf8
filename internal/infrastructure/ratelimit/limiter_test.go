package ratelimit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/config"
)

func newMockLimiter(t *testing.T, now time.Time) (*Limiter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	limiter := New(gormDB, config.RateLimitConfig{
		SyncPerMinute: 1,
		SyncPerHour:   30,
		AIPerHour:     10,
	}, zap.NewNop())
	limiter.now = func() time.Time { return now }

	return limiter, mock, mockDB
}

func counterRows(windowStart time.Time, count, windowSeconds int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"tenant_id", "scope", "window_seconds", "window_start", "count", "updated_at",
	}).AddRow(uuid.New(), ScopeSync, windowSeconds, windowStart, count, windowStart)
}

func TestReserveSync(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tenantID := uuid.New()

	t.Run("admits when both windows have room", func(t *testing.T) {
		limiter, mock, mockDB := newMockLimiter(t, now)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now.Add(-30*time.Second), 0, 60))
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now.Add(-10*time.Minute), 5, 3600))
		mock.ExpectExec(`UPDATE "rate_counters" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "rate_counters" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := limiter.ReserveSync(context.Background(), tenantID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("denies when minute window is full", func(t *testing.T) {
		limiter, mock, mockDB := newMockLimiter(t, now)
		defer mockDB.Close()

		// A sync ran 20 seconds ago; the minute window still holds it.
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now.Add(-20*time.Second), 1, 60))
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now.Add(-10*time.Minute), 5, 3600))
		mock.ExpectRollback()

		err := limiter.ReserveSync(context.Background(), tenantID)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrRateLimited)

		var rateErr *shared.RateLimitedError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, 40, rateErr.RetryAfterSeconds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("denies with hourly wait when hour window is full", func(t *testing.T) {
		limiter, mock, mockDB := newMockLimiter(t, now)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now.Add(-90*time.Second), 1, 60))
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now.Add(-30*time.Minute), 30, 3600))
		mock.ExpectRollback()

		err := limiter.ReserveSync(context.Background(), tenantID)

		require.Error(t, err)
		var rateErr *shared.RateLimitedError
		require.ErrorAs(t, err, &rateErr)
		assert.Equal(t, 30*60, rateErr.RetryAfterSeconds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("resets an elapsed window before checking", func(t *testing.T) {
		limiter, mock, mockDB := newMockLimiter(t, now)
		defer mockDB.Close()

		// Both windows are stale; the counts no longer apply.
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now.Add(-2*time.Minute), 1, 60))
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now.Add(-2*time.Hour), 30, 3600))
		mock.ExpectExec(`UPDATE "rate_counters" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "rate_counters" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := limiter.ReserveSync(context.Background(), tenantID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates counter rows on first use", func(t *testing.T) {
		limiter, mock, mockDB := newMockLimiter(t, now)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnError(gorm.ErrRecordNotFound)
		mock.ExpectExec(`INSERT INTO "rate_counters"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now, 0, 60))
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnError(gorm.ErrRecordNotFound)
		mock.ExpectExec(`INSERT INTO "rate_counters"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now, 0, 3600))
		mock.ExpectExec(`UPDATE "rate_counters" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE "rate_counters" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := limiter.ReserveSync(context.Background(), tenantID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fails open when counter storage errors", func(t *testing.T) {
		limiter, mock, mockDB := newMockLimiter(t, now)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnError(assert.AnError)
		mock.ExpectRollback()

		err := limiter.ReserveSync(context.Background(), tenantID)

		assert.NoError(t, err, "storage failure must not block the tenant")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReserveAI(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tenantID := uuid.New()

	t.Run("admits below the hourly limit", func(t *testing.T) {
		limiter, mock, mockDB := newMockLimiter(t, now)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now.Add(-10*time.Minute), 9, 3600))
		mock.ExpectExec(`UPDATE "rate_counters" SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := limiter.ReserveAI(context.Background(), tenantID)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("denies at the hourly limit", func(t *testing.T) {
		limiter, mock, mockDB := newMockLimiter(t, now)
		defer mockDB.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM "rate_counters" .* FOR UPDATE`).
			WillReturnRows(counterRows(now.Add(-10*time.Minute), 10, 3600))
		mock.ExpectRollback()

		err := limiter.ReserveAI(context.Background(), tenantID)

		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrRateLimited)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

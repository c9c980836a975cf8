package sync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/shared"
)

func newTestJob(t *testing.T) *Job {
	t.Helper()
	job, err := NewJob(uuid.New(), uuid.New(), connector.EntityTypeOrders, DirectionBidirectional, nil)
	require.NoError(t, err)
	return job
}

func TestNewJob_Validation(t *testing.T) {
	t.Run("rejects unknown entity type", func(t *testing.T) {
		_, err := NewJob(uuid.New(), uuid.New(), connector.EntityType("ledgers"), DirectionImport, nil)
		require.Error(t, err)
	})

	t.Run("rejects unknown direction", func(t *testing.T) {
		_, err := NewJob(uuid.New(), uuid.New(), connector.EntityTypeOrders, Direction("sideways"), nil)
		require.Error(t, err)
	})

	t.Run("starts pending", func(t *testing.T) {
		job := newTestJob(t)
		assert.Equal(t, StatusPending, job.Status)
		assert.Zero(t, job.RetryCount)
	})
}

func TestJob_Lifecycle(t *testing.T) {
	now := time.Now()

	t.Run("pending to in_progress to completed", func(t *testing.T) {
		job := newTestJob(t)
		require.NoError(t, job.Start(now))
		assert.Equal(t, StatusInProgress, job.Status)

		job.AddCounts(10, 9, 1)
		job.AddCounts(5, 5, 0)
		require.NoError(t, job.Complete(now))

		assert.Equal(t, StatusCompleted, job.Status)
		assert.Equal(t, 15, job.Processed)
		assert.Equal(t, 14, job.Succeeded)
		assert.Equal(t, 1, job.Failed)
		assert.True(t, job.Status.IsTerminal())
	})

	t.Run("cannot complete without starting", func(t *testing.T) {
		job := newTestJob(t)
		assert.ErrorIs(t, job.Complete(now), shared.ErrInvalidState)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		job := newTestJob(t)
		require.NoError(t, job.Start(now))
		assert.ErrorIs(t, job.Start(now), shared.ErrInvalidState)
	})
}

func TestJob_ThreeStrikesDeadLetter(t *testing.T) {
	now := time.Now()
	job := newTestJob(t)

	// Attempts 1 and 2 land in retrying.
	for attempt := 1; attempt <= 2; attempt++ {
		require.NoError(t, job.Start(now))
		require.NoError(t, job.FailAttempt("upstream timeout", now))
		assert.Equal(t, StatusRetrying, job.Status, "attempt %d", attempt)
		assert.Equal(t, attempt, job.RetryCount)
	}

	// Attempt 3 dead-letters, retaining the last error.
	require.NoError(t, job.Start(now))
	require.NoError(t, job.FailAttempt("upstream timeout again", now))
	assert.Equal(t, StatusDeadLetter, job.Status)
	assert.Equal(t, MaxAttempts, job.RetryCount)
	assert.Equal(t, "upstream timeout again", job.ErrorMessage)
	assert.True(t, job.Status.IsTerminal())

	// Dead letter is terminal for automatic transitions.
	assert.ErrorIs(t, job.Start(now), shared.ErrInvalidState)
}

func TestJob_Requeue(t *testing.T) {
	now := time.Now()

	t.Run("requeue only from dead_letter", func(t *testing.T) {
		job := newTestJob(t)
		assert.ErrorIs(t, job.Requeue(now), shared.ErrInvalidState)

		for i := 0; i < MaxAttempts; i++ {
			require.NoError(t, job.Start(now))
			require.NoError(t, job.FailAttempt("boom", now))
		}
		require.Equal(t, StatusDeadLetter, job.Status)

		require.NoError(t, job.Requeue(now))
		assert.Equal(t, StatusPending, job.Status)
		assert.Zero(t, job.RetryCount)
		assert.Empty(t, job.ErrorMessage)
	})
}

func TestDirection_Phases(t *testing.T) {
	assert.True(t, DirectionImport.Imports())
	assert.False(t, DirectionImport.Exports())
	assert.True(t, DirectionExport.Exports())
	assert.False(t, DirectionExport.Imports())
	assert.True(t, DirectionBidirectional.Imports())
	assert.True(t, DirectionBidirectional.Exports())
}

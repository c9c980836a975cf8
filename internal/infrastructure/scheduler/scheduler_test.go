package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/infrastructure/config"
)

type fakeRetryRunner struct {
	calls     atomic.Int32
	lastLimit atomic.Int32
	err       error
}

func (f *fakeRetryRunner) RunRetryPass(ctx context.Context, limit int) (int, error) {
	f.calls.Add(1)
	f.lastLimit.Store(int32(limit))
	if f.err != nil {
		return 0, f.err
	}
	return 2, nil
}

type fakeRefresher struct {
	calls    atomic.Int32
	lastSkew atomic.Int64
}

func (f *fakeRefresher) RunRefreshPass(ctx context.Context, skew time.Duration) (int, error) {
	f.calls.Add(1)
	f.lastSkew.Store(int64(skew))
	return 1, nil
}

type fakeSweeper struct {
	sweeps atomic.Int32
}

func (f *fakeSweeper) Seen(ctx context.Context, tenantID uuid.UUID, key string) (bool, error) {
	return false, nil
}

func (f *fakeSweeper) Record(ctx context.Context, tenantID uuid.UUID, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

func (f *fakeSweeper) Release(ctx context.Context, tenantID uuid.UUID, key string) error {
	return nil
}

func (f *fakeSweeper) Sweep(ctx context.Context) (int64, error) {
	f.sweeps.Add(1)
	return 3, nil
}

func (f *fakeSweeper) Close() error { return nil }

func testConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:         true,
		Interval:        10 * time.Millisecond,
		SweepInterval:   10 * time.Millisecond,
		RefreshSkew:     5 * time.Minute,
		MaxJobsPerPass:  50,
		ShutdownTimeout: time.Second,
	}
}

func TestNewScheduler_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Interval = 0

	_, err := NewScheduler(cfg, &fakeRetryRunner{}, &fakeRefresher{}, &fakeSweeper{}, zap.NewNop())

	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScheduler_RunOnce(t *testing.T) {
	retry := &fakeRetryRunner{}
	refresher := &fakeRefresher{}
	s, err := NewScheduler(testConfig(), retry, refresher, &fakeSweeper{}, zap.NewNop())
	require.NoError(t, err)

	s.RunOnce(context.Background())

	assert.Equal(t, int32(1), retry.calls.Load())
	assert.Equal(t, int32(50), retry.lastLimit.Load())
	assert.Equal(t, int32(1), refresher.calls.Load())
	assert.Equal(t, int64(5*time.Minute), refresher.lastSkew.Load())
}

func TestScheduler_RunOnce_PassFailureDoesNotBlockNextPass(t *testing.T) {
	retry := &fakeRetryRunner{err: errors.New("database unavailable")}
	refresher := &fakeRefresher{}
	s, err := NewScheduler(testConfig(), retry, refresher, &fakeSweeper{}, zap.NewNop())
	require.NoError(t, err)

	s.RunOnce(context.Background())

	assert.Equal(t, int32(1), refresher.calls.Load(), "refresh pass must still run")
}

func TestScheduler_StartStop(t *testing.T) {
	retry := &fakeRetryRunner{}
	refresher := &fakeRefresher{}
	sweeper := &fakeSweeper{}
	s, err := NewScheduler(testConfig(), retry, refresher, sweeper, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return retry.calls.Load() >= 2 && sweeper.sweeps.Load() >= 2
	}, time.Second, 5*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))

	settled := retry.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, settled, retry.calls.Load(), "no passes after stop")
}

func TestScheduler_StartTwiceIsNoop(t *testing.T) {
	s, err := NewScheduler(testConfig(), &fakeRetryRunner{}, &fakeRefresher{}, &fakeSweeper{}, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))

	stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(stopCtx))
	require.NoError(t, s.Stop(stopCtx))
}

package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/config"
)

// RetryRunner drains jobs parked in the retrying state. The limit bounds how
// many jobs one pass may pick up so a backlog cannot monopolize the loop.
type RetryRunner interface {
	RunRetryPass(ctx context.Context, limit int) (int, error)
}

// TokenRefresher refreshes OAuth tokens that expire within the skew window
type TokenRefresher interface {
	RunRefreshPass(ctx context.Context, skew time.Duration) (int, error)
}

// Scheduler drives the background maintenance passes: job retries, token
// refreshes, and the idempotency ledger sweep. Each pass runs on its own
// ticker; a slow pass delays only its own cadence.
type Scheduler struct {
	config    config.SchedulerConfig
	retry     RetryRunner
	refresher TokenRefresher
	store     shared.IdempotencyStore
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a scheduler over the given pass runners
func NewScheduler(
	cfg config.SchedulerConfig,
	retry RetryRunner,
	refresher TokenRefresher,
	store shared.IdempotencyStore,
	logger *zap.Logger,
) (*Scheduler, error) {
	if cfg.Interval <= 0 || cfg.SweepInterval <= 0 || cfg.MaxJobsPerPass <= 0 {
		return nil, ErrInvalidConfig
	}

	return &Scheduler{
		config:    cfg,
		retry:     retry,
		refresher: refresher,
		store:     store,
		logger:    logger,
	}, nil
}

// Start launches the pass loops. Calling Start on a running scheduler is a
// no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.passLoop(ctx)
	go s.sweepLoop(ctx)

	s.logger.Info("Sync scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("sweep_interval", s.config.SweepInterval),
		zap.Int("max_jobs_per_pass", s.config.MaxJobsPerPass),
	)

	return nil
}

// Stop cancels the loops and waits for in-flight passes to finish. The
// caller's context bounds how long the wait may take.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// RunOnce executes one retry pass and one refresh pass immediately. The
// ticker loops use it too, so manual and scheduled passes behave the same.
func (s *Scheduler) RunOnce(ctx context.Context) {
	retried, err := s.retry.RunRetryPass(ctx, s.config.MaxJobsPerPass)
	if err != nil {
		s.logger.Error("Retry pass failed", zap.Error(err))
	} else if retried > 0 {
		s.logger.Info("Retry pass completed", zap.Int("jobs", retried))
	}

	refreshed, err := s.refresher.RunRefreshPass(ctx, s.config.RefreshSkew)
	if err != nil {
		s.logger.Error("Token refresh pass failed", zap.Error(err))
	} else if refreshed > 0 {
		s.logger.Info("Token refresh pass completed", zap.Int("tokens", refreshed))
	}
}

func (s *Scheduler) passLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			swept, err := s.store.Sweep(ctx)
			if err != nil {
				s.logger.Error("Idempotency sweep failed", zap.Error(err))
				continue
			}
			if swept > 0 {
				s.logger.Info("Idempotency sweep completed", zap.Int64("removed", swept))
			}
		}
	}
}

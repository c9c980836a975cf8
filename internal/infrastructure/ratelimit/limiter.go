// Package ratelimit enforces per-tenant admission limits with database row
// locks. Counters are fixed windows: the first reservation after a window
// elapses resets the count and restarts the window at that moment.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/config"
	"github.com/erpsync/backend/internal/infrastructure/persistence/models"
)

// Counter scopes. Each scope carries its own windows.
const (
	ScopeSync = "sync"
	ScopeAI   = "ai"
)

type window struct {
	length time.Duration
	limit  int
}

// Limiter reserves per-tenant quota before the guarded work runs. The slot
// is consumed even when the work later fails; that is deliberate, a tenant
// hammering a broken integration burns its own budget.
//
// Limiter fails open: if the counter storage itself errors, the reservation
// is granted and the error logged. Availability of sync wins over strict
// enforcement when the control plane's own database is unhealthy.
type Limiter struct {
	db          *gorm.DB
	log         *zap.Logger
	syncWindows []window
	aiWindows   []window
	now         func() time.Time
}

// New creates a limiter from configured limits
func New(db *gorm.DB, cfg config.RateLimitConfig, log *zap.Logger) *Limiter {
	return &Limiter{
		db:  db,
		log: log,
		syncWindows: []window{
			{length: time.Minute, limit: cfg.SyncPerMinute},
			{length: time.Hour, limit: cfg.SyncPerHour},
		},
		aiWindows: []window{
			{length: time.Hour, limit: cfg.AIPerHour},
		},
		now: time.Now,
	}
}

// ReserveSync consumes one sync slot for the tenant. Both the per-minute
// and per-hour windows must have room; if either is exhausted the
// reservation fails with a RateLimitedError carrying the longest wait.
func (l *Limiter) ReserveSync(ctx context.Context, tenantID uuid.UUID) error {
	return l.reserve(ctx, tenantID, ScopeSync, l.syncWindows)
}

// ReserveAI consumes one AI-assistance slot for the tenant
func (l *Limiter) ReserveAI(ctx context.Context, tenantID uuid.UUID) error {
	return l.reserve(ctx, tenantID, ScopeAI, l.aiWindows)
}

func (l *Limiter) reserve(ctx context.Context, tenantID uuid.UUID, scope string, windows []window) error {
	now := l.now()

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		retryAfter := 0
		counters := make([]*models.RateCounter, 0, len(windows))

		// Check every window before incrementing any, so a denial leaves
		// all counters untouched.
		for _, w := range windows {
			c, err := l.lockCounter(tx, tenantID, scope, w, now)
			if err != nil {
				return err
			}
			if now.Sub(c.WindowStart) >= w.length {
				c.WindowStart = now
				c.Count = 0
			}
			if c.Count >= w.limit {
				wait := int(math.Ceil(c.WindowStart.Add(w.length).Sub(now).Seconds()))
				if wait < 1 {
					wait = 1
				}
				if wait > retryAfter {
					retryAfter = wait
				}
			}
			counters = append(counters, c)
		}

		if retryAfter > 0 {
			return shared.NewRateLimitedError(retryAfter)
		}

		for _, c := range counters {
			c.Count++
			c.UpdatedAt = now
			if err := tx.Save(c).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrRateLimited) {
		return err
	}

	l.log.Warn("rate counter storage unavailable, admitting request",
		zap.String("tenant_id", tenantID.String()),
		zap.String("scope", scope),
		zap.Error(err),
	)
	return nil
}

// lockCounter fetches the counter row FOR UPDATE, creating it on first use
func (l *Limiter) lockCounter(tx *gorm.DB, tenantID uuid.UUID, scope string, w window, now time.Time) (*models.RateCounter, error) {
	seconds := int(w.length.Seconds())

	var c models.RateCounter
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND scope = ? AND window_seconds = ?", tenantID, scope, seconds).
		First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c = models.RateCounter{
		TenantID:      tenantID,
		Scope:         scope,
		WindowSeconds: seconds,
		WindowStart:   now,
		Count:         0,
		UpdatedAt:     now,
	}
	// Another transaction may create the row between our miss and this
	// insert; DO NOTHING plus re-select keeps both paths on the locked row.
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&c).Error; err != nil {
		return nil, err
	}
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND scope = ? AND window_seconds = ?", tenantID, scope, seconds).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

package connector

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/shared"
)

// RateReserver reserves a slot in a tenant's rate windows before the guarded
// operation runs
type RateReserver interface {
	ReserveSync(ctx context.Context, tenantID uuid.UUID) error
	ReserveAI(ctx context.Context, tenantID uuid.UUID) error
}

// AdmissionControl gates tenant requests on rate limits and idempotency
// before any job or external call is made. Rate denials are audited; storage
// failures in either check fail open so the control plane degrades to
// unlimited rather than unavailable.
type AdmissionControl struct {
	limiter RateReserver
	store   shared.IdempotencyStore
	keyTTL  time.Duration
	audit   *AuditService
	logger  *zap.Logger
}

// NewAdmissionControl creates the admission gate. keyTTL is how long a
// recorded idempotency key suppresses duplicates; zero falls back to the
// default retention window.
func NewAdmissionControl(limiter RateReserver, store shared.IdempotencyStore, keyTTL time.Duration, audit *AuditService, logger *zap.Logger) *AdmissionControl {
	if keyTTL <= 0 {
		keyTTL = shared.IdempotencyTTL
	}
	return &AdmissionControl{
		limiter: limiter,
		store:   store,
		keyTTL:  keyTTL,
		audit:   audit,
		logger:  logger,
	}
}

// AdmitSync reserves a sync slot. A RateLimitedError carries the seconds
// until the nearest window frees up.
func (a *AdmissionControl) AdmitSync(ctx context.Context, tenantID uuid.UUID) error {
	err := a.limiter.ReserveSync(ctx, tenantID)
	if err != nil {
		a.auditDenial(tenantID, "sync", err)
	}
	return err
}

// AdmitAI reserves an AI-mapping slot before the external model call
func (a *AdmissionControl) AdmitAI(ctx context.Context, tenantID uuid.UUID) error {
	err := a.limiter.ReserveAI(ctx, tenantID)
	if err != nil {
		a.auditDenial(tenantID, "ai", err)
	}
	return err
}

// ClaimKey atomically claims the idempotency key before the guarded
// operation runs. Returns false when another request, completed or still in
// flight, already holds the key. A store failure is logged and the claim
// granted, so a degraded store admits duplicates rather than blocking
// everything.
func (a *AdmissionControl) ClaimKey(ctx context.Context, tenantID uuid.UUID, key string) bool {
	fresh, err := a.store.Record(ctx, tenantID, key, a.keyTTL)
	if err != nil {
		a.logger.Warn("Idempotency claim failed, admitting request",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
		return true
	}
	return fresh
}

// ReleaseKey frees a claimed key after the guarded operation did not fully
// succeed, so an identical request may run again. Only keys of successful
// operations stay in the ledger.
func (a *AdmissionControl) ReleaseKey(ctx context.Context, tenantID uuid.UUID, key string) {
	if err := a.store.Release(ctx, tenantID, key); err != nil {
		a.logger.Warn("Failed to release idempotency key",
			zap.String("tenant_id", tenantID.String()),
			zap.Error(err),
		)
	}
}

func (a *AdmissionControl) auditDenial(tenantID uuid.UUID, scope string, err error) {
	var rateErr *shared.RateLimitedError
	if !errors.As(err, &rateErr) {
		return
	}
	a.audit.Record(tenantID, nil, connector.ActionRateLimited, map[string]string{
		"scope":       scope,
		"retry_after": strconv.Itoa(rateErr.RetryAfterSeconds),
	})
}

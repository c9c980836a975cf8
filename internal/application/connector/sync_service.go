package connector

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/identity"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/domain/sync"
	"github.com/erpsync/backend/internal/infrastructure/telemetry"
	"github.com/erpsync/backend/internal/infrastructure/vault"
)

// importLookback is how far back the first sync of an integration reaches
// when no previous sync timestamp exists.
const importLookback = 24 * time.Hour

// SyncService runs sync jobs end to end: admission, token freshness, the
// adapter pull/push phases, and the job state machine with an audit record
// at every transition.
type SyncService struct {
	integrations connector.IntegrationRepository
	entities     connector.EntityRepository
	jobs         sync.JobRepository
	registry     connector.Registry
	builder      *connectionBuilder
	tokens       *TokenService
	admission    *AdmissionControl
	source       RecordSource
	audit        *AuditService
	logger       *zap.Logger
	now          func() time.Time
}

// NewSyncService creates the sync engine. source may be nil; export runs
// then push nothing and succeed.
func NewSyncService(
	integrations connector.IntegrationRepository,
	entities connector.EntityRepository,
	jobs sync.JobRepository,
	registry connector.Registry,
	v *vault.Vault,
	tokens *TokenService,
	admission *AdmissionControl,
	source RecordSource,
	audit *AuditService,
	logger *zap.Logger,
) *SyncService {
	return &SyncService{
		integrations: integrations,
		entities:     entities,
		jobs:         jobs,
		registry:     registry,
		builder:      &connectionBuilder{vault: v},
		tokens:       tokens,
		admission:    admission,
		source:       source,
		audit:        audit,
		logger:       logger,
		now:          time.Now,
	}
}

// TriggerSync runs one sync for an integration entity. A repeated
// idempotency key short-circuits before any rate slot is consumed; the key
// is claimed atomically up front so a concurrent duplicate deduplicates
// against the in-flight run, and the claim is released unless the run fully
// completed. A rate denial surfaces as RateLimitedError with the retry delay.
func (s *SyncService) TriggerSync(ctx context.Context, principal identity.Principal, input TriggerSyncInput) (*JobResult, error) {
	integration, err := s.loadOwnedIntegration(ctx, principal, input.IntegrationID)
	if err != nil {
		return nil, err
	}

	if !integration.IsActive {
		return nil, shared.NewDomainError("INVALID_STATE", "Integration is disabled")
	}

	if input.IdempotencyKey != "" {
		if !s.admission.ClaimKey(ctx, integration.TenantID, input.IdempotencyKey) {
			s.logger.Info("Sync trigger deduplicated",
				zap.String("tenant_id", integration.TenantID.String()),
				zap.String("integration_id", integration.ID.String()),
			)
			return &JobResult{
				IntegrationID: integration.ID,
				EntityType:    input.EntityType.String(),
				Direction:     string(input.Direction),
				Status:        string(sync.StatusCompleted),
				Deduplicated:  true,
			}, nil
		}
	}

	result, err := s.runAdmitted(ctx, principal, integration, input)
	if input.IdempotencyKey != "" && (err != nil || result.Status != string(sync.StatusCompleted)) {
		s.admission.ReleaseKey(ctx, integration.TenantID, input.IdempotencyKey)
	}
	return result, err
}

// runAdmitted is the portion of TriggerSync that runs while the caller holds
// the idempotency claim.
func (s *SyncService) runAdmitted(ctx context.Context, principal identity.Principal, integration *connector.Integration, input TriggerSyncInput) (*JobResult, error) {
	entity, err := s.entities.FindEntity(ctx, integration.ID, input.EntityType)
	if err != nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Entity type is not configured for this integration")
	}
	if !entity.IsEnabled {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Entity type is disabled for this integration")
	}

	if err := s.admission.AdmitSync(ctx, integration.TenantID); err != nil {
		return nil, err
	}

	job, err := sync.NewJob(integration.TenantID, integration.ID, input.EntityType, input.Direction, principal.UserID)
	if err != nil {
		return nil, err
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		s.logger.Error("Failed to create sync job", zap.Error(err))
		return nil, shared.ErrInternal
	}

	s.runAttempt(ctx, integration, job)

	return toJobResult(job), nil
}

// RunRetryPass re-runs jobs parked in the retrying state. Used by the
// scheduler under the system identity.
func (s *SyncService) RunRetryPass(ctx context.Context, limit int) (int, error) {
	jobs, err := s.jobs.FindRetrying(ctx, limit)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, job := range jobs {
		integration, err := s.integrations.FindByID(ctx, job.IntegrationID)
		if err != nil {
			s.logger.Warn("Retrying job references missing integration",
				zap.String("job_id", job.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !integration.IsActive {
			continue
		}

		s.runAttempt(ctx, integration, job)
		ran++
	}
	return ran, nil
}

// RequeueJob resets a dead-lettered job to pending and runs it again. This
// is the manual intervention path; jobs in any other state are rejected.
// The re-run is a sync execution like any other, so it consumes a sync rate
// slot before the job state is touched.
func (s *SyncService) RequeueJob(ctx context.Context, principal identity.Principal, jobID uuid.UUID) (*JobResult, error) {
	job, err := s.loadOwnedJob(ctx, principal, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != sync.StatusDeadLetter {
		return nil, shared.NewDomainError("INVALID_STATE", "Only dead-lettered jobs can be requeued")
	}

	if err := s.admission.AdmitSync(ctx, job.TenantID); err != nil {
		return nil, err
	}

	if err := job.Requeue(s.now()); err != nil {
		return nil, shared.NewDomainError("INVALID_STATE", "Only dead-lettered jobs can be requeued")
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		s.logger.Error("Failed to requeue job", zap.Error(err))
		return nil, shared.ErrInternal
	}

	s.audit.Record(job.TenantID, principal.UserID, connector.ActionSyncRequeued, map[string]string{
		"job_id": job.ID.String(),
	})

	integration, err := s.integrations.FindByID(ctx, job.IntegrationID)
	if err != nil {
		return nil, shared.ErrNotFound
	}
	s.runAttempt(ctx, integration, job)

	return toJobResult(job), nil
}

// ListJobs returns the caller's tenant jobs, newest first
func (s *SyncService) ListJobs(ctx context.Context, principal identity.Principal, limit, offset int) ([]*JobResult, int64, error) {
	jobs, total, err := s.jobs.FindForTenant(ctx, principal.TenantID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list sync jobs", zap.Error(err))
		return nil, 0, shared.ErrInternal
	}

	results := make([]*JobResult, 0, len(jobs))
	for _, job := range jobs {
		results = append(results, toJobResult(job))
	}
	return results, total, nil
}

// GetJob returns one job owned by the caller's tenant
func (s *SyncService) GetJob(ctx context.Context, principal identity.Principal, jobID uuid.UUID) (*JobResult, error) {
	job, err := s.loadOwnedJob(ctx, principal, jobID)
	if err != nil {
		return nil, err
	}
	return toJobResult(job), nil
}

// runAttempt executes one attempt of a job through the state machine. All
// persistence and audit of the transition happen here; the caller reads the
// outcome off the job.
func (s *SyncService) runAttempt(ctx context.Context, integration *connector.Integration, job *sync.Job) {
	ctx, span := telemetry.StartServiceSpan(ctx, "sync", "attempt",
		telemetry.WithAttribute("integration_id", integration.ID.String()),
		telemetry.WithAttribute("entity_type", job.EntityType.String()),
		telemetry.WithAttribute("direction", string(job.Direction)),
	)
	defer span.End()

	if err := job.Start(s.now()); err != nil {
		s.logger.Error("Job not startable",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)),
		)
		return
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		s.logger.Error("Failed to persist job start", zap.Error(err))
	}
	s.audit.Record(job.TenantID, job.TriggeredBy, connector.ActionSyncStarted, map[string]string{
		"job_id":         job.ID.String(),
		"integration_id": integration.ID.String(),
		"entity_type":    job.EntityType.String(),
		"direction":      string(job.Direction),
	})

	execErr := s.execute(ctx, integration, job)
	at := s.now()

	if execErr != nil {
		telemetry.RecordError(span, execErr)
		if err := job.FailAttempt(execErr.Error(), at); err != nil {
			s.logger.Error("Failed to fail job attempt", zap.Error(err))
			return
		}
		if err := s.jobs.Save(ctx, job); err != nil {
			s.logger.Error("Failed to persist job failure", zap.Error(err))
		}

		action := connector.ActionSyncRetrying
		if job.Status == sync.StatusDeadLetter {
			action = connector.ActionSyncDeadLetter
		}
		s.audit.Record(job.TenantID, job.TriggeredBy, action, map[string]string{
			"job_id":      job.ID.String(),
			"retry_count": strconv.Itoa(job.RetryCount),
			"error":       job.ErrorMessage,
		})
		return
	}

	if err := job.Complete(at); err != nil {
		s.logger.Error("Failed to complete job", zap.Error(err))
		return
	}
	if err := s.jobs.Save(ctx, job); err != nil {
		s.logger.Error("Failed to persist job completion", zap.Error(err))
	}

	integration.MarkSynced(at)
	if err := s.integrations.Save(ctx, integration); err != nil {
		s.logger.Error("Failed to update last sync time", zap.Error(err))
	}

	s.audit.Record(job.TenantID, job.TriggeredBy, connector.ActionSyncCompleted, map[string]string{
		"job_id":    job.ID.String(),
		"processed": strconv.Itoa(job.Processed),
		"succeeded": strconv.Itoa(job.Succeeded),
		"failed":    strconv.Itoa(job.Failed),
	})
}

// execute runs the import and export phases. Counters accumulate on the job
// across phases; the first phase error aborts the attempt. Returned error
// text is taxonomy-level, safe to store on the job and echo outward.
func (s *SyncService) execute(ctx context.Context, integration *connector.Integration, job *sync.Job) error {
	if err := s.tokens.EnsureFresh(ctx, integration); err != nil {
		return err
	}

	adapter, err := s.registry.Adapter(integration.System)
	if err != nil {
		return shared.NewDomainError("VALIDATION_ERROR", "Unsupported ERP system")
	}

	// Tokens may have rotated during EnsureFresh; assemble afterwards.
	conn, err := s.builder.build(integration)
	if err != nil {
		s.logger.Error("Failed to assemble connection",
			zap.String("integration_id", integration.ID.String()),
			zap.Error(err),
		)
		return shared.ErrInternal
	}

	since := s.now().Add(-importLookback)
	if integration.LastSyncAt != nil {
		since = *integration.LastSyncAt
	}

	if job.Direction.Imports() {
		records, err := adapter.PullRecords(ctx, conn, job.EntityType, since)
		if err != nil {
			return s.adapterError(integration, "import", err)
		}
		job.AddCounts(len(records), len(records), 0)
	}

	if job.Direction.Exports() {
		records, err := s.exportRecords(ctx, integration, job.EntityType, since)
		if err != nil {
			return shared.ErrInternal
		}
		if len(records) > 0 {
			accepted, err := adapter.PushRecords(ctx, conn, job.EntityType, records)
			job.AddCounts(len(records), accepted, len(records)-accepted)
			if err != nil {
				return s.adapterError(integration, "export", err)
			}
		}
	}

	return nil
}

func (s *SyncService) exportRecords(ctx context.Context, integration *connector.Integration, entity connector.EntityType, since time.Time) ([]connector.Record, error) {
	if s.source == nil {
		return nil, nil
	}
	records, err := s.source.RecordsForExport(ctx, integration.TenantID, entity, since)
	if err != nil {
		s.logger.Error("Record source failed",
			zap.String("integration_id", integration.ID.String()),
			zap.Error(err),
		)
		return nil, err
	}
	return records, nil
}

// adapterError logs the raw upstream failure and returns the sanitized
// taxonomy error for the job record.
func (s *SyncService) adapterError(integration *connector.Integration, phase string, err error) error {
	s.logger.Warn("Adapter call failed",
		zap.String("integration_id", integration.ID.String()),
		zap.String("system", integration.System.String()),
		zap.String("phase", phase),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, connector.ErrProbeTimeout):
		return shared.ErrUpstreamTimeout
	default:
		return shared.ErrUpstreamRejected
	}
}

func (s *SyncService) loadOwnedIntegration(ctx context.Context, principal identity.Principal, id uuid.UUID) (*connector.Integration, error) {
	integration, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		return nil, shared.ErrNotFound
	}
	if !principal.ActsFor(integration.TenantID) {
		s.audit.Record(principal.TenantID, principal.UserID, connector.ActionAccessDenied, map[string]string{
			"integration_id": id.String(),
		})
		return nil, shared.ErrForbidden
	}
	return integration, nil
}

func (s *SyncService) loadOwnedJob(ctx context.Context, principal identity.Principal, id uuid.UUID) (*sync.Job, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		return nil, shared.ErrNotFound
	}
	if !principal.ActsFor(job.TenantID) {
		s.audit.Record(principal.TenantID, principal.UserID, connector.ActionAccessDenied, map[string]string{
			"job_id": id.String(),
		})
		return nil, shared.ErrForbidden
	}
	return job, nil
}

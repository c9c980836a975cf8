package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Direction / Status
// ---------------------------------------------------------------------------

// Direction is which way records flow for a sync run
type Direction string

const (
	DirectionImport        Direction = "import"
	DirectionExport        Direction = "export"
	DirectionBidirectional Direction = "bidirectional"
)

// IsValid returns true if the direction is a known value
func (d Direction) IsValid() bool {
	switch d {
	case DirectionImport, DirectionExport, DirectionBidirectional:
		return true
	default:
		return false
	}
}

// Imports reports whether the direction includes an import phase
func (d Direction) Imports() bool {
	return d == DirectionImport || d == DirectionBidirectional
}

// Exports reports whether the direction includes an export phase
func (d Direction) Exports() bool {
	return d == DirectionExport || d == DirectionBidirectional
}

// Status is a sync job state. Transitions are typed; dead_letter is only
// reachable after MaxAttempts failed attempts.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRetrying   Status = "retrying"
	StatusDeadLetter Status = "dead_letter"
)

// IsTerminal reports whether no further automatic transition applies
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusDeadLetter
}

// MaxAttempts is the retry budget before a job dead-letters
const MaxAttempts = 3

// ---------------------------------------------------------------------------
// Job
// ---------------------------------------------------------------------------

// Job is one sync run of an entity type for an integration. Jobs are created
// at sync start and never deleted; dead-lettered jobs require manual
// intervention.
type Job struct {
	shared.TenantEntity
	IntegrationID uuid.UUID
	EntityType    connector.EntityType
	Direction     Direction
	Status        Status
	TriggeredBy   *uuid.UUID // nil for scheduler runs

	Processed int
	Succeeded int
	Failed    int

	RetryCount   int
	ErrorMessage string
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

// NewJob creates a pending job
func NewJob(tenantID, integrationID uuid.UUID, entityType connector.EntityType, direction Direction, triggeredBy *uuid.UUID) (*Job, error) {
	if !entityType.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unknown entity type")
	}
	if !direction.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Unknown sync direction")
	}
	return &Job{
		TenantEntity:  shared.NewTenantEntity(tenantID),
		IntegrationID: integrationID,
		EntityType:    entityType,
		Direction:     direction,
		Status:        StatusPending,
		TriggeredBy:   triggeredBy,
	}, nil
}

// Start transitions pending/retrying → in_progress
func (j *Job) Start(at time.Time) error {
	if j.Status != StatusPending && j.Status != StatusRetrying {
		return shared.ErrInvalidState
	}
	j.Status = StatusInProgress
	j.StartedAt = &at
	j.UpdatedAt = at
	return nil
}

// AddCounts accumulates phase results across import and export
func (j *Job) AddCounts(processed, succeeded, failed int) {
	j.Processed += processed
	j.Succeeded += succeeded
	j.Failed += failed
}

// Complete transitions in_progress → completed
func (j *Job) Complete(at time.Time) error {
	if j.Status != StatusInProgress {
		return shared.ErrInvalidState
	}
	j.Status = StatusCompleted
	j.FinishedAt = &at
	j.ErrorMessage = ""
	j.UpdatedAt = at
	return nil
}

// FailAttempt records a failed attempt, transitioning in_progress →
// retrying while attempts remain and → dead_letter on the last strike. The
// last error is retained either way.
func (j *Job) FailAttempt(errMsg string, at time.Time) error {
	if j.Status != StatusInProgress {
		return shared.ErrInvalidState
	}
	j.RetryCount++
	j.ErrorMessage = errMsg
	j.FinishedAt = &at
	j.UpdatedAt = at
	if j.RetryCount >= MaxAttempts {
		j.Status = StatusDeadLetter
	} else {
		j.Status = StatusRetrying
	}
	return nil
}

// Requeue resets a dead-lettered job for a fresh run. This is the manual
// intervention path; any other state is rejected.
func (j *Job) Requeue(at time.Time) error {
	if j.Status != StatusDeadLetter {
		return shared.ErrInvalidState
	}
	j.Status = StatusPending
	j.RetryCount = 0
	j.ErrorMessage = ""
	j.StartedAt = nil
	j.FinishedAt = nil
	j.UpdatedAt = at
	return nil
}

// ---------------------------------------------------------------------------
// Repository
// ---------------------------------------------------------------------------

// JobRepository persists sync jobs
type JobRepository interface {
	Save(ctx context.Context, job *Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)
	FindForTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Job, int64, error)
	// FindRetrying lists jobs eligible for the scheduled retry pass
	FindRetrying(ctx context.Context, limit int) ([]*Job, error)
}

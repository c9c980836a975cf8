package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/sync"
)

// SyncJobModel is the persistence model for the sync Job entity. Jobs are
// append-only; terminal rows stay for inspection and dead-letter requeue.
type SyncJobModel struct {
	ID            uuid.UUID            `gorm:"type:uuid;primary_key"`
	TenantID      uuid.UUID            `gorm:"type:uuid;not null;index:idx_sync_jobs_tenant_created,priority:1"`
	IntegrationID uuid.UUID            `gorm:"type:uuid;not null;index"`
	EntityType    connector.EntityType `gorm:"type:varchar(20);not null"`
	Direction     sync.Direction       `gorm:"type:varchar(20);not null"`
	Status        sync.Status          `gorm:"type:varchar(20);not null;index"`
	TriggeredBy   *uuid.UUID           `gorm:"type:uuid"`

	Processed int `gorm:"not null;default:0"`
	Succeeded int `gorm:"not null;default:0"`
	Failed    int `gorm:"not null;default:0"`

	RetryCount   int    `gorm:"not null;default:0"`
	ErrorMessage string `gorm:"type:text"`
	StartedAt    *time.Time
	FinishedAt   *time.Time
	CreatedAt    time.Time `gorm:"not null;index:idx_sync_jobs_tenant_created,priority:2,sort:desc"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain Job
func (m *SyncJobModel) ToDomain() *sync.Job {
	j := &sync.Job{
		IntegrationID: m.IntegrationID,
		EntityType:    m.EntityType,
		Direction:     m.Direction,
		Status:        m.Status,
		TriggeredBy:   m.TriggeredBy,
		Processed:     m.Processed,
		Succeeded:     m.Succeeded,
		Failed:        m.Failed,
		RetryCount:    m.RetryCount,
		ErrorMessage:  m.ErrorMessage,
		StartedAt:     m.StartedAt,
		FinishedAt:    m.FinishedAt,
	}
	j.ID = m.ID
	j.TenantID = m.TenantID
	j.CreatedAt = m.CreatedAt
	j.UpdatedAt = m.UpdatedAt
	return j
}

// FromDomain populates the persistence model from a domain Job
func (m *SyncJobModel) FromDomain(j *sync.Job) {
	m.ID = j.ID
	m.TenantID = j.TenantID
	m.IntegrationID = j.IntegrationID
	m.EntityType = j.EntityType
	m.Direction = j.Direction
	m.Status = j.Status
	m.TriggeredBy = j.TriggeredBy
	m.Processed = j.Processed
	m.Succeeded = j.Succeeded
	m.Failed = j.Failed
	m.RetryCount = j.RetryCount
	m.ErrorMessage = j.ErrorMessage
	m.StartedAt = j.StartedAt
	m.FinishedAt = j.FinishedAt
	m.CreatedAt = j.CreatedAt
	m.UpdatedAt = j.UpdatedAt
}

// SyncJobModelFromDomain creates a persistence model from a domain Job
func SyncJobModelFromDomain(j *sync.Job) *SyncJobModel {
	m := &SyncJobModel{}
	m.FromDomain(j)
	return m
}

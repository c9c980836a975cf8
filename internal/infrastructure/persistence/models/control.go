package models

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyKey records a processed request key for one tenant. The
// composite primary key doubles as the uniqueness guarantee; concurrent
// inserts of the same key collide at the database level.
type IdempotencyKey struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primary_key"`
	Key       string    `gorm:"type:varchar(255);primary_key"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (IdempotencyKey) TableName() string {
	return "idempotency_keys"
}

// RateCounter is one fixed-window usage counter. A tenant holds one row per
// (scope, window_seconds) pair; reservations lock the row FOR UPDATE so the
// read-check-increment is atomic under concurrency.
type RateCounter struct {
	TenantID      uuid.UUID `gorm:"type:uuid;primary_key"`
	Scope         string    `gorm:"type:varchar(20);primary_key"`
	WindowSeconds int       `gorm:"primary_key"`
	WindowStart   time.Time `gorm:"not null"`
	Count         int       `gorm:"not null;default:0"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RateCounter) TableName() string {
	return "rate_counters"
}

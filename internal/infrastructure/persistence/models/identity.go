package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/erpsync/backend/internal/domain/identity"
)

// UserModel is the persistence model for the User domain entity
type UserModel struct {
	ID           uuid.UUID           `gorm:"type:uuid;primary_key"`
	TenantID     uuid.UUID           `gorm:"type:uuid;not null;index"`
	Email        string              `gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string              `gorm:"type:varchar(255);not null"`
	DisplayName  string              `gorm:"type:varchar(100)"`
	Role         identity.Role       `gorm:"type:varchar(20);not null;default:'member'"`
	Status       identity.UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	u := &identity.User{
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		DisplayName:  m.DisplayName,
		Role:         m.Role,
		Status:       m.Status,
		LastLoginAt:  m.LastLoginAt,
	}
	u.ID = m.ID
	u.TenantID = m.TenantID
	u.CreatedAt = m.CreatedAt
	u.UpdatedAt = m.UpdatedAt
	return u
}

// FromDomain populates the persistence model from a domain User
func (m *UserModel) FromDomain(u *identity.User) {
	m.ID = u.ID
	m.TenantID = u.TenantID
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.DisplayName = u.DisplayName
	m.Role = u.Role
	m.Status = u.Status
	m.LastLoginAt = u.LastLoginAt
	m.CreatedAt = u.CreatedAt
	m.UpdatedAt = u.UpdatedAt
}

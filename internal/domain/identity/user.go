package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/erpsync/backend/internal/domain/shared"
)

// Role is the access level a user holds within their tenant. Sync control
// endpoints require an elevated role.
type Role string

const (
	RoleMember      Role = "member"
	RoleTenantAdmin Role = "tenant_admin"
	RoleSuperAdmin  Role = "super_admin"
)

// IsElevated reports whether the role may manage integrations and trigger
// sync operations.
func (r Role) IsElevated() bool {
	return r == RoleTenantAdmin || r == RoleSuperAdmin
}

// IsValid reports whether the role is a known value
func (r Role) IsValid() bool {
	switch r {
	case RoleMember, RoleTenantAdmin, RoleSuperAdmin:
		return true
	default:
		return false
	}
}

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive      UserStatus = "active"
	UserStatusDeactivated UserStatus = "deactivated"
)

const bcryptCost = 12

// User is a tenant-scoped account. The tenant a caller acts on behalf of is
// always resolved from this stored profile, never from request input.
type User struct {
	shared.TenantEntity
	Email        string
	PasswordHash string
	DisplayName  string
	Role         Role
	Status       UserStatus
	LastLoginAt  *time.Time
}

// NewUser creates an active user with a hashed password
func NewUser(tenantID uuid.UUID, email, password string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid email address")
	}
	if len(password) < 8 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Password must be at least 8 characters")
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Invalid role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}

	return &User{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       UserStatusActive,
	}, nil
}

// CheckPassword verifies a candidate password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// IsActive reports whether the user may authenticate
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// RecordLogin updates the last login timestamp
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.UpdatedAt = at
}

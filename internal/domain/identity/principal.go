package identity

import (
	"context"

	"github.com/google/uuid"
)

// Principal is the verified identity attached to a request after the auth
// gate has run. For scheduler-driven calls IsSystem is true and UserID is
// nil.
type Principal struct {
	UserID   *uuid.UUID
	TenantID uuid.UUID
	Role     Role
	IsSystem bool
}

// System returns the sentinel principal used by trusted non-human callers.
// It carries no tenant; tenant checks are bypassed for it explicitly at each
// guard, never implicitly.
func System() Principal {
	return Principal{IsSystem: true}
}

// ActsFor reports whether the principal may operate on resources owned by
// the given tenant.
func (p Principal) ActsFor(tenantID uuid.UUID) bool {
	if p.IsSystem {
		return true
	}
	return p.TenantID == tenantID
}

// UserRepository loads stored user profiles
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

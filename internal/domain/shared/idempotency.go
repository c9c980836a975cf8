package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// IdempotencyTTL is how long an observed key short-circuits identical
// requests. After expiry the same key may execute again.
const IdempotencyTTL = 24 * time.Hour

// IdempotencyStore is the ledger of request keys. Keys are always composite
// (tenant, key); a key recorded for one tenant never affects another.
//
// Callers claim a key with Record before running the guarded operation and
// Release it if the operation does not fully succeed, so the ledger only
// retains keys of successful operations while still blocking concurrent
// duplicates of an in-flight request.
type IdempotencyStore interface {
	// Seen reports whether the key has been recorded for the tenant and has
	// not yet expired.
	Seen(ctx context.Context, tenantID uuid.UUID, key string) (bool, error)

	// Record atomically claims the key for the tenant. Returns false if a
	// live entry already exists, whether from a completed operation or one
	// still in flight.
	Record(ctx context.Context, tenantID uuid.UUID, key string, ttl time.Duration) (bool, error)

	// Release removes the tenant's entry for the key so a later identical
	// request may execute. Releasing a missing key is not an error.
	Release(ctx context.Context, tenantID uuid.UUID, key string) error

	// Sweep removes expired keys and returns how many were deleted.
	Sweep(ctx context.Context) (int64, error)

	// Close releases store resources.
	Close() error
}

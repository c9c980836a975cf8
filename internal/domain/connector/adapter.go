package connector

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Adapter Errors
// ---------------------------------------------------------------------------

var (
	ErrAdapterNotRegistered  = errors.New("connector: no adapter registered for system")
	ErrRefreshNotSupported   = errors.New("connector: system uses session auth, token refresh not supported")
	ErrProbeTimeout          = errors.New("connector: connection test timed out")
	ErrProbeRejected         = errors.New("connector: connection test rejected by upstream")
	ErrInvalidCredentials    = errors.New("connector: credentials are incomplete")
	ErrTokenRefreshRejected  = errors.New("connector: token refresh rejected by upstream")
	ErrUnsupportedEntityType = errors.New("connector: entity type not supported by adapter")
)

// ProbeTimeout is the hard cancellation bound on every outbound adapter
// call. Anything slower is aborted and treated as transient.
const ProbeTimeout = 15 * time.Second

// ---------------------------------------------------------------------------
// Connection
// ---------------------------------------------------------------------------

// AuthMethod is the authentication scheme for custom REST connections
type AuthMethod string

const (
	AuthMethodBearer AuthMethod = "bearer"
	AuthMethodBasic  AuthMethod = "basic"
	AuthMethodAPIKey AuthMethod = "api_key"
)

// Credentials holds decrypted connection secrets. Values are transient: they
// exist only for the duration of one external call and are never persisted.
type Credentials struct {
	Username   string     `json:"username,omitempty"`
	Password   string     `json:"password,omitempty"`
	APIKey     string     `json:"api_key,omitempty"`
	Database   string     `json:"database,omitempty"`   // Odoo
	CompanyDB  string     `json:"company_db,omitempty"` // SAP B1
	RealmID    string     `json:"realm_id,omitempty"`   // QuickBooks
	AuthMethod AuthMethod `json:"auth_method,omitempty"`
}

// OAuthToken is a decrypted access/refresh token pair with expiry
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Connection is everything an adapter needs for one call against the ERP.
// It is assembled at call time from the integration row plus vault-decrypted
// secrets and discarded afterwards.
type Connection struct {
	Endpoint    string
	IsSandbox   bool
	Credentials Credentials
	Token       *OAuthToken // nil for session-auth systems

	// OAuth client settings for the refresh grant
	OAuthClientID     string
	OAuthClientSecret string
	OAuthTokenURL     string
	OAuthScopes       string
}

// ---------------------------------------------------------------------------
// Probe / Sync payloads
// ---------------------------------------------------------------------------

// ProbeResult is the outcome of a connectivity test. Message must already be
// safe to show to the caller; raw upstream detail belongs in server logs.
type ProbeResult struct {
	Success   bool
	Message   string
	EntityMap map[EntityType]string
}

// Record is one ERP-side record crossing the sync boundary. Amount uses
// decimal arithmetic; float rounding is not acceptable for invoice and
// payment totals.
type Record struct {
	ExternalID string
	Name       string
	Amount     decimal.Decimal
	UpdatedAt  time.Time
	Attributes map[string]string
}

// ---------------------------------------------------------------------------
// Adapter
// ---------------------------------------------------------------------------

// Adapter is the fixed variant set every ERP system implements: one
// connection test, an optional token refresh, and the system's default
// entity-name bindings. Record pull/push are the stubbed record-level
// boundary; the control plane owns everything around them.
type Adapter interface {
	// System returns the ERP system this adapter handles
	System() ERPSystem

	// TestConnection performs one bounded connectivity test
	TestConnection(ctx context.Context, conn Connection) (*ProbeResult, error)

	// RefreshToken performs the adapter-specific OAuth refresh grant.
	// Session-auth systems return ErrRefreshNotSupported.
	RefreshToken(ctx context.Context, conn Connection) (*OAuthToken, error)

	// DefaultEntityMap returns the system's resource name per entity type
	DefaultEntityMap() map[EntityType]string

	// PullRecords imports records of one entity type changed since the
	// given time
	PullRecords(ctx context.Context, conn Connection, entity EntityType, since time.Time) ([]Record, error)

	// PushRecords exports records of one entity type to the ERP and returns
	// how many were accepted
	PushRecords(ctx context.Context, conn Connection, entity EntityType, records []Record) (int, error)
}

// Registry resolves the adapter for an ERP system
type Registry interface {
	Adapter(system ERPSystem) (Adapter, error)
}

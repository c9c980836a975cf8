package connector

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/erpsync/backend/internal/domain/connector"
	"github.com/erpsync/backend/internal/domain/sync"
	"github.com/erpsync/backend/internal/infrastructure/vault"
)

// MockIntegrationRepository is a mock implementation of connector.IntegrationRepository
type MockIntegrationRepository struct {
	mock.Mock
}

func (m *MockIntegrationRepository) Save(ctx context.Context, integration *connector.Integration) error {
	args := m.Called(ctx, integration)
	return args.Error(0)
}

func (m *MockIntegrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*connector.Integration, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connector.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindByTenantAndSystem(ctx context.Context, tenantID uuid.UUID, system connector.ERPSystem) (*connector.Integration, error) {
	args := m.Called(ctx, tenantID, system)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connector.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]*connector.Integration, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*connector.Integration), args.Error(1)
}

func (m *MockIntegrationRepository) FindExpiringTokens(ctx context.Context, cutoff time.Time) ([]*connector.Integration, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*connector.Integration), args.Error(1)
}

// MockEntityRepository is a mock implementation of connector.EntityRepository
type MockEntityRepository struct {
	mock.Mock
}

func (m *MockEntityRepository) SaveEntity(ctx context.Context, entity *connector.SyncEntity) error {
	args := m.Called(ctx, entity)
	return args.Error(0)
}

func (m *MockEntityRepository) FindEntities(ctx context.Context, integrationID uuid.UUID) ([]*connector.SyncEntity, error) {
	args := m.Called(ctx, integrationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*connector.SyncEntity), args.Error(1)
}

func (m *MockEntityRepository) FindEntity(ctx context.Context, integrationID uuid.UUID, entityType connector.EntityType) (*connector.SyncEntity, error) {
	args := m.Called(ctx, integrationID, entityType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connector.SyncEntity), args.Error(1)
}

func (m *MockEntityRepository) SaveMapping(ctx context.Context, mapping *connector.FieldMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

func (m *MockEntityRepository) ReplaceMappings(ctx context.Context, entityID uuid.UUID, mappings []*connector.FieldMapping) error {
	args := m.Called(ctx, entityID, mappings)
	return args.Error(0)
}

func (m *MockEntityRepository) FindMappings(ctx context.Context, entityID uuid.UUID) ([]*connector.FieldMapping, error) {
	args := m.Called(ctx, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*connector.FieldMapping), args.Error(1)
}

// MockJobRepository is a mock implementation of sync.JobRepository
type MockJobRepository struct {
	mock.Mock
}

func (m *MockJobRepository) Save(ctx context.Context, job *sync.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*sync.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sync.Job), args.Error(1)
}

func (m *MockJobRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*sync.Job, int64, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*sync.Job), args.Get(1).(int64), args.Error(2)
}

func (m *MockJobRepository) FindRetrying(ctx context.Context, limit int) ([]*sync.Job, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*sync.Job), args.Error(1)
}

// MockAuditRepository is a mock implementation of connector.AuditRepository
type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, entry *connector.AuditEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditRepository) FindForTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*connector.AuditEntry, int64, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*connector.AuditEntry), args.Get(1).(int64), args.Error(2)
}

// MockRateReserver is a mock implementation of RateReserver
type MockRateReserver struct {
	mock.Mock
}

func (m *MockRateReserver) ReserveSync(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

func (m *MockRateReserver) ReserveAI(ctx context.Context, tenantID uuid.UUID) error {
	args := m.Called(ctx, tenantID)
	return args.Error(0)
}

// MockAdapter is a mock implementation of connector.Adapter
type MockAdapter struct {
	mock.Mock
	system connector.ERPSystem
}

func (m *MockAdapter) System() connector.ERPSystem {
	return m.system
}

func (m *MockAdapter) TestConnection(ctx context.Context, conn connector.Connection) (*connector.ProbeResult, error) {
	args := m.Called(ctx, conn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connector.ProbeResult), args.Error(1)
}

func (m *MockAdapter) RefreshToken(ctx context.Context, conn connector.Connection) (*connector.OAuthToken, error) {
	args := m.Called(ctx, conn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*connector.OAuthToken), args.Error(1)
}

func (m *MockAdapter) DefaultEntityMap() map[connector.EntityType]string {
	args := m.Called()
	return args.Get(0).(map[connector.EntityType]string)
}

func (m *MockAdapter) PullRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, since time.Time) ([]connector.Record, error) {
	args := m.Called(ctx, conn, entity, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]connector.Record), args.Error(1)
}

func (m *MockAdapter) PushRecords(ctx context.Context, conn connector.Connection, entity connector.EntityType, records []connector.Record) (int, error) {
	args := m.Called(ctx, conn, entity, records)
	return args.Int(0), args.Error(1)
}

// stubRegistry resolves every system to the same adapter
type stubRegistry struct {
	adapter connector.Adapter
}

func (r *stubRegistry) Adapter(system connector.ERPSystem) (connector.Adapter, error) {
	if r.adapter == nil {
		return nil, connector.ErrAdapterNotRegistered
	}
	return r.adapter, nil
}

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	key := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, 32))
	v, err := vault.New(key)
	require.NoError(t, err)
	return v
}

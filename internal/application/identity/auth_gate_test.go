package identity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/identity"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/auth"
	"github.com/erpsync/backend/internal/infrastructure/config"
)

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:          "test-secret-test-secret-test-secret",
		TokenExpiration: time.Hour,
		Issuer:          "erpsync-test",
	})
}

func newTestUser(t *testing.T, role identity.Role) *identity.User {
	t.Helper()
	user, err := identity.NewUser(uuid.New(), "admin@acme.test", "password123", role)
	require.NoError(t, err)
	return user
}

func TestAuthGate_VerifyUser(t *testing.T) {
	jwtService := newTestJWTService()
	systemCfg := config.SystemAuthConfig{Key: "system-secret"}

	t.Run("resolves tenant and role from the stored profile", func(t *testing.T) {
		repo := new(MockUserRepository)
		gate := NewAuthGate(repo, jwtService, systemCfg, zap.NewNop())

		user := newTestUser(t, identity.RoleTenantAdmin)
		issued, err := jwtService.Generate(user.ID)
		require.NoError(t, err)

		repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		principal, err := gate.VerifyUser(context.Background(), issued.Token)

		require.NoError(t, err)
		require.NotNil(t, principal.UserID)
		assert.Equal(t, user.ID, *principal.UserID)
		assert.Equal(t, user.TenantID, principal.TenantID)
		assert.Equal(t, identity.RoleTenantAdmin, principal.Role)
		assert.False(t, principal.IsSystem)
		repo.AssertExpectations(t)
	})

	t.Run("rejects garbage tokens", func(t *testing.T) {
		repo := new(MockUserRepository)
		gate := NewAuthGate(repo, jwtService, systemCfg, zap.NewNop())

		_, err := gate.VerifyUser(context.Background(), "not-a-token")

		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})

	t.Run("rejects tokens for unknown users", func(t *testing.T) {
		repo := new(MockUserRepository)
		gate := NewAuthGate(repo, jwtService, systemCfg, zap.NewNop())

		issued, err := jwtService.Generate(uuid.New())
		require.NoError(t, err)

		repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, shared.ErrNotFound)

		_, err = gate.VerifyUser(context.Background(), issued.Token)

		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})

	t.Run("rejects deactivated users even with a valid token", func(t *testing.T) {
		repo := new(MockUserRepository)
		gate := NewAuthGate(repo, jwtService, systemCfg, zap.NewNop())

		user := newTestUser(t, identity.RoleTenantAdmin)
		user.Status = identity.UserStatusDeactivated
		issued, err := jwtService.Generate(user.ID)
		require.NoError(t, err)

		repo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

		_, err = gate.VerifyUser(context.Background(), issued.Token)

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestAuthGate_VerifySystemKey(t *testing.T) {
	gate := NewAuthGate(new(MockUserRepository), newTestJWTService(),
		config.SystemAuthConfig{Key: "system-secret"}, zap.NewNop())

	t.Run("accepts the configured key", func(t *testing.T) {
		principal, err := gate.VerifySystemKey("system-secret")

		require.NoError(t, err)
		assert.True(t, principal.IsSystem)
		assert.Nil(t, principal.UserID)
	})

	t.Run("rejects a wrong key", func(t *testing.T) {
		_, err := gate.VerifySystemKey("wrong")
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})

	t.Run("rejects when no key is configured", func(t *testing.T) {
		unconfigured := NewAuthGate(new(MockUserRepository), newTestJWTService(),
			config.SystemAuthConfig{}, zap.NewNop())

		_, err := unconfigured.VerifySystemKey("")
		assert.ErrorIs(t, err, shared.ErrUnauthenticated)
	})
}

func TestAuthGate_RequireElevated(t *testing.T) {
	gate := NewAuthGate(new(MockUserRepository), newTestJWTService(),
		config.SystemAuthConfig{Key: "system-secret"}, zap.NewNop())

	userID := uuid.New()

	t.Run("tenant admin passes", func(t *testing.T) {
		err := gate.RequireElevated(identity.Principal{
			UserID: &userID, TenantID: uuid.New(), Role: identity.RoleTenantAdmin,
		})
		assert.NoError(t, err)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		err := gate.RequireElevated(identity.Principal{
			UserID: &userID, TenantID: uuid.New(), Role: identity.RoleMember,
		})
		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("system principal passes", func(t *testing.T) {
		assert.NoError(t, gate.RequireElevated(identity.System()))
	})
}

package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/identity"
	"github.com/erpsync/backend/internal/domain/shared"
)

func TestAuthService_Login(t *testing.T) {
	jwtService := newTestJWTService()

	t.Run("returns token and profile for valid credentials", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := NewAuthService(repo, jwtService, zap.NewNop())

		user := newTestUser(t, identity.RoleTenantAdmin)
		repo.On("FindByEmail", mock.Anything, "admin@acme.test").Return(user, nil)
		repo.On("Save", mock.Anything, user).Return(nil)

		result, err := service.Login(context.Background(), LoginInput{
			Email:    "admin@acme.test",
			Password: "password123",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
		assert.Equal(t, "Bearer", result.TokenType)
		assert.Equal(t, user.ID, result.User.ID)
		assert.Equal(t, user.TenantID, result.User.TenantID)
		assert.NotNil(t, user.LastLoginAt)
		repo.AssertExpectations(t)
	})

	t.Run("unknown email and wrong password yield the same error", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := NewAuthService(repo, jwtService, zap.NewNop())

		user := newTestUser(t, identity.RoleMember)
		repo.On("FindByEmail", mock.Anything, "admin@acme.test").Return(user, nil)
		repo.On("FindByEmail", mock.Anything, "ghost@acme.test").Return(nil, shared.ErrNotFound)

		_, wrongPassErr := service.Login(context.Background(), LoginInput{
			Email: "admin@acme.test", Password: "wrong-password",
		})
		_, unknownErr := service.Login(context.Background(), LoginInput{
			Email: "ghost@acme.test", Password: "password123",
		})

		require.Error(t, wrongPassErr)
		require.Error(t, unknownErr)
		assert.Equal(t, wrongPassErr.Error(), unknownErr.Error())
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := NewAuthService(repo, jwtService, zap.NewNop())

		user := newTestUser(t, identity.RoleTenantAdmin)
		user.Status = identity.UserStatusDeactivated
		repo.On("FindByEmail", mock.Anything, "admin@acme.test").Return(user, nil)

		_, err := service.Login(context.Background(), LoginInput{
			Email: "admin@acme.test", Password: "password123",
		})

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ACCOUNT_DEACTIVATED", domainErr.Code)
	})

	t.Run("login succeeds even when recording the timestamp fails", func(t *testing.T) {
		repo := new(MockUserRepository)
		service := NewAuthService(repo, jwtService, zap.NewNop())

		user := newTestUser(t, identity.RoleTenantAdmin)
		repo.On("FindByEmail", mock.Anything, "admin@acme.test").Return(user, nil)
		repo.On("Save", mock.Anything, user).Return(shared.ErrInternal)

		result, err := service.Login(context.Background(), LoginInput{
			Email: "admin@acme.test", Password: "password123",
		})

		require.NoError(t, err)
		assert.NotEmpty(t, result.AccessToken)
	})
}

package identity

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/erpsync/backend/internal/domain/identity"
	"github.com/erpsync/backend/internal/domain/shared"
	"github.com/erpsync/backend/internal/infrastructure/auth"
)

// AuthService handles authentication operations
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo identity.UserRepository, jwtService *auth.JWTService, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// Login authenticates a user and returns an access token. Lookup failures
// and password mismatches return the same error so the response does not
// reveal which accounts exist.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil {
		s.logger.Warn("Login for unknown email", zap.String("email", input.Email))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	if !user.IsActive() {
		s.logger.Warn("Login attempt for deactivated account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
	}

	if !user.CheckPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")
	}

	issued, err := s.jwtService.Generate(user.ID)
	if err != nil {
		s.logger.Error("Failed to generate token", zap.Error(err))
		return nil, shared.ErrInternal
	}

	user.RecordLogin(time.Now())
	if err := s.userRepo.Save(ctx, user); err != nil {
		// The login itself succeeded; losing the timestamp is acceptable.
		s.logger.Error("Failed to record login time", zap.Error(err))
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("tenant_id", user.TenantID.String()),
	)

	return &LoginResult{
		AccessToken: issued.Token,
		TokenType:   issued.TokenType,
		ExpiresAt:   issued.ExpiresAt,
		User: UserInfo{
			ID:          user.ID,
			TenantID:    user.TenantID,
			Email:       user.Email,
			DisplayName: user.DisplayName,
			Role:        string(user.Role),
		},
	}, nil
}

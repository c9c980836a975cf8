package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpsync/backend/internal/infrastructure/config"
)

func newTestService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:          "test-secret-key-for-unit-tests",
		TokenExpiration: expiration,
		Issuer:          "erpsync-test",
	})
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newTestService(time.Hour)
	userID := uuid.New()

	issued, err := svc.Generate(userID)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Token)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)

	claims, err := svc.Validate(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, "erpsync-test", claims.Issuer)

	parsed, err := claims.GetUserUUID()
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestValidateFailures(t *testing.T) {
	svc := newTestService(time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := newTestService(-time.Minute)
		issued, err := expired.Generate(uuid.New())
		require.NoError(t, err)

		_, err = svc.Validate(issued.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:          "a completely different secret",
			TokenExpiration: time.Hour,
			Issuer:          "erpsync-test",
		})
		issued, err := other.Generate(uuid.New())
		require.NoError(t, err)

		_, err = svc.Validate(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: uuid.New().String()})
		unsigned, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Validate(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing user_id claim", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte("test-secret-key-for-unit-tests"))
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, ErrMissingUserID)
	})
}

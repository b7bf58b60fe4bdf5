package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/talent-sourcer/internal/config"
)

func testJWTConfig() *config.JWTConfig {
	return &config.JWTConfig{
		Secret:          strings.Repeat("k", 32),
		ExpirationHours: 24,
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	service := NewJWTService(testJWTConfig())
	userID := uuid.New()

	token, err := service.GenerateToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID, claims.GetUserID())
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := NewJWTService(testJWTConfig()).GenerateToken(uuid.New())
	require.NoError(t, err)

	other := NewJWTService(&config.JWTConfig{
		Secret:          strings.Repeat("x", 32),
		ExpirationHours: 24,
	})
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenEmpty(t *testing.T) {
	_, err := NewJWTService(testJWTConfig()).ValidateToken("")
	assert.Error(t, err)
}

func TestValidateTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	claims := &Claims{
		UserID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = NewJWTService(cfg).ValidateToken(signed)
	assert.Error(t, err)
}

func TestValidateTokenWrongAlgorithm(t *testing.T) {
	// An unsigned token must be rejected by the HMAC method check.
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: uuid.New()})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService(testJWTConfig()).ValidateToken(signed)
	assert.Error(t, err)
}

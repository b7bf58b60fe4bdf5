package config

import (
	"fmt"
	"os"
	"strconv"
)

// minJWTSecretLength guards against trivially brute-forceable HS256 keys.
const minJWTSecretLength = 32

// defaultJWTExpirationHours is the token lifetime when JWT_EXPIRATION_HOURS
// is unset.
const defaultJWTExpirationHours = 24

// JWTConfig holds JWT signing configuration.
type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// JWTConfigFromSecret builds a JWT configuration from an already-resolved
// secret. The token lifetime still comes from JWT_EXPIRATION_HOURS.
func JWTConfigFromSecret(secret string) (*JWTConfig, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required")
	}
	if len(secret) < minJWTSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d characters", minJWTSecretLength)
	}

	hours := defaultJWTExpirationHours
	if raw := os.Getenv("JWT_EXPIRATION_HOURS"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("JWT_EXPIRATION_HOURS must be a positive integer, got %q", raw)
		}
		hours = parsed
	}

	return &JWTConfig{Secret: secret, ExpirationHours: hours}, nil
}

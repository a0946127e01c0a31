// Package jwt inspects access tokens issued by the remote services.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Claims decodes the registered claims of the token. The signature is not verified.
func Claims(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// ExpiresAt returns the expiry claim of the token in UTC.
// Opaque tokens and tokens without the claim expire at the fallback.
func ExpiresAt(token string, fallback time.Time) time.Time {
	claims, err := Claims(token)
	if err != nil || claims.ExpiresAt == nil {
		return fallback.UTC()
	}

	return claims.ExpiresAt.UTC()
}

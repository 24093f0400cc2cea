package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// accessClaims is the subset of the access token the client reads.
// The signature is checked by the auth service, not here.
type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

func parseAccessClaims(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *accessClaims) expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

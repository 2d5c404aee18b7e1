package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default lifetimes used by the fake API when issuing tokens.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	ErrMalformed = errors.New("jwtx: malformed token")
	ErrInvalid   = errors.New("jwtx: invalid token")
	ErrExpired   = errors.New("jwtx: token expired")
)

// Claims carried by LMS access tokens.
type Claims struct {
	jwt.RegisteredClaims

	Email    string   `json:"email,omitempty"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// NewAccessClaims builds claims for subject valid for ttl from now.
func NewAccessClaims(subject, email, username string, roles []string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email:    email,
		Username: username,
		Roles:    roles,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// HasRole reports whether the claims list role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// ExpiresIn returns the time left before exp, zero when already expired and
// a negative duration when the token carries no exp claim.
func (c *Claims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return -1
	}
	left := c.ExpiresAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

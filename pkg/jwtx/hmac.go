package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// HMACSigner issues and verifies HS256 tokens with a shared secret.
type HMACSigner struct {
	secret []byte
}

// NewHMACSigner returns a signer for secret, which must not be empty.
func NewHMACSigner(secret []byte) (*HMACSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty hmac secret")
	}
	return &HMACSigner{secret: secret}, nil
}

func (s *HMACSigner) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign serialises claims into a compact JWS.
func (s *HMACSigner) Sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and the exp/nbf window and returns the claims.
func (s *HMACSigner) Verify(token string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	var claims Claims
	_, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	switch {
	case err == nil:
		return &claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrMalformed
	default:
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
}

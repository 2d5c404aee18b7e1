package jwtx

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Inspect decodes the claims of token without verifying its signature.
//
// Clients never hold the API's signing key, so this is only suitable for
// display purposes such as showing who is logged in and when the access
// token lapses. Authorisation decisions stay on the server.
func Inspect(token string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &claims, nil
}

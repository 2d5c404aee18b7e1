// Package tokenstore persists the two credentials that make up a client
// session: the access token and the refresh token.
//
// Stores behave like browser local storage: two fixed keys, last write wins,
// and a missing key reads back as the empty string.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
)

// Key names one of the two persisted credentials.
type Key string

const (
	AccessKey  Key = "access"
	RefreshKey Key = "refresh"
)

// Keys lists every key a Store may hold.
var Keys = []Key{AccessKey, RefreshKey}

// ErrUnknownKey is returned for keys other than AccessKey and RefreshKey.
var ErrUnknownKey = errors.New("tokenstore: unknown key")

// Store is durable storage for session credentials.
type Store interface {
	// Get returns the value for key, or "" when nothing is stored.
	Get(ctx context.Context, key Key) (string, error)
	Set(ctx context.Context, key Key, value string) error
	Delete(ctx context.Context, keys ...Key) error
}

// Session is the pair of tokens identifying an authenticated client.
type Session struct {
	AccessToken  string `json:"access,omitempty"`
	RefreshToken string `json:"refresh,omitempty"`
}

// Empty reports whether neither token is present.
func (s Session) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

// Validate checks that key is one of the fixed session keys.
func (k Key) Validate() error {
	switch k {
	case AccessKey, RefreshKey:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKey, string(k))
	}
}

// Load reads both tokens from s.
func Load(ctx context.Context, s Store) (Session, error) {
	access, err := s.Get(ctx, AccessKey)
	if err != nil {
		return Session{}, fmt.Errorf("load access token: %w", err)
	}
	refresh, err := s.Get(ctx, RefreshKey)
	if err != nil {
		return Session{}, fmt.Errorf("load refresh token: %w", err)
	}
	return Session{AccessToken: access, RefreshToken: refresh}, nil
}

// Save writes sess to s. An empty refresh token leaves the stored one as is,
// which is what a refresh exchange that does not rotate needs.
func Save(ctx context.Context, s Store, sess Session) error {
	if err := s.Set(ctx, AccessKey, sess.AccessToken); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}
	if sess.RefreshToken == "" {
		return nil
	}
	if err := s.Set(ctx, RefreshKey, sess.RefreshToken); err != nil {
		return fmt.Errorf("save refresh token: %w", err)
	}
	return nil
}

// Clear removes both tokens.
func Clear(ctx context.Context, s Store) error {
	if err := s.Delete(ctx, Keys...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func validateKeys(keys ...Key) error {
	for _, k := range keys {
		if err := k.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Package redis is a tokenstore.Store backed by Redis, for services that act
// on behalf of a user and need the session shared across replicas.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces the keys when no prefix is given.
const DefaultPrefix = "lms:session:"

// Store keeps each token under "<prefix><key>".
type Store struct {
	client     redis.UniversalClient
	prefix     string
	refreshTTL time.Duration
}

var _ tokenstore.Store = (*Store)(nil)

type Option func(*Store)

// WithRefreshTTL expires the stored refresh token after ttl. Zero keeps it
// until it is deleted.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Store) { s.refreshTTL = ttl }
}

// NewStore creates a Redis backed store. Prefix may be empty.
func NewStore(client redis.UniversalClient, prefix string, opts ...Option) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	s := &Store{client: client, prefix: prefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(k tokenstore.Key) string {
	return s.prefix + string(k)
}

func (s *Store) Get(ctx context.Context, key tokenstore.Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}

	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key tokenstore.Key, value string) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if value == "" {
		return s.Delete(ctx, key)
	}

	var ttl time.Duration
	if key == tokenstore.RefreshKey {
		ttl = s.refreshTTL
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...tokenstore.Key) error {
	if len(keys) == 0 {
		return nil
	}

	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := k.Validate(); err != nil {
			return err
		}
		names = append(names, s.key(k))
	}

	if err := s.client.Del(ctx, names...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

package redis_test

import (
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
	redisstore "github.com/ministrylearn/ministrylearn/pkg/tokenstore/drivers/redis"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore/storetest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*mr.Miniredis, *redis.Client) {
	t.Helper()

	m, err := mr.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, client
}

func TestRedisStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) tokenstore.Store {
		_, client := newClient(t)
		return redisstore.NewStore(client, "")
	})
}

func TestRedisStoreKeyLayout(t *testing.T) {
	m, client := newClient(t)
	s := redisstore.NewStore(client, "test:")

	require.NoError(t, s.Set(t.Context(), tokenstore.AccessKey, "a1"))

	got, err := m.Get("test:access")
	require.NoError(t, err)
	require.Equal(t, "a1", got)
}

func TestRedisStoreRefreshTTL(t *testing.T) {
	m, client := newClient(t)
	s := redisstore.NewStore(client, "", redisstore.WithRefreshTTL(2*time.Second))

	require.NoError(t, tokenstore.Save(t.Context(), s, tokenstore.Session{AccessToken: "a", RefreshToken: "r"}))

	// Only the refresh token carries a TTL
	require.Equal(t, time.Duration(0), m.TTL(redisstore.DefaultPrefix+"access"))
	require.Equal(t, 2*time.Second, m.TTL(redisstore.DefaultPrefix+"refresh"))

	m.FastForward(3 * time.Second)

	sess, err := tokenstore.Load(t.Context(), s)
	require.NoError(t, err)
	require.Equal(t, "a", sess.AccessToken)
	require.Empty(t, sess.RefreshToken)
}

// Package storetest holds the behaviour every tokenstore.Store must share.
package storetest

import (
	"testing"

	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
	"github.com/stretchr/testify/require"
)

// Run exercises a Store implementation. newStore must return an empty store.
func Run(t *testing.T, newStore func(t *testing.T) tokenstore.Store) {
	t.Helper()

	t.Run("missing keys read as empty", func(t *testing.T) {
		s := newStore(t)

		got, err := s.Get(t.Context(), tokenstore.AccessKey)
		require.NoError(t, err)
		require.Empty(t, got)

		sess, err := tokenstore.Load(t.Context(), s)
		require.NoError(t, err)
		require.True(t, sess.Empty())
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(t.Context(), tokenstore.AccessKey, "a1"))
		require.NoError(t, s.Set(t.Context(), tokenstore.RefreshKey, "r1"))

		sess, err := tokenstore.Load(t.Context(), s)
		require.NoError(t, err)
		require.Equal(t, tokenstore.Session{AccessToken: "a1", RefreshToken: "r1"}, sess)
	})

	t.Run("last write wins", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.Set(t.Context(), tokenstore.AccessKey, "a1"))
		require.NoError(t, s.Set(t.Context(), tokenstore.AccessKey, "a2"))

		got, err := s.Get(t.Context(), tokenstore.AccessKey)
		require.NoError(t, err)
		require.Equal(t, "a2", got)
	})

	t.Run("save keeps refresh when not rotated", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, tokenstore.Save(t.Context(), s, tokenstore.Session{AccessToken: "a1", RefreshToken: "r1"}))
		require.NoError(t, tokenstore.Save(t.Context(), s, tokenstore.Session{AccessToken: "a2"}))

		sess, err := tokenstore.Load(t.Context(), s)
		require.NoError(t, err)
		require.Equal(t, "a2", sess.AccessToken)
		require.Equal(t, "r1", sess.RefreshToken)
	})

	t.Run("clear removes both", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, tokenstore.Save(t.Context(), s, tokenstore.Session{AccessToken: "a1", RefreshToken: "r1"}))
		require.NoError(t, tokenstore.Clear(t.Context(), s))

		sess, err := tokenstore.Load(t.Context(), s)
		require.NoError(t, err)
		require.True(t, sess.Empty())

		// Clearing an empty store is fine
		require.NoError(t, tokenstore.Clear(t.Context(), s))
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Get(t.Context(), tokenstore.Key("profile"))
		require.ErrorIs(t, err, tokenstore.ErrUnknownKey)

		err = s.Set(t.Context(), tokenstore.Key("profile"), "x")
		require.ErrorIs(t, err, tokenstore.ErrUnknownKey)

		err = s.Delete(t.Context(), tokenstore.Key("profile"))
		require.ErrorIs(t, err, tokenstore.ErrUnknownKey)
	})
}

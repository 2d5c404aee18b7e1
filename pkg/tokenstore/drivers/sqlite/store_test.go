package sqlite_test

import (
	"path/filepath"
	"testing"

	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore/drivers/sqlite"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore/storetest"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(sqlite.DSN(path))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) tokenstore.Store {
		return newStore(t, filepath.Join(t.TempDir(), "tokens.db"))
	})
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	s := newStore(t, filepath.Join(t.TempDir(), "tokens.db"))

	// Second run hits ErrNoChange which must be swallowed
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(t.Context()))
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.db")

	first := newStore(t, path)
	require.NoError(t, tokenstore.Save(t.Context(), first, tokenstore.Session{AccessToken: "a", RefreshToken: "r"}))
	require.NoError(t, first.Close())

	second := newStore(t, path)
	sess, err := tokenstore.Load(t.Context(), second)
	require.NoError(t, err)
	require.Equal(t, "a", sess.AccessToken)
	require.Equal(t, "r", sess.RefreshToken)
}

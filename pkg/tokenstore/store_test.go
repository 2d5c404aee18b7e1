package tokenstore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore/storetest"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, func(*testing.T) tokenstore.Store {
		return tokenstore.NewMemory()
	})
}

func TestFileStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) tokenstore.Store {
		return tokenstore.NewFile(filepath.Join(t.TempDir(), "nested", "session.json"))
	})
}

func TestSealedFileStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) tokenstore.Store {
		return tokenstore.NewFile(filepath.Join(t.TempDir(), "session.bin"), tokenstore.WithPassphrase("pw"))
	})
}

func TestFileStorePermissionsAndContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	s := tokenstore.NewFile(path)
	require.Equal(t, path, s.Path())

	require.NoError(t, s.Set(t.Context(), tokenstore.AccessKey, "plain-token"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"access":"plain-token"}`, string(raw))

	// Deleting the last key removes the file entirely
	require.NoError(t, tokenstore.Clear(t.Context(), s))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestSealedFileStoreHidesTokens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.bin")
	s := tokenstore.NewFile(path, tokenstore.WithPassphrase("pw"))

	require.NoError(t, s.Set(t.Context(), tokenstore.RefreshKey, "super-secret-refresh"))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(raw), "super-secret-refresh")

	// A different passphrase cannot read it back
	other := tokenstore.NewFile(path, tokenstore.WithPassphrase("nope"))
	_, err = other.Get(t.Context(), tokenstore.RefreshKey)
	require.Error(t, err)
}

func TestMemoryEmptyValueDeletes(t *testing.T) {
	t.Parallel()

	s := tokenstore.NewMemory()
	require.NoError(t, s.Set(t.Context(), tokenstore.AccessKey, "a"))
	require.NoError(t, s.Set(t.Context(), tokenstore.AccessKey, ""))

	got, err := s.Get(t.Context(), tokenstore.AccessKey)
	require.NoError(t, err)
	require.Empty(t, got)
}

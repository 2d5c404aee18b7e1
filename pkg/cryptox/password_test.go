package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))

			parts := strings.Split(hash, "$")
			require.Len(t, parts, 6)
			require.NotEmpty(t, parts[4], "salt")
			require.NotEmpty(t, parts[5], "hash")

			require.NoError(t, VerifyPassword(tt.password, hash))
			require.ErrorIs(t, VerifyPassword(tt.password+"x", hash), ErrPasswordMismatch)
		})
	}
}

func TestHashPasswordSaltsEachHash(t *testing.T) {
	t.Parallel()

	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyPasswordRejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	for name, hash := range map[string]string{
		"empty":       "",
		"wrong algo":  "$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"wrong ver":   "$argon2id$v=16$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"bad params":  "$argon2id$v=19$nope$c2FsdA$aGFzaA",
		"bad salt":    "$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA",
		"bad hash":    "$argon2id$v=19$m=1,t=1,p=1$c2FsdA$!!!",
		"extra parts": "$argon2id$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA$x",
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			err := VerifyPassword("password", hash)
			require.Error(t, err)
			require.NotErrorIs(t, err, ErrPasswordMismatch)
		})
	}
}

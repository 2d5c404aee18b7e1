package jwtx_test

import (
	"testing"
	"time"

	"github.com/ministrylearn/ministrylearn/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewHMACSigner([]byte("test-secret"))
	require.NoError(t, err)
	require.Equal(t, "HS256", signer.Alg())

	now := time.Now()
	claims := jwtx.NewAccessClaims("u1", "a@example.com", "alice", []string{"Learner"}, time.Minute, now)

	tok, err := signer.Sign(claims)
	require.NoError(t, err)

	got, err := signer.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "u1", got.Subject)
	require.Equal(t, "alice", got.Username)
	require.True(t, got.HasRole("Learner"))
	require.False(t, got.HasRole("Admin"))
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewHMACSigner([]byte("test-secret"))
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour)
	tok, err := signer.Sign(jwtx.NewAccessClaims("u1", "", "", nil, time.Minute, past))
	require.NoError(t, err)

	_, err = signer.Verify(tok)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestVerifyWrongSecret(t *testing.T) {
	t.Parallel()

	a, err := jwtx.NewHMACSigner([]byte("secret-a"))
	require.NoError(t, err)
	b, err := jwtx.NewHMACSigner([]byte("secret-b"))
	require.NoError(t, err)

	tok, err := a.Sign(jwtx.NewAccessClaims("u1", "", "", nil, time.Minute, time.Now()))
	require.NoError(t, err)

	_, err = b.Verify(tok)
	require.ErrorIs(t, err, jwtx.ErrInvalid)
}

func TestInspectSkipsSignature(t *testing.T) {
	t.Parallel()

	signer, err := jwtx.NewHMACSigner([]byte("unknown-to-client"))
	require.NoError(t, err)

	now := time.Now()
	tok, err := signer.Sign(jwtx.NewAccessClaims("u9", "i@example.com", "ivy", []string{"Instructor"}, 10*time.Minute, now))
	require.NoError(t, err)

	claims, err := jwtx.Inspect(tok)
	require.NoError(t, err)
	require.Equal(t, "ivy", claims.Username)
	require.InDelta(t, (10 * time.Minute).Seconds(), claims.ExpiresIn(now).Seconds(), 1)

	_, err = jwtx.Inspect("not.a.jwt")
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}

func TestExpiresInBounds(t *testing.T) {
	t.Parallel()

	var none jwtx.Claims
	require.Negative(t, none.ExpiresIn(time.Now()))

	past := jwtx.NewAccessClaims("u", "", "", nil, time.Minute, time.Now().Add(-time.Hour))
	require.Zero(t, past.ExpiresIn(time.Now()))
}

package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ministrylearn/ministrylearn/pkg/httpx"
	"github.com/ministrylearn/ministrylearn/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newSigner(t *testing.T) *jwtx.HMACSigner {
	t.Helper()
	s, err := jwtx.NewHMACSigner([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func sign(t *testing.T, s *jwtx.HMACSigner, roles []string, ttl time.Duration, now time.Time) string {
	t.Helper()
	tok, err := s.Sign(jwtx.NewAccessClaims("u1", "u1@example.com", "u1", roles, ttl, now))
	require.NoError(t, err)
	return tok
}

func TestChainOrder(t *testing.T) {
	t.Parallel()

	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler(), mw("a"), mw("b"), mw("c"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"a", "b", "c"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	var seen *jwtx.Claims
	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}), httpx.AuthnMiddleware(signer))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")

		var body httpx.ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "missing bearer token", body.Message)
	})

	t.Run("expired token", func(t *testing.T) {
		tok := sign(t, signer, nil, time.Minute, time.Now().Add(-time.Hour))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "token expired")
	})

	t.Run("valid token", func(t *testing.T) {
		tok := sign(t, signer, []string{"Learner"}, time.Minute, time.Now())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		require.Equal(t, "u1", seen.Subject)
	})
}

func TestRequireAnyRole(t *testing.T) {
	t.Parallel()

	signer := newSigner(t)
	h := httpx.Chain(okHandler(), httpx.AuthnMiddleware(signer), httpx.RequireAnyRole("Admin", "Instructor"))

	cases := map[string]struct {
		roles []string
		want  int
	}{
		"admin":      {roles: []string{"Admin"}, want: http.StatusOK},
		"instructor": {roles: []string{"Learner", "Instructor"}, want: http.StatusOK},
		"learner":    {roles: []string{"Learner"}, want: http.StatusForbidden},
		"no roles":   {roles: nil, want: http.StatusForbidden},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", "Bearer "+sign(t, signer, tc.roles, time.Minute, time.Now()))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestWriteJSONSetsNoCache(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	httpx.WriteJSON(rec, http.StatusCreated, map[string]string{"ok": "yes"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())
}

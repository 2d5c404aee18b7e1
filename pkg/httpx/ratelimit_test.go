package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ministrylearn/ministrylearn/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestIPKeyExtractor(t *testing.T) {
	t.Run("extracts from RemoteAddr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"

		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(req))
	})

	t.Run("prefers X-Forwarded-For", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Forwarded-For", "203.0.113.1, 192.168.1.1")

		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))
	})

	t.Run("uses X-Real-IP if X-Forwarded-For absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		req.Header.Set("X-Real-IP", "203.0.113.2")

		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("allows requests under limit", func(t *testing.T) {
		config := httpx.RateLimitConfig{RequestsPerWindow: 5, Window: time.Second, Burst: 5}
		limited := httpx.RateLimitMiddleware(config, httpx.IPKeyExtractor)(okHandler())

		for i := range 5 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			rec := httptest.NewRecorder()

			limited.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code, "request %d should succeed", i+1)
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		config := httpx.RateLimitConfig{RequestsPerWindow: 3, Window: time.Minute, Burst: 3}
		limited := httpx.RateLimitMiddleware(config, httpx.IPKeyExtractor)(okHandler())

		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)

		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Contains(t, rec.Body.String(), `"message"`)
	})

	t.Run("keys are independent", func(t *testing.T) {
		config := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		limited := httpx.RateLimitByIP(config)(okHandler())

		for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = addr
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, req)
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})

	t.Run("empty key passes through", func(t *testing.T) {
		config := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
		limited := httpx.RateLimitMiddleware(config, func(*http.Request) string { return "" })(okHandler())

		for range 3 {
			rec := httptest.NewRecorder()
			limited.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
			require.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestRateLimitByUserFallsBackToIP(t *testing.T) {
	config := httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1}
	limited := httpx.RateLimitByUser(config)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1"
	rec := httptest.NewRecorder()
	limited.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Same IP, but an authenticated user gets its own bucket.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1"
	req = req.WithContext(context.WithValue(req.Context(), httpx.CtxKeyUserID, "u1"))
	rec = httptest.NewRecorder()
	limited.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

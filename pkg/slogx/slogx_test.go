package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ministrylearn/ministrylearn/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONToOutput(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{
		Service: "lmsctl",
		Version: "test",
		Env:     "test",
		Level:   "debug",
		Format:  "json",
		Output:  &buf,
	})
	logger.Debug("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "hello", rec["msg"])
	require.Equal(t, "lmsctl", rec["service"])
	require.Equal(t, "v", rec["k"])
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	require.Equal(t, slog.LevelDebug, slogx.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, slogx.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, slogx.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel("nonsense"))
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := slogx.WithContext(context.Background(), base)
	ctx = slogx.WithRequestID(ctx, "req-1")
	slogx.FromContext(ctx).Info("tagged")

	require.Contains(t, buf.String(), `"req_id":"req-1"`)
}

func TestMiddlewareReusesRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := slogx.HTTPMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slogx.FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/courses", nil)
	req.Header.Set(slogx.RequestIDHeader, "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Contains(t, buf.String(), `"req_id":"01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV"`)
	require.Contains(t, buf.String(), `"status":418`)
}

func TestTransportPassesThrough(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	ctx := slogx.WithContext(t.Context(), slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	client := &http.Client{Transport: &slogx.Transport{}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/x", nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Contains(t, buf.String(), "outbound_request")
}

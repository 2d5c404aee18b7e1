package slogx

import (
	"net/http"
	"time"
)

// Transport is an http.RoundTripper that logs every outbound request at
// debug level using the logger found in the request context.
type Transport struct {
	Base http.RoundTripper
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	logger := FromContext(req.Context()).With(
		"method", req.Method,
		"url", req.URL.Redacted(),
	)

	start := time.Now()
	resp, err := base.RoundTrip(req)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		logger.Debug("outbound_request_failed", "error", err, "duration_ms", elapsed)
		return nil, err
	}

	logger.Debug("outbound_request", "status", resp.StatusCode, "duration_ms", elapsed)
	return resp, nil
}

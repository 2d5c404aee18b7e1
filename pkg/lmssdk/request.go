package lmssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ministrylearn/ministrylearn/pkg/idx"
	"github.com/ministrylearn/ministrylearn/pkg/metrics"
	"github.com/ministrylearn/ministrylearn/pkg/slogx"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const refreshPath = "/auth/refresh"

// Request describes one logical API call. Body, when non-nil, is sent as
// JSON; []byte and json.RawMessage bodies are sent verbatim.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header

	// Anonymous requests carry no credentials and a 401 is returned to the
	// caller as an *APIError without touching the session.
	Anonymous bool
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  idx.ID
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return err
	}
	return nil
}

// call is the per-request state carried across the original attempt, the
// refresh exchange and the single retry.
type call struct {
	req  *Request
	body []byte
	id   idx.ID

	// retried is set once the request has been through the refresh path.
	retried bool

	// refresh marks the refresh exchange itself, which must never trigger
	// another refresh.
	refresh bool

	// bearer overrides the stored access token when non-empty.
	bearer string
}

// Do sends req with the stored access token. A 401 response triggers at
// most one refresh exchange followed by one retry; see the package docs for
// the full contract.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}
	cl := &call{req: req, body: body, id: idx.New()}

	ctx, span := c.tracer.Start(ctx, "lms "+req.Method+" "+req.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.path", req.Path),
			attribute.String("lms.request_id", cl.id.String()),
		),
	)
	defer span.End()

	ctx = slogx.WithContext(ctx, c.loggerFor(ctx).With("req_id", cl.id.String()))

	resp, err := c.execute(ctx, cl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if status := StatusCode(err); status != 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", status))
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	return resp, nil
}

// execute runs one attempt and routes a 401 into the refresh path.
func (c *Client) execute(ctx context.Context, cl *call) (*Response, error) {
	resp, err := c.send(ctx, cl)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && !cl.req.Anonymous {
		return c.handleAuthRejected(ctx, cl, resp)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newAPIError(resp)
	}
	return resp, nil
}

func (c *Client) handleAuthRejected(ctx context.Context, cl *call, resp *Response) (*Response, error) {
	rejected := newAPIError(resp)
	if cl.retried {
		return nil, rejected
	}
	cl.retried = true

	trace.SpanFromContext(ctx).AddEvent("auth_rejected", trace.WithAttributes(
		attribute.Bool("lms.refresh_exchange", cl.refresh),
	))

	if cl.refresh {
		return nil, c.expire(ctx, rejected)
	}

	refreshToken, err := c.store.Get(ctx, tokenstore.RefreshKey)
	if err != nil {
		return nil, fmt.Errorf("read refresh token: %w", err)
	}
	if refreshToken == "" {
		metrics.Refreshes.WithLabelValues(metrics.RefreshNoop).Inc()
		return nil, c.expire(ctx, rejected)
	}

	access, err := c.exchange(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, ErrSessionExpired) {
			return nil, err
		}
		return nil, c.expire(ctx, err)
	}

	cl.bearer = access
	return c.execute(ctx, cl)
}

// exchange trades refreshToken for a new access token and persists it.
func (c *Client) exchange(ctx context.Context, refreshToken string) (string, error) {
	rc := &call{
		req:     &Request{Method: http.MethodPost, Path: refreshPath},
		body:    []byte("{}"),
		id:      idx.New(),
		refresh: true,
		bearer:  refreshToken,
	}

	resp, err := c.execute(ctx, rc)
	if err != nil {
		metrics.Refreshes.WithLabelValues(metrics.RefreshFailed).Inc()
		return "", err
	}

	var out RefreshResponse
	if err := decodeInto(resp, refreshPath, &out, out.validate); err != nil {
		metrics.Refreshes.WithLabelValues(metrics.RefreshFailed).Inc()
		return "", err
	}

	sess := tokenstore.Session{AccessToken: out.AccessToken, RefreshToken: out.RefreshToken}
	if err := tokenstore.Save(ctx, c.store, sess); err != nil {
		metrics.Refreshes.WithLabelValues(metrics.RefreshFailed).Inc()
		return "", err
	}

	metrics.Refreshes.WithLabelValues(metrics.RefreshOK).Inc()
	trace.SpanFromContext(ctx).AddEvent("token_refreshed")
	slogx.FromContext(ctx).Info("access token refreshed", "rotated_refresh", out.RefreshToken != "")
	return out.AccessToken, nil
}

// expire clears the session and reports it to the hook.
func (c *Client) expire(ctx context.Context, cause error) error {
	err := &SessionExpiredError{Cause: cause}
	logger := slogx.FromContext(ctx)

	if clearErr := tokenstore.Clear(ctx, c.store); clearErr != nil {
		logger.Error("failed to clear session", "error", clearErr)
	}

	metrics.SessionsExpired.Inc()
	logger.Warn("session expired, tokens cleared", "cause", cause)

	if c.onExpired != nil {
		c.onExpired(ctx, err)
	}
	return err
}

// send performs a single HTTP attempt and reads the whole body.
func (c *Client) send(ctx context.Context, cl *call) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	var body io.Reader
	if cl.body != nil {
		body = bytes.NewReader(cl.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, cl.req.Method, c.url(cl.req.Path, cl.req.Query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range cl.req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if cl.body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(slogx.RequestIDHeader, cl.id.String())
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	token := cl.bearer
	if token == "" && !cl.refresh && !cl.req.Anonymous {
		token, err = c.store.Get(ctx, tokenstore.AccessKey)
		if err != nil {
			return nil, fmt.Errorf("read access token: %w", err)
		}
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	} else {
		httpReq.Header.Del("Authorization")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.Requests.WithLabelValues(cl.req.Method, metrics.StatusClass(0)).Inc()
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	metrics.Requests.WithLabelValues(cl.req.Method, metrics.StatusClass(httpResp.StatusCode)).Inc()
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       raw,
		RequestID:  cl.id,
	}, nil
}

func (c *Client) url(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func encodeBody(v any) ([]byte, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return raw, nil
	}
}

// decodeInto unmarshals resp into v and runs validate, reporting either
// failure as a *DecodeError for endpoint.
func decodeInto(resp *Response, endpoint string, v any, validate func() error) error {
	if err := resp.Decode(v); err != nil {
		return &DecodeError{Endpoint: endpoint, Err: err}
	}
	if validate != nil {
		if err := validate(); err != nil {
			return &DecodeError{Endpoint: endpoint, Err: err}
		}
	}
	return nil
}

package lmssdk

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ministrylearn/ministrylearn/pkg/slogx"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the local development API.
const DefaultBaseURL = "http://localhost:5000/api"

const tracerName = "github.com/ministrylearn/ministrylearn/pkg/lmssdk"

// Client talks to the LMS API on behalf of one session. The session lives in
// the Store passed to New; the Client reads the access token from it before
// every attempt and writes it back after a refresh.
//
// A Client is safe for concurrent use. Requests do not coordinate their
// refreshes, so two requests rejected at the same time each exchange the
// refresh token once. Against a server that rotates refresh tokens on use,
// the second exchange presents a token that is already spent: it fails and
// clears the session the first exchange just saved. Callers of such servers
// should serialise requests that may hit an expired access token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	store      tokenstore.Store

	logger    *slog.Logger
	limiter   *rate.Limiter
	tracer    trace.Tracer
	userAgent string
	onExpired func(ctx context.Context, err error)
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. The default has no
// timeout; use context deadlines or a client with Timeout set to bound calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for SDK events. Without it the logger in
// the request context (see slogx.WithContext) is used.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRateLimit throttles outbound attempts, retries and refresh exchanges
// included.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// WithTracerProvider sets the OpenTelemetry provider for request spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithSessionExpiredHook registers fn to run after the session has been
// cleared because it could not be recovered. Applications use it to send the
// user back to a login flow; the client itself never navigates.
func WithSessionExpiredHook(fn func(ctx context.Context, err error)) Option {
	return func(c *Client) { c.onExpired = fn }
}

// New creates a client for the API at baseURL using store for the session.
func New(baseURL string, store tokenstore.Store, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Transport: &slogx.Transport{},
		},
		store:     store,
		tracer:    otel.Tracer(tracerName),
		userAgent: "lmssdk-go",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Store returns the session store backing the client.
func (c *Client) Store() tokenstore.Store { return c.store }

// Session returns the tokens currently stored.
func (c *Client) Session(ctx context.Context) (tokenstore.Session, error) {
	return tokenstore.Load(ctx, c.store)
}

func (c *Client) loggerFor(ctx context.Context) *slog.Logger {
	if c.logger != nil {
		return c.logger
	}
	return slogx.FromContext(ctx)
}

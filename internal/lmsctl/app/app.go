package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/ministrylearn/ministrylearn/internal/lmsctl/telemetry"
	"github.com/ministrylearn/ministrylearn/pkg/authstate"
	"github.com/ministrylearn/ministrylearn/pkg/lmssdk"
	"github.com/ministrylearn/ministrylearn/pkg/metrics"
	"github.com/ministrylearn/ministrylearn/pkg/slogx"
	"github.com/ministrylearn/ministrylearn/pkg/tokenstore"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

const serviceName = "lmsctl"

// Application wires the SDK, the session store and the command handlers.
type Application struct {
	cfg    Config
	logger *slog.Logger

	out    io.Writer
	errOut io.Writer
	in     *bufio.Reader

	registry *prometheus.Registry
	store    tokenstore.Store
	closers  []io.Closer
	shutdown func(context.Context) error

	client  *lmssdk.Client
	manager *authstate.Manager
}

type Option func(*Application)

// WithOutput redirects command output and diagnostics.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *Application) {
		a.out = out
		a.errOut = errOut
	}
}

// WithInput sets where prompts read answers from.
func WithInput(in io.Reader) Option {
	return func(a *Application) { a.in = bufio.NewReader(in) }
}

// New creates an Application with all dependencies initialized.
func New(ctx context.Context, cfg Config, opts ...Option) (*Application, error) {
	app := &Application{
		cfg:    cfg,
		out:    os.Stdout,
		errOut: os.Stderr,
		in:     bufio.NewReader(os.Stdin),
	}
	for _, opt := range opts {
		opt(app)
	}

	app.logger = slogx.New(slogx.Config{
		Service: serviceName,
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  app.errOut,
	})

	app.registry = prometheus.NewRegistry()
	metrics.RegisterCollectors(app.registry)

	tp, shutdown, err := telemetry.Setup(ctx, serviceName, BuildVersion, cfg.OTelEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.shutdown = shutdown

	store, closer, err := openStore(ctx, cfg)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	app.store = store
	app.closers = append(app.closers, closer)

	clientOpts := []lmssdk.Option{
		lmssdk.WithHTTPClient(&http.Client{
			Timeout:   cfg.HTTPTimeout,
			Transport: &slogx.Transport{},
		}),
		lmssdk.WithLogger(app.logger),
		lmssdk.WithTracerProvider(tp),
		lmssdk.WithUserAgent(serviceName + "/" + BuildVersion),
		lmssdk.WithSessionExpiredHook(app.sessionExpired),
	}
	if cfg.RateLimit > 0 {
		clientOpts = append(clientOpts, lmssdk.WithRateLimit(rate.Limit(cfg.RateLimit), cfg.RateBurst))
	}

	app.client = lmssdk.New(cfg.APIURL, store, clientOpts...)
	app.manager = authstate.NewManager(app.client)

	app.logger.Debug("lmsctl initialised", "api", cfg.APIURL, "store", cfg.TokenStore)
	return app, nil
}

// sessionExpired is the chosen response to an unrecoverable session: the
// tokens are already gone, so sign the manager out and tell the user how to
// get back in.
func (app *Application) sessionExpired(ctx context.Context, err error) {
	app.manager.HandleSessionExpired(ctx, err)
	fmt.Fprintln(app.errOut, "Your session has expired. Run `lmsctl login` to sign in again.")
}

// Close flushes telemetry, writes the metrics dump and releases the store.
func (app *Application) Close(ctx context.Context) error {
	var errs []error

	if err := app.dumpMetrics(); err != nil {
		errs = append(errs, fmt.Errorf("dump metrics: %w", err))
	}
	if err := app.shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown tracing: %w", err))
	}
	for _, c := range app.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (app *Application) dumpMetrics() error {
	switch app.cfg.MetricsDump {
	case "":
		return nil
	case "-":
		return metrics.WriteText(app.errOut, app.registry)
	default:
		f, err := os.Create(app.cfg.MetricsDump)
		if err != nil {
			return err
		}
		defer f.Close()
		return metrics.WriteText(f, app.registry)
	}
}

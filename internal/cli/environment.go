package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chainguard-dev/clog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"

	"github.com/ahrav/gavel-bench/infrastructure/llm"
	"github.com/ahrav/gavel-bench/infrastructure/middleware"
	"github.com/ahrav/gavel-bench/infrastructure/store"
	"github.com/ahrav/gavel-bench/internal/application"
	"github.com/ahrav/gavel-bench/internal/ports"
)

// serviceName is the instrumentation name of the LLM request spans.
const serviceName = "gavel-bench"

// ClientFactory builds the LLM client for model.
type ClientFactory func(cfg application.Config, model string) (ports.LLMClient, error)

// Option customizes the command environment.
type Option func(*environment)

// WithLookuper reads configuration through l instead of the process environment.
func WithLookuper(l envconfig.Lookuper) Option {
	return func(e *environment) { e.lookuper = l }
}

// WithClientFactory replaces the provider registry used to build LLM clients.
func WithClientFactory(f ClientFactory) Option {
	return func(e *environment) { e.newClient = f }
}

// environment is the state shared by all subcommands of one invocation.
type environment struct {
	lookuper  envconfig.Lookuper
	newClient ClientFactory

	catalogPath string
	concurrency int

	cfg      application.Config
	registry *prometheus.Registry
	metrics  *middleware.PrometheusMetrics
	llm      *llm.Registry
}

func newEnvironment(opts []Option) *environment {
	e := &environment{lookuper: envconfig.OsLookuper()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// setup loads the configuration, installs the logger on the command's
// context and starts the metrics endpoint when one is configured.
func (e *environment) setup(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := application.LoadConfig(ctx, e.lookuper)
	if err != nil {
		return err
	}
	if e.concurrency < 0 {
		return fmt.Errorf("--concurrency must be positive, got %d", e.concurrency)
	}
	if e.concurrency > 0 {
		cfg.Concurrency = e.concurrency
	}
	e.cfg = cfg

	logger := clog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	ctx = clog.WithLogger(ctx, logger)

	e.registry = prometheus.NewRegistry()
	e.metrics = middleware.NewPrometheusMetrics(e.registry)
	if cfg.MetricsAddr != "" {
		e.serveMetrics(ctx, cfg.MetricsAddr)
	}

	cmd.SetContext(ctx)
	return nil
}

// serveMetrics exposes the Prometheus registry until ctx is done.
func (e *environment) serveMetrics(ctx context.Context, addr string) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           middleware.Handler(e.registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			clog.FromContext(ctx).Errorf("metrics server: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	clog.FromContext(ctx).Infof("Serving metrics on %s", addr)
}

func (e *environment) loadCatalog() (*application.PromptCatalog, error) {
	if e.catalogPath == "" {
		return application.DefaultCatalog()
	}
	return application.LoadCatalogFile(e.catalogPath)
}

// client returns the LLM client for model, resolved as a registry
// specification ("model", "provider" or "provider/model").
func (e *environment) client(model string) (ports.LLMClient, error) {
	if e.newClient != nil {
		return e.newClient(e.cfg, model)
	}
	if e.llm == nil {
		registry, err := e.newRegistry()
		if err != nil {
			return nil, err
		}
		e.llm = registry
	}
	return e.llm.GetClient(model)
}

func (e *environment) newRegistry() (*llm.Registry, error) {
	providers := make(map[string]llm.ProviderConfig, len(llm.DefaultProviders))
	for name, pc := range llm.DefaultProviders {
		pc.Middleware = []llm.Middleware{llm.MetricsMiddleware(name, e.metrics)}
		if name == e.cfg.Provider {
			pc.BaseURL = e.cfg.BaseURL
		}
		providers[name] = pc
	}

	return llm.NewRegistry(llm.RegistryConfig{
		Providers:       providers,
		DefaultProvider: e.cfg.Provider,
		APIKeys:         e.cfg.APIKeys(),
		DefaultMiddleware: []llm.Middleware{
			llm.TracingMiddleware(serviceName),
			llm.TimeoutMiddleware(e.cfg.RequestTimeout),
		},
	})
}

func (e *environment) batchOptions() []application.BatchOption {
	return []application.BatchOption{
		application.WithConcurrency(e.cfg.Concurrency),
		application.WithMetrics(e.metrics),
	}
}

func (e *environment) openStore(ctx context.Context, location string) (ports.ResultStore, error) {
	return store.Open(ctx, location, store.S3Options{
		Endpoint:  e.cfg.S3.Endpoint,
		Region:    e.cfg.S3.Region,
		AccessKey: e.cfg.S3.AccessKey,
		SecretKey: e.cfg.S3.SecretKey,
	})
}

// Package app wires configuration into the running service and exposes it over HTTP.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/your-org/jhadepilot/internal/breaker"
	"github.com/your-org/jhadepilot/internal/config"
	"github.com/your-org/jhadepilot/internal/generator"
	"github.com/your-org/jhadepilot/internal/metrics"
	"github.com/your-org/jhadepilot/internal/orchestrator"
	"github.com/your-org/jhadepilot/internal/sink"
	"github.com/your-org/jhadepilot/internal/stage"
	"github.com/your-org/jhadepilot/internal/telemetry"
	"github.com/your-org/jhadepilot/internal/tracing"
	"github.com/your-org/jhadepilot/pkg/adapters"
	"github.com/your-org/jhadepilot/pkg/adapters/openai"
)

const serviceName = "jhadepilot"

// Runtime holds the process-wide components built from a Config.
type Runtime struct {
	Config       config.Config
	Logger       *zap.Logger
	Registry     *prometheus.Registry
	Breaker      *breaker.CircuitBreaker
	Telemetry    *telemetry.Accumulator
	Orchestrator *orchestrator.Orchestrator

	closers []func(context.Context) error
}

// Option adjusts how Build assembles the runtime.
type Option func(*buildOptions)

type buildOptions struct {
	provider adapters.Provider
}

// WithProvider replaces the configured upstream client.
func WithProvider(p adapters.Provider) Option {
	return func(o *buildOptions) { o.provider = p }
}

// Build constructs every component described by cfg. Close releases what it opened.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (_ *Runtime, retErr error) {
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rt := &Runtime{Config: cfg, Logger: logger}
	defer func() {
		if retErr != nil {
			_ = rt.Close(context.Background())
		}
	}()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if cfg.Metrics.Enabled {
		rt.Registry = prometheus.NewRegistry()
		promRecorder, err := metrics.NewPrometheusRecorder(rt.Registry)
		if err != nil {
			return nil, fmt.Errorf("setup prometheus recorder: %w", err)
		}
		recorder = promRecorder
	}

	otelRuntime, err := tracing.Setup(ctx, serviceName, cfg.Trace, nil)
	if err != nil {
		return nil, fmt.Errorf("setup tracing: %w", err)
	}
	rt.closers = append(rt.closers, otelRuntime.Shutdown)

	provider := bo.provider
	if provider == nil {
		httpClient, err := adapters.NewHTTPClient(cfg.Upstream.Timeout, cfg.Upstream.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("upstream http client: %w", err)
		}
		provider = openai.NewClient(cfg.Upstream.APIKey, httpClient, cfg.Upstream.BaseURL)
		if !cfg.UpstreamConfigured() {
			logger.Warn("upstream api key not configured, every request will be served by the fallback generator")
		}
	}

	rt.Breaker = breaker.New(breaker.Policy{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
	}, generator.BreakerHook(logger.Named("breaker"), recorder))
	rt.Telemetry = telemetry.NewAccumulator(nil)

	gen := generator.New(provider, rt.Breaker, rt.Telemetry, generator.Options{
		Model:        cfg.Upstream.Model,
		SystemPrompt: cfg.Upstream.SystemPrompt,
		MaxTokens:    cfg.Upstream.MaxTokens,
		Temperature:  cfg.Upstream.Temperature,
		TopP:         cfg.Upstream.TopP,
		Timeout:      cfg.Upstream.Timeout,
	},
		generator.WithLogger(logger.Named("generator")),
		generator.WithRecorder(recorder),
		generator.WithTracer(otelRuntime.Tracer),
	)

	runner, err := stage.NewRunner(stage.Builtin(cfg.Stages),
		stage.WithLogger(logger.Named("stage")),
		stage.WithRecorder(recorder),
		stage.WithTracer(otelRuntime.Tracer),
	)
	if err != nil {
		return nil, fmt.Errorf("build stage runner: %w", err)
	}

	sinks, err := rt.buildSinks(ctx)
	if err != nil {
		return nil, err
	}

	rt.Orchestrator = orchestrator.New(gen, runner, rt.Telemetry, rt.Breaker,
		orchestrator.WithSink(sinks),
		orchestrator.WithLogger(logger.Named("orchestrator")),
		orchestrator.WithTracer(otelRuntime.Tracer),
	)
	return rt, nil
}

func (rt *Runtime) buildSinks(ctx context.Context) (sink.Sink, error) {
	cfg := rt.Config.Sink
	var sinks []sink.Sink
	if cfg.FilePath != "" {
		sinks = append(sinks, sink.NewFileSink(cfg.FilePath))
	}
	if cfg.RedisURL != "" {
		rs, err := sink.NewRedisSink(ctx, cfg.RedisURL, cfg.RedisKey)
		if err != nil {
			return nil, fmt.Errorf("metrics redis sink: %w", err)
		}
		rt.closers = append(rt.closers, func(context.Context) error { return rs.Close() })
		sinks = append(sinks, rs)
	}
	return sink.NewMulti(sinks...), nil
}

// Close releases resources in reverse order of acquisition.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

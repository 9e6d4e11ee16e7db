// Package generator wraps the upstream completion call with a circuit breaker,
// telemetry and a local fallback so callers always receive usable text.
package generator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/jhadepilot/internal/breaker"
	"github.com/your-org/jhadepilot/internal/metrics"
	"github.com/your-org/jhadepilot/internal/telemetry"
	"github.com/your-org/jhadepilot/pkg/adapters"
)

// DefaultSystemPrompt frames the upstream model as a code generator.
const DefaultSystemPrompt = "You are an expert software engineer. Generate clean, production-ready code " +
	"with error handling, type hints and brief comments. Return only the code."

const userTemplate = "Generate production-ready code for: %s"

// Fallback reasons reported in Output.Reason.
const (
	ReasonBreakerOpen   = "circuit_open"
	ReasonUpstreamError = "upstream_error"
)

// Options carries the per-request upstream parameters.
type Options struct {
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
	TopP         float64
	Timeout      time.Duration
}

// Output is the result of one Generate call.
type Output struct {
	Text     string
	Fallback bool
	Reason   string
	Latency  time.Duration
}

// Generator is safe for concurrent use; the breaker and accumulator are shared
// across all callers.
type Generator struct {
	provider  adapters.Provider
	breaker   *breaker.CircuitBreaker
	telemetry *telemetry.Accumulator
	opts      Options
	recorder  metrics.Recorder
	logger    *zap.Logger
	tracer    oteltrace.Tracer
	now       func() time.Time
}

type Option func(*Generator)

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithRecorder(rec metrics.Recorder) Option {
	return func(g *Generator) {
		if rec != nil {
			g.recorder = rec
		}
	}
}

func WithTracer(t oteltrace.Tracer) Option {
	return func(g *Generator) {
		if t != nil {
			g.tracer = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

func New(provider adapters.Provider, cb *breaker.CircuitBreaker, acc *telemetry.Accumulator, opts Options, options ...Option) *Generator {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if cb == nil {
		cb = breaker.New(breaker.DefaultPolicy(), nil)
	}
	if acc == nil {
		acc = telemetry.NewAccumulator(nil)
	}
	g := &Generator{
		provider:  provider,
		breaker:   cb,
		telemetry: acc,
		opts:      opts,
		recorder:  metrics.NoopRecorder{},
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("jhadepilot/generator"),
		now:       time.Now,
	}
	for _, o := range options {
		o(g)
	}
	return g
}

func (g *Generator) Breaker() *breaker.CircuitBreaker { return g.breaker }

// Generate never fails. When the breaker refuses the call or the upstream call fails,
// the returned text is a locally rendered skeleton that echoes prompt.
func (g *Generator) Generate(ctx context.Context, prompt string) Output {
	ctx, span := g.tracer.Start(ctx, "generator.generate")
	defer span.End()

	if !g.breaker.Allow(g.now()) {
		g.telemetry.Record(0, false)
		g.recorder.ObserveGeneration(metrics.OutcomeRejected, 0)
		span.RecordError(breaker.ErrOpen)
		span.SetAttributes(attribute.String("generation.outcome", metrics.OutcomeRejected))
		g.logger.Warn("serving fallback", zap.Error(breaker.ErrOpen))
		return Output{Text: g.fallback(prompt), Fallback: true, Reason: ReasonBreakerOpen}
	}

	started := time.Now()
	text, err := g.call(ctx, prompt)
	elapsed := time.Since(started)

	if err != nil {
		g.breaker.RecordFailure(g.now())
		g.telemetry.Record(elapsed, false)
		g.recorder.ObserveGeneration(metrics.OutcomeFallback, elapsed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("generation.outcome", metrics.OutcomeFallback))
		g.logger.Warn("upstream generation failed, serving fallback",
			zap.Error(err),
			zap.Duration("latency", elapsed),
			zap.Stringer("breaker_state", g.breaker.State()),
		)
		return Output{Text: g.fallback(prompt), Fallback: true, Reason: ReasonUpstreamError, Latency: elapsed}
	}

	g.breaker.RecordSuccess()
	g.telemetry.Record(elapsed, true)
	g.recorder.ObserveGeneration(metrics.OutcomeUpstream, elapsed)
	span.SetAttributes(attribute.String("generation.outcome", metrics.OutcomeUpstream))
	g.logger.Debug("upstream generation succeeded", zap.Duration("latency", elapsed))
	return Output{Text: text, Latency: elapsed}
}

// call is bounded by the upstream timeout only; a caller that goes away does not
// abort the request or count against the breaker.
func (g *Generator) call(ctx context.Context, prompt string) (text string, err error) {
	if g.provider == nil {
		return "", errors.New("no upstream provider configured")
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s generate panic: %v", g.provider.Name(), rec)
		}
	}()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.opts.Timeout)
	defer cancel()

	resp, err := g.provider.Generate(ctx, adapters.GenerateRequest{
		Model:       g.opts.Model,
		System:      g.opts.SystemPrompt,
		Prompt:      fmt.Sprintf(userTemplate, prompt),
		MaxTokens:   g.opts.MaxTokens,
		Temperature: g.opts.Temperature,
		TopP:        g.opts.TopP,
	})
	if err != nil {
		return "", fmt.Errorf("%s generate: %w", g.provider.Name(), err)
	}
	return resp.Text, nil
}

func (g *Generator) fallback(prompt string) string {
	text, err := RenderFallback(prompt, g.now())
	if err != nil {
		g.logger.Error("render fallback template", zap.Error(err))
		return "# Generated code for: " + prompt + "\n"
	}
	return text
}

// BreakerHook reports breaker transitions to the logger and recorder. It runs with
// the breaker lock held and must not call back into the breaker.
func BreakerHook(logger *zap.Logger, rec metrics.Recorder) breaker.TransitionFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return func(from, to breaker.State) {
		rec.ObserveBreakerTransition(from.String(), to.String())
		logger.Info("circuit breaker transition",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}
}

// Package orchestrator runs one generation request end to end: validation,
// guarded generation, the stage fan-out, telemetry merge and the metrics log.
package orchestrator

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/jhadepilot/internal/breaker"
	"github.com/your-org/jhadepilot/internal/generator"
	"github.com/your-org/jhadepilot/internal/sink"
	"github.com/your-org/jhadepilot/internal/stage"
	"github.com/your-org/jhadepilot/internal/state"
	"github.com/your-org/jhadepilot/internal/telemetry"
)

// Generator produces code text and never fails.
type Generator interface {
	Generate(ctx context.Context, prompt string) generator.Output
}

// StageRunner fans generated code out to the simulated stages.
type StageRunner interface {
	Run(ctx context.Context, in stage.Input) map[string]stage.Result
}

// StateSource exposes the breaker state reported with every result.
type StateSource interface {
	State() breaker.State
}

// Telemetry is the telemetry block returned with each result.
type Telemetry struct {
	telemetry.Snapshot
	TotalExecutionTimeMs float64 `json:"total_execution_time_ms"`
	CircuitBreakerState  string  `json:"circuit_breaker_state"`
}

// Result is the outcome of one orchestration.
type Result struct {
	RequestID      string                  `json:"request_id"`
	Code           string                  `json:"code"`
	Fallback       bool                    `json:"fallback"`
	FallbackReason string                  `json:"fallback_reason,omitempty"`
	Agents         map[string]stage.Result `json:"agents"`
	Telemetry      Telemetry               `json:"telemetry"`
	Timestamp      time.Time               `json:"timestamp"`
}

type Orchestrator struct {
	gen       Generator
	runner    StageRunner
	telemetry *telemetry.Accumulator
	breaker   StateSource
	sink      sink.Sink
	logger    *zap.Logger
	tracer    oteltrace.Tracer
	now       func() time.Time
}

type Option func(*Orchestrator)

func WithSink(s sink.Sink) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.sink = s
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithTracer(t oteltrace.Tracer) Option {
	return func(o *Orchestrator) {
		if t != nil {
			o.tracer = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func New(gen Generator, runner StageRunner, acc *telemetry.Accumulator, cb StateSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:       gen,
		runner:    runner,
		telemetry: acc,
		breaker:   cb,
		sink:      sink.Noop{},
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("jhadepilot/orchestrator"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Validate checks a prompt without running anything.
func Validate(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	if utf8.RuneCountInString(prompt) > MaxPromptLength {
		return ErrPromptTooLong
	}
	return nil
}

// Run generates code for prompt, runs every stage against it and appends the
// resulting telemetry to the metrics log. Only validation errors are returned.
func (o *Orchestrator) Run(ctx context.Context, prompt string) (Result, error) {
	if err := Validate(prompt); err != nil {
		return Result{}, err
	}

	requestID := state.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := o.logger.With(zap.String("request_id", requestID))

	ctx, span := o.tracer.Start(ctx, "orchestrate",
		oteltrace.WithAttributes(attribute.String("request.id", requestID)))
	defer span.End()

	started := time.Now()
	out := o.gen.Generate(ctx, prompt)
	agents := o.runner.Run(ctx, stage.Input{Code: out.Text, Prompt: prompt})
	elapsed := time.Since(started)

	res := Result{
		RequestID:      requestID,
		Code:           out.Text,
		Fallback:       out.Fallback,
		FallbackReason: out.Reason,
		Agents:         agents,
		Telemetry: Telemetry{
			Snapshot:             o.telemetry.Snapshot(),
			TotalExecutionTimeMs: float64(elapsed.Microseconds()) / 1000,
			CircuitBreakerState:  o.breaker.State().String(),
		},
		Timestamp: o.now(),
	}
	span.SetAttributes(
		attribute.Bool("generation.fallback", res.Fallback),
		attribute.String("breaker.state", res.Telemetry.CircuitBreakerState),
	)

	if err := o.sink.Append(context.WithoutCancel(ctx), record(res)); err != nil {
		logger.Error("append metrics log", zap.Error(err))
	}

	logger.Info("orchestration completed",
		zap.Bool("fallback", res.Fallback),
		zap.Int("stages", len(agents)),
		zap.Int("failed_stages", countFailed(agents)),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func record(res Result) sink.Record {
	t := res.Telemetry
	return sink.Record{
		RequestID:            res.RequestID,
		TotalRequests:        t.TotalRequests,
		ErrorCount:           t.ErrorCount,
		AvgResponseTimeMs:    t.AvgResponseTimeMs,
		SuccessRatePercent:   t.SuccessRatePercent,
		TotalExecutionTimeMs: t.TotalExecutionTimeMs,
		CircuitBreakerState:  t.CircuitBreakerState,
		Fallback:             res.Fallback,
		Timestamp:            res.Timestamp,
	}
}

func countFailed(agents map[string]stage.Result) int {
	n := 0
	for _, r := range agents {
		if r.Status == stage.StatusFailed {
			n++
		}
	}
	return n
}

package stage

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/jhadepilot/internal/metrics"
)

// Runner fans a single input out to every registered stage.
type Runner struct {
	stages   []Stage
	logger   *zap.Logger
	recorder metrics.Recorder
	tracer   oteltrace.Tracer
	now      func() time.Time
}

type Option func(*Runner)

func WithLogger(l *zap.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithRecorder(rec metrics.Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

func WithTracer(t oteltrace.Tracer) Option {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRunner validates the stage set and returns a runner for it.
func NewRunner(stages []Stage, opts ...Option) (*Runner, error) {
	if err := validate(stages); err != nil {
		return nil, err
	}
	r := &Runner{
		stages:   append([]Stage(nil), stages...),
		logger:   zap.NewNop(),
		recorder: metrics.NoopRecorder{},
		tracer:   otel.Tracer("jhadepilot/stage"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Names lists the registered stages in registration order.
func (r *Runner) Names() []string {
	names := make([]string, len(r.stages))
	for i, s := range r.stages {
		names[i] = s.Name
	}
	return names
}

// Run starts every stage concurrently and waits for all of them. The result holds
// exactly one entry per registered stage; a failing or panicking stage is reported
// as failed without affecting its siblings.
func (r *Runner) Run(ctx context.Context, in Input) map[string]Result {
	results := make([]Result, len(r.stages))

	// Plain Group: one stage failing must not cancel the others.
	var g errgroup.Group
	for i, s := range r.stages {
		g.Go(func() error {
			results[i] = r.runOne(ctx, s, in)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Result, len(results))
	for _, res := range results {
		out[res.Stage] = res
	}
	return out
}

func (r *Runner) runOne(ctx context.Context, s Stage, in Input) Result {
	ctx, span := r.tracer.Start(ctx, "stage."+s.Name,
		oteltrace.WithAttributes(attribute.String("stage.name", s.Name)))
	defer span.End()

	started := time.Now()
	payload, err := execute(ctx, s, in)
	elapsed := time.Since(started)

	res := Result{
		Stage:      s.Name,
		DurationMs: float64(elapsed.Microseconds()) / 1000,
		Timestamp:  r.now(),
	}
	if err != nil {
		res.Status = StatusFailed
		res.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.logger.Warn("stage failed", zap.String("stage", s.Name), zap.Error(err))
	} else {
		res.Status = StatusSuccess
		res.Payload = payload
	}
	span.SetAttributes(attribute.String("stage.status", string(res.Status)))
	r.recorder.ObserveStage(s.Name, string(res.Status), elapsed)
	return res
}

func execute(ctx context.Context, s Stage, in Input) (map[string]any, error) {
	if err := wait(ctx, s.Delay); err != nil {
		return nil, err
	}
	return safeCall(ctx, s.Run, in)
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("stage interrupted: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

func safeCall(ctx context.Context, fn Func, in Input) (out map[string]any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("stage panic: %v", rec)
		}
	}()
	return fn(ctx, in)
}

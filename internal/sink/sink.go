// Package sink appends per-request telemetry records to durable destinations.
package sink

import (
	"context"
	"errors"
	"time"
)

// Record is one line of the metrics log.
type Record struct {
	RequestID            string    `json:"request_id"`
	TotalRequests        int64     `json:"total_requests"`
	ErrorCount           int64     `json:"error_count"`
	AvgResponseTimeMs    float64   `json:"avg_response_time_ms"`
	SuccessRatePercent   float64   `json:"success_rate"`
	TotalExecutionTimeMs float64   `json:"total_execution_time_ms"`
	CircuitBreakerState  string    `json:"circuit_breaker_state"`
	Fallback             bool      `json:"fallback"`
	Timestamp            time.Time `json:"timestamp"`
}

// Sink accepts records in arrival order and never rewrites earlier ones.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// Noop discards records.
type Noop struct{}

func (Noop) Append(context.Context, Record) error { return nil }

// Multi appends to every configured sink and joins their errors.
type Multi struct {
	sinks []Sink
}

func NewMulti(sinks ...Sink) *Multi {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &Multi{sinks: out}
}

func (m *Multi) Append(ctx context.Context, rec Record) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package metrics

import "time"

// Generation outcomes reported by ObserveGeneration.
const (
	OutcomeUpstream = "upstream"
	OutcomeFallback = "fallback"
	OutcomeRejected = "rejected"
)

// Recorder defines the metric hooks used by the generator, stages and breaker.
type Recorder interface {
	ObserveGeneration(outcome string, duration time.Duration)
	ObserveStage(stage string, status string, duration time.Duration)
	ObserveBreakerTransition(from string, to string)
}

// NoopRecorder is used when metrics are disabled.
type NoopRecorder struct{}

func (NoopRecorder) ObserveGeneration(string, time.Duration)    {}
func (NoopRecorder) ObserveStage(string, string, time.Duration) {}
func (NoopRecorder) ObserveBreakerTransition(string, string)    {}

package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder reports runtime metrics using Prometheus primitives.
type PrometheusRecorder struct {
	generations *prometheus.CounterVec
	genDuration *prometheus.HistogramVec
	stages      *prometheus.CounterVec
	stageDur    *prometheus.HistogramVec
	transitions *prometheus.CounterVec
}

func NewPrometheusRecorder(registry *prometheus.Registry) (*PrometheusRecorder, error) {
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	r := &PrometheusRecorder{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jhadepilot_generations_total",
			Help: "Total number of generation calls by outcome",
		}, []string{"outcome"}),
		genDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jhadepilot_generation_duration_seconds",
			Help:    "Generation call latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		}, []string{"outcome"}),
		stages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jhadepilot_stage_runs_total",
			Help: "Total number of simulated stage runs by stage and status",
		}, []string{"stage", "status"}),
		stageDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jhadepilot_stage_duration_seconds",
			Help:    "Simulated stage latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"stage"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jhadepilot_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		}, []string{"from", "to"}),
	}

	for _, collector := range []prometheus.Collector{r.generations, r.genDuration, r.stages, r.stageDur, r.transitions} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}
	return r, nil
}

func (r *PrometheusRecorder) ObserveGeneration(outcome string, duration time.Duration) {
	r.generations.WithLabelValues(outcome).Inc()
	r.genDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveStage(stage string, status string, duration time.Duration) {
	r.stages.WithLabelValues(stage, status).Inc()
	r.stageDur.WithLabelValues(stage).Observe(duration.Seconds())
}

func (r *PrometheusRecorder) ObserveBreakerTransition(from string, to string) {
	r.transitions.WithLabelValues(from, to).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// StartPrometheusServer serves the registry on a dedicated listener.
func StartPrometheusServer(addr string, registry *prometheus.Registry) (*http.Server, error) {
	if addr == "" {
		addr = ":2112"
	}
	if registry == nil {
		return nil, fmt.Errorf("prometheus registry is nil")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics endpoint %q: %w", addr, err)
	}

	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           Handler(registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		_ = srv.Serve(ln)
	}()
	return srv, nil
}

func StopServer(ctx context.Context, srv *http.Server) error {
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

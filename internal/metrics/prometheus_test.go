package metrics

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)

	rec.ObserveGeneration(OutcomeUpstream, 120*time.Millisecond)
	rec.ObserveGeneration(OutcomeFallback, time.Millisecond)
	rec.ObserveGeneration(OutcomeFallback, time.Millisecond)
	rec.ObserveStage("build", "success", time.Second)
	rec.ObserveBreakerTransition("CLOSED", "OPEN")

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.generations.WithLabelValues(OutcomeUpstream)))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.generations.WithLabelValues(OutcomeFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.stages.WithLabelValues("build", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.transitions.WithLabelValues("CLOSED", "OPEN")))
}

func TestPrometheusRecorderRejectsDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)
	_, err = NewPrometheusRecorder(reg)
	assert.Error(t, err)

	_, err = NewPrometheusRecorder(nil)
	assert.Error(t, err)
}

func TestPrometheusServerEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	require.NoError(t, err)
	rec.ObserveStage("deploy", "failed", time.Millisecond)

	srv, err := StartPrometheusServer("127.0.0.1:0", reg)
	require.NoError(t, err)
	defer func() { _ = StopServer(context.Background(), srv) }()

	resp, err := http.Get("http://" + srv.Addr)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "jhadepilot_stage_runs_total")
}

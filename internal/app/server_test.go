package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/jhadepilot/internal/breaker"
	"github.com/your-org/jhadepilot/internal/config"
	"github.com/your-org/jhadepilot/internal/orchestrator"
	"github.com/your-org/jhadepilot/internal/telemetry"
	"github.com/your-org/jhadepilot/pkg/adapters"
)

type stubProvider struct {
	err error
}

func (stubProvider) Name() string { return "stub" }

func (s stubProvider) Generate(context.Context, adapters.GenerateRequest) (adapters.GenerateResponse, error) {
	if s.err != nil {
		return adapters.GenerateResponse{}, s.err
	}
	return adapters.GenerateResponse{Text: "import requests\n"}, nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Stages.DelayScale = 0
	cfg.Sink.FilePath = filepath.Join(t.TempDir(), "metrics.jsonl")
	return cfg
}

func newTestRuntime(t *testing.T, p adapters.Provider) *Runtime {
	t.Helper()
	rt, err := Build(context.Background(), testConfig(t), zap.NewNop(), WithProvider(p))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close(context.Background()) })
	return rt
}

func do(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func TestRootAndHealth(t *testing.T) {
	h := NewHandler(newTestRuntime(t, stubProvider{})).Router()

	w := do(t, h, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = do(t, h, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "version")
	assert.Contains(t, body, "timestamp")
	assert.Equal(t, "CLOSED", body["circuit_breaker"].(map[string]any)["state"])
	assert.EqualValues(t, 0, body["telemetry"].(map[string]any)["total_requests"])
	assert.EqualValues(t, 100, body["telemetry"].(map[string]any)["success_rate_percent"])
	assert.Equal(t, "not_configured", body["services"].(map[string]any)["upstream"])
}

func TestGenerateEndpoint(t *testing.T) {
	h := NewHandler(newTestRuntime(t, stubProvider{})).Router()

	w := do(t, h, http.MethodPost, "/generate", `{"prompt":"fetch a page"}`, map[string]string{requestIDHeader: "req-7"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "req-7", w.Header().Get(requestIDHeader))

	body := decode(t, w)
	assert.Equal(t, "req-7", body["request_id"])
	assert.Equal(t, "import requests\n", body["code"])
	assert.Equal(t, false, body["fallback"])
	agents := body["agents"].(map[string]any)
	assert.Len(t, agents, 5)
	for _, name := range []string{"build", "test", "deploy", "security", "performance"} {
		assert.Equal(t, "success", agents[name].(map[string]any)["status"], name)
	}
	tel := body["telemetry"].(map[string]any)
	assert.EqualValues(t, 1, tel["total_requests"])
	assert.Equal(t, "CLOSED", tel["circuit_breaker_state"])
}

func TestGenerateFallbackStillSucceeds(t *testing.T) {
	h := NewHandler(newTestRuntime(t, stubProvider{err: errors.New("upstream down")})).Router()

	w := do(t, h, http.MethodPost, "/generate", `{"prompt":"reverse a string"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["fallback"])
	assert.Contains(t, body["code"], "reverse a string")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestGenerateValidation(t *testing.T) {
	h := NewHandler(newTestRuntime(t, stubProvider{})).Router()

	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "missing prompt", body: `{}`, want: "Prompt is required"},
		{name: "empty prompt", body: `{"prompt":"   "}`, want: "Prompt is required"},
		{name: "invalid json", body: `{"prompt":`, want: "Invalid request body"},
		{name: "wrong type", body: `{"prompt":42}`, want: "Invalid request body"},
		{name: "too long", body: `{"prompt":"` + strings.Repeat("x", 1001) + `"}`, want: orchestrator.ErrPromptTooLong.Error()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/generate", tc.body, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decode(t, w)
			assert.Equal(t, tc.want, body["error"])
			assert.EqualValues(t, http.StatusBadRequest, body["status_code"])
			assert.Contains(t, body, "timestamp")
		})
	}
}

type brokenOrchestrator struct {
	panic bool
}

func (b brokenOrchestrator) Run(context.Context, string) (orchestrator.Result, error) {
	if b.panic {
		panic("nil map write")
	}
	return orchestrator.Result{}, errors.New("database password is hunter2")
}

func TestGenerateInternalErrorsAreGeneric(t *testing.T) {
	for _, panics := range []bool{false, true} {
		h := (&Handler{
			Orchestrator: brokenOrchestrator{panic: panics},
			Telemetry:    telemetry.NewAccumulator(nil),
			Breaker:      breaker.New(breaker.DefaultPolicy(), nil),
		}).Router()

		w := do(t, h, http.MethodPost, "/generate", `{"prompt":"x"}`, nil)
		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, internalErrorMessage, body["error"])
		assert.EqualValues(t, http.StatusInternalServerError, body["status_code"])
		assert.NotContains(t, w.Body.String(), "hunter2")
		assert.NotContains(t, w.Body.String(), "nil map write")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewHandler(newTestRuntime(t, stubProvider{})).Router()
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/generate", `{"prompt":"x"}`, nil).Code)

	w := do(t, h, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `jhadepilot_generations_total{outcome="upstream"} 1`)
	assert.Contains(t, w.Body.String(), "jhadepilot_stage_runs_total")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	rt, err := Build(context.Background(), cfg, nil, WithProvider(stubProvider{}))
	require.NoError(t, err)
	defer func() { _ = rt.Close(context.Background()) }()

	w := do(t, NewHandler(rt).Router(), http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	h := NewHandler(newTestRuntime(t, stubProvider{})).Router()

	w := do(t, h, http.MethodOptions, "/generate", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBuildRejectsUnreachableRedis(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sink.RedisURL = "redis://127.0.0.1:1"
	_, err := Build(context.Background(), cfg, nil, WithProvider(stubProvider{}))
	assert.Error(t, err)
}

func TestServeStopsOnCancel(t *testing.T) {
	rt := newTestRuntime(t, stubProvider{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, rt) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestServeReportsListenError(t *testing.T) {
	rt := newTestRuntime(t, stubProvider{})
	rt.Config.Server.Addr = "127.0.0.1:-1"
	err := Serve(context.Background(), rt)
	assert.Error(t, err)
}

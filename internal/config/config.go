package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full runtime configuration for the server and CLI.
type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Breaker  BreakerConfig
	Stages   StageConfig
	Metrics  MetricsConfig
	Sink     SinkConfig
	Trace    TraceConfig
	Log      LogConfig
}

type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	CORSAllowOrigins  []string
	TLS               TLSConfig
}

type TLSConfig struct {
	Enabled           bool
	CertFile          string
	KeyFile           string
	CAFile            string
	RequireClientCert bool
}

// UpstreamConfig describes the chat-completions endpoint.
type UpstreamConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	MaxTokens    int
	Temperature  float64
	TopP         float64
	Timeout      time.Duration
	ProxyURL     string
	SystemPrompt string
}

type BreakerConfig struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// StageConfig tunes the simulated stages. Delays override the built-in per-stage
// waits by name; DelayScale multiplies every wait and 0 disables waiting.
type StageConfig struct {
	DelayScale   float64
	Delays       map[string]time.Duration
	DeployRegion string
}

type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// SinkConfig selects where telemetry records are appended.
type SinkConfig struct {
	FilePath string
	RedisURL string
	RedisKey string
}

type TraceConfig struct {
	Enabled  bool
	Endpoint string
}

type LogConfig struct {
	Level  string
	Format string
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:              ":8001",
			ReadHeaderTimeout: 5 * time.Second,
			CORSAllowOrigins:  []string{"*"},
		},
		Upstream: UpstreamConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama3-70b-8192",
			MaxTokens:   4000,
			Temperature: 0.7,
			TopP:        0.9,
			Timeout:     30 * time.Second,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			ResetTimeout:     60 * time.Second,
		},
		Stages: StageConfig{
			DelayScale:   1,
			Delays:       map[string]time.Duration{},
			DeployRegion: "ap-south-1",
		},
		Metrics: MetricsConfig{Enabled: true},
		Sink: SinkConfig{
			FilePath: "metrics.jsonl",
			RedisKey: "jhadepilot:metrics",
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load builds a Config from defaults, an optional YAML file and the environment,
// in that order of precedence (environment wins).
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		if err := applyFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings that would make the runtime misbehave.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	for _, origin := range c.Server.CORSAllowOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			errs = append(errs, fmt.Errorf("server.cors_allow_origins: %q must be \"*\" or an http(s) origin", origin))
		}
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires cert_file and key_file"))
	}
	if c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("upstream.base_url is empty"))
	}
	if c.Upstream.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("upstream.max_tokens must be positive, got %d", c.Upstream.MaxTokens))
	}
	if c.Upstream.Temperature < 0 || c.Upstream.Temperature > 2 {
		errs = append(errs, fmt.Errorf("upstream.temperature must be within [0,2], got %g", c.Upstream.Temperature))
	}
	if c.Upstream.TopP <= 0 || c.Upstream.TopP > 1 {
		errs = append(errs, fmt.Errorf("upstream.top_p must be within (0,1], got %g", c.Upstream.TopP))
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, errors.New("upstream.timeout must be positive"))
	}
	if c.Breaker.FailureThreshold <= 0 {
		errs = append(errs, fmt.Errorf("breaker.failure_threshold must be positive, got %d", c.Breaker.FailureThreshold))
	}
	if c.Breaker.ResetTimeout <= 0 {
		errs = append(errs, errors.New("breaker.reset_timeout must be positive"))
	}
	if c.Stages.DelayScale < 0 {
		errs = append(errs, fmt.Errorf("stages.delay_scale must not be negative, got %g", c.Stages.DelayScale))
	}
	for name, d := range c.Stages.Delays {
		if d < 0 {
			errs = append(errs, fmt.Errorf("stages.delays.%s must not be negative", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// UpstreamConfigured reports whether an API key is available for the upstream.
func (c Config) UpstreamConfigured() bool {
	return strings.TrimSpace(c.Upstream.APIKey) != ""
}

func applyEnv(cfg *Config) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	envString("SERVER_ADDR", &cfg.Server.Addr)
	collect(envBool("SERVER_TLS_ENABLED", &cfg.Server.TLS.Enabled))
	envString("SERVER_TLS_CERT_FILE", &cfg.Server.TLS.CertFile)
	envString("SERVER_TLS_KEY_FILE", &cfg.Server.TLS.KeyFile)
	envString("SERVER_TLS_CA_FILE", &cfg.Server.TLS.CAFile)
	collect(envBool("SERVER_TLS_REQUIRE_CLIENT_CERT", &cfg.Server.TLS.RequireClientCert))
	if v := strings.TrimSpace(os.Getenv("CORS_ALLOW_ORIGINS")); v != "" {
		cfg.Server.CORSAllowOrigins = splitList(v)
	}

	envString("UPSTREAM_BASE_URL", &cfg.Upstream.BaseURL)
	envString("GROQ_API_KEY", &cfg.Upstream.APIKey)
	envString("UPSTREAM_API_KEY", &cfg.Upstream.APIKey)
	envString("UPSTREAM_MODEL", &cfg.Upstream.Model)
	collect(envInt("UPSTREAM_MAX_TOKENS", &cfg.Upstream.MaxTokens))
	collect(envFloat("UPSTREAM_TEMPERATURE", &cfg.Upstream.Temperature))
	collect(envFloat("UPSTREAM_TOP_P", &cfg.Upstream.TopP))
	collect(envDuration("UPSTREAM_TIMEOUT", &cfg.Upstream.Timeout))
	envString("UPSTREAM_PROXY_URL", &cfg.Upstream.ProxyURL)

	collect(envInt("BREAKER_FAILURE_THRESHOLD", &cfg.Breaker.FailureThreshold))
	collect(envDuration("BREAKER_RESET_TIMEOUT", &cfg.Breaker.ResetTimeout))

	collect(envFloat("STAGE_DELAY_SCALE", &cfg.Stages.DelayScale))
	envString("DEPLOY_REGION", &cfg.Stages.DeployRegion)

	collect(envBool("METRICS_ENABLED", &cfg.Metrics.Enabled))
	envString("METRICS_ADDR", &cfg.Metrics.Addr)
	envString("METRICS_LOG_PATH", &cfg.Sink.FilePath)
	envString("METRICS_REDIS_URL", &cfg.Sink.RedisURL)
	envString("METRICS_REDIS_KEY", &cfg.Sink.RedisKey)

	collect(envBool("TRACE_ENABLED", &cfg.Trace.Enabled))
	envString("TRACE_ENDPOINT", &cfg.Trace.Endpoint)

	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("LOG_FORMAT", &cfg.Log.Format)

	if len(errs) > 0 {
		return fmt.Errorf("config env: %w", errors.Join(errs...))
	}
	return nil
}

func envString(key string, dst *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envFloat(key string, dst *float64) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = f
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

func envBool(key string, dst *bool) error {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "":
		return nil
	case "1", "true", "yes", "on":
		*dst = true
	case "0", "false", "no", "off":
		*dst = false
	default:
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	return nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

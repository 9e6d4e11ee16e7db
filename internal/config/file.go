package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a config file. Durations are strings such as "30s".
// Unset fields keep their defaults.
type File struct {
	Server struct {
		Addr              string   `yaml:"addr"`
		ReadHeaderTimeout string   `yaml:"read_header_timeout"`
		CORSAllowOrigins  []string `yaml:"cors_allow_origins"`
		TLS               struct {
			Enabled           *bool  `yaml:"enabled"`
			CertFile          string `yaml:"cert_file"`
			KeyFile           string `yaml:"key_file"`
			CAFile            string `yaml:"ca_file"`
			RequireClientCert *bool  `yaml:"require_client_cert"`
		} `yaml:"tls"`
	} `yaml:"server"`
	Upstream struct {
		BaseURL      string   `yaml:"base_url"`
		APIKey       string   `yaml:"api_key"`
		Model        string   `yaml:"model"`
		MaxTokens    int      `yaml:"max_tokens"`
		Temperature  *float64 `yaml:"temperature"`
		TopP         *float64 `yaml:"top_p"`
		Timeout      string   `yaml:"timeout"`
		ProxyURL     string   `yaml:"proxy_url"`
		SystemPrompt string   `yaml:"system_prompt"`
	} `yaml:"upstream"`
	Breaker struct {
		FailureThreshold int    `yaml:"failure_threshold"`
		ResetTimeout     string `yaml:"reset_timeout"`
	} `yaml:"breaker"`
	Stages struct {
		DelayScale   *float64          `yaml:"delay_scale"`
		Delays       map[string]string `yaml:"delays"`
		DeployRegion string            `yaml:"deploy_region"`
	} `yaml:"stages"`
	Metrics struct {
		Enabled *bool  `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`
	Sink struct {
		FilePath string `yaml:"file_path"`
		RedisURL string `yaml:"redis_url"`
		RedisKey string `yaml:"redis_key"`
	} `yaml:"sink"`
	Trace struct {
		Enabled  *bool  `yaml:"enabled"`
		Endpoint string `yaml:"endpoint"`
	} `yaml:"trace"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

func applyFile(cfg *Config, path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %q: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("config: unmarshal %q: %w", path, err)
	}
	if err := f.apply(cfg); err != nil {
		return fmt.Errorf("config: %q: %w", path, err)
	}
	return nil
}

func (f File) apply(cfg *Config) error {
	setString(&cfg.Server.Addr, f.Server.Addr)
	if err := setDuration(&cfg.Server.ReadHeaderTimeout, f.Server.ReadHeaderTimeout, "server.read_header_timeout"); err != nil {
		return err
	}
	if len(f.Server.CORSAllowOrigins) > 0 {
		cfg.Server.CORSAllowOrigins = append([]string(nil), f.Server.CORSAllowOrigins...)
	}
	setBool(&cfg.Server.TLS.Enabled, f.Server.TLS.Enabled)
	setString(&cfg.Server.TLS.CertFile, f.Server.TLS.CertFile)
	setString(&cfg.Server.TLS.KeyFile, f.Server.TLS.KeyFile)
	setString(&cfg.Server.TLS.CAFile, f.Server.TLS.CAFile)
	setBool(&cfg.Server.TLS.RequireClientCert, f.Server.TLS.RequireClientCert)

	setString(&cfg.Upstream.BaseURL, f.Upstream.BaseURL)
	setString(&cfg.Upstream.APIKey, f.Upstream.APIKey)
	setString(&cfg.Upstream.Model, f.Upstream.Model)
	if f.Upstream.MaxTokens != 0 {
		cfg.Upstream.MaxTokens = f.Upstream.MaxTokens
	}
	setFloat(&cfg.Upstream.Temperature, f.Upstream.Temperature)
	setFloat(&cfg.Upstream.TopP, f.Upstream.TopP)
	if err := setDuration(&cfg.Upstream.Timeout, f.Upstream.Timeout, "upstream.timeout"); err != nil {
		return err
	}
	setString(&cfg.Upstream.ProxyURL, f.Upstream.ProxyURL)
	setString(&cfg.Upstream.SystemPrompt, f.Upstream.SystemPrompt)

	if f.Breaker.FailureThreshold != 0 {
		cfg.Breaker.FailureThreshold = f.Breaker.FailureThreshold
	}
	if err := setDuration(&cfg.Breaker.ResetTimeout, f.Breaker.ResetTimeout, "breaker.reset_timeout"); err != nil {
		return err
	}

	setFloat(&cfg.Stages.DelayScale, f.Stages.DelayScale)
	setString(&cfg.Stages.DeployRegion, f.Stages.DeployRegion)
	for name, raw := range f.Stages.Delays {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid stages.delays.%s: %w", name, err)
		}
		if cfg.Stages.Delays == nil {
			cfg.Stages.Delays = make(map[string]time.Duration)
		}
		cfg.Stages.Delays[name] = d
	}

	setBool(&cfg.Metrics.Enabled, f.Metrics.Enabled)
	setString(&cfg.Metrics.Addr, f.Metrics.Addr)
	setString(&cfg.Sink.FilePath, f.Sink.FilePath)
	setString(&cfg.Sink.RedisURL, f.Sink.RedisURL)
	setString(&cfg.Sink.RedisKey, f.Sink.RedisKey)
	setBool(&cfg.Trace.Enabled, f.Trace.Enabled)
	setString(&cfg.Trace.Endpoint, f.Trace.Endpoint)
	setString(&cfg.Log.Level, f.Log.Level)
	setString(&cfg.Log.Format, f.Log.Format)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, raw string, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	*dst = d
	return nil
}

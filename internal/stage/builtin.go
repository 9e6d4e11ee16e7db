package stage

import (
	"context"
	"time"

	"github.com/your-org/jhadepilot/internal/config"
)

const (
	Build       = "build"
	Test        = "test"
	Deploy      = "deploy"
	Security    = "security"
	Performance = "performance"
)

var defaultDelays = map[string]time.Duration{
	Build:       time.Second,
	Test:        800 * time.Millisecond,
	Deploy:      1500 * time.Millisecond,
	Security:    600 * time.Millisecond,
	Performance: 700 * time.Millisecond,
}

// Builtin returns the five simulated stages with delays resolved from cfg.
func Builtin(cfg config.StageConfig) []Stage {
	region := cfg.DeployRegion
	if region == "" {
		region = "ap-south-1"
	}
	return []Stage{
		{Name: Build, Delay: delayFor(cfg, Build), Run: buildStage},
		{Name: Test, Delay: delayFor(cfg, Test), Run: testStage},
		{Name: Deploy, Delay: delayFor(cfg, Deploy), Run: deployStage(region)},
		{Name: Security, Delay: delayFor(cfg, Security), Run: securityStage},
		{Name: Performance, Delay: delayFor(cfg, Performance), Run: performanceStage},
	}
}

func delayFor(cfg config.StageConfig, name string) time.Duration {
	d := defaultDelays[name]
	if override, ok := cfg.Delays[name]; ok {
		d = override
	}
	if cfg.DelayScale <= 0 {
		return 0
	}
	return time.Duration(float64(d) * cfg.DelayScale)
}

func buildStage(_ context.Context, in Input) (map[string]any, error) {
	return map[string]any{
		"message":      "Build completed successfully",
		"dependencies": ExtractDependencies(in.Code),
		"build_time":   "1.2s",
		"optimizations": []string{
			"Code minification applied",
			"Import optimization completed",
			"Performance enhancements added",
		},
	}, nil
}

func testStage(context.Context, Input) (map[string]any, error) {
	return map[string]any{
		"message": "All tests passed",
		"results": map[string]any{
			"unit_tests":        map[string]any{"passed": 15, "failed": 0, "coverage": "94%"},
			"integration_tests": map[string]any{"passed": 8, "failed": 0},
			"security_tests":    map[string]any{"vulnerabilities": 0, "score": "A+"},
			"performance_tests": map[string]any{"avg_response": "45ms", "throughput": "1000 req/s"},
		},
		"recommendations": []string{
			"Consider adding more edge case tests",
			"Security compliance verified",
		},
	}, nil
}

func deployStage(region string) Func {
	return func(context.Context, Input) (map[string]any, error) {
		return map[string]any{
			"message": "Deployed to " + region,
			"infrastructure": map[string]any{
				"region":        region,
				"instances":     2,
				"load_balancer": "enabled",
				"auto_scaling":  "configured",
			},
			"performance": map[string]any{
				"latency":      "12ms",
				"availability": "99.99%",
				"throughput":   "5000 req/s",
			},
			"monitoring": map[string]any{
				"health_checks": "enabled",
				"alerts":        "configured",
				"logging":       "centralized",
			},
		}, nil
	}
}

func securityStage(context.Context, Input) (map[string]any, error) {
	return map[string]any{
		"message":             "Security scan completed",
		"vulnerabilities":     []string{},
		"vulnerability_count": 0,
		"compliance": map[string]any{
			"GDPR":         "compliant",
			"OWASP_Top_10": "secure",
		},
		"recommendations": []string{
			"Input validation implemented",
			"Rate limiting configured",
		},
		"security_score": "A+",
	}, nil
}

func performanceStage(context.Context, Input) (map[string]any, error) {
	return map[string]any{
		"message": "Performance optimization completed",
		"metrics": map[string]any{
			"response_time":  "23ms",
			"memory_usage":   "45MB",
			"cpu_efficiency": "92%",
		},
		"optimizations": []string{
			"Caching layer added",
			"Async operations optimized",
		},
		"performance_score": "A+",
	}, nil
}

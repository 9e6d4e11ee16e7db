package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/your-org/jhadepilot/internal/app"
	"github.com/your-org/jhadepilot/internal/config"
	"github.com/your-org/jhadepilot/internal/logging"
	"github.com/your-org/jhadepilot/internal/orchestrator"
	"github.com/your-org/jhadepilot/internal/sink"
	"github.com/your-org/jhadepilot/internal/version"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "jhadepilot",
		Short:         "Code generation service with simulated build, test and deploy stages",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("CONFIG_PATH"), "YAML config file (or set CONFIG_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	root.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newMetricsCmd(),
		newVersionCmd(),
	)
	return root
}

func (o *rootOptions) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			rt, err := app.Build(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()
			return app.Serve(ctx, rt)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	return cmd
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "generate <prompt>",
		Short: "Generate code for a prompt once and print the result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			rt, err := app.Build(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(context.Background()) }()

			res, err := rt.Orchestrator.Run(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	return cmd
}

func printResult(w io.Writer, res orchestrator.Result) {
	_, _ = fmt.Fprintln(w, res.Code)
	if res.Fallback {
		_, _ = fmt.Fprintf(w, "fallback: %s\n", res.FallbackReason)
	}

	names := make([]string, 0, len(res.Agents))
	for name := range res.Agents {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		r := res.Agents[name]
		if r.Error != "" {
			_, _ = fmt.Fprintf(w, "- %s: %s error=%s\n", name, r.Status, r.Error)
			continue
		}
		_, _ = fmt.Fprintf(w, "- %s: %s\n", name, r.Status)
	}
	_, _ = fmt.Fprintf(w, "request_id=%s total_ms=%.1f success_rate=%.2f breaker=%s\n",
		res.RequestID,
		res.Telemetry.TotalExecutionTimeMs,
		res.Telemetry.SuccessRatePercent,
		res.Telemetry.CircuitBreakerState,
	)
}

func newMetricsCmd() *cobra.Command {
	metrics := &cobra.Command{
		Use:   "metrics",
		Short: "Work with the metrics log",
	}
	metrics.AddCommand(&cobra.Command{
		Use:   "export <metrics.jsonl> [output.csv]",
		Short: "Convert the JSONL metrics log to CSV",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := "metrics.csv"
			if len(args) > 1 {
				out = args[1]
			}
			n, err := sink.ExportJSONLToCSV(args[0], out)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "metrics export complete: %s -> %s (%d rows)\n", args[0], out, n)
			return nil
		},
	})
	return metrics
}

func newVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(version.Get())
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print as JSON")
	return cmd
}

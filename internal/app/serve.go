package app

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/jhadepilot/internal/metrics"
	"github.com/your-org/jhadepilot/internal/security"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, rt *Runtime) error {
	cfg := rt.Config.Server
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(rt).Router(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", cfg.Addr, err)
	}
	if cfg.TLS.Enabled {
		tlsCfg, err := security.BuildServerTLSConfig(cfg.TLS)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("server tls: %w", err)
		}
		srv.TLSConfig = tlsCfg
		ln = tls.NewListener(ln, tlsCfg)
	}

	var metricsSrv *http.Server
	if rt.Registry != nil && rt.Config.Metrics.Addr != "" {
		metricsSrv, err = metrics.StartPrometheusServer(rt.Config.Metrics.Addr, rt.Registry)
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("start metrics endpoint: %w", err)
		}
		rt.Logger.Info("metrics endpoint listening", zap.String("addr", metricsSrv.Addr))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	rt.Logger.Info("http server listening",
		zap.String("addr", ln.Addr().String()),
		zap.Bool("tls", cfg.TLS.Enabled),
	)

	select {
	case err := <-errCh:
		_ = metrics.StopServer(context.Background(), metricsSrv)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	rt.Logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)
	if stopErr := metrics.StopServer(shutdownCtx, metricsSrv); stopErr != nil && err == nil {
		err = stopErr
	}
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

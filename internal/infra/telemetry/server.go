package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mcpbridge/internal/domain"
)

type HTTPServerOptions struct {
	Addr            string
	EnableMetrics   bool
	EnableHealthz   bool
	Health          *HealthTracker
	Registry        prometheus.Gatherer
	ShutdownTimeout time.Duration
}

// StartHTTPServer serves /metrics and /healthz until ctx is canceled.
// It returns nil immediately when both endpoints are disabled.
func StartHTTPServer(ctx context.Context, opts HTTPServerOptions, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !opts.EnableMetrics && !opts.EnableHealthz {
		return nil
	}

	addr := opts.Addr
	if addr == "" {
		addr = domain.DefaultObservabilityListenAddress
	}
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.DefaultGatherer
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = time.Duration(domain.DefaultServerShutdownTimeoutSeconds) * time.Second
	}

	mux := http.NewServeMux()
	if opts.EnableMetrics {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}
	if opts.EnableHealthz {
		mux.Handle("/healthz", HealthHandler(opts.Health))
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("observability server failed to start: %w", err)
	}

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("observability server listening",
			zap.String("addr", listener.Addr().String()),
			zap.Bool("metrics", opts.EnableMetrics),
			zap.Bool("healthz", opts.EnableHealthz),
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("observability server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("observability server shutdown error", zap.Error(err))
			return err
		}
		logger.Info("observability server stopped")
		return nil
	}
}

// HealthHandler reports the tracker state, answering 503 unless every check is healthy.
func HealthHandler(tracker *HealthTracker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		report := tracker.Report()

		status := http.StatusOK
		if report.Status != HealthOK {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	})
}

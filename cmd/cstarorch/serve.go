package main

import (
	"context"
	"net/http"
	"time"

	"github.com/cuemby/cstarorch/pkg/log"
	"github.com/cuemby/cstarorch/pkg/metrics"
)

// startMetricsServer exposes Prometheus metrics and the health/readiness/
// liveness endpoints on addr, returning a shutdown func the caller should
// defer. Returns a no-op shutdown func if addr is empty.
func startMetricsServer(addr string) func(context.Context) error {
	if addr == "" {
		return func(context.Context) error { return nil }
	}

	metrics.SetVersion(Version)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", metrics.HealthHandler())
	mux.HandleFunc("/readyz", metrics.ReadyHandler())
	mux.HandleFunc("/livez", metrics.LivenessHandler())

	srv := &http.Server{Addr: addr, Handler: mux}
	logger := log.WithComponent("metrics-server")

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics and health endpoints")

	return func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

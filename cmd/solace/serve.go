package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"solace/pkg/api"
	"solace/pkg/config"
	"solace/pkg/controller"
	"solace/pkg/logx"
	"solace/pkg/metrics"
	"solace/pkg/persistence"
)

// serve runs the HTTP API until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, cfg *config.Config, ctrl *controller.Controller, store persistence.Store, registry *prometheus.Registry) error {
	logger := logx.NewLogger("server")

	var opts []api.Option
	if registry != nil {
		opts = append(opts, api.WithGatherer(registry))
	}
	if cfg.Metrics.PrometheusURL != "" {
		qs, err := metrics.NewQueryService(cfg.Metrics.PrometheusURL)
		if err != nil {
			return fmt.Errorf("failed to create metrics query service: %w", err)
		}
		opts = append(opts, api.WithUsage(qs))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewServer(ctrl, store, opts...).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("🌐 Listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down (timeout %s)", cfg.Server.ShutdownTimeout.Std())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

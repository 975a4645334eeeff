package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/pluginhost/pkg/disabled"
	"github.com/platinummonkey/pluginhost/pkg/observability"
	"github.com/platinummonkey/pluginhost/pkg/registry"
)

func newServeCommand(opts *globalOptions, version string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Resolve plugins and serve the read-only admin API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := setup(cmd, opts)
			if err != nil {
				return err
			}
			if addr != "" {
				env.cfg.Server.Addr = addr
			}
			return serve(cmd.Context(), env, version)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides PLUGINHOST_HTTP_ADDR)")
	return cmd
}

func serve(ctx context.Context, env *environment, version string) error {
	cfg, logger := env.cfg, env.logger
	obs := cfg.Observability

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        obs.OTelEnabled,
		Endpoint:       obs.OTelEndpoint,
		ServiceName:    obs.OTelServiceName,
		ServiceVersion: obs.OTelServiceVersion,
		Insecure:       obs.OTelInsecure,
		SampleRatio:    obs.OTelSampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	var regOpts []registry.Option
	serverOpts := registry.ServerOptions{
		Logger:  logger,
		Health:  observability.NewHealthChecker(version),
		Tracing: obs.OTelEnabled,
	}

	if obs.MetricsEnabled {
		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(promReg)
		regOpts = append(regOpts, registry.WithMetrics(metrics))
		serverOpts.Metrics = metrics
		serverOpts.Gatherer = promReg
	}
	if obs.OTelEnabled {
		otelMetrics, err := observability.NewOTelMetrics()
		if err != nil {
			return err
		}
		regOpts = append(regOpts, registry.WithOTelMetrics(otelMetrics))
	}

	reg, store, err := env.openRegistry(ctx, regOpts...)
	if err != nil {
		return err
	}
	addStoreCheck(serverOpts.Health, cfg.Store.Type, store)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      registry.NewRouter(reg, serverOpts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, server, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(context.Context) error { return store.Close() })
	if providers != nil {
		shutdown.RegisterShutdownFunc(providers.Shutdown)
	}

	// resolution failures stay visible through /health/ready
	if _, err := reg.Init(ctx); err != nil {
		logger.WithError(err).Error("Plugin resolution failed")
	}

	serveErr := make(chan error, 1)
	go func() {
		defer observability.RecoverPanic(logger, "admin server")
		logger.WithField("addr", server.Addr).Info("Starting admin server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		if err, ok := <-serveErr; ok && err != nil {
			logger.WithError(err).Error("Admin server failed")
			cancel()
		}
	}()

	return shutdown.WaitForShutdown(waitCtx)
}

// addStoreCheck registers a non-critical health check for network-backed stores
func addStoreCheck(health *observability.HealthChecker, storeType string, store disabled.Store) {
	switch storeType {
	case disabled.TypeRedis, disabled.TypePostgres, disabled.TypeSQLite:
		health.AddCheck("disabled_store", false, func(ctx context.Context) error {
			_, err := store.Load(ctx)
			return err
		})
	}
}

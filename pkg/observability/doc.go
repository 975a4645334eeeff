// Package observability provides logging, Prometheus metrics, OpenTelemetry
// tracing, health checks and graceful shutdown for the plugin host.
//
// # Logging
//
// Loggers are plain logrus loggers:
//
//	logger, err := observability.NewLogger("info", observability.FormatJSON, os.Stderr)
//	logger.WithField("plugin", id).Warn("Plugin disabled")
//
// FromContext returns an entry carrying the run id and trace ids:
//
//	ctx = observability.WithRunID(observability.WithLogger(ctx, logger), runID)
//	observability.FromContext(ctx).Info("Resolved plugin load order")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.ResolutionDuration.Observe(elapsed.Seconds())
//	router.Handle("/metrics", observability.MetricsHandler(registry))
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:  true,
//		Endpoint: "otel-collector:4317",
//		Insecure: true,
//	}, logger)
//	defer providers.Shutdown(ctx)
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.AddCheck("registry", true, reg.Ready)
//	observability.RegisterHealthRoutes(router, checker)
package observability

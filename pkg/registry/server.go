package registry

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/pluginhost/pkg/httputil"
	"github.com/platinummonkey/pluginhost/pkg/observability"
)

// ServerOptions configures the admin HTTP handler
type ServerOptions struct {
	Logger   *logrus.Logger
	Health   *observability.HealthChecker // nil disables /health routes
	Metrics  *observability.Metrics       // nil disables HTTP metrics
	Gatherer prometheus.Gatherer          // nil disables /metrics
	Tracing  bool                         // wrap the handler with otelhttp
}

// NewRouter builds the admin API for reg: plugin routes, health probes and
// the Prometheus endpoint behind request id, logging and recovery middleware
func NewRouter(reg *Registry, opts ServerOptions) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logrus.New()
	}

	router := mux.NewRouter()
	if opts.Metrics != nil {
		router.Use(observability.HTTPMetricsMiddleware(opts.Metrics))
	}

	NewHandlers(reg).RegisterRoutes(router)

	if opts.Health != nil {
		opts.Health.AddCheck("registry", true, reg.Ready)
		observability.RegisterHealthRoutes(router, opts.Health)
	}
	if opts.Gatherer != nil {
		router.Handle("/metrics", observability.MetricsHandler(opts.Gatherer)).Methods("GET")
	}

	var handler http.Handler = httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(log),
		httputil.RecoveryMiddleware(log),
	)(router)

	if opts.Tracing {
		handler = otelhttp.NewHandler(handler, "pluginhost.admin")
	}
	return handler
}

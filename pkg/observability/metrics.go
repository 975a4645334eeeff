package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	CascadeRounds      prometheus.Gauge
	Plugins            *prometheus.GaugeVec
	ProblemsTotal      *prometheus.CounterVec

	// Loader metrics
	UnitLookupsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginhost_resolutions_total",
				Help: "Total number of plugin resolution passes",
			},
			[]string{"outcome"},
		),
		ResolutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pluginhost_resolution_duration_seconds",
				Help:    "Duration of a full plugin resolution pass in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
		),
		CascadeRounds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pluginhost_cascade_rounds",
				Help: "Cascade rounds needed by the last resolution pass",
			},
		),
		Plugins: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pluginhost_plugins",
				Help: "Number of plugins by lifecycle status after the last resolution pass",
			},
			[]string{"status"},
		),
		ProblemsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginhost_problems_total",
				Help: "Total number of resolution problems by kind",
			},
			[]string{"kind", "severity"},
		),
		UnitLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginhost_unit_lookups_total",
				Help: "Total number of loading unit lookups by result",
			},
			[]string{"result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pluginhost_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pluginhost_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(
		m.ResolutionsTotal,
		m.ResolutionDuration,
		m.CascadeRounds,
		m.Plugins,
		m.ProblemsTotal,
		m.UnitLookupsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
	)

	return m
}

// ObserveLookup counts one loading unit lookup
func (m *Metrics) ObserveLookup(result string) {
	m.UnitLookupsTotal.WithLabelValues(result).Inc()
}

// SetPluginCounts replaces the per-status plugin gauge
func (m *Metrics) SetPluginCounts(counts map[string]int) {
	m.Plugins.Reset()
	for status, n := range counts {
		m.Plugins.WithLabelValues(status).Set(float64(n))
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests. Requests are labelled with
// the matched route template so path parameters do not inflate cardinality.
func HTTPMetricsMiddleware(metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tmpl, err := current.GetPathTemplate(); err == nil {
					route = tmpl
				}
			}

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler serves the registry in the Prometheus exposition format
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

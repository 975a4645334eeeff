package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics mirrors the resolution metrics as OpenTelemetry instruments so
// they reach the OTLP collector alongside the traces
type OTelMetrics struct {
	resolutions        metric.Int64Counter
	resolutionDuration metric.Float64Histogram
	problems           metric.Int64Counter
}

// NewOTelMetrics creates the instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/platinummonkey/pluginhost")

	m := &OTelMetrics{}
	var err error

	m.resolutions, err = meter.Int64Counter(
		"pluginhost.resolutions",
		metric.WithDescription("Plugin resolution passes"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolutions counter: %w", err)
	}

	m.resolutionDuration, err = meter.Float64Histogram(
		"pluginhost.resolution.duration",
		metric.WithDescription("Plugin resolution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolution duration histogram: %w", err)
	}

	m.problems, err = meter.Int64Counter(
		"pluginhost.problems",
		metric.WithDescription("Plugin resolution problems"),
		metric.WithUnit("{problem}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create problems counter: %w", err)
	}

	return m, nil
}

// RecordResolution records one resolution pass
func (m *OTelMetrics) RecordResolution(ctx context.Context, duration time.Duration, failed bool) {
	outcome := "success"
	if failed {
		outcome = "error"
	}

	m.resolutions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.resolutionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordProblem counts one problem of the given kind
func (m *OTelMetrics) RecordProblem(ctx context.Context, kind, severity string) {
	m.problems.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("severity", severity),
	))
}

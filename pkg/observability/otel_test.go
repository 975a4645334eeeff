package observability

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitOTel_Disabled(t *testing.T) {
	providers, err := InitOTel(context.Background(), OTelConfig{Enabled: false}, quietLogger())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if providers != nil {
		t.Error("Expected nil providers when disabled")
	}
	if err := providers.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown on nil providers should succeed, got %v", err)
	}
}

func TestOTelProviders_Shutdown(t *testing.T) {
	providers := &OTelProviders{TracerProvider: sdktrace.NewTracerProvider()}
	if err := providers.Shutdown(context.Background()); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestWithTraceContext(t *testing.T) {
	entry := logrus.NewEntry(quietLogger())

	if got := WithTraceContext(context.Background(), entry); len(got.Data) != 0 {
		t.Errorf("Expected no fields without a span, got %v", got.Data)
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()))
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	got := WithTraceContext(ctx, entry)
	if got.Data["trace_id"] != span.SpanContext().TraceID().String() {
		t.Errorf("Expected trace_id field, got %v", got.Data)
	}
	if got.Data["span_id"] != span.SpanContext().SpanID().String() {
		t.Errorf("Expected span_id field, got %v", got.Data)
	}
}

func TestNewOTelMetrics(t *testing.T) {
	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// no-op global meter provider; recording must not panic
	m.RecordResolution(context.Background(), 0, false)
	m.RecordProblem(context.Background(), "duplicate plugin id", "error")
}

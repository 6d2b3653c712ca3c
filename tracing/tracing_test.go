package tracing

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitTracer(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://127.0.0.1:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "true")

	ctx := context.Background()
	tp, err := InitTracer(ctx, "lookanalyst-test")
	if err != nil {
		t.Fatalf("InitTracer() error = %v", err)
	}
	defer tp.Shutdown(ctx)

	if otel.GetTracerProvider() != tp {
		t.Error("InitTracer() did not install the global tracer provider")
	}
	if fields := otel.GetTextMapPropagator().Fields(); len(fields) == 0 {
		t.Error("InitTracer() did not install a text map propagator")
	}
}

func TestInitTracerWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT", "")

	before := otel.GetTracerProvider()

	tp, err := InitTracer(context.Background(), "lookanalyst-test")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("InitTracer() error = %v, want ErrNotConfigured", err)
	}
	if tp != nil {
		t.Error("InitTracer() returned a provider without an endpoint")
	}
	if otel.GetTracerProvider() != before {
		t.Error("InitTracer() replaced the global tracer provider without an endpoint")
	}
}

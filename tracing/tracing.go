// Package tracing configures the OpenTelemetry trace pipeline.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ErrNotConfigured is returned by InitTracer when no OTLP endpoint is set
var ErrNotConfigured = errors.New("no OTLP endpoint configured")

// Enabled reports whether an OTLP trace endpoint is configured
func Enabled() bool {
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT") != "" ||
		os.Getenv("OTEL_EXPORTER_OTLP_TRACES_ENDPOINT") != ""
}

// InitTracer installs a global tracer provider exporting over OTLP/gRPC.
// The collector address comes from the standard OTEL_EXPORTER_OTLP_* variables;
// without one nothing is installed and ErrNotConfigured is returned.
// Callers must Shutdown the returned provider to flush pending spans.
func InitTracer(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	if !Enabled() {
		return nil, ErrNotConfigured
	}

	opts := []otlptracegrpc.Option{}
	if os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true" {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp, nil
}

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type shutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Setup installs the trace and metric providers for endpoint. With an empty
// endpoint both stay no-ops. The returned function flushes and stops both.
func Setup(ctx context.Context, endpoint, agentName string, log *slog.Logger) (func(context.Context) error, error) {
	shutdownTracer, err := InitTracer(ctx, endpoint, agentName, log)
	if err != nil {
		return nil, err
	}

	shutdownMeter, err := InitMeterProvider(ctx, endpoint, agentName, log)
	if err != nil {
		_ = shutdownTracer(ctx)
		return nil, err
	}

	return func(ctx context.Context) error {
		return errors.Join(shutdownMeter(ctx), shutdownTracer(ctx))
	}, nil
}

// newResource describes this process. Attributes are added without a schema
// URL so they merge with the SDK's detectors whatever semconv version those
// use.
func newResource(ctx context.Context, agentName string) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName("relayping"),
			attribute.String("relayping.agent", agentName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}
	return res, nil
}

// InitTracer installs an OTLP gRPC TracerProvider when endpoint is set.
// With an empty endpoint tracing stays a no-op. The returned function flushes
// pending spans.
func InitTracer(ctx context.Context, endpoint, agentName string, log *slog.Logger) (func(context.Context) error, error) {
	if endpoint == "" {
		log.Debug("telemetry: tracing disabled (no OTLP endpoint)")
		return noopShutdown, nil
	}

	res, err := newResource(ctx, agentName)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log.Info("telemetry: tracing enabled", "endpoint", endpoint)
	return tp.Shutdown, nil
}

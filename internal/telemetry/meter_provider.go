package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const metricExportInterval = 30 * time.Second

// InitMeterProvider installs an OTLP gRPC MeterProvider when endpoint is set.
// Instruments created earlier through otel.Meter start exporting once it is
// installed.
func InitMeterProvider(ctx context.Context, endpoint, agentName string, log *slog.Logger) (func(context.Context) error, error) {
	if endpoint == "" {
		log.Debug("telemetry: metrics disabled (no OTLP endpoint)")
		return noopShutdown, nil
	}

	res, err := newResource(ctx, agentName)
	if err != nil {
		return nil, err
	}

	exporter, err := otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(endpoint), otlpmetricgrpc.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("creating OTLP metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricExportInterval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	log.Info("telemetry: metrics enabled", "endpoint", endpoint, "interval", metricExportInterval)
	return mp.Shutdown, nil
}

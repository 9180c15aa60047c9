package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"ozzus/relayping/internal/latency"
)

const meterName = "relayping"

// Meters holds the instruments recorded around latency measurements. It
// satisfies latency.Recorder.
type Meters struct {
	MeasureDuration metric.Float64Histogram
	Latency         metric.Int64Histogram
	Measurements    metric.Int64Counter
	Failures        metric.Int64Counter
	Fallbacks       metric.Int64Counter
}

var _ latency.Recorder = (*Meters)(nil)

// NewMeters creates the instruments on the global MeterProvider, which is a
// no-op until one is installed.
func NewMeters() (*Meters, error) {
	meter := otel.Meter(meterName)

	measureDuration, err := meter.Float64Histogram(
		"relayping.measure.duration",
		metric.WithDescription("Wall time of a full latency measurement in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	latencyMs, err := meter.Int64Histogram(
		"relayping.latency",
		metric.WithDescription("Measured relay latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	measurements, err := meter.Int64Counter(
		"relayping.measurements.total",
		metric.WithDescription("Successful measurements by method"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"relayping.failures.total",
		metric.WithDescription("Failed measurements by error kind"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"relayping.fallbacks.total",
		metric.WithDescription("TCP probe failures that fell back to ping"),
	)
	if err != nil {
		return nil, err
	}

	return &Meters{
		MeasureDuration: measureDuration,
		Latency:         latencyMs,
		Measurements:    measurements,
		Failures:        failures,
		Fallbacks:       fallbacks,
	}, nil
}

func (m *Meters) ObserveResult(ctx context.Context, r latency.Result, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("method", string(r.Method)),
		attribute.Bool("estimated", !r.Measured()),
	)
	m.MeasureDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.Measurements.Add(ctx, 1, attrs)
	if r.Measured() {
		m.Latency.Record(ctx, r.LatencyMs, metric.WithAttributes(attribute.String("method", string(r.Method))))
	}
}

func (m *Meters) ObserveFailure(ctx context.Context, kind latency.Kind, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("kind", string(kind)))
	m.MeasureDuration.Record(ctx, elapsed.Seconds(), attrs)
	m.Failures.Add(ctx, 1, attrs)
}

func (m *Meters) ObserveFallback(ctx context.Context, _ string) {
	m.Fallbacks.Add(ctx, 1)
}

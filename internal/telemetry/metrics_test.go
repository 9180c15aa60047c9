package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"ozzus/relayping/internal/latency"
)

func TestMeters_RecordOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	m, err := NewMeters()
	require.NoError(t, err)

	ctx := context.Background()
	m.ObserveResult(ctx, latency.Result{Method: latency.MethodTCP, LatencyMs: 12}, 15*time.Millisecond)
	m.ObserveResult(ctx, latency.Result{Method: latency.MethodICMP, LatencyMs: 80, Estimated: true}, time.Second)
	m.ObserveFailure(ctx, latency.KindTimeout, 20*time.Second)
	m.ObserveFallback(ctx, "relay")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	sums := map[string]int64{}
	for _, metrics := range rm.ScopeMetrics[0].Metrics {
		if sum, ok := metrics.Data.(metricdata.Sum[int64]); ok {
			for _, dp := range sum.DataPoints {
				sums[metrics.Name] += dp.Value
			}
		}
	}

	assert.Equal(t, int64(2), sums["relayping.measurements.total"])
	assert.Equal(t, int64(1), sums["relayping.failures.total"])
	assert.Equal(t, int64(1), sums["relayping.fallbacks.total"])
}

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func restoreGlobals(t *testing.T) {
	t.Helper()
	tp, mp, prop := otel.GetTracerProvider(), otel.GetMeterProvider(), otel.GetTextMapPropagator()
	t.Cleanup(func() {
		otel.SetTracerProvider(tp)
		otel.SetMeterProvider(mp)
		otel.SetTextMapPropagator(prop)
	})
}

func TestNewResource_MergesWithSDKDetectors(t *testing.T) {
	res, err := newResource(context.Background(), "fra-agent")
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "relayping", attrs["service.name"])
	assert.Equal(t, "fra-agent", attrs["relayping.agent"])
	assert.Equal(t, "opentelemetry", attrs["telemetry.sdk.name"])
}

func TestSetup_WithEndpoint(t *testing.T) {
	restoreGlobals(t)

	// gRPC clients connect lazily, so nothing has to listen on the endpoint.
	shutdown, err := Setup(context.Background(), "127.0.0.1:4317", "fra-agent", discardLogger())
	require.NoError(t, err)

	_, isSDKTracer := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, isSDKTracer)
	_, isSDKMeter := otel.GetMeterProvider().(*sdkmetric.MeterProvider)
	assert.True(t, isSDKMeter)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = shutdown(ctx)
}

func TestSetup_WithoutEndpointIsNoop(t *testing.T) {
	restoreGlobals(t)
	before := otel.GetTracerProvider()

	shutdown, err := Setup(context.Background(), "", "fra-agent", discardLogger())
	require.NoError(t, err)
	assert.Equal(t, before, otel.GetTracerProvider())
	assert.NoError(t, shutdown(context.Background()))
}

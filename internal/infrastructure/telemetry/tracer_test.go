package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/commerce/internal/infrastructure/config"
	"github.com/erp/commerce/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	cfg := telemetry.Config{
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     1.0,
		ServiceName:       "test-service",
	}

	tp, err := telemetry.NewTracerProvider(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tp.IsEnabled())
	assert.Equal(t, "test-service", tp.GetConfig().ServiceName)
	assert.NotNil(t, tp.Tracer("test"))
	assert.NoError(t, tp.ForceFlush(ctx))
	assert.NoError(t, tp.Shutdown(ctx))
}

func TestNewTracerProvider_Enabled(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping collector test in short mode")
	}
	ctx := context.Background()
	cfg := telemetry.Config{
		Enabled:           true,
		CollectorEndpoint: "localhost:14317",
		SamplingRatio:     0.5,
		ServiceName:       "test-service",
		Insecure:          true,
	}

	// The gRPC exporter dials lazily, so construction succeeds without a collector.
	tp, err := telemetry.NewTracerProvider(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())

	_, span := tp.Tracer("test").Start(ctx, "test-span")
	span.End()

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	_ = tp.Shutdown(shutdownCtx)
}

func TestConfigFrom(t *testing.T) {
	section := config.TelemetryConfig{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		SamplingRatio:     0.25,
		ServiceName:       "commerce",
		Insecure:          true,
		DBTraceEnabled:    true,
		DBSlowQueryThresh: 50 * time.Millisecond,
	}

	cfg := telemetry.ConfigFrom(section, "1.2.3")
	assert.Equal(t, telemetry.Config{
		Enabled:           true,
		CollectorEndpoint: "otel:4317",
		SamplingRatio:     0.25,
		ServiceName:       "commerce",
		ServiceVersion:    "1.2.3",
		Insecure:          true,
	}, cfg)

	db := telemetry.DBTracingConfigFrom(section)
	assert.True(t, db.Enabled)
	assert.False(t, db.LogFullSQL)
	assert.Equal(t, 50*time.Millisecond, db.SlowQueryThresh)

	section.Enabled = false
	assert.False(t, telemetry.DBTracingConfigFrom(section).Enabled, "db tracing follows the master switch")
}

func TestSetup_Disabled(t *testing.T) {
	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, config.TelemetryConfig{ServiceName: "commerce"}, "test", zaptest.NewLogger(t))
	require.NoError(t, err)

	assert.False(t, tel.Tracer.IsEnabled())
	assert.False(t, tel.Meter.IsEnabled())
	assert.False(t, tel.Logs.IsEnabled())
	require.NotNil(t, tel.Metrics)

	tel.Metrics.RecordResolution(ctx, "stock_unit", "READY", true)
	assert.NoError(t, tel.Shutdown(ctx))
}

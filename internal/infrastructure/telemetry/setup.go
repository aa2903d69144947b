package telemetry

import (
	"context"
	"errors"

	"github.com/erp/commerce/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Telemetry bundles the three signal providers and the engine metrics.
type Telemetry struct {
	Tracer  *TracerProvider
	Meter   *MeterProvider
	Logs    *LoggerProvider
	Metrics *ReconciliationMetrics
}

// ConfigFrom maps the application config section onto Config.
func ConfigFrom(cfg config.TelemetryConfig, version string) Config {
	return Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		SamplingRatio:     cfg.SamplingRatio,
		ServiceName:       cfg.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Insecure,
	}
}

// DBTracingConfigFrom maps the application config section onto DBTracingConfig.
func DBTracingConfigFrom(cfg config.TelemetryConfig) DBTracingConfig {
	db := DefaultDBTracingConfig()
	db.Enabled = cfg.Enabled && cfg.DBTraceEnabled
	db.LogFullSQL = cfg.DBLogFullSQL
	if cfg.DBSlowQueryThresh > 0 {
		db.SlowQueryThresh = cfg.DBSlowQueryThresh
	}
	return db
}

// Setup starts tracing, metrics and log export. Disabled telemetry yields
// no-op providers and metrics recorded on the global no-op meter.
func Setup(ctx context.Context, cfg config.TelemetryConfig, version string, logger *zap.Logger) (*Telemetry, error) {
	base := ConfigFrom(cfg, version)

	tp, err := NewTracerProvider(ctx, base, logger)
	if err != nil {
		return nil, err
	}
	mp, err := NewMeterProvider(ctx, base, cfg.MetricsInterval, logger)
	if err != nil {
		return nil, errors.Join(err, tp.Shutdown(ctx))
	}
	lp, err := NewLoggerProvider(ctx, base, logger)
	if err != nil {
		return nil, errors.Join(err, tp.Shutdown(ctx), mp.Shutdown(ctx))
	}
	metrics, err := NewReconciliationMetrics(mp.Meter(TracerName), logger)
	if err != nil {
		return nil, errors.Join(err, tp.Shutdown(ctx), mp.Shutdown(ctx), lp.Shutdown(ctx))
	}
	return &Telemetry{Tracer: tp, Meter: mp, Logs: lp, Metrics: metrics}, nil
}

// Shutdown flushes and stops every provider, returning the joined errors.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	return errors.Join(
		t.Logs.Shutdown(ctx),
		t.Meter.Shutdown(ctx),
		t.Tracer.Shutdown(ctx),
	)
}

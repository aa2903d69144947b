package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when metrics are built without a meter.
var ErrMeterNil = errors.New("telemetry: meter is nil")

// ReconciliationMetrics counts what the reconciliation engine does: state
// resolutions, margin invalidations, released outstanding funds and gateway
// traffic. A nil *ReconciliationMetrics records nothing.
type ReconciliationMetrics struct {
	logger *zap.Logger

	resolutions      *Counter
	stateChanges     *Counter
	invalidatedUnits *Counter
	recomputedOrders *Counter
	releasedPayments *Counter
	gatewayRequests  *Counter
	runDuration      *Histogram
	runUnits         *Gauge
}

// NewReconciliationMetrics registers the instruments on meter.
func NewReconciliationMetrics(meter metric.Meter, logger *zap.Logger) (*ReconciliationMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &ReconciliationMetrics{logger: logger}

	var err error
	if m.resolutions, err = NewCounter(meter, "commerce_state_resolutions_total",
		"State resolutions by entity and resulting state", "{resolution}"); err != nil {
		return nil, err
	}
	if m.stateChanges, err = NewCounter(meter, "commerce_state_changes_total",
		"Resolutions that changed the stored state", "{change}"); err != nil {
		return nil, err
	}
	if m.invalidatedUnits, err = NewCounter(meter, "commerce_margin_invalidated_units_total",
		"Stock units drained by the margin invalidator", "{unit}"); err != nil {
		return nil, err
	}
	if m.recomputedOrders, err = NewCounter(meter, "commerce_margin_recomputed_orders_total",
		"Orders whose margin was recomputed", "{order}"); err != nil {
		return nil, err
	}
	if m.releasedPayments, err = NewCounter(meter, "commerce_outstanding_released_total",
		"Outstanding balance payments canceled to release overpaid funds", "{payment}"); err != nil {
		return nil, err
	}
	if m.gatewayRequests, err = NewCounter(meter, "commerce_gateway_requests_total",
		"Payment gateway requests by factory, kind and outcome", "{request}"); err != nil {
		return nil, err
	}
	if m.runDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "commerce_reconcile_duration_seconds",
		Description: "Duration of full reconciliation runs",
		Unit:        "s",
		Boundaries:  ReconcileDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.runUnits, err = NewGauge(meter, "commerce_reconcile_units",
		"Stock units visited by the last reconciliation run", "{unit}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordResolution counts one resolver run for entity ending in state.
func (m *ReconciliationMetrics) RecordResolution(ctx context.Context, entity, state string, changed bool) {
	if m == nil {
		return
	}
	m.resolutions.Inc(ctx, AttrEntity.String(entity), AttrState.String(state))
	if changed {
		m.stateChanges.Inc(ctx, AttrEntity.String(entity), AttrState.String(state))
	}
}

// RecordInvalidation counts a drained invalidation batch.
func (m *ReconciliationMetrics) RecordInvalidation(ctx context.Context, units, orders int) {
	if m == nil {
		return
	}
	m.invalidatedUnits.Add(ctx, int64(units))
	m.recomputedOrders.Add(ctx, int64(orders))
}

// RecordReleasedPayments counts payments canceled by the outstanding releaser.
func (m *ReconciliationMetrics) RecordReleasedPayments(ctx context.Context, saleKind string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.releasedPayments.Add(ctx, int64(count), AttrSaleKind.String(saleKind))
}

// RecordGatewayRequest counts a gateway call. A nil err is a success.
func (m *ReconciliationMetrics) RecordGatewayRequest(ctx context.Context, factory, kind string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gatewayRequests.Inc(ctx,
		AttrFactory.String(factory),
		AttrRequestKind.String(kind),
		AttrOutcome.String(outcome),
	)
}

// RecordRun records a finished reconciliation run.
func (m *ReconciliationMetrics) RecordRun(ctx context.Context, d time.Duration, units int) {
	if m == nil {
		return
	}
	m.runDuration.RecordDuration(ctx, d)
	m.runUnits.Record(ctx, int64(units))
	m.logger.Debug("Recorded reconciliation run",
		zap.Duration("duration", d),
		zap.Int("units", units),
	)
}

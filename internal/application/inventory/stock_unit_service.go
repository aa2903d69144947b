package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	entityStockUnit = "stock_unit"
	reconcilePage   = 200
)

// StockUnitService applies quantity and cost changes to stock units and keeps
// their state resolved
type StockUnitService struct {
	units     inventory.StockUnitRepository
	resolver  *inventory.StockUnitStateResolver
	publisher shared.EventPublisher
	logger    *zap.Logger
	metrics   *telemetry.ReconciliationMetrics
}

// NewStockUnitService creates a new StockUnitService
func NewStockUnitService(
	units inventory.StockUnitRepository,
	resolver *inventory.StockUnitStateResolver,
	logger *zap.Logger,
	metrics *telemetry.ReconciliationMetrics,
) *StockUnitService {
	if resolver == nil {
		resolver = inventory.NewStockUnitStateResolver()
	}
	return &StockUnitService{
		units:    units,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
	}
}

// SetEventPublisher sets the publisher receiving unit events and notifications
func (s *StockUnitService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Receive adds a delivered quantity
func (s *StockUnitService) Receive(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) (*inventory.StockUnit, error) {
	return s.apply(ctx, id, "receive", quantity, func(u *inventory.StockUnit) error {
		return u.Receive(quantity)
	})
}

// Unreceive removes a delivered quantity
func (s *StockUnitService) Unreceive(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) (*inventory.StockUnit, error) {
	return s.apply(ctx, id, "unreceive", quantity, func(u *inventory.StockUnit) error {
		return u.Unreceive(quantity)
	})
}

// Adjust applies a signed inventory adjustment
func (s *StockUnitService) Adjust(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) (*inventory.StockUnit, error) {
	return s.apply(ctx, id, "adjust", quantity, func(u *inventory.StockUnit) error {
		u.Adjust(quantity)
		return nil
	})
}

// Ship records a shipped quantity; a negative quantity records a return
func (s *StockUnitService) Ship(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) (*inventory.StockUnit, error) {
	return s.apply(ctx, id, "ship", quantity, func(u *inventory.StockUnit) error {
		return u.Ship(quantity)
	})
}

// SetOrderedQuantity updates the quantity ordered from the supplier
func (s *StockUnitService) SetOrderedQuantity(ctx context.Context, id uuid.UUID, quantity decimal.Decimal) (*inventory.StockUnit, error) {
	return s.apply(ctx, id, "order", quantity, func(u *inventory.StockUnit) error {
		return u.SetOrderedQuantity(quantity)
	})
}

// SetCost updates the unit costs. A change publishes StockUnitCostChanged.
func (s *StockUnitService) SetCost(ctx context.Context, id uuid.UUID, netPrice, shippingPrice decimal.Decimal) (*inventory.StockUnit, error) {
	return s.apply(ctx, id, "set_cost", netPrice, func(u *inventory.StockUnit) error {
		return u.SetCost(netPrice, shippingPrice)
	})
}

// Delete removes a unit that never carried stock
func (s *StockUnitService) Delete(ctx context.Context, id uuid.UUID) error {
	unit, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !inventory.IsDeletableStockUnit(unit) {
		return shared.PreconditionFailed(fmt.Sprintf("stock unit %s has stock movements", id))
	}
	if err := s.units.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete stock unit: %w", err)
	}
	s.notify(ctx, unit, shared.NotificationPostDelete)
	s.logger.Info("stock unit deleted", zap.String("stock_unit_id", id.String()))
	return nil
}

// ReconcileResult describes the outcome for one unit
type ReconcileResult struct {
	Unit    *inventory.StockUnit
	State   inventory.StockUnitState
	Changed bool
	Err     error
}

// ReconcileSummary totals a ReconcileAll run
type ReconcileSummary struct {
	Units    int
	Changed  int
	Failed   int
	Duration time.Duration
}

// ReconcileAll re-resolves every open unit and saves the ones whose state
// moved. Each result is passed to report as it is produced; a failing unit
// does not stop the run.
func (s *StockUnitService) ReconcileAll(ctx context.Context, report func(ReconcileResult)) (ReconcileSummary, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_unit", "reconcile_all")
	defer span.End()
	started := time.Now()

	units, err := s.openUnits(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return ReconcileSummary{}, err
	}

	summary := ReconcileSummary{Units: len(units)}
	for _, unit := range units {
		result := s.reconcile(ctx, unit)
		if result.Err != nil {
			summary.Failed++
			s.logger.Warn("stock unit reconciliation failed",
				zap.String("stock_unit_id", unit.ID.String()),
				zap.Error(result.Err),
			)
		} else if result.Changed {
			summary.Changed++
		}
		if report != nil {
			report(result)
		}
	}

	summary.Duration = time.Since(started)
	s.metrics.RecordRun(ctx, summary.Duration, summary.Units)
	telemetry.SetAttributes(span, "stock_unit.count", summary.Units, "stock_unit.changed", summary.Changed)
	s.logger.Info("stock units reconciled",
		zap.Int("units", summary.Units),
		zap.Int("changed", summary.Changed),
		zap.Int("failed", summary.Failed),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

// openUnits loads every open unit before any is saved, so units closing
// during the run do not shift the pages.
func (s *StockUnitService) openUnits(ctx context.Context) ([]*inventory.StockUnit, error) {
	filter := shared.DefaultFilter()
	filter.PageSize = reconcilePage
	filter.OrderDir = "asc"

	var all []*inventory.StockUnit
	for {
		page, err := s.units.FindOpen(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list open stock units: %w", err)
		}
		all = append(all, page...)
		if len(page) < filter.PageSize {
			return all, nil
		}
		filter.Page++
	}
}

func (s *StockUnitService) reconcile(ctx context.Context, unit *inventory.StockUnit) ReconcileResult {
	before := unit.State
	state, err := s.resolver.Resolve(unit)
	if err != nil {
		return ReconcileResult{Unit: unit, Err: err}
	}
	changed := state != before
	s.metrics.RecordResolution(ctx, entityStockUnit, string(state), changed)
	if changed {
		if err := s.units.Save(ctx, unit); err != nil {
			return ReconcileResult{Unit: unit, State: state, Err: fmt.Errorf("failed to save stock unit: %w", err)}
		}
		s.notify(ctx, unit, shared.NotificationPostUpdate)
	}
	return ReconcileResult{Unit: unit, State: state, Changed: changed}
}

func (s *StockUnitService) apply(ctx context.Context, id uuid.UUID, op string, quantity decimal.Decimal, fn func(*inventory.StockUnit) error) (*inventory.StockUnit, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "stock_unit", op,
		telemetry.WithAttribute(telemetry.SpanAttrStockUnitID, id.String()),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, quantity),
	)
	defer span.End()

	unit, err := s.load(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := fn(unit); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	before := unit.State
	state, err := s.resolver.Resolve(unit)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordResolution(ctx, entityStockUnit, string(state), state != before)

	if err := s.units.Save(ctx, unit); err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to save stock unit: %w", err)
	}

	s.publish(ctx, unit.GetDomainEvents()...)
	unit.ClearDomainEvents()
	s.notify(ctx, unit, shared.NotificationPostUpdate)

	telemetry.SetAttributes(span, telemetry.SpanAttrStockUnitState, string(state))
	s.logger.Debug("stock unit updated",
		zap.String("stock_unit_id", id.String()),
		zap.String("operation", op),
		zap.String("state", string(state)),
	)
	return unit, nil
}

func (s *StockUnitService) load(ctx context.Context, id uuid.UUID) (*inventory.StockUnit, error) {
	unit, err := s.units.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stock unit: %w", err)
	}
	if unit == nil {
		return nil, fmt.Errorf("stock unit %s: %w", id, shared.ErrNotFound)
	}
	return unit, nil
}

func (s *StockUnitService) notify(ctx context.Context, unit *inventory.StockUnit, kind shared.NotificationKind) {
	s.publish(ctx, shared.NewEntityNotification(shared.ChannelStockUnit, kind, unit.ID, unit))
}

// publish hands events to the bus. Handler failures are logged; the unit
// is already saved at this point.
func (s *StockUnitService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish stock unit events", zap.Error(err))
	}
}

package margin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/commerce/internal/domain/report"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/erp/commerce/internal/infrastructure/cache"
	"github.com/erp/commerce/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStore is the part of the sale repository the strategy needs
type OrderStore interface {
	FindOrdersByStockUnits(ctx context.Context, unitIDs []uuid.UUID) ([]*trade.Sale, error)
	Save(ctx context.Context, sale *trade.Sale) error
}

// RepositoryInvalidationStrategy recomputes and saves the margin of every
// order assigned to the units, then evicts the cached margins.
type RepositoryInvalidationStrategy struct {
	orders     OrderStore
	calculator *report.MarginCalculator
	cache      cache.MarginCache
	logger     *zap.Logger
	metrics    *telemetry.ReconciliationMetrics
}

// NewRepositoryInvalidationStrategy creates the strategy. The cache and
// metrics may be nil.
func NewRepositoryInvalidationStrategy(
	orders OrderStore,
	calculator *report.MarginCalculator,
	marginCache cache.MarginCache,
	logger *zap.Logger,
	metrics *telemetry.ReconciliationMetrics,
) *RepositoryInvalidationStrategy {
	return &RepositoryInvalidationStrategy{
		orders:     orders,
		calculator: calculator,
		cache:      marginCache,
		logger:     logger,
		metrics:    metrics,
	}
}

// Invalidate implements InvalidationStrategy. An order whose margin cannot be
// computed is saved flagged dirty and reported in the joined error.
func (s *RepositoryInvalidationStrategy) Invalidate(ctx context.Context, unitIDs []uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "margin", "invalidate",
		telemetry.WithAttribute("stock_unit.count", len(unitIDs)),
	)
	defer span.End()

	orders, err := s.orders.FindOrdersByStockUnits(ctx, unitIDs)
	if err != nil {
		telemetry.RecordError(span, err)
		return fmt.Errorf("failed to find orders by stock units: %w", err)
	}

	var errs []error
	evict := make([]uuid.UUID, 0, len(orders))
	for _, order := range orders {
		m, err := s.calculator.CalculateSale(order)
		if err != nil {
			s.logger.Warn("margin calculation failed, flagging order",
				zap.String("order", order.Number),
				zap.Error(err),
			)
			order.InvalidateMargin()
			errs = append(errs, fmt.Errorf("order %s: %w", order.Number, err))
		} else {
			order.SetMargin(report.ToSaleMargin(m))
		}
		if err := s.orders.Save(ctx, order); err != nil {
			errs = append(errs, fmt.Errorf("failed to save order %s: %w", order.Number, err))
			continue
		}
		evict = append(evict, order.ID)
	}

	if s.cache != nil && len(evict) > 0 {
		if err := s.cache.Evict(ctx, evict...); err != nil {
			s.logger.Warn("failed to evict margins", zap.Error(err))
		}
	}

	s.metrics.RecordInvalidation(ctx, len(unitIDs), len(evict))
	telemetry.SetAttributes(span, "order.count", len(evict))
	s.logger.Info("order margins invalidated",
		zap.Int("stock_units", len(unitIDs)),
		zap.Int("orders", len(evict)),
	)

	if err := errors.Join(errs...); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetOK(span)
	return nil
}

// SaleFinder loads a sale by id
type SaleFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*trade.Sale, error)
	Save(ctx context.Context, sale *trade.Sale) error
}

// Reader serves sale margins through the margin cache, recomputing dirty
// snapshots on the way.
type Reader struct {
	sales      SaleFinder
	calculator *report.MarginCalculator
	cache      cache.MarginCache
	ttl        time.Duration
	logger     *zap.Logger
}

// NewReader creates a Reader. A nil cache or zero ttl disables caching.
func NewReader(sales SaleFinder, calculator *report.MarginCalculator, marginCache cache.MarginCache, ttl time.Duration, logger *zap.Logger) *Reader {
	return &Reader{sales: sales, calculator: calculator, cache: marginCache, ttl: ttl, logger: logger}
}

// SaleMargin returns the margin of a sale, or nil when the sale does not exist
func (r *Reader) SaleMargin(ctx context.Context, saleID uuid.UUID) (*trade.SaleMargin, error) {
	if r.caching() {
		cached, err := r.cache.Get(ctx, saleID)
		if err != nil {
			r.logger.Warn("margin cache read failed", zap.String("sale_id", saleID.String()), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	sale, err := r.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	if sale == nil {
		return nil, nil
	}

	if sale.MarginDirty {
		m, err := r.calculator.CalculateSale(sale)
		if err != nil {
			return nil, err
		}
		sale.SetMargin(report.ToSaleMargin(m))
		if err := r.sales.Save(ctx, sale); err != nil {
			return nil, fmt.Errorf("failed to save sale margin: %w", err)
		}
	}

	result := sale.Margin
	if r.caching() {
		if err := r.cache.Set(ctx, saleID, result, r.ttl); err != nil {
			r.logger.Warn("margin cache write failed", zap.String("sale_id", saleID.String()), zap.Error(err))
		}
	}
	return &result, nil
}

func (r *Reader) caching() bool {
	return r.cache != nil && r.ttl > 0
}

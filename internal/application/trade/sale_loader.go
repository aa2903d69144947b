package trade

import (
	"context"
	"fmt"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const entitySale = "sale"

// FeatureFlags reports whether an optional behaviour is switched on
type FeatureFlags interface {
	IsEnabled(name string) (bool, error)
}

func loadSale(ctx context.Context, sales trade.SaleRepository, id uuid.UUID) (*trade.Sale, error) {
	sale, err := sales.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("sale %s: %w", id, shared.ErrNotFound)
	}
	return sale, nil
}

// enabled treats a missing flag source as everything switched on
func enabled(flags FeatureFlags, name string) (bool, error) {
	if flags == nil {
		return true, nil
	}
	return flags.IsEnabled(name)
}

// resolveSale re-derives the sale state. It reports whether the state moved.
func resolveSale(sale *trade.Sale) (bool, error) {
	resolver, err := trade.NewSaleStateResolver(sale.Kind)
	if err != nil {
		return false, err
	}
	before := sale.State
	state, err := resolver.Resolve(sale)
	if err != nil {
		return false, err
	}
	return state != before, nil
}

// publishSale hands the sale's pending events and a notification to the
// publisher, then clears the events
func publishSale(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, sale *trade.Sale, extra ...shared.DomainEvent) {
	events := append(sale.GetDomainEvents(), extra...)
	sale.ClearDomainEvents()
	if publisher == nil {
		return
	}
	events = append(events, shared.NewEntityNotification(shared.ChannelSale, shared.NotificationPostUpdate, sale.ID, sale))
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("failed to publish sale events",
			zap.String("sale", sale.Number),
			zap.Error(err),
		)
	}
}

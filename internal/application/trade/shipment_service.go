package trade

import (
	"context"
	"fmt"

	"github.com/erp/commerce/internal/domain/inventory"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/erp/commerce/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShipmentLine asks to ship (or take back) a quantity of a sale item
type ShipmentLine struct {
	SaleItemID uuid.UUID
	Quantity   decimal.Decimal
}

// ShipmentService creates shipments and returns and applies them to stock.
// The sale and the stock units it touches are flushed together.
type ShipmentService struct {
	sales     trade.SaleRepository
	persister *shared.PersistenceHelper
	units     *inventory.StockUnitStateResolver
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewShipmentService creates a new ShipmentService
func NewShipmentService(sales trade.SaleRepository, persister *shared.PersistenceHelper, logger *zap.Logger) *ShipmentService {
	return &ShipmentService{
		sales:     sales,
		persister: persister,
		units:     inventory.NewStockUnitStateResolver(),
		logger:    logger,
	}
}

// SetEventPublisher sets the publisher receiving shipment notifications
func (s *ShipmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreateShipment opens a shipment, or a return when isReturn. Each line is
// bounded by the expected quantity (returns: the returnable quantity).
// Composite items are shipped through their leaves.
func (s *ShipmentService) CreateShipment(ctx context.Context, saleID uuid.UUID, number string, isReturn bool, lines []ShipmentLine) (*trade.Shipment, error) {
	if len(lines) == 0 {
		return nil, shared.InvalidArgument("shipment has no lines")
	}
	sale, err := loadSale(ctx, s.sales, saleID)
	if err != nil {
		return nil, err
	}
	shipment, err := sale.NewShipment(number, isReturn)
	if err != nil {
		return nil, err
	}

	if err := fillShipment(sale, shipment, lines); err != nil {
		sale.RemoveShipment(shipment)
		return nil, err
	}

	if err := s.save(ctx, sale, nil); err != nil {
		return nil, err
	}
	s.notify(ctx, sale, shipment, shared.NotificationPostCreate)
	return shipment, nil
}

// Prepare moves the stock of a new or pending shipment and marks it READY.
// Shipping a READY shipment afterwards only changes its state.
func (s *ShipmentService) Prepare(ctx context.Context, saleID, shipmentID uuid.UUID) (*trade.Shipment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "prepare")
	defer span.End()

	sale, shipment, err := s.load(ctx, saleID, shipmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if shipment.State != trade.ShipmentStateNew && shipment.State != trade.ShipmentStatePending {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("shipment %s cannot be prepared in state %s", shipment.Number, shipment.State))
	}

	touched, err := moveStock(shipment)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := shipment.SetState(trade.ShipmentStateReady); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, sale, touched); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.notify(ctx, sale, shipment, shared.NotificationPostUpdate)
	return shipment, nil
}

// Ship sends a shipment, or receives a return. Stock leaves (or comes back
// to) the assigned units, whose states are resolved again. A READY shipment
// already moved its stock when it was prepared.
func (s *ShipmentService) Ship(ctx context.Context, saleID, shipmentID uuid.UUID) (*trade.Shipment, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "shipment", "ship")
	defer span.End()

	sale, shipment, err := s.load(ctx, saleID, shipmentID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	switch shipment.State {
	case trade.ShipmentStateShipped, trade.ShipmentStateReturned, trade.ShipmentStateCanceled:
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("shipment %s is already %s", shipment.Number, shipment.State))
	}

	touched := make(map[*inventory.StockUnit]struct{})
	if !shipment.State.IsStockable() {
		if touched, err = moveStock(shipment); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	state := trade.ShipmentStateShipped
	if shipment.Return {
		state = trade.ShipmentStateReturned
	}
	if err := shipment.SetState(state); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, sale, touched); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.notify(ctx, sale, shipment, shared.NotificationPostUpdate)
	telemetry.SetAttributes(span, telemetry.SpanAttrSaleNumber, sale.Number, "shipment.units", len(touched))
	return shipment, nil
}

// Cancel drops a shipment that has not left yet. A READY shipment gives its
// stock back first.
func (s *ShipmentService) Cancel(ctx context.Context, saleID, shipmentID uuid.UUID) (*trade.Shipment, error) {
	sale, shipment, err := s.load(ctx, saleID, shipmentID)
	if err != nil {
		return nil, err
	}
	switch shipment.State {
	case trade.ShipmentStateShipped, trade.ShipmentStateReturned, trade.ShipmentStateCanceled:
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("shipment %s is already %s", shipment.Number, shipment.State))
	}

	touched := make(map[*inventory.StockUnit]struct{})
	if shipment.State == trade.ShipmentStateReady {
		if touched, err = restoreStock(shipment); err != nil {
			return nil, err
		}
	}
	if err := shipment.SetState(trade.ShipmentStateCanceled); err != nil {
		return nil, err
	}
	if err := s.commit(ctx, sale, touched); err != nil {
		return nil, err
	}
	s.notify(ctx, sale, shipment, shared.NotificationPostUpdate)
	return shipment, nil
}

// moveStock takes the shipment's quantities from stock, or puts a return's
// quantities back
func moveStock(shipment *trade.Shipment) (map[*inventory.StockUnit]struct{}, error) {
	touched := make(map[*inventory.StockUnit]struct{})
	for _, item := range shipment.Items {
		if !item.SaleItem.IsStockable() {
			continue
		}
		if shipment.Return {
			if err := takeBack(item, touched); err != nil {
				return nil, err
			}
			continue
		}
		if available := trade.CalculateAvailableQuantity(item); item.Quantity.GreaterThan(available) {
			return nil, shared.NewDomainError("INSUFFICIENT_STOCK",
				fmt.Sprintf("%s: %s available, %s to ship", item.SaleItem.Designation, available, item.Quantity))
		}
		if err := send(item, touched); err != nil {
			return nil, err
		}
	}
	return touched, nil
}

// restoreStock undoes moveStock for a prepared shipment
func restoreStock(shipment *trade.Shipment) (map[*inventory.StockUnit]struct{}, error) {
	touched := make(map[*inventory.StockUnit]struct{})
	for _, item := range shipment.Items {
		if !item.SaleItem.IsStockable() {
			continue
		}
		var err error
		if shipment.Return {
			err = send(item, touched)
		} else {
			err = takeBack(item, touched)
		}
		if err != nil {
			return nil, err
		}
	}
	return touched, nil
}

// fillShipment adds the lines, expanding composite items to their leaves
func fillShipment(sale *trade.Sale, shipment *trade.Shipment, lines []ShipmentLine) error {
	for _, line := range lines {
		item := sale.FindItem(line.SaleItemID)
		if item == nil {
			return shared.InvalidArgument(fmt.Sprintf("sale item %s not found on %s", line.SaleItemID, sale.Number))
		}
		for _, leaf := range item.Leaves() {
			quantity := line.Quantity
			if leaf != item {
				quantity = quantity.Mul(leaf.TotalQuantity()).Div(item.TotalQuantity())
			}
			si, err := shipment.AddItem(leaf, quantity)
			if err != nil {
				return err
			}
			limit := trade.CalculateExpectedQuantity(si)
			if shipment.Return {
				limit = trade.CalculateReturnableQuantity(si)
			}
			if quantity.GreaterThan(limit) {
				return shared.InvalidArgument(fmt.Sprintf("%s: quantity %s exceeds %s", leaf.Designation, quantity, limit))
			}
		}
	}
	return nil
}

// send ships the item quantity from the leaf's assignments in order
func send(item *trade.ShipmentItem, touched map[*inventory.StockUnit]struct{}) error {
	remaining := item.Quantity
	for _, a := range item.SaleItem.Assignments {
		if !remaining.IsPositive() {
			break
		}
		quantity := valueobject.MinDecimal(remaining, a.ShippableQuantity())
		if !quantity.IsPositive() {
			continue
		}
		if err := a.Ship(quantity); err != nil {
			return err
		}
		touched[a.StockUnit] = struct{}{}
		remaining = remaining.Sub(quantity)
	}
	if remaining.IsPositive() {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("%s: %s could not be taken from stock", item.SaleItem.Designation, remaining))
	}
	return nil
}

// takeBack returns the item quantity to the assignments it was shipped from,
// latest first
func takeBack(item *trade.ShipmentItem, touched map[*inventory.StockUnit]struct{}) error {
	remaining := item.Quantity
	assignments := item.SaleItem.Assignments
	for i := len(assignments) - 1; i >= 0 && remaining.IsPositive(); i-- {
		a := assignments[i]
		quantity := valueobject.MinDecimal(remaining, a.ShippedQuantity)
		if !quantity.IsPositive() {
			continue
		}
		if err := a.Ship(quantity.Neg()); err != nil {
			return err
		}
		if a.StockUnit != nil {
			touched[a.StockUnit] = struct{}{}
		}
		remaining = remaining.Sub(quantity)
	}
	if remaining.IsPositive() {
		return shared.NewDomainError("INSUFFICIENT_STOCK",
			fmt.Sprintf("%s: %s was never shipped from stock", item.SaleItem.Designation, remaining))
	}
	return nil
}

func (s *ShipmentService) load(ctx context.Context, saleID, shipmentID uuid.UUID) (*trade.Sale, *trade.Shipment, error) {
	sale, err := loadSale(ctx, s.sales, saleID)
	if err != nil {
		return nil, nil, err
	}
	shipment := sale.FindShipment(shipmentID)
	if shipment == nil {
		return nil, nil, fmt.Errorf("shipment %s: %w", shipmentID, shared.ErrNotFound)
	}
	return sale, shipment, nil
}

// commit resolves the touched units and saves them with the sale
func (s *ShipmentService) commit(ctx context.Context, sale *trade.Sale, touched map[*inventory.StockUnit]struct{}) error {
	units := make([]*inventory.StockUnit, 0, len(touched))
	for unit := range touched {
		if _, err := s.units.Resolve(unit); err != nil {
			return err
		}
		units = append(units, unit)
	}
	return s.save(ctx, sale, units)
}

func (s *ShipmentService) save(ctx context.Context, sale *trade.Sale, units []*inventory.StockUnit) error {
	if _, err := resolveSale(sale); err != nil {
		return err
	}
	for _, unit := range units {
		if err := s.persister.Persist(unit); err != nil {
			return err
		}
	}
	if err := s.persister.Persist(sale); err != nil {
		return err
	}
	if err := s.persister.Flush(ctx); err != nil {
		return fmt.Errorf("failed to save sale %s: %w", sale.Number, err)
	}
	return nil
}

func (s *ShipmentService) notify(ctx context.Context, sale *trade.Sale, shipment *trade.Shipment, kind shared.NotificationKind) {
	publishSale(ctx, s.publisher, s.logger, sale,
		shared.NewEntityNotification(shared.ChannelShipment, kind, shipment.ID, shipment))
	s.logger.Debug("shipment updated",
		zap.String("sale", sale.Number),
		zap.String("shipment", shipment.Number),
		zap.String("state", string(shipment.State)),
	)
}

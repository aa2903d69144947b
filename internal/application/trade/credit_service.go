package trade

import (
	"context"
	"fmt"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreditLine asks to credit a quantity of a sale item
type CreditLine struct {
	SaleItemID uuid.UUID
	Quantity   decimal.Decimal
}

// CreditService issues credit notes against sales
type CreditService struct {
	sales     trade.SaleRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewCreditService creates a new CreditService
func NewCreditService(sales trade.SaleRepository, logger *zap.Logger) *CreditService {
	return &CreditService{sales: sales, logger: logger}
}

// SetEventPublisher sets the publisher receiving credit notifications
func (s *CreditService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// CreateCredit opens a credit note on the sale. Without lines every leaf is
// credited as far as it can be. Lines with nothing creditable are dropped and
// the others are bounded to their creditable quantity; a credit left empty
// is rejected.
func (s *CreditService) CreateCredit(ctx context.Context, saleID uuid.UUID, number string, lines []CreditLine) (*trade.Credit, error) {
	sale, err := loadSale(ctx, s.sales, saleID)
	if err != nil {
		return nil, err
	}
	credit, err := sale.NewCredit(number)
	if err != nil {
		return nil, err
	}

	if err := fillCredit(sale, credit, lines); err != nil {
		sale.RemoveCredit(credit)
		return nil, err
	}

	removed := trade.PruneCredit(credit)
	if len(credit.Items) == 0 {
		sale.RemoveCredit(credit)
		return nil, shared.InvalidArgument(fmt.Sprintf("nothing left to credit on %s", sale.Number))
	}

	if _, err := resolveSale(sale); err != nil {
		return nil, err
	}
	if err := s.sales.Save(ctx, sale); err != nil {
		return nil, fmt.Errorf("failed to save sale: %w", err)
	}
	publishSale(ctx, s.publisher, s.logger, sale,
		shared.NewEntityNotification(shared.ChannelCredit, shared.NotificationPostCreate, credit.ID, credit))

	s.logger.Info("credit created",
		zap.String("sale", sale.Number),
		zap.String("credit", credit.Number),
		zap.Int("lines", len(credit.Items)),
		zap.Int("pruned", len(removed)),
	)
	return credit, nil
}

func fillCredit(sale *trade.Sale, credit *trade.Credit, lines []CreditLine) error {
	if len(lines) == 0 {
		for _, leaf := range sale.LeafItems() {
			if _, err := credit.AddItem(leaf, leaf.TotalQuantity()); err != nil {
				return err
			}
		}
		return nil
	}
	for _, line := range lines {
		item := sale.FindItem(line.SaleItemID)
		if item == nil {
			return shared.InvalidArgument(fmt.Sprintf("sale item %s not found on %s", line.SaleItemID, sale.Number))
		}
		if err := addCreditLine(credit, item, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// addCreditLine credits a composite item through its leaves, scaled to
// the requested quantity of the composite
func addCreditLine(credit *trade.Credit, item *trade.SaleItem, quantity decimal.Decimal) error {
	if !item.HasChildren() {
		_, err := credit.AddItem(item, quantity)
		return err
	}
	for _, leaf := range item.Leaves() {
		share := quantity.Mul(leaf.TotalQuantity()).Div(item.TotalQuantity())
		if _, err := credit.AddItem(leaf, share); err != nil {
			return err
		}
	}
	return nil
}

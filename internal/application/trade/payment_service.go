package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/commerce/internal/domain/partner"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/trade"
	"github.com/erp/commerce/internal/infrastructure/config"
	"github.com/erp/commerce/internal/infrastructure/gateway"
	"github.com/erp/commerce/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CustomerFinder loads customers whose outstanding balance may be released
type CustomerFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error)
}

// customerScope loads each customer at most once per operation. The gateway
// handlers and the release step then change and schedule the same instance.
type customerScope struct {
	finder CustomerFinder
	loaded map[uuid.UUID]*partner.Customer
}

func newCustomerScope(finder CustomerFinder) *customerScope {
	return &customerScope{finder: finder, loaded: make(map[uuid.UUID]*partner.Customer)}
}

func (c *customerScope) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	if customer, ok := c.loaded[id]; ok {
		return customer, nil
	}
	if c.finder == nil {
		return nil, shared.PreconditionFailed("customer finder is not set")
	}
	customer, err := c.finder.FindByID(ctx, id)
	if err != nil || customer == nil {
		return customer, err
	}
	c.loaded[id] = customer
	return customer, nil
}

// PaymentService runs payment requests through the gateways and keeps the
// owning sale consistent: paid total, released outstanding funds and state.
// Sales and customers are written through the persister in one flush.
type PaymentService struct {
	sales     trade.SaleRepository
	customers CustomerFinder
	gateways  *gateway.Registry
	releaser  *trade.OutstandingReleaser
	persister *shared.PersistenceHelper
	features  FeatureFlags
	publisher shared.EventPublisher
	logger    *zap.Logger
	metrics   *telemetry.ReconciliationMetrics
}

// NewPaymentService creates a new PaymentService. The persister must be the
// one the gateway registry schedules customers on.
func NewPaymentService(
	sales trade.SaleRepository,
	customers CustomerFinder,
	gateways *gateway.Registry,
	persister *shared.PersistenceHelper,
	features FeatureFlags,
	logger *zap.Logger,
	metrics *telemetry.ReconciliationMetrics,
) *PaymentService {
	return &PaymentService{
		sales:     sales,
		customers: customers,
		gateways:  gateways,
		releaser:  trade.NewOutstandingReleaser(),
		persister: persister,
		features:  features,
		logger:    logger,
		metrics:   metrics,
	}
}

// SetEventPublisher sets the publisher receiving sale and payment events
func (s *PaymentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// AddPayment attaches a payment through the named gateway and captures it
func (s *PaymentService) AddPayment(ctx context.Context, saleID uuid.UUID, number, gatewayName string, amount decimal.Decimal) (*trade.Payment, error) {
	g, err := s.gateways.Get(gatewayName)
	if err != nil {
		return nil, err
	}
	sale, err := loadSale(ctx, s.sales, saleID)
	if err != nil {
		return nil, err
	}
	payment, err := sale.AddPayment(number, methodOf(g), amount)
	if err != nil {
		return nil, err
	}
	if err := s.execute(ctx, sale, &gateway.Request{Kind: gateway.KindCapture, Payment: payment}); err != nil {
		return nil, err
	}
	return payment, nil
}

// Execute runs a request of the given kind against the payment's gateway
func (s *PaymentService) Execute(ctx context.Context, paymentID uuid.UUID, kind gateway.RequestKind, reason string) (*trade.Payment, error) {
	sale, err := s.sales.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("payment %s: %w", paymentID, shared.ErrNotFound)
	}
	payment := sale.FindPayment(paymentID)
	if payment == nil {
		return nil, fmt.Errorf("payment %s: %w", paymentID, shared.ErrNotFound)
	}
	if err := s.execute(ctx, sale, &gateway.Request{Kind: kind, Payment: payment, Reason: reason}); err != nil {
		return nil, err
	}
	return payment, nil
}

// SyncSale polls the gateways for every payment of the sale and reconciles
// the sale when a payment moved. It returns the number of moved payments.
func (s *PaymentService) SyncSale(ctx context.Context, saleID uuid.UUID) (int, error) {
	on, err := enabled(s.features, config.FeatureGatewaySync)
	if err != nil || !on {
		return 0, err
	}
	sale, err := loadSale(ctx, s.sales, saleID)
	if err != nil {
		return 0, err
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "sync_sale",
		telemetry.WithAttribute(telemetry.SpanAttrSaleNumber, sale.Number),
	)
	defer span.End()

	scope := newCustomerScope(s.customers)
	moved := 0
	var errs []error
	for _, payment := range sale.Payments {
		g, err := s.gateways.ForPayment(payment)
		if err != nil {
			errs = append(errs, fmt.Errorf("payment %s: %w", payment.Number, err))
			continue
		}
		if !g.Supports(gateway.KindSync) {
			continue
		}
		resp, err := g.Execute(ctx, &gateway.Request{Kind: gateway.KindSync, Payment: payment, Customers: scope})
		if err != nil {
			errs = append(errs, fmt.Errorf("payment %s: %w", payment.Number, err))
			continue
		}
		if resp.Changed {
			moved++
		}
	}

	if moved > 0 {
		if _, err := s.reconcile(ctx, scope, sale); err != nil {
			return moved, err
		}
		if err := s.flush(ctx, sale); err != nil {
			return moved, err
		}
	}
	if err := errors.Join(errs...); err != nil {
		telemetry.RecordError(span, err)
		return moved, err
	}
	return moved, nil
}

// Reconcile brings a sale in line with its payments: the paid total is
// recomputed, overpaying outstanding payments are released and the state is
// resolved again. It reports whether the sale changed.
func (s *PaymentService) Reconcile(ctx context.Context, sale *trade.Sale) (bool, error) {
	return s.reconcile(ctx, newCustomerScope(s.customers), sale)
}

func (s *PaymentService) reconcile(ctx context.Context, customers *customerScope, sale *trade.Sale) (bool, error) {
	if sale == nil {
		return false, shared.InvalidArgument("expected a sale")
	}
	changed := sale.UpdatePaidTotal()

	release, err := enabled(s.features, config.FeatureOutstandingRelease)
	if err != nil {
		return false, err
	}
	if release {
		released, err := s.releaseOutstanding(ctx, customers, sale)
		if err != nil {
			return false, err
		}
		if released > 0 {
			sale.UpdatePaidTotal()
			changed = true
		}
	}

	moved, err := resolveSale(sale)
	if err != nil {
		return false, err
	}
	s.metrics.RecordResolution(ctx, entitySale, string(sale.State), moved)
	return changed || moved, nil
}

// releaseOutstanding cancels the outstanding payments an overpaid sale no
// longer needs. Payments that were only authorized still hold part of the
// customer's outstanding limit; that part is given back.
func (s *PaymentService) releaseOutstanding(ctx context.Context, customers *customerScope, sale *trade.Sale) (int, error) {
	authorized := make(map[*trade.Payment]bool)
	for _, p := range sale.Payments {
		if p.Method.Outstanding && p.State == trade.PaymentStateAuthorized {
			authorized[p] = true
		}
	}
	wasPaid := make(map[*trade.Payment]bool, len(sale.Payments))
	for _, p := range sale.Payments {
		wasPaid[p] = p.State.IsPaid()
	}

	if !s.releaser.ReleaseFund(sale) {
		return 0, nil
	}

	released := 0
	held := decimal.Zero
	for _, p := range sale.Payments {
		if !wasPaid[p] || p.State != trade.PaymentStateCanceled {
			continue
		}
		released++
		if authorized[p] {
			held = held.Add(p.Amount)
		}
	}
	s.metrics.RecordReleasedPayments(ctx, string(sale.Kind), released)
	s.logger.Info("outstanding payments released",
		zap.String("sale", sale.Number),
		zap.Int("payments", released),
	)

	if !held.IsPositive() {
		return released, nil
	}
	customer, err := customers.FindByID(ctx, sale.CustomerID)
	if err != nil {
		return 0, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer == nil {
		return 0, fmt.Errorf("customer %s: %w", sale.CustomerID, shared.ErrNotFound)
	}
	if err := customer.ReleaseOutstanding(held); err != nil {
		return 0, err
	}
	if err := s.persister.Persist(customer); err != nil {
		return 0, err
	}
	return released, nil
}

func (s *PaymentService) execute(ctx context.Context, sale *trade.Sale, req *gateway.Request) error {
	g, err := s.gateways.ForPayment(req.Payment)
	if err != nil {
		return err
	}
	scope := newCustomerScope(s.customers)
	req.Customers = scope
	resp, err := g.Execute(ctx, req)
	if err != nil {
		return err
	}
	if resp.Changed {
		if _, err := s.reconcile(ctx, scope, sale); err != nil {
			return err
		}
	}
	if err := s.flush(ctx, sale); err != nil {
		return err
	}
	s.notifyPayment(ctx, req.Payment)
	return nil
}

func (s *PaymentService) flush(ctx context.Context, sale *trade.Sale) error {
	if err := s.persister.Persist(sale); err != nil {
		return err
	}
	if err := s.persister.Flush(ctx); err != nil {
		return fmt.Errorf("failed to save sale %s: %w", sale.Number, err)
	}
	publishSale(ctx, s.publisher, s.logger, sale)
	return nil
}

func (s *PaymentService) notifyPayment(ctx context.Context, payment *trade.Payment) {
	if s.publisher == nil {
		return
	}
	n := shared.NewEntityNotification(shared.ChannelPayment, shared.NotificationPostUpdate, payment.ID, payment)
	if err := s.publisher.Publish(ctx, n); err != nil {
		s.logger.Warn("failed to publish payment notification", zap.Error(err))
	}
}

func methodOf(g *gateway.Gateway) trade.PaymentMethod {
	return trade.PaymentMethod{
		Code:          g.Name(),
		Factory:       g.Factory(),
		Outstanding:   g.Factory() == gateway.FactoryOutstandingBalance,
		CreditBalance: g.Factory() == gateway.FactoryCreditBalance,
	}
}

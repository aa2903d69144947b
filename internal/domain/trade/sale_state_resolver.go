package trade

import (
	"time"

	"github.com/erp/commerce/internal/domain/shared"
)

// SaleStateResolver derives the state of a sale and writes it back
type SaleStateResolver interface {
	Resolve(sale *Sale) (SaleState, error)
}

// NewSaleStateResolver returns the resolver matching the sale kind
func NewSaleStateResolver(kind SaleKind) (SaleStateResolver, error) {
	switch kind {
	case SaleKindCart:
		return NewCartStateResolver(), nil
	case SaleKindQuote:
		return NewQuoteStateResolver(), nil
	case SaleKindOrder:
		return NewOrderStateResolver(), nil
	}
	return nil, shared.InvalidArgument("Unsupported sale kind: " + string(kind))
}

type baseResolver struct {
	now func() time.Time
}

func (r *baseResolver) check(sale *Sale, kind SaleKind) error {
	if sale == nil {
		return shared.InvalidArgument("Expected a sale")
	}
	if sale.Kind != kind {
		return shared.InvalidArgument("Expected a sale of kind " + string(kind) + ", got " + string(sale.Kind))
	}
	return nil
}

func (r *baseResolver) resolveSubStates(sale *Sale) {
	sale.PaymentState = ResolvePaymentSubState(sale)
	sale.ShipmentState = ResolveShipmentSubState(sale)
	sale.InvoiceState = ResolveInvoiceSubState(sale)
}

// apply writes the state back and maintains the acceptance and completion dates
func (r *baseResolver) apply(sale *Sale, state SaleState) SaleState {
	switch state {
	case SaleStateAccepted, SaleStateCompleted:
		if sale.AcceptedAt == nil {
			at := r.now()
			sale.AcceptedAt = &at
		}
	}
	if state == SaleStateCompleted {
		if sale.CompletedAt == nil {
			at := r.now()
			sale.CompletedAt = &at
		}
	} else {
		sale.CompletedAt = nil
	}

	if sale.State != state {
		from := sale.State
		sale.State = state
		sale.Touch()
		sale.AddDomainEvent(NewSaleStateChangedEvent(sale, from, state))
	}
	return state
}

// OrderStateResolver resolves order states from the payment, shipment and
// invoice sub-states
type OrderStateResolver struct {
	baseResolver
}

// NewOrderStateResolver creates an order resolver using the wall clock
func NewOrderStateResolver() *OrderStateResolver {
	return &OrderStateResolver{baseResolver{now: time.Now}}
}

// WithClock replaces the clock used to stamp dates
func (r *OrderStateResolver) WithClock(now func() time.Time) *OrderStateResolver {
	r.now = now
	return r
}

// Resolve derives and writes back the order state
func (r *OrderStateResolver) Resolve(sale *Sale) (SaleState, error) {
	if err := r.check(sale, SaleKindOrder); err != nil {
		return "", err
	}
	if !sale.HasItems() {
		return r.apply(sale, SaleStateNew), nil
	}
	r.resolveSubStates(sale)

	payment := sale.PaymentState
	switch {
	case payment == PaymentSubStateRefunded:
		return r.apply(sale, SaleStateRefunded), nil

	case (payment == PaymentSubStateCanceled || payment == PaymentSubStateFailed) &&
		nothingDelivered(sale.ShipmentState, sale.InvoiceState):
		if sale.ShipmentState != ShipmentSubStateNone {
			sale.ShipmentState = ShipmentSubStateCanceled
		}
		sale.InvoiceState = InvoiceSubStateCanceled
		return r.apply(sale, SaleStateCanceled), nil

	case payment.IsPaid() &&
		(sale.ShipmentState == ShipmentSubStateCompleted || sale.ShipmentState == ShipmentSubStateNone) &&
		sale.InvoiceState == InvoiceSubStateCompleted:
		return r.apply(sale, SaleStateCompleted), nil

	case payment.IsPaid():
		return r.apply(sale, SaleStateAccepted), nil

	case payment == PaymentSubStatePending || payment == PaymentSubStatePartial:
		return r.apply(sale, SaleStatePending), nil
	}
	return r.apply(sale, SaleStateNew), nil
}

// CartStateResolver resolves cart states: a cart is accepted as soon as a
// payment covers it or awaits confirmation
type CartStateResolver struct {
	baseResolver
}

// NewCartStateResolver creates a cart resolver using the wall clock
func NewCartStateResolver() *CartStateResolver {
	return &CartStateResolver{baseResolver{now: time.Now}}
}

// WithClock replaces the clock used to stamp dates
func (r *CartStateResolver) WithClock(now func() time.Time) *CartStateResolver {
	r.now = now
	return r
}

// Resolve derives and writes back the cart state
func (r *CartStateResolver) Resolve(sale *Sale) (SaleState, error) {
	if err := r.check(sale, SaleKindCart); err != nil {
		return "", err
	}
	if !sale.HasItems() {
		return r.apply(sale, SaleStateNew), nil
	}
	sale.PaymentState = ResolvePaymentSubState(sale)

	switch sale.PaymentState {
	case PaymentSubStateCaptured, PaymentSubStateOutstanding, PaymentSubStatePending, PaymentSubStatePartial:
		return r.apply(sale, SaleStateAccepted), nil
	}
	return r.apply(sale, SaleStateNew), nil
}

// QuoteStateResolver resolves quote states
type QuoteStateResolver struct {
	baseResolver
}

// NewQuoteStateResolver creates a quote resolver using the wall clock
func NewQuoteStateResolver() *QuoteStateResolver {
	return &QuoteStateResolver{baseResolver{now: time.Now}}
}

// Resolve derives and writes back the quote state
func (r *QuoteStateResolver) Resolve(sale *Sale) (SaleState, error) {
	if err := r.check(sale, SaleKindQuote); err != nil {
		return "", err
	}
	if !sale.HasItems() {
		return r.apply(sale, SaleStateNew), nil
	}
	sale.PaymentState = ResolvePaymentSubState(sale)

	switch sale.PaymentState {
	case PaymentSubStateCaptured, PaymentSubStateOutstanding:
		return r.apply(sale, SaleStateAccepted), nil
	case PaymentSubStatePending, PaymentSubStatePartial:
		return r.apply(sale, SaleStatePending), nil
	}
	return r.apply(sale, SaleStateNew), nil
}

package partner

import (
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeCustomer = "Customer"

// Event type constants
const (
	EventTypeCustomerCreated        = "CustomerCreated"
	EventTypeCustomerVatChanged     = "CustomerVatChanged"
	EventTypeCustomerBalanceChanged = "CustomerBalanceChanged"
)

// CustomerCreatedEvent is published when a new customer is created
type CustomerCreatedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID `json:"customer_id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
}

// NewCustomerCreatedEvent creates a new CustomerCreatedEvent
func NewCustomerCreatedEvent(customer *Customer) *CustomerCreatedEvent {
	return &CustomerCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerCreated, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Code:            customer.Code,
		Name:            customer.Name,
	}
}

// CustomerVatChangedEvent is published when the VAT validity or details change
type CustomerVatChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID         `json:"customer_id"`
	VatNumber  string            `json:"vat_number"`
	Valid      bool              `json:"valid"`
	Details    map[string]string `json:"details"`
}

// NewCustomerVatChangedEvent creates a new CustomerVatChangedEvent
func NewCustomerVatChangedEvent(customer *Customer) *CustomerVatChangedEvent {
	return &CustomerVatChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerVatChanged, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		VatNumber:       customer.VatNumber,
		Valid:           customer.VatValid,
		Details:         customer.VatDetails,
	}
}

// CustomerBalanceChangedEvent is published when the outstanding or credit balance changes
type CustomerBalanceChangedEvent struct {
	shared.BaseDomainEvent
	CustomerID uuid.UUID       `json:"customer_id"`
	Kind       string          `json:"kind"`
	OldBalance decimal.Decimal `json:"old_balance"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// NewCustomerBalanceChangedEvent creates a new CustomerBalanceChangedEvent
func NewCustomerBalanceChangedEvent(customer *Customer, kind string, oldBalance, newBalance decimal.Decimal) *CustomerBalanceChangedEvent {
	return &CustomerBalanceChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCustomerBalanceChanged, AggregateTypeCustomer, customer.ID),
		CustomerID:      customer.ID,
		Kind:            kind,
		OldBalance:      oldBalance,
		NewBalance:      newBalance,
	}
}

package trade

import (
	"time"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentState represents the state of a payment
type PaymentState string

const (
	PaymentStateNew        PaymentState = "NEW"
	PaymentStatePending    PaymentState = "PENDING"
	PaymentStateAuthorized PaymentState = "AUTHORIZED"
	PaymentStateCaptured   PaymentState = "CAPTURED"
	PaymentStateFailed     PaymentState = "FAILED"
	PaymentStateCanceled   PaymentState = "CANCELED"
	PaymentStateRefunded   PaymentState = "REFUNDED"
	PaymentStateExpired    PaymentState = "EXPIRED"
	PaymentStateSuspended  PaymentState = "SUSPENDED"
	PaymentStateUnknown    PaymentState = "UNKNOWN"
)

// IsValid checks if the state is a valid PaymentState
func (s PaymentState) IsValid() bool {
	switch s {
	case PaymentStateNew, PaymentStatePending, PaymentStateAuthorized, PaymentStateCaptured,
		PaymentStateFailed, PaymentStateCanceled, PaymentStateRefunded, PaymentStateExpired,
		PaymentStateSuspended, PaymentStateUnknown:
		return true
	}
	return false
}

// String returns the string representation of PaymentState
func (s PaymentState) String() string {
	return string(s)
}

// IsPaid returns true for states in which the amount counts as paid
func (s PaymentState) IsPaid() bool {
	return s == PaymentStateAuthorized || s == PaymentStateCaptured
}

// IsPending returns true for states awaiting confirmation
func (s PaymentState) IsPending() bool {
	return s == PaymentStatePending || s == PaymentStateSuspended
}

// IsCanceled returns true for states that will never be paid
func (s PaymentState) IsCanceled() bool {
	return s == PaymentStateCanceled || s == PaymentStateExpired
}

// PaymentMethod describes how a payment is settled
type PaymentMethod struct {
	Code          string
	Factory       string // gateway factory name
	Outstanding   bool   // deferred payment against the customer's outstanding limit
	CreditBalance bool   // paid from the customer's credit balance
}

// Payment is a payment attached to a sale
type Payment struct {
	ID          uuid.UUID
	Sale        *Sale
	Number      string
	Method      PaymentMethod
	Amount      decimal.Decimal
	Currency    valueobject.Currency
	State       PaymentState
	Details     map[string]string
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// AddPayment appends a payment to the sale
func (s *Sale) AddPayment(number string, method PaymentMethod, amount decimal.Decimal) (*Payment, error) {
	if number == "" {
		return nil, shared.InvalidArgument("Payment number cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.InvalidArgument("Payment amount must be positive")
	}
	p := &Payment{
		ID:        uuid.New(),
		Sale:      s,
		Number:    number,
		Method:    method,
		Amount:    amount,
		Currency:  s.Currency,
		State:     PaymentStateNew,
		Details:   make(map[string]string),
		CreatedAt: time.Now(),
	}
	s.Payments = append(s.Payments, p)
	s.Touch()
	return p, nil
}

// FindPayment looks a payment up by id
func (s *Sale) FindPayment(id uuid.UUID) *Payment {
	for _, p := range s.Payments {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// SetState changes the payment state. Returns true when the state changed.
func (p *Payment) SetState(state PaymentState) (bool, error) {
	if !state.IsValid() {
		return false, shared.InvalidArgument("Invalid payment state: " + string(state))
	}
	if p.State == state {
		return false, nil
	}
	p.State = state
	if state.IsPaid() || state == PaymentStateRefunded {
		now := time.Now()
		p.CompletedAt = &now
	}
	return true, nil
}

// Cancel moves the payment to the canceled state
func (p *Payment) Cancel() {
	p.State = PaymentStateCanceled
	p.CompletedAt = nil
}

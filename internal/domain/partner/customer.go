package partner

import (
	"regexp"
	"strings"
	"time"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// CustomerStatus represents the status of a customer
type CustomerStatus string

const (
	CustomerStatusActive    CustomerStatus = "active"
	CustomerStatusInactive  CustomerStatus = "inactive"
	CustomerStatusSuspended CustomerStatus = "suspended" // Suspended due to credit issues
)

// Balance kinds reported by CustomerBalanceChangedEvent
const (
	BalanceOutstanding = "outstanding"
	BalanceCredit      = "credit"
)

// Customer represents a customer in the partner context.
// Outstanding balance is the amount currently owed through deferred
// payments; credit balance is money the customer may spend.
type Customer struct {
	shared.BaseAggregateRoot
	Code               string
	Name               string
	Email              string
	Status             CustomerStatus
	VatNumber          string
	VatValid           bool
	VatDetails         map[string]string
	VatCheckedAt       *time.Time
	OutstandingLimit   decimal.Decimal
	OutstandingBalance decimal.Decimal
	CreditBalance      decimal.Decimal
}

// NewCustomer creates a new customer with required fields
func NewCustomer(code, name string) (*Customer, error) {
	if err := validateCustomerCode(code); err != nil {
		return nil, err
	}
	if err := validateCustomerName(name); err != nil {
		return nil, err
	}

	customer := &Customer{
		BaseAggregateRoot:  shared.NewBaseAggregateRoot(),
		Code:               strings.ToUpper(code),
		Name:               name,
		Status:             CustomerStatusActive,
		VatDetails:         make(map[string]string),
		OutstandingLimit:   decimal.Zero,
		OutstandingBalance: decimal.Zero,
		CreditBalance:      decimal.Zero,
	}

	customer.AddDomainEvent(NewCustomerCreatedEvent(customer))

	return customer, nil
}

// SetEmail updates the customer's email
func (c *Customer) SetEmail(email string) error {
	if email != "" {
		if err := validateEmail(email); err != nil {
			return err
		}
	}
	c.Email = email
	c.Touch()
	return nil
}

// SetVatNumber changes the VAT number. A different number loses its validation.
func (c *Customer) SetVatNumber(number string) error {
	number = NormalizeVatNumber(number)
	if number != "" {
		if err := ValidateVatNumberFormat(number); err != nil {
			return err
		}
	}
	if number == c.VatNumber {
		return nil
	}
	c.VatNumber = number
	c.VatValid = false
	c.VatDetails = make(map[string]string)
	c.VatCheckedAt = nil
	c.Touch()
	return nil
}

// ApplyVatValidation stores the outcome of a VAT number check.
// Returns true when validity or details changed.
func (c *Customer) ApplyVatValidation(result *VatValidationResult) bool {
	if result == nil {
		return false
	}
	checkedAt := result.CheckedAt
	c.VatCheckedAt = &checkedAt

	details := result.Details()
	changed := c.VatValid != result.Valid || !sameDetails(c.VatDetails, details)
	if !changed {
		return false
	}
	c.VatValid = result.Valid
	c.VatDetails = details
	c.Touch()
	c.AddDomainEvent(NewCustomerVatChangedEvent(c))
	return true
}

// SetOutstandingLimit updates the maximum deferred amount
func (c *Customer) SetOutstandingLimit(limit decimal.Decimal) error {
	if limit.IsNegative() {
		return shared.NewDomainError("INVALID_LIMIT", "Outstanding limit cannot be negative")
	}
	c.OutstandingLimit = limit
	c.Touch()
	return nil
}

// AvailableOutstanding returns how much can still be deferred
func (c *Customer) AvailableOutstanding() decimal.Decimal {
	available := c.OutstandingLimit.Sub(c.OutstandingBalance)
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// UseOutstanding defers an amount against the outstanding limit
func (c *Customer) UseOutstanding(amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(c.AvailableOutstanding()) {
		return shared.NewDomainError("INSUFFICIENT_OUTSTANDING", "Outstanding limit exceeded")
	}
	old := c.OutstandingBalance
	c.OutstandingBalance = c.OutstandingBalance.Add(amount)
	c.balanceChanged(BalanceOutstanding, old, c.OutstandingBalance)
	return nil
}

// ReleaseOutstanding gives back a deferred amount (payment canceled or settled)
func (c *Customer) ReleaseOutstanding(amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	old := c.OutstandingBalance
	c.OutstandingBalance = c.OutstandingBalance.Sub(amount)
	if c.OutstandingBalance.IsNegative() {
		c.OutstandingBalance = decimal.Zero
	}
	c.balanceChanged(BalanceOutstanding, old, c.OutstandingBalance)
	return nil
}

// AddCredit adds to the customer's credit balance (refund, credit note)
func (c *Customer) AddCredit(amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	old := c.CreditBalance
	c.CreditBalance = c.CreditBalance.Add(amount)
	c.balanceChanged(BalanceCredit, old, c.CreditBalance)
	return nil
}

// UseCredit spends from the customer's credit balance
func (c *Customer) UseCredit(amount decimal.Decimal) error {
	if err := validateAmount(amount); err != nil {
		return err
	}
	if c.CreditBalance.LessThan(amount) {
		return shared.NewDomainError("INSUFFICIENT_BALANCE", "Insufficient balance")
	}
	old := c.CreditBalance
	c.CreditBalance = c.CreditBalance.Sub(amount)
	c.balanceChanged(BalanceCredit, old, c.CreditBalance)
	return nil
}

// Suspend suspends the customer
func (c *Customer) Suspend() error {
	if c.Status == CustomerStatusSuspended {
		return shared.NewDomainError(shared.CodeInvalidState, "Customer is already suspended")
	}
	c.Status = CustomerStatusSuspended
	c.Touch()
	return nil
}

// IsActive returns true if the customer is active
func (c *Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}

func (c *Customer) balanceChanged(kind string, old, current decimal.Decimal) {
	c.Touch()
	c.AddDomainEvent(NewCustomerBalanceChangedEvent(c, kind, old, current))
}

func sameDetails(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}

// Validation functions

func validateAmount(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount cannot be negative")
	}
	if amount.IsZero() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount cannot be zero")
	}
	return nil
}

func validateCustomerCode(code string) error {
	if code == "" {
		return shared.NewDomainError("INVALID_CODE", "Customer code cannot be empty")
	}
	if len(code) > 50 {
		return shared.NewDomainError("INVALID_CODE", "Customer code cannot exceed 50 characters")
	}
	for _, r := range code {
		if !((r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-') {
			return shared.NewDomainError("INVALID_CODE", "Customer code can only contain letters, numbers, underscores, and hyphens")
		}
	}
	return nil
}

func validateCustomerName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Customer name cannot exceed 200 characters")
	}
	return nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailRegex.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

package models

import (
	"time"

	"github.com/erp/commerce/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// CustomerModel is the persistence model for the Customer aggregate root.
type CustomerModel struct {
	AggregateModel
	Code               string                 `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name               string                 `gorm:"type:varchar(200);not null"`
	Email              string                 `gorm:"type:varchar(200)"`
	Status             partner.CustomerStatus `gorm:"type:varchar(20);not null;default:'active'"`
	VatNumber          string                 `gorm:"type:varchar(20);index"`
	VatValid           bool                   `gorm:"not null;default:false"`
	VatDetails         map[string]string      `gorm:"type:text;serializer:json"`
	VatCheckedAt       *time.Time
	OutstandingLimit   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	OutstandingBalance decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	CreditBalance      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer entity.
func (m *CustomerModel) ToDomain() *partner.Customer {
	details := m.VatDetails
	if details == nil {
		details = make(map[string]string)
	}
	return &partner.Customer{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		Code:               m.Code,
		Name:               m.Name,
		Email:              m.Email,
		Status:             m.Status,
		VatNumber:          m.VatNumber,
		VatValid:           m.VatValid,
		VatDetails:         details,
		VatCheckedAt:       m.VatCheckedAt,
		OutstandingLimit:   m.OutstandingLimit,
		OutstandingBalance: m.OutstandingBalance,
		CreditBalance:      m.CreditBalance,
	}
}

// CustomerModelFromDomain creates a new persistence model from a domain Customer entity.
func CustomerModelFromDomain(c *partner.Customer) *CustomerModel {
	m := &CustomerModel{
		Code:               c.Code,
		Name:               c.Name,
		Email:              c.Email,
		Status:             c.Status,
		VatNumber:          c.VatNumber,
		VatValid:           c.VatValid,
		VatDetails:         c.VatDetails,
		VatCheckedAt:       c.VatCheckedAt,
		OutstandingLimit:   c.OutstandingLimit,
		OutstandingBalance: c.OutstandingBalance,
		CreditBalance:      c.CreditBalance,
	}
	m.FromDomainAggregateRoot(c.BaseAggregateRoot)
	return m
}

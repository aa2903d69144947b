package partner

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/commerce/internal/domain/partner"
	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeatureFlags reports whether an optional behaviour is switched on
type FeatureFlags interface {
	IsEnabled(name string) (bool, error)
}

// VatService checks customer VAT numbers against a registry and stores the
// outcome on the customer
type VatService struct {
	customers partner.CustomerRepository
	validator partner.VatNumberValidator
	features  FeatureFlags
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewVatService creates a new VatService. A nil features source leaves
// validation switched on.
func NewVatService(customers partner.CustomerRepository, validator partner.VatNumberValidator, features FeatureFlags, logger *zap.Logger) *VatService {
	return &VatService{
		customers: customers,
		validator: validator,
		features:  features,
		logger:    logger,
	}
}

// SetEventPublisher sets the publisher receiving customer events
func (s *VatService) SetEventPublisher(publisher shared.EventPublisher) {
	s.publisher = publisher
}

// Validate checks the VAT number of one customer. It reports whether the
// stored validity or details changed. Customers without a number are skipped.
func (s *VatService) Validate(ctx context.Context, customerID uuid.UUID) (bool, error) {
	if on, err := s.enabled(); err != nil || !on {
		return false, err
	}
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return false, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer == nil {
		return false, fmt.Errorf("customer %s: %w", customerID, shared.ErrNotFound)
	}
	return s.validate(ctx, customer)
}

// ValidateAll checks every customer carrying a VAT number. Failures do not
// stop the run; they are returned joined with the number of changed customers.
func (s *VatService) ValidateAll(ctx context.Context) (int, error) {
	if on, err := s.enabled(); err != nil || !on {
		return 0, err
	}
	customers, err := s.customers.FindWithVatNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list customers: %w", err)
	}
	changed := 0
	var errs []error
	for _, customer := range customers {
		ok, err := s.validate(ctx, customer)
		if err != nil {
			errs = append(errs, fmt.Errorf("customer %s: %w", customer.Code, err))
			continue
		}
		if ok {
			changed++
		}
	}
	return changed, errors.Join(errs...)
}

func (s *VatService) validate(ctx context.Context, customer *partner.Customer) (bool, error) {
	if customer.VatNumber == "" {
		return false, nil
	}
	if s.validator == nil {
		return false, shared.PreconditionFailed("no VAT number validator configured")
	}
	result, err := s.validator.Validate(ctx, customer.VatNumber)
	if err != nil {
		return false, fmt.Errorf("failed to validate VAT number %s: %w", customer.VatNumber, err)
	}
	if !customer.ApplyVatValidation(result) {
		return false, s.save(ctx, customer, false)
	}
	s.logger.Info("customer VAT validation changed",
		zap.String("customer", customer.Code),
		zap.Bool("valid", customer.VatValid),
	)
	return true, s.save(ctx, customer, true)
}

// save stores the check date; a changed customer is announced
func (s *VatService) save(ctx context.Context, customer *partner.Customer, changed bool) error {
	if err := s.customers.Save(ctx, customer); err != nil {
		return fmt.Errorf("failed to save customer: %w", err)
	}
	events := customer.GetDomainEvents()
	customer.ClearDomainEvents()
	if !changed || s.publisher == nil {
		return nil
	}
	events = append(events, shared.NewEntityNotification(shared.ChannelCustomer, shared.NotificationPostUpdate, customer.ID, customer))
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish customer events", zap.Error(err))
	}
	return nil
}

func (s *VatService) enabled() (bool, error) {
	if s.features == nil {
		return true, nil
	}
	return s.features.IsEnabled(config.FeatureVatValidation)
}

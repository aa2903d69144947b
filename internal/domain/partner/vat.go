package partner

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/erp/commerce/internal/domain/shared"
)

var vatNumberRegex = regexp.MustCompile(`^[A-Z]{2}[0-9A-Z+*]{2,13}$`)

// VatValidationResult is the answer of a VAT registry
type VatValidationResult struct {
	Valid       bool
	Name        string
	Address     string
	CountryCode string
	CheckedAt   time.Time
}

// Details flattens the registry answer for storage on the customer
func (r *VatValidationResult) Details() map[string]string {
	details := make(map[string]string)
	if !r.Valid {
		return details
	}
	if r.Name != "" {
		details["name"] = r.Name
	}
	if r.Address != "" {
		details["address"] = r.Address
	}
	if r.CountryCode != "" {
		details["country"] = r.CountryCode
	}
	return details
}

// VatNumberValidator checks a VAT number against an external registry.
// Retries and transport concerns belong to the implementation.
type VatNumberValidator interface {
	Validate(ctx context.Context, vatNumber string) (*VatValidationResult, error)
}

// NormalizeVatNumber strips separators and upper-cases the number
func NormalizeVatNumber(number string) string {
	replacer := strings.NewReplacer(" ", "", ".", "", "-", "")
	return strings.ToUpper(replacer.Replace(strings.TrimSpace(number)))
}

// ValidateVatNumberFormat checks the country prefix and length of a normalized number
func ValidateVatNumberFormat(number string) error {
	if !vatNumberRegex.MatchString(number) {
		return shared.InvalidArgument("Invalid VAT number format")
	}
	return nil
}

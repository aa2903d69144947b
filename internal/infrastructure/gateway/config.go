package gateway

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/erp/commerce/internal/domain/shared"
	"github.com/erp/commerce/internal/infrastructure/config"
	"github.com/go-playground/validator/v10"
)

// Factory names.
const (
	FactoryOffline            = "OFFLINE"
	FactoryOutstandingBalance = "OUTSTANDING_BALANCE"
	FactoryCreditBalance      = "CREDIT_BALANCE"
)

// Config declares one gateway instance. Zero SyncRate leaves SYNC unthrottled.
type Config struct {
	Name      string            `validate:"required,max=64"`
	Factory   string            `validate:"required,oneof=OFFLINE OUTSTANDING_BALANCE CREDIT_BALANCE"`
	Currency  string            `validate:"omitempty,len=3,uppercase"`
	SyncRate  float64           `validate:"gte=0"`
	SyncBurst int               `validate:"required_with=SyncRate,gte=0"`
	Options   map[string]string `validate:"omitempty,dive,keys,required,endkeys"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return toSnake(fld.Name)
	})
	return v
}

// ConfigFrom maps a configured gateway section. Factory names are case-insensitive.
func ConfigFrom(c config.GatewayConfig) Config {
	return Config{
		Name:      c.Name,
		Factory:   strings.ToUpper(strings.TrimSpace(c.Factory)),
		Currency:  strings.ToUpper(c.Currency),
		SyncRate:  c.SyncRate,
		SyncBurst: c.SyncBurst,
		Options:   c.Options,
	}
}

// Validate checks the struct tags. Failures are INVALID_ARGUMENT domain errors
// listing every offending field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("gateway %q: %w", c.Name, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fe.Field()+": "+validationMessage(fe))
	}
	return shared.InvalidArgument(fmt.Sprintf("gateway %q: %s", c.Name, strings.Join(msgs, "; ")))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_with":
		return "is required with " + toSnake(fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "uppercase":
		return "must be upper case"
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}

func toSnake(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

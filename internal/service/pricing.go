package service

import (
	"math"
	"strings"

	"github.com/attendly/ticketing/internal/domain"
)

// currencyExponents maps ISO 4217 codes to their minor unit exponent.
// Amounts are carried as int64 minor units so order totals are exact.
var currencyExponents = map[string]int{
	"USD": 2,
	"EUR": 2,
	"GBP": 2,
	"THB": 2,
	"SGD": 2,
	"AUD": 2,
	"CAD": 2,
	"JPY": 0,
	"KRW": 0,
	"VND": 0,
	"KWD": 3,
	"BHD": 3,
}

// PricingCalculator computes order totals in minor units.
type PricingCalculator struct{}

// NewPricingCalculator creates a new PricingCalculator
func NewPricingCalculator() *PricingCalculator {
	return &PricingCalculator{}
}

// ValidateCurrency checks that the currency code is supported
func (p *PricingCalculator) ValidateCurrency(currency string) error {
	if _, ok := currencyExponents[strings.ToUpper(currency)]; !ok {
		return domain.ErrInvalidCurrency
	}
	return nil
}

// CurrencyExponent returns the minor unit exponent for a supported currency
func (p *PricingCalculator) CurrencyExponent(currency string) (int, error) {
	exp, ok := currencyExponents[strings.ToUpper(currency)]
	if !ok {
		return 0, domain.ErrInvalidCurrency
	}
	return exp, nil
}

// Total computes unitPrice * quantity with overflow checking. unitPrice is
// in minor units of currency.
func (p *PricingCalculator) Total(unitPrice int64, quantity int, currency string) (int64, error) {
	if unitPrice < 0 {
		return 0, domain.ErrInvalidUnitPrice
	}
	if quantity <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	if err := p.ValidateCurrency(currency); err != nil {
		return 0, err
	}

	qty := int64(quantity)
	if unitPrice != 0 && qty > math.MaxInt64/unitPrice {
		return 0, domain.ErrAmountOverflow
	}
	return unitPrice * qty, nil
}

// FormatMajor renders a minor unit amount as major units for display,
// e.g. 2550 USD minor units -> 25.50.
func (p *PricingCalculator) FormatMajor(amount int64, currency string) (float64, error) {
	exp, err := p.CurrencyExponent(currency)
	if err != nil {
		return 0, err
	}
	return float64(amount) / math.Pow10(exp), nil
}

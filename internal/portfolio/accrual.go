package portfolio

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrNegativePrincipal = errors.New("negative principal")
	ErrInvalidMultiplier = errors.New("benchmark multiplier must be positive")
)

// workingPlaces bounds the precision of intermediate compounding steps.
const workingPlaces = 18

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// Accrue compounds principal over the daily rates in order. Each day grows
// the value by (ratePercent/100)*multiplier. The result is rounded to cents;
// an empty series leaves the principal untouched.
func Accrue(principal, multiplier decimal.Decimal, rates []DailyRate) (decimal.Decimal, error) {
	if principal.IsNegative() {
		return decimal.Zero, ErrNegativePrincipal
	}
	if !multiplier.IsPositive() {
		return decimal.Zero, ErrInvalidMultiplier
	}
	if len(rates) == 0 {
		return principal, nil
	}

	value := principal
	for _, r := range rates {
		daily := r.RatePercent.Div(hundred).Mul(multiplier)
		value = value.Mul(one.Add(daily)).Round(workingPlaces)
	}
	return value.Round(2), nil
}

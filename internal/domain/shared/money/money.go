package money

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
)

// DisplayPlaces is the number of fractional digits kept when presenting amounts.
const DisplayPlaces = 2

var hundred = decimal.NewFromInt(100)

// Money pairs a decimal amount with an ISO 4217 currency code.
type Money struct {
	Amount   decimal.Decimal
	Currency string
}

// New constructs Money validating the currency code.
func New(amount decimal.Decimal, currency string) (Money, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: currency}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount decimal.Decimal, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{Amount: decimal.Zero, Currency: strings.ToUpper(currency)}
}

func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: m.Currency}, nil
}

func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: m.Currency}, nil
}

// Percent returns pct percent of the amount.
func (m Money) Percent(pct decimal.Decimal) Money {
	return Money{Amount: m.Amount.Mul(pct).Div(hundred), Currency: m.Currency}
}

// FloorZero clamps negative amounts to zero.
func (m Money) FloorZero() Money {
	if m.Amount.IsNegative() {
		return Money{Amount: decimal.Zero, Currency: m.Currency}
	}
	return m
}

// DivInt splits the amount into n equal parts.
func (m Money) DivInt(n int) Money {
	if n <= 0 {
		return m
	}
	return Money{Amount: m.Amount.Div(decimal.NewFromInt(int64(n))), Currency: m.Currency}
}

// Rounded returns the amount rounded half-up to DisplayPlaces.
func (m Money) Rounded() Money {
	return Money{Amount: m.Amount.Round(DisplayPlaces), Currency: m.Currency}
}

func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

func (m Money) Cmp(other Money) int {
	return m.Amount.Cmp(other.Amount)
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

// Ratio returns part/whole as a percentage rounded to DisplayPlaces, or zero when whole is zero.
func Ratio(part, whole Money) decimal.Decimal {
	if whole.Amount.IsZero() {
		return decimal.Zero
	}
	return part.Amount.Mul(hundred).Div(whole.Amount).Round(DisplayPlaces)
}

// Display renders the amount with exactly DisplayPlaces fractional digits.
func (m Money) Display() string {
	return m.Amount.StringFixed(DisplayPlaces)
}

package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 currency code
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyNGN Currency = "NGN"
)

// DecimalScale returns the number of minor-unit digits for the currency
func (c Currency) DecimalScale() int32 {
	switch c {
	case "JPY", "KRW":
		return 0
	default:
		return 2
	}
}

var (
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// AmountError reports an amount that failed a sign or precision check
type AmountError struct {
	Expected string
	Amount   Amount
}

func (e *AmountError) Error() string {
	return fmt.Sprintf("amount %s %s must be %s", e.Amount.Amount, e.Amount.Currency, e.Expected)
}

func (e *AmountError) Unwrap() error { return ErrInvalidAmount }

// Amount is an immutable currency-tagged decimal value.
// Positive values increase the account they are posted to.
type Amount struct {
	Currency Currency        `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
}

// NewAmount rounds value to the currency scale
func NewAmount(currency Currency, value decimal.Decimal) Amount {
	return Amount{Currency: currency, Amount: value.Round(currency.DecimalScale())}
}

// AmountOf is a convenience for whole units
func AmountOf(currency Currency, units int64) Amount {
	return NewAmount(currency, decimal.NewFromInt(units))
}

// ParseAmount parses a decimal string such as "12.50"
func ParseAmount(currency Currency, value string) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", value, err)
	}
	return NewAmount(currency, d), nil
}

// ZeroAmount returns a zero value in the currency
func ZeroAmount(currency Currency) Amount {
	return Amount{Currency: currency, Amount: decimal.Zero}
}

func (a Amount) String() string {
	return a.Amount.StringFixed(a.Currency.DecimalScale()) + " " + string(a.Currency)
}

func (a Amount) checkCurrency(other Amount) error {
	if a.Currency != other.Currency {
		return fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, a.Currency, other.Currency)
	}
	return nil
}

func (a Amount) Add(other Amount) (Amount, error) {
	if err := a.checkCurrency(other); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.Currency, a.Amount.Add(other.Amount)), nil
}

func (a Amount) Sub(other Amount) (Amount, error) {
	if err := a.checkCurrency(other); err != nil {
		return Amount{}, err
	}
	return NewAmount(a.Currency, a.Amount.Sub(other.Amount)), nil
}

// MustAdd is Add for callers that have already checked the currencies match
func (a Amount) MustAdd(other Amount) Amount {
	sum, err := a.Add(other)
	if err != nil {
		panic(err)
	}
	return sum
}

func (a Amount) Negate() Amount {
	return Amount{Currency: a.Currency, Amount: a.Amount.Neg()}
}

func (a Amount) Abs() Amount {
	return Amount{Currency: a.Currency, Amount: a.Amount.Abs()}
}

func (a Amount) IsZero() bool     { return a.Amount.IsZero() }
func (a Amount) IsPositive() bool { return a.Amount.IsPositive() }
func (a Amount) IsNegative() bool { return a.Amount.IsNegative() }

// Equal compares value and currency
func (a Amount) Equal(other Amount) bool {
	return a.Currency == other.Currency && a.Amount.Equal(other.Amount)
}

func (a Amount) IsGreaterThan(other Amount) (bool, error) {
	if err := a.checkCurrency(other); err != nil {
		return false, err
	}
	return a.Amount.GreaterThan(other.Amount), nil
}

func (a Amount) IsLessThan(other Amount) (bool, error) {
	if err := a.checkCurrency(other); err != nil {
		return false, err
	}
	return a.Amount.LessThan(other.Amount), nil
}

// UnmarshalJSON refuses amounts finer than the currency's minor unit
func (a *Amount) UnmarshalJSON(data []byte) error {
	type plain Amount
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	if err := Amount(decoded).EnsureScale(); err != nil {
		return err
	}
	*a = Amount(decoded)
	return nil
}

// EnsureScale fails with ErrInvalidAmount when a has more decimal places than its currency allows
func (a Amount) EnsureScale() error {
	scale := a.Currency.DecimalScale()
	if !a.Amount.Equal(a.Amount.Round(scale)) {
		return &AmountError{Expected: fmt.Sprintf("at most %d decimal places", scale), Amount: a}
	}
	return nil
}

// EnsurePositive fails with ErrInvalidAmount unless a > 0 in whole minor units
func (a Amount) EnsurePositive() error {
	if err := a.EnsureScale(); err != nil {
		return err
	}
	if !a.IsPositive() {
		return &AmountError{Expected: "positive", Amount: a}
	}
	return nil
}

func (a Amount) EnsureNonNegative() error {
	if err := a.EnsureScale(); err != nil {
		return err
	}
	if a.IsNegative() {
		return &AmountError{Expected: "non-negative", Amount: a}
	}
	return nil
}

// SumAmounts adds values that all share currency
func SumAmounts(currency Currency, values ...Amount) (Amount, error) {
	total := ZeroAmount(currency)
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return Amount{}, err
		}
	}
	return total, nil
}

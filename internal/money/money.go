// Package money provides exact decimal monetary values tagged with a currency.
//
// Arithmetic between two Money values of different currencies is an error;
// this package never performs currency conversion. Values are backed by
// shopspring/decimal so monetary math never drifts through binary float
// rounding.
package money

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aristath/sentinel/internal/rebalance/rerrors"
)

// Currency is an ISO-4217-ish currency tag. The core treats it as an opaque
// comparable key; conversion is a broker concern outside this package.
type Currency string

const (
	USD  Currency = "USD"
	EUR  Currency = "EUR"
	GBP  Currency = "GBP"
	TEST Currency = "TEST" // research / dry-run mode
)

var currencySymbols = map[string]Currency{
	"$": USD,
	"€": EUR,
	"£": GBP,
}

// Money is an exact decimal amount tagged with a currency.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// New builds a Money from an int64 amount of whole units.
func New(amount int64, currency Currency) Money {
	return Money{amount: decimal.NewFromInt(amount), currency: currency}
}

// NewFromFloat builds a Money from a float64. Prefer NewFromDecimal or
// Parse when the source value is already exact.
func NewFromFloat(amount float64, currency Currency) Money {
	return Money{amount: decimal.NewFromFloat(amount), currency: currency}
}

// NewFromDecimal builds a Money from an exact decimal.Decimal.
func NewFromDecimal(amount decimal.Decimal, currency Currency) Money {
	return Money{amount: amount, currency: currency}
}

// Zero returns the zero value for a currency.
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Parse parses a string like "$12.34" or "12.34" (defaulting to USD) into a
// Money. Returns rerrors.MoneyParse on malformed input.
func Parse(s string) (Money, error) {
	trimmed := strings.TrimSpace(s)
	currency := USD
	for sym, c := range currencySymbols {
		if strings.Contains(trimmed, sym) {
			currency = c
			trimmed = strings.ReplaceAll(trimmed, sym, "")
			break
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Money{}, rerrors.MoneyParse{Input: s, Cause: err}
	}
	return Money{amount: d, currency: currency}, nil
}

// MustParse is like Parse but panics on error. Intended for literal test
// fixtures only.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Currency returns the currency tag.
func (m Money) Currency() Currency { return m.currency }

// Decimal returns the underlying exact value.
func (m Money) Decimal() decimal.Decimal { return m.amount }

// Float64 returns the value as a float64, for display and interop with
// broker SDKs that expect floats. Never use the result for further exact
// arithmetic.
func (m Money) Float64() float64 {
	f, _ := m.amount.Float64()
	return f
}

// IsZero reports whether the underlying value is exactly 0.
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) checkCurrency(other Money) error {
	if m.currency != "" && other.currency != "" && m.currency != other.currency {
		return rerrors.CurrencyMismatch{Left: string(m.currency), Right: string(other.currency)}
	}
	return nil
}

// resolvedCurrency picks a non-empty currency tag, preferring the receiver's.
// This lets Zero-value Money (no declared currency, e.g. from sum()'s
// identity element) combine with any concrete currency without tripping
// CurrencyMismatch.
func (m Money) resolvedCurrency(other Money) Currency {
	if m.currency != "" {
		return m.currency
	}
	return other.currency
}

// Add returns m + other. Errors with CurrencyMismatch on differing currencies.
func (m Money) Add(other Money) (Money, error) {
	if err := m.checkCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.resolvedCurrency(other)}, nil
}

// MustAdd is like Add but panics on currency mismatch. Safe for same-currency
// call sites within the planner where mismatch is a programming error.
func (m Money) MustAdd(other Money) Money {
	r, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return r
}

// Sub returns m - other.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.checkCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.resolvedCurrency(other)}, nil
}

func (m Money) MustSub(other Money) Money {
	r, err := m.Sub(other)
	if err != nil {
		panic(err)
	}
	return r
}

// MulDecimal scales m by a dimensionless decimal factor (e.g. a weight or
// percentage). This never raises CurrencyMismatch since the factor carries
// no currency.
func (m Money) MulDecimal(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// MulFloat scales m by a dimensionless float64 factor.
func (m Money) MulFloat(factor float64) Money {
	return m.MulDecimal(decimal.NewFromFloat(factor))
}

// DivDecimal divides m by a dimensionless decimal factor.
func (m Money) DivDecimal(factor decimal.Decimal) Money {
	return Money{amount: m.amount.DivRound(factor, 12), currency: m.currency}
}

// DivMoney divides m by another Money of the same currency, returning a
// dimensionless ratio (e.g. percentage-of-target). Errors on mismatch.
func (m Money) DivMoney(other Money) (decimal.Decimal, error) {
	if err := m.checkCurrency(other); err != nil {
		return decimal.Zero, err
	}
	if other.amount.IsZero() {
		return decimal.Zero, nil
	}
	return m.amount.DivRound(other.amount, 12), nil
}

// Cmp compares m to other, returning -1, 0, or 1. Panics on currency
// mismatch — callers that need the error should use CmpErr.
func (m Money) Cmp(other Money) int {
	c, err := m.CmpErr(other)
	if err != nil {
		panic(err)
	}
	return c
}

func (m Money) CmpErr(other Money) (int, error) {
	if err := m.checkCurrency(other); err != nil {
		return 0, err
	}
	return m.amount.Cmp(other.amount), nil
}

func (m Money) GreaterThan(other Money) bool { return m.Cmp(other) > 0 }
func (m Money) LessThan(other Money) bool    { return m.Cmp(other) < 0 }
func (m Money) GTE(other Money) bool         { return m.Cmp(other) >= 0 }
func (m Money) LTE(other Money) bool         { return m.Cmp(other) <= 0 }
func (m Money) Equal(other Money) bool       { return m.Cmp(other) == 0 }

// Max returns the larger of m and other.
func Max(a, b Money) Money {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// Min returns the smaller of m and other.
func Min(a, b Money) Money {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	return Money{amount: m.amount.Abs(), currency: m.currency}
}

// Round rounds m to n decimal places (half-away-from-zero, matching
// shopspring/decimal's default Round).
func (m Money) Round(n int32) Money {
	return Money{amount: m.amount.Round(n), currency: m.currency}
}

// Floor rounds m down to n decimal places.
func (m Money) Floor(n int32) Money {
	return Money{amount: m.amount.RoundFloor(n), currency: m.currency}
}

// String renders the Money with its currency symbol where known, else the
// ISO code, e.g. "$12.34" or "SEK19.99".
func (m Money) String() string {
	symbol := string(m.currency)
	for sym, c := range currencySymbols {
		if c == m.currency {
			symbol = sym
			break
		}
	}
	return symbol + m.amount.StringFixed(2)
}

// Sum adds a slice of Money, starting from the identity element (an
// untagged zero, per spec: "sum(...) begins with 0 and upgrades to Money on
// first addend"). Returns CurrencyMismatch if the slice mixes currencies.
func Sum(values []Money) (Money, error) {
	total := Money{amount: decimal.Zero}
	for _, v := range values {
		var err error
		total, err = total.Add(v)
		if err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

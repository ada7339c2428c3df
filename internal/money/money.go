package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places every converted amount is rounded to.
const Places = 2

// Money is an amount in a single currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// New builds a Money value with a normalized currency code.
func New(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: NormalizeCurrency(currency)}
}

// FromFloat is a convenience for tests and mock providers.
func FromFloat(amount float64, currency string) Money {
	return New(decimal.NewFromFloat(amount), currency)
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return New(decimal.Zero, currency)
}

// Mul multiplies the amount by an integer quantity.
func (m Money) Mul(qty int) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(int64(qty))), Currency: m.Currency}
}

// ConvertedMoney is a price snapshot in the target currency together with
// the amount it was converted from.
//
// When Currency equals OriginalCurrency the amount is the original amount and
// SpreadApplied is zero. Unconverted is set when no rate could be found; the
// amount then stays in the original currency.
type ConvertedMoney struct {
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	OriginalAmount   decimal.Decimal `json:"original_amount"`
	OriginalCurrency string          `json:"original_currency"`
	SpreadApplied    decimal.Decimal `json:"spread_applied"`
	Unconverted      bool            `json:"unconverted,omitempty"`
}

// Identity wraps m as an already-converted value in its own currency.
func Identity(m Money) ConvertedMoney {
	return ConvertedMoney{
		Amount:           m.Amount,
		Currency:         m.Currency,
		OriginalAmount:   m.Amount,
		OriginalCurrency: m.Currency,
		SpreadApplied:    decimal.Zero,
	}
}

// Money returns the converted side of the snapshot.
func (c ConvertedMoney) Money() Money {
	return Money{Amount: c.Amount, Currency: c.Currency}
}

// Original returns the amount the snapshot was taken from.
func (c ConvertedMoney) Original() Money {
	return Money{Amount: c.OriginalAmount, Currency: c.OriginalCurrency}
}

// Round2 rounds to two decimal places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

package currency

import (
	"fmt"
	"strings"

	"github.com/magiconair/properties"
	"github.com/shopspring/decimal"

	"github.com/alex-user-go/tripquote/internal/money"
)

const ratePrefix = "rate."

// Fallback is a static, base-relative rate table consulted when the rate
// source is unavailable. Rates[code] is the number of code units per one
// unit of Base.
type Fallback struct {
	Base  string
	Rates map[string]decimal.Decimal
}

// Rate derives the pair rate from the table. It reports false when either
// side has no entry.
func (f Fallback) Rate(from, to string) (decimal.Decimal, bool) {
	rf, ok := f.unit(money.NormalizeCurrency(from))
	if !ok {
		return decimal.Zero, false
	}
	rt, ok := f.unit(money.NormalizeCurrency(to))
	if !ok {
		return decimal.Zero, false
	}
	return rt.Div(rf), true
}

func (f Fallback) unit(code string) (decimal.Decimal, bool) {
	if code == "" {
		return decimal.Zero, false
	}
	if code == f.Base {
		return decimal.NewFromInt(1), true
	}
	r, ok := f.Rates[code]
	if !ok || !r.IsPositive() {
		return decimal.Zero, false
	}
	return r, true
}

// DefaultFallback returns the built-in table used when no file is configured.
func DefaultFallback() Fallback {
	return Fallback{
		Base: "USD",
		Rates: map[string]decimal.Decimal{
			"EUR": decimal.RequireFromString("0.92"),
			"GBP": decimal.RequireFromString("0.79"),
			"CHF": decimal.RequireFromString("0.88"),
			"JPY": decimal.RequireFromString("149.50"),
			"CAD": decimal.RequireFromString("1.36"),
			"AUD": decimal.RequireFromString("1.52"),
			"SEK": decimal.RequireFromString("10.45"),
			"NOK": decimal.RequireFromString("10.60"),
			"DKK": decimal.RequireFromString("6.87"),
			"AED": decimal.RequireFromString("3.67"),
		},
	}
}

// LoadFallbackFile reads a fallback table from a .properties file:
//
//	base = USD
//	rate.EUR = 0.92
//	rate.GBP = 0.79
func LoadFallbackFile(path string) (Fallback, error) {
	p, err := properties.LoadFile(path, properties.UTF8)
	if err != nil {
		return Fallback{}, fmt.Errorf("load fallback rates: %w", err)
	}
	return fallbackFromProperties(p)
}

// ParseFallback parses the same format from a string.
func ParseFallback(s string) (Fallback, error) {
	p, err := properties.LoadString(s)
	if err != nil {
		return Fallback{}, fmt.Errorf("parse fallback rates: %w", err)
	}
	return fallbackFromProperties(p)
}

func fallbackFromProperties(p *properties.Properties) (Fallback, error) {
	f := Fallback{
		Base:  money.NormalizeCurrency(p.GetString("base", "USD")),
		Rates: make(map[string]decimal.Decimal),
	}

	for _, key := range p.Keys() {
		if !strings.HasPrefix(key, ratePrefix) {
			continue
		}
		code := money.NormalizeCurrency(strings.TrimPrefix(key, ratePrefix))
		raw, _ := p.Get(key)
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return Fallback{}, fmt.Errorf("fallback rate %s: %w", code, err)
		}
		if !rate.IsPositive() {
			return Fallback{}, fmt.Errorf("fallback rate %s: %w", code, ErrInvalidRate)
		}
		f.Rates[code] = rate
	}

	return f, nil
}

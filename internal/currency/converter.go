package currency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alex-user-go/tripquote/internal/cache"
	"github.com/alex-user-go/tripquote/internal/money"
	"github.com/alex-user-go/tripquote/internal/obs"
)

const (
	// RateTTL is how long a pair rate stays cached unless WithRateTTL says
	// otherwise.
	RateTTL = 5 * time.Minute

	warmConcurrency = 4
)

// DefaultSpread is the FX margin charged on every cross-currency conversion.
var DefaultSpread = decimal.RequireFromString("0.02")

var (
	// ErrRateNotFound is returned when the source has no rate for a pair.
	ErrRateNotFound = errors.New("rate not found")
	// ErrInvalidRate is returned for zero or negative rates.
	ErrInvalidRate = errors.New("invalid rate")
)

// RateSource returns rates for every currency it knows, relative to base.
type RateSource interface {
	Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// RateSourceFunc adapts a function to RateSource.
type RateSourceFunc func(ctx context.Context, base string) (map[string]decimal.Decimal, error)

// Rates calls f.
func (f RateSourceFunc) Rates(ctx context.Context, base string) (map[string]decimal.Decimal, error) {
	return f(ctx, base)
}

// RateCache stores pair rates. *cache.Cache[decimal.Decimal] and
// *rediscache.Cache both satisfy it.
type RateCache interface {
	GetOrFetch(ctx context.Context, key string, fetch func() (decimal.Decimal, error)) (decimal.Decimal, bool, error)
}

// Converter converts money between currencies with a spread.
type Converter struct {
	source   RateSource
	cache    RateCache
	owned    *cache.Cache[decimal.Decimal]
	fallback Fallback
	ttl      time.Duration
	spread   decimal.Decimal
	metrics  *obs.Metrics
	logger   *slog.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithCache replaces the default in-memory pair cache.
func WithCache(c RateCache) Option {
	return func(conv *Converter) { conv.cache = c }
}

// WithRateTTL sets the lifetime of the in-memory pair cache. It has no effect
// together with WithCache.
func WithRateTTL(ttl time.Duration) Option {
	return func(conv *Converter) {
		if ttl > 0 {
			conv.ttl = ttl
		}
	}
}

// WithFallback sets the static table used when the source fails.
func WithFallback(f Fallback) Option {
	return func(conv *Converter) { conv.fallback = f }
}

// WithSpread overrides DefaultSpread.
func WithSpread(spread decimal.Decimal) Option {
	return func(conv *Converter) { conv.spread = spread }
}

// WithMetrics records lookups and degraded conversions.
func WithMetrics(m *obs.Metrics) Option {
	return func(conv *Converter) { conv.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(conv *Converter) { conv.logger = l }
}

// NewConverter creates a Converter backed by source.
func NewConverter(source RateSource, opts ...Option) *Converter {
	c := &Converter{
		source:   source,
		fallback: DefaultFallback(),
		ttl:      RateTTL,
		spread:   DefaultSpread,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cache == nil {
		c.owned = cache.New[decimal.Decimal](c.ttl)
		c.cache = c.owned
	}
	return c
}

// Close releases the in-memory cache when the Converter created it.
func (c *Converter) Close() {
	if c.owned != nil {
		c.owned.Close()
	}
}

// Spread returns the configured default spread.
func (c *Converter) Spread() decimal.Decimal {
	return c.spread
}

// Convert converts m into currency to using the default spread.
func (c *Converter) Convert(ctx context.Context, m money.Money, to string) money.ConvertedMoney {
	return c.ConvertWithSpread(ctx, m, to, c.spread)
}

// ConvertWithSpread converts m into currency to. Equal currencies return the
// amount untouched with no spread. When no rate can be found, neither from
// the source nor from the fallback table, the original amount is returned
// flagged Unconverted.
func (c *Converter) ConvertWithSpread(ctx context.Context, m money.Money, to string, spread decimal.Decimal) money.ConvertedMoney {
	from := money.NormalizeCurrency(m.Currency)
	to = money.NormalizeCurrency(to)

	if from == to {
		return money.Identity(money.Money{Amount: m.Amount, Currency: from})
	}

	// spread only ever inflates
	if spread.IsNegative() {
		spread = decimal.Zero
	}

	rate, ok := c.Rate(ctx, from, to)
	if !ok {
		c.metrics.IncConversionsDegraded()
		c.logger.Warn("price left unconverted", "from", from, "to", to, "amount", m.Amount.String())
		return money.ConvertedMoney{
			Amount:           m.Amount,
			Currency:         from,
			OriginalAmount:   m.Amount,
			OriginalCurrency: from,
			SpreadApplied:    decimal.Zero,
			Unconverted:      true,
		}
	}

	return money.ConvertedMoney{
		Amount:           money.Round2(m.Amount.Mul(rate).Mul(decimal.NewFromInt(1).Add(spread))),
		Currency:         to,
		OriginalAmount:   m.Amount,
		OriginalCurrency: from,
		SpreadApplied:    spread,
	}
}

// Rate returns the from→to rate, via the cache and source, falling back to
// the static table. The boolean is false when neither has the pair.
func (c *Converter) Rate(ctx context.Context, from, to string) (decimal.Decimal, bool) {
	from = money.NormalizeCurrency(from)
	to = money.NormalizeCurrency(to)
	c.metrics.IncRateLookups()

	rate, hit, err := c.lookup(ctx, from, to)
	if err == nil {
		if hit {
			c.metrics.IncRateCacheHits()
		}
		return rate, true
	}

	c.metrics.IncRateSourceErrors()
	c.logger.Warn("rate source lookup failed", "from", from, "to", to, "error", err)

	return c.fallback.Rate(from, to)
}

// Warm prefetches the rates from each currency in froms into to so the
// first conversions of a session do not wait on the source.
func (c *Converter) Warm(ctx context.Context, froms []string, to string) error {
	to = money.NormalizeCurrency(to)

	var g errgroup.Group
	g.SetLimit(warmConcurrency)

	for _, from := range froms {
		from = money.NormalizeCurrency(from)
		if from == to || from == "" {
			continue
		}
		g.Go(func() error {
			if _, _, err := c.lookup(ctx, from, to); err != nil {
				return fmt.Errorf("warm %s->%s: %w", from, to, err)
			}
			return nil
		})
	}

	return g.Wait()
}

func (c *Converter) lookup(ctx context.Context, from, to string) (decimal.Decimal, bool, error) {
	return c.cache.GetOrFetch(ctx, cache.Key(from, to), func() (decimal.Decimal, error) {
		return c.fetchRate(ctx, from, to)
	})
}

func (c *Converter) fetchRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if c.source == nil {
		return decimal.Zero, fmt.Errorf("%s->%s: %w", from, to, ErrRateNotFound)
	}

	rates, err := c.source.Rates(ctx, from)
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%s->%s: %w", from, to, ErrRateNotFound)
	}
	if !rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s->%s: %w", from, to, ErrInvalidRate)
	}

	return rate, nil
}

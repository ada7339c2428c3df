// Package search fans an offer query out to every provider and merges the
// answers into one price-ordered list.
package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alex-user-go/tripquote/internal/money"
	"github.com/alex-user-go/tripquote/internal/obs"
	"github.com/alex-user-go/tripquote/internal/offers"
)

// DefaultCurrency is assumed for offers that arrive without one.
const DefaultCurrency = "EUR"

// Result is the merged answer of all providers.
type Result struct {
	Offers             []offers.Offer `json:"offers"`
	ProvidersTotal     int            `json:"-"`
	ProvidersSucceeded int            `json:"-"`
	ProvidersFailed    int            `json:"-"`
}

// Aggregator aggregates results from multiple providers.
type Aggregator struct {
	providers []offers.Provider
	timeout   time.Duration
	metrics   *obs.Metrics
	logger    *slog.Logger
}

// NewAggregator creates a new Aggregator.
func NewAggregator(providers []offers.Provider, timeout time.Duration, metrics *obs.Metrics, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		providers: providers,
		timeout:   timeout,
		metrics:   metrics,
		logger:    logger,
	}
}

// Search queries all providers concurrently. It fails only when every
// provider fails or ctx is done before any answer arrives.
func (a *Aggregator) Search(ctx context.Context, q offers.Query) (*Result, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		byID      = make(map[string]offers.Offer)
		succeeded int
		failed    int
		errs      []error
	)

	for _, provider := range a.providers {
		wg.Go(func() {
			found, err := provider.Search(ctx, q)
			if err != nil {
				mu.Lock()
				failed++
				errs = append(errs, err)
				mu.Unlock()
				a.metrics.IncProviderErrors()
				return
			}

			mu.Lock()
			defer mu.Unlock()
			succeeded++
			for _, o := range found {
				normalized, ok := normalizeOffer(o, q.Category)
				if !ok {
					continue
				}
				if existing, seen := byID[normalized.ID]; seen && !cheaper(normalized, existing) {
					continue
				}
				byID[normalized.ID] = normalized
			}
		})
	}

	wg.Wait()

	if len(errs) > 0 {
		a.logger.Error("provider search errors",
			"category", q.Category,
			"failed_count", failed,
			"errors", errors.Join(errs...))

		if failed == len(a.providers) {
			return nil, errs[0]
		}
	}

	list := make([]offers.Offer, 0, len(byID))
	for _, o := range byID {
		list = append(list, o)
	}
	sort.Slice(list, func(i, j int) bool {
		if c := list[i].Price.Cmp(list[j].Price); c != 0 {
			return c < 0
		}
		return list[i].ID < list[j].ID
	})

	return &Result{
		Offers:             list,
		ProvidersTotal:     len(a.providers),
		ProvidersSucceeded: succeeded,
		ProvidersFailed:    failed,
	}, nil
}

// cheaper compares prices only within one currency; across currencies the
// first offer seen wins.
func cheaper(a, b offers.Offer) bool {
	return a.Currency == b.Currency && a.Price.LessThan(b.Price)
}

func normalizeOffer(o offers.Offer, category offers.Category) (offers.Offer, bool) {
	o.ID = strings.TrimSpace(o.ID)
	if o.ID == "" {
		return o, false
	}

	o.Name = strings.TrimSpace(o.Name)
	if o.Name == "" {
		return o, false
	}

	if !o.Price.IsPositive() {
		return o, false
	}

	if o.Category != "" && o.Category != category {
		return o, false
	}
	o.Category = category

	o.Currency = money.NormalizeCurrency(o.Currency)
	if o.Currency == "" {
		o.Currency = DefaultCurrency
	}

	return o, true
}

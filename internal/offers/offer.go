// Package offers describes priced candidates returned by external search
// providers, before any of them is selected into a composition.
package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alex-user-go/tripquote/internal/money"
)

// Category is a service category of a composition.
type Category string

const (
	Flights   Category = "flights"
	Hotels    Category = "hotels"
	Transfers Category = "transfers"
	Events    Category = "events"
)

// Categories lists every category in display order.
var Categories = []Category{Flights, Hotels, Transfers, Events}

// ParseCategory accepts a category name in any case.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Offer is one priced candidate from a provider.
type Offer struct {
	ID          string          `json:"offer_id"`
	Provider    string          `json:"provider,omitempty"`
	Category    Category        `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Currency    string          `json:"currency"`
	Price       decimal.Decimal `json:"price"`
}

// Money returns the offer price.
func (o Offer) Money() money.Money {
	return money.New(o.Price, o.Currency)
}

// Query is what the caller knows when asking providers for offers.
type Query struct {
	Category    Category
	City        string
	Origin      string
	Destination string
	Checkin     string
	Nights      int
	Adults      int
	Children    int
}

// PartySize is adults plus children.
func (q Query) PartySize() int {
	return q.Adults + q.Children
}

// Validate checks the fields each category needs.
func (q Query) Validate() error {
	if q.Adults < 1 {
		return errors.New("adults must be at least 1")
	}
	if q.Children < 0 {
		return errors.New("children must not be negative")
	}

	switch q.Category {
	case Flights:
		if q.Origin == "" || q.Destination == "" {
			return errors.New("origin and destination are required for flights")
		}
		if q.Checkin == "" {
			return errors.New("checkin is required for flights")
		}
	case Hotels:
		if q.City == "" || q.Checkin == "" {
			return errors.New("city and checkin are required for hotels")
		}
		if q.Nights < 1 {
			return errors.New("nights must be at least 1")
		}
	case Transfers, Events:
		if q.City == "" {
			return fmt.Errorf("city is required for %s", q.Category)
		}
	default:
		return fmt.Errorf("unknown category %q", q.Category)
	}
	return nil
}

// Key identifies a query for caching. City and airports are case-insensitive.
func (q Query) Key() string {
	return strings.Join([]string{
		string(q.Category),
		strings.ToLower(q.City),
		strings.ToUpper(q.Origin),
		strings.ToUpper(q.Destination),
		q.Checkin,
		fmt.Sprint(q.Nights),
		fmt.Sprint(q.Adults),
		fmt.Sprint(q.Children),
	}, ":")
}

// Provider is an external offer search backend.
type Provider interface {
	Search(ctx context.Context, q Query) ([]Offer, error)
}

// ErrProviderUnavailable is returned when a provider cannot answer.
var ErrProviderUnavailable = errors.New("provider unavailable")

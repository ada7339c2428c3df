// Package composition is the aggregate root of a quote being assembled:
// client, trip, preferences, the traveler ledger and the selections.
package composition

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alex-user-go/tripquote/internal/ledger"
	"github.com/alex-user-go/tripquote/internal/money"
	"github.com/alex-user-go/tripquote/internal/offers"
	"github.com/alex-user-go/tripquote/internal/pricing"
	"github.com/alex-user-go/tripquote/internal/selection"
)

// ErrFrozen is returned by setters after Freeze.
var ErrFrozen = errors.New("composition is frozen")

// Client is the person the quote is for.
type Client struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,e164"`
}

// Trip holds dates as YYYY-MM-DD strings, the way the wizard sends them.
type Trip struct {
	PrimaryDestination string `json:"primary_destination" validate:"required"`
	StartDate          string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate            string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// Dates parses the trip dates.
func (t Trip) Dates() (start, end time.Time, err error) {
	if start, err = time.Parse(time.DateOnly, t.StartDate); err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end, err = time.Parse(time.DateOnly, t.EndDate); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// Preferences drive how the quote is written and priced.
type Preferences struct {
	Tone     string `json:"tone" validate:"required"`
	Currency string `json:"currency" validate:"required,iso4217"`
}

// Composition is edited by a single writer and is not safe for concurrent use.
type Composition struct {
	id          string
	createdAt   time.Time
	client      Client
	trip        Trip
	preferences Preferences
	ledger      *ledger.Ledger
	selections  *selection.Registries
	frozen      bool
}

// New starts an empty composition for party.
func New(party ledger.Party) *Composition {
	return &Composition{
		id:         uuid.NewString(),
		createdAt:  time.Now().UTC(),
		ledger:     ledger.New(party),
		selections: selection.NewRegistries(),
	}
}

// ID is the composition id.
func (c *Composition) ID() string { return c.id }

// CreatedAt is when the composition was started, in UTC.
func (c *Composition) CreatedAt() time.Time { return c.createdAt }

// Client returns the client details.
func (c *Composition) Client() Client { return c.client }

// Trip returns the trip details.
func (c *Composition) Trip() Trip { return c.trip }

// Preferences returns the tone and preferred currency.
func (c *Composition) Preferences() Preferences { return c.preferences }

// Frozen reports whether the composition was submitted.
func (c *Composition) Frozen() bool { return c.frozen }

// Ledger gives access to the traveler groups.
func (c *Composition) Ledger() *ledger.Ledger { return c.ledger }

// Selections gives access to the category registries.
func (c *Composition) Selections() *selection.Registries { return c.selections }

// SetClient replaces the client details.
func (c *Composition) SetClient(cl Client) error {
	if c.frozen {
		return ErrFrozen
	}
	c.client = Client{
		FirstName: strings.TrimSpace(cl.FirstName),
		LastName:  strings.TrimSpace(cl.LastName),
		Email:     strings.TrimSpace(cl.Email),
		Phone:     strings.TrimSpace(cl.Phone),
	}
	return nil
}

// SetTrip replaces the trip details.
func (c *Composition) SetTrip(t Trip) error {
	if c.frozen {
		return ErrFrozen
	}
	c.trip = Trip{
		PrimaryDestination: strings.TrimSpace(t.PrimaryDestination),
		StartDate:          strings.TrimSpace(t.StartDate),
		EndDate:            strings.TrimSpace(t.EndDate),
	}
	return nil
}

// SetPreferences replaces the preferences. Changing the currency does not
// touch prices already chosen.
func (c *Composition) SetPreferences(p Preferences) error {
	if c.frozen {
		return ErrFrozen
	}
	c.preferences = Preferences{
		Tone:     strings.TrimSpace(p.Tone),
		Currency: money.NormalizeCurrency(p.Currency),
	}
	return nil
}

// SetParty replaces the party totals.
func (c *Composition) SetParty(p ledger.Party) error {
	if c.frozen {
		return ErrFrozen
	}
	return c.ledger.SetParty(p)
}

// Freeze makes the whole composition read-only. It is called on submission.
func (c *Composition) Freeze() {
	c.frozen = true
	c.ledger.Freeze()
	c.selections.Freeze()
}

// PricingInput adapts the composition for pricing.Compute. Unparseable trip
// dates price hotels for one night.
func (c *Composition) PricingInput() pricing.Input {
	start, end, _ := c.trip.Dates()
	return pricing.Input{
		Currency:    c.preferences.Currency,
		Subgrouping: c.ledger.Subgrouping(),
		PartyAdults: c.ledger.Party().Adults,
		Resolve:     c.ledger.Resolve,
		TripStart:   start,
		TripEnd:     end,
		Selections:  c.selections,
	}
}

// Breakdown prices the composition as it stands.
func (c *Composition) Breakdown() pricing.Breakdown {
	return pricing.Compute(c.PricingInput())
}

// ErrNoCurrency is returned when an offer is chosen before a preferred
// currency was set.
var ErrNoCurrency = errors.New("preferred currency is not set")

// ChooseOffer binds o to groupID in the registry of o's category, snapshotting
// its price in the preferred currency. qty is only used for events.
func (c *Composition) ChooseOffer(ctx context.Context, conv selection.Converter, groupID string, o offers.Offer, qty int) error {
	if c.frozen {
		return ErrFrozen
	}
	currency := c.preferences.Currency
	if currency == "" {
		return ErrNoCurrency
	}
	if !c.ledger.Has(groupID) {
		return fmt.Errorf("%w: %s", ledger.ErrGroupNotFound, groupID)
	}

	var err error
	switch o.Category {
	case offers.Flights:
		_, err = c.selections.Flights.ChooseOffer(ctx, conv, groupID, o, currency)
	case offers.Hotels:
		_, err = c.selections.Hotels.ChooseOffer(ctx, conv, groupID, o, currency)
	case offers.Transfers:
		_, err = c.selections.Transfers.ChooseOffer(ctx, conv, groupID, o, currency)
	case offers.Events:
		_, err = c.selections.Events.BindGroup(ctx, conv, o, groupID, qty, currency)
	default:
		err = fmt.Errorf("unknown category %q", o.Category)
	}
	return err
}

package selection

import (
	"fmt"
	"slices"

	"github.com/alex-user-go/tripquote/internal/money"
)

// ChosenOffer is the provider offer a selection was priced from, kept next
// to the converted snapshot.
type ChosenOffer struct {
	OfferID  string      `json:"offer_id"`
	Provider string      `json:"provider,omitempty"`
	Name     string      `json:"name,omitempty"`
	Original money.Money `json:"original"`
}

// FlightOffer is the priced part of a flight selection.
type FlightOffer struct {
	ChosenOffer
	Price   money.ConvertedMoney `json:"price"`
	Routing string               `json:"routing,omitempty"`
}

// Flight is the flight selection of one group.
type Flight struct {
	GroupID     string       `json:"group_id"`
	CabinClass  string       `json:"cabin_class,omitempty"`
	Origin      string       `json:"origin,omitempty"`
	Destination string       `json:"destination,omitempty"`
	Offer       *FlightOffer `json:"offer,omitempty"`
}

// Key is the group id.
func (f Flight) Key() string { return f.GroupID }

// Clone returns a deep copy.
func (f Flight) Clone() Flight {
	if f.Offer != nil {
		o := *f.Offer
		f.Offer = &o
	}
	return f
}

// Validate rejects a non-positive fare.
func (f Flight) Validate() error {
	if f.Offer != nil {
		return checkPrice(f.Offer.Price)
	}
	return nil
}

// HotelOffer is the priced part of a hotel selection.
type HotelOffer struct {
	ChosenOffer
	PricePerNight money.ConvertedMoney `json:"price_per_night"`
	RoomType      string               `json:"room_type,omitempty"`
}

// Hotel is the hotel selection of one group.
type Hotel struct {
	GroupID         string      `json:"group_id"`
	DestinationCity string      `json:"destination_city,omitempty"`
	RoomCount       int         `json:"room_count"`
	StarRating      int         `json:"star_rating,omitempty"`
	Offer           *HotelOffer `json:"offer,omitempty"`
}

// Key is the group id.
func (h Hotel) Key() string { return h.GroupID }

// Clone returns a deep copy.
func (h Hotel) Clone() Hotel {
	if h.Offer != nil {
		o := *h.Offer
		h.Offer = &o
	}
	return h
}

// Validate requires at least one room and a positive nightly rate.
func (h Hotel) Validate() error {
	if h.RoomCount < 1 {
		return fmt.Errorf("%w: room_count %d", ErrInvalidQuantity, h.RoomCount)
	}
	if h.Offer != nil {
		return checkPrice(h.Offer.PricePerNight)
	}
	return nil
}

// LegKind tells arrival and departure legs apart.
type LegKind string

const (
	LegArrival   LegKind = "arrival"
	LegDeparture LegKind = "departure"
	LegOther     LegKind = "other"
)

// Leg is one transfer ride.
type Leg struct {
	Kind    LegKind `json:"kind,omitempty"`
	Pickup  string  `json:"pickup"`
	Dropoff string  `json:"dropoff"`
	Date    string  `json:"date,omitempty"`
	Time    string  `json:"time,omitempty"`
}

// TransferPrice is the priced part of a transfer selection. The price is per
// leg.
type TransferPrice struct {
	ChosenOffer
	PricePerTransfer money.ConvertedMoney `json:"price_per_transfer"`
}

// Transfer is the transfer selection of one group. An unpriced transfer is
// valid and contributes nothing to totals.
type Transfer struct {
	GroupID     string         `json:"group_id"`
	VehicleType string         `json:"vehicle_type,omitempty"`
	Legs        []Leg          `json:"legs"`
	Price       *TransferPrice `json:"price,omitempty"`
}

// Key is the group id.
func (t Transfer) Key() string { return t.GroupID }

// Clone returns a deep copy.
func (t Transfer) Clone() Transfer {
	t.Legs = slices.Clone(t.Legs)
	if t.Price != nil {
		p := *t.Price
		t.Price = &p
	}
	return t
}

// Validate rejects a non-positive leg price. Unpriced transfers are valid.
func (t Transfer) Validate() error {
	if t.Price != nil {
		return checkPrice(t.Price.PricePerTransfer)
	}
	return nil
}

// EventBinding attaches tickets of an event to one group.
type EventBinding struct {
	GroupID        string               `json:"group_id"`
	TicketQuantity int                  `json:"ticket_quantity"`
	UnitPrice      money.ConvertedMoney `json:"unit_price"`
	Original       money.Money          `json:"original"`
}

// Event is one selected event and the groups attending it.
type Event struct {
	EventID  string         `json:"event_id"`
	Name     string         `json:"name,omitempty"`
	Provider string         `json:"provider,omitempty"`
	Groups   []EventBinding `json:"groups"`
}

// Key is the event id.
func (e Event) Key() string { return e.EventID }

// Clone returns a deep copy.
func (e Event) Clone() Event {
	e.Groups = slices.Clone(e.Groups)
	return e
}

// Validate checks that each group is bound at most once, with at least one
// ticket at a positive price.
func (e Event) Validate() error {
	seen := make(map[string]bool, len(e.Groups))
	for _, b := range e.Groups {
		if b.GroupID == "" {
			return ErrMissingKey
		}
		if seen[b.GroupID] {
			return fmt.Errorf("%w: %s", ErrDuplicateBinding, b.GroupID)
		}
		seen[b.GroupID] = true
		if b.TicketQuantity < 1 {
			return fmt.Errorf("%w: ticket_quantity %d for %s", ErrInvalidQuantity, b.TicketQuantity, b.GroupID)
		}
		if err := checkPrice(b.UnitPrice); err != nil {
			return err
		}
	}
	return nil
}

// Binding returns the binding for groupID.
func (e Event) Binding(groupID string) (EventBinding, bool) {
	i := slices.IndexFunc(e.Groups, func(b EventBinding) bool { return b.GroupID == groupID })
	if i < 0 {
		return EventBinding{}, false
	}
	return e.Groups[i], true
}

func checkPrice(m money.ConvertedMoney) error {
	if !m.Amount.IsPositive() {
		return fmt.Errorf("%w: %s %s", ErrInvalidPrice, m.Amount, m.Currency)
	}
	return nil
}

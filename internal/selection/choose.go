package selection

import (
	"context"
	"fmt"
	"slices"

	"github.com/alex-user-go/tripquote/internal/money"
	"github.com/alex-user-go/tripquote/internal/offers"
)

// Converter snapshots an offer price in the preferred currency.
type Converter interface {
	Convert(ctx context.Context, m money.Money, to string) money.ConvertedMoney
}

func chosen(o offers.Offer) ChosenOffer {
	return ChosenOffer{
		OfferID:  o.ID,
		Provider: o.Provider,
		Name:     o.Name,
		Original: o.Money(),
	}
}

func checkOffer(o offers.Offer, want Category) error {
	if o.Category != "" && o.Category != want {
		return fmt.Errorf("%w: %s offer for %s", ErrCategoryMismatch, o.Category, want)
	}
	if !o.Price.IsPositive() {
		return fmt.Errorf("%w: offer %s priced %s %s", ErrInvalidPrice, o.ID, o.Price, o.Currency)
	}
	return nil
}

// Flights is the flight registry.
type Flights struct {
	*Registry[Flight]
}

// ChooseOffer binds o to the group's flight selection, creating the
// selection if needed. The price is converted once, here, and never again.
func (f *Flights) ChooseOffer(ctx context.Context, conv Converter, groupID string, o offers.Offer, currency string) (Flight, error) {
	if err := checkOffer(o, offers.Flights); err != nil {
		return Flight{}, err
	}
	if err := f.checkWritable(); err != nil {
		return Flight{}, err
	}

	offer := &FlightOffer{
		ChosenOffer: chosen(o),
		Price:       conv.Convert(ctx, o.Money(), currency),
		Routing:     o.Description,
	}

	if _, ok := f.Get(groupID); !ok {
		if err := f.Add(Flight{GroupID: groupID}); err != nil {
			return Flight{}, err
		}
	}
	return f.Update(groupID, func(s *Flight) { s.Offer = offer })
}

// Hotels is the hotel registry.
type Hotels struct {
	*Registry[Hotel]
}

// ChooseOffer binds o as the nightly rate of the group's hotel selection.
// A new selection starts with one room.
func (h *Hotels) ChooseOffer(ctx context.Context, conv Converter, groupID string, o offers.Offer, currency string) (Hotel, error) {
	if err := checkOffer(o, offers.Hotels); err != nil {
		return Hotel{}, err
	}
	if err := h.checkWritable(); err != nil {
		return Hotel{}, err
	}

	offer := &HotelOffer{
		ChosenOffer:   chosen(o),
		PricePerNight: conv.Convert(ctx, o.Money(), currency),
		RoomType:      o.Description,
	}

	if _, ok := h.Get(groupID); !ok {
		if err := h.Add(Hotel{GroupID: groupID, RoomCount: 1}); err != nil {
			return Hotel{}, err
		}
	}
	return h.Update(groupID, func(s *Hotel) { s.Offer = offer })
}

// Transfers is the transfer registry.
type Transfers struct {
	*Registry[Transfer]
}

// ChooseOffer prices the group's transfer per leg.
func (t *Transfers) ChooseOffer(ctx context.Context, conv Converter, groupID string, o offers.Offer, currency string) (Transfer, error) {
	if err := checkOffer(o, offers.Transfers); err != nil {
		return Transfer{}, err
	}
	if err := t.checkWritable(); err != nil {
		return Transfer{}, err
	}

	price := &TransferPrice{
		ChosenOffer:      chosen(o),
		PricePerTransfer: conv.Convert(ctx, o.Money(), currency),
	}

	if _, ok := t.Get(groupID); !ok {
		if err := t.Add(Transfer{GroupID: groupID, VehicleType: o.Description}); err != nil {
			return Transfer{}, err
		}
	}
	return t.Update(groupID, func(s *Transfer) { s.Price = price })
}

// Events is the event registry, keyed by event id.
type Events struct {
	*Registry[Event]
}

// BindGroup adds qty tickets of event o for groupID, replacing an earlier
// binding of the same group.
func (e *Events) BindGroup(ctx context.Context, conv Converter, o offers.Offer, groupID string, qty int, currency string) (Event, error) {
	if err := checkOffer(o, offers.Events); err != nil {
		return Event{}, err
	}
	if qty <= 0 {
		return Event{}, ErrInvalidQuantity
	}
	if err := e.checkWritable(); err != nil {
		return Event{}, err
	}

	binding := EventBinding{
		GroupID:        groupID,
		TicketQuantity: qty,
		UnitPrice:      conv.Convert(ctx, o.Money(), currency),
		Original:       o.Money(),
	}

	if _, ok := e.Get(o.ID); !ok {
		if err := e.Add(Event{EventID: o.ID, Name: o.Name, Provider: o.Provider}); err != nil {
			return Event{}, err
		}
	}
	return e.Update(o.ID, func(ev *Event) {
		i := slices.IndexFunc(ev.Groups, func(b EventBinding) bool { return b.GroupID == groupID })
		if i >= 0 {
			ev.Groups[i] = binding
			return
		}
		ev.Groups = append(ev.Groups, binding)
	})
}

// UnbindGroup drops groupID from an event. The event stays selected even
// with no bindings left.
func (e *Events) UnbindGroup(eventID, groupID string) (Event, error) {
	if _, ok := e.Get(eventID); !ok {
		return Event{}, fmt.Errorf("%w: %s %s", ErrNotFound, offers.Events, eventID)
	}
	return e.Update(eventID, func(ev *Event) {
		ev.Groups = slices.DeleteFunc(ev.Groups, func(b EventBinding) bool { return b.GroupID == groupID })
	})
}

// Package pricing sums the converted price snapshots of a composition into
// category subtotals and a grand total.
//
// Compute performs no currency conversion: every input price was converted
// when its offer was chosen.
package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/alex-user-go/tripquote/internal/ledger"
	"github.com/alex-user-go/tripquote/internal/money"
	"github.com/alex-user-go/tripquote/internal/offers"
	"github.com/alex-user-go/tripquote/internal/selection"
)

// Input is the slice of a composition the aggregator reads.
type Input struct {
	Currency    string
	Subgrouping bool
	PartyAdults int
	Resolve     func(groupID string) (ledger.Group, bool)
	TripStart   time.Time
	TripEnd     time.Time
	Selections  *selection.Registries
}

// LineItem is one priced row of the breakdown.
type LineItem struct {
	Category    offers.Category `json:"category"`
	Label       string          `json:"label"`
	GroupID     string          `json:"group_id"`
	UnitPrice   money.Money     `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    money.Money     `json:"subtotal"`
	Unconverted bool            `json:"unconverted,omitempty"`
}

// Breakdown is recomputed from scratch on every call to Compute.
type Breakdown struct {
	Currency    string                          `json:"currency"`
	Nights      int                             `json:"nights"`
	Subtotals   map[offers.Category]money.Money `json:"subtotals"`
	Total       money.Money                     `json:"total"`
	LineItems   []LineItem                      `json:"line_items"`
	Dangling    []selection.DanglingRef         `json:"dangling,omitempty"`
	Unconverted bool                            `json:"unconverted,omitempty"`
}

// Nights is the number of calendar days between start and end, at least 1.
func Nights(start, end time.Time) int {
	s := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	return max(int(e.Sub(s).Hours()/24), 1)
}

type builder struct {
	in        Input
	breakdown *Breakdown
	// A Caser is stateful; one per Compute call.
	title cases.Caser
}

// Compute builds the breakdown. Selections whose group does not resolve are
// left out of every total and reported in Dangling.
func Compute(in Input) Breakdown {
	currency := money.NormalizeCurrency(in.Currency)
	b := builder{
		in:    in,
		title: cases.Title(language.English),
		breakdown: &Breakdown{
			Currency:  currency,
			Nights:    Nights(in.TripStart, in.TripEnd),
			Subtotals: make(map[offers.Category]money.Money, len(offers.Categories)),
			LineItems: []LineItem{},
		},
	}
	for _, c := range offers.Categories {
		b.breakdown.Subtotals[c] = money.Zero(currency)
	}

	if in.Selections != nil {
		b.flights()
		b.hotels()
		b.transfers()
		b.events()
		b.breakdown.Dangling = in.Selections.Dangling(func(id string) bool {
			_, ok := in.Resolve(id)
			return ok
		})
	}

	total := decimal.Zero
	for _, c := range offers.Categories {
		total = total.Add(b.breakdown.Subtotals[c].Amount)
	}
	b.breakdown.Total = money.Money{Amount: total, Currency: currency}

	return *b.breakdown
}

// Total is a convenience for callers that only need the grand total.
func Total(in Input) money.Money {
	return Compute(in).Total
}

func (b *builder) flights() {
	for _, f := range b.in.Selections.Flights.List() {
		if f.Offer == nil {
			continue
		}
		g, ok := b.in.Resolve(f.GroupID)
		if !ok {
			continue
		}
		// Fares are adult-equivalent; children are not priced separately.
		travelers := b.in.PartyAdults
		if b.in.Subgrouping {
			travelers = g.Adults
		}
		b.add(offers.Flights, g, offerLabel(f.Offer.ChosenOffer, f.Offer.Routing), f.Offer.Price, travelers)
	}
}

func (b *builder) hotels() {
	nights := b.breakdown.Nights
	for _, h := range b.in.Selections.Hotels.List() {
		if h.Offer == nil {
			continue
		}
		g, ok := b.in.Resolve(h.GroupID)
		if !ok {
			continue
		}
		label := fmt.Sprintf("%s, %d room(s) x %d night(s)", offerLabel(h.Offer.ChosenOffer, h.Offer.RoomType), h.RoomCount, nights)
		b.add(offers.Hotels, g, label, h.Offer.PricePerNight, h.RoomCount*nights)
	}
}

func (b *builder) transfers() {
	for _, t := range b.in.Selections.Transfers.List() {
		if t.Price == nil {
			continue
		}
		g, ok := b.in.Resolve(t.GroupID)
		if !ok {
			continue
		}
		b.add(offers.Transfers, g, offerLabel(t.Price.ChosenOffer, t.VehicleType), t.Price.PricePerTransfer, len(t.Legs))
	}
}

func (b *builder) events() {
	for _, ev := range b.in.Selections.Events.List() {
		for _, binding := range ev.Groups {
			g, ok := b.in.Resolve(binding.GroupID)
			if !ok {
				continue
			}
			name := ev.Name
			if name == "" {
				name = ev.EventID
			}
			b.add(offers.Events, g, name, binding.UnitPrice, binding.TicketQuantity)
		}
	}
}

func (b *builder) add(c offers.Category, g ledger.Group, label string, unit money.ConvertedMoney, qty int) {
	if qty <= 0 {
		return
	}

	subtotal := unit.Money().Mul(qty)
	unconverted := unit.Unconverted || unit.Currency != b.breakdown.Currency

	b.breakdown.LineItems = append(b.breakdown.LineItems, LineItem{
		Category:    c,
		Label:       fmt.Sprintf("%s: %s (%s)", b.title.String(string(c)), label, g.Name),
		GroupID:     g.ID,
		UnitPrice:   unit.Money(),
		Quantity:    qty,
		Subtotal:    subtotal,
		Unconverted: unconverted,
	})

	current := b.breakdown.Subtotals[c]
	current.Amount = current.Amount.Add(subtotal.Amount)
	b.breakdown.Subtotals[c] = current

	if unconverted {
		b.breakdown.Unconverted = true
	}
}

func offerLabel(o selection.ChosenOffer, detail string) string {
	name := o.Name
	if name == "" {
		name = o.OfferID
	}
	if detail == "" {
		return name
	}
	return name + " " + detail
}

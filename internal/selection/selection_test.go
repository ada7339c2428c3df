package selection_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/tripquote/internal/money"
	"github.com/alex-user-go/tripquote/internal/offers"
	"github.com/alex-user-go/tripquote/internal/selection"
)

// doubling converts every foreign amount at rate 2 and counts calls.
type doubling struct {
	calls int
}

func (d *doubling) Convert(_ context.Context, m money.Money, to string) money.ConvertedMoney {
	d.calls++
	if m.Currency == to {
		return money.Identity(m)
	}
	return money.ConvertedMoney{
		Amount:           m.Amount.Mul(decimal.NewFromInt(2)),
		Currency:         to,
		OriginalAmount:   m.Amount,
		OriginalCurrency: m.Currency,
		SpreadApplied:    decimal.Zero,
	}
}

func offer(id string, c offers.Category, price int64, currency string) offers.Offer {
	return offers.Offer{ID: id, Name: "offer " + id, Category: c, Currency: currency, Price: decimal.NewFromInt(price)}
}

func enabled(t *testing.T) *selection.Registries {
	t.Helper()
	r := selection.NewRegistries()
	for _, c := range offers.Categories {
		require.NoError(t, r.SetEnabled(c, true))
	}
	return r
}

func TestRegistry_CRUD(t *testing.T) {
	r := enabled(t)

	require.NoError(t, r.Hotels.Add(selection.Hotel{GroupID: "g1", RoomCount: 1}))
	require.ErrorIs(t, r.Hotels.Add(selection.Hotel{GroupID: "g1"}), selection.ErrDuplicate)
	require.ErrorIs(t, r.Hotels.Add(selection.Hotel{}), selection.ErrMissingKey)

	updated, err := r.Hotels.Update("g1", func(h *selection.Hotel) {
		h.RoomCount = 3
		h.StarRating = 4
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.RoomCount)

	got, ok := r.Hotels.Get("g1")
	require.True(t, ok)
	assert.Equal(t, 4, got.StarRating)

	_, err = r.Hotels.Update("nope", func(*selection.Hotel) {})
	assert.ErrorIs(t, err, selection.ErrNotFound)

	require.NoError(t, r.Hotels.Remove("g1"))
	assert.Empty(t, r.Hotels.List())
	assert.ErrorIs(t, r.Hotels.Remove("g1"), selection.ErrNotFound)
}

func TestRegistry_UpdateKeyCollision(t *testing.T) {
	r := enabled(t)
	require.NoError(t, r.Flights.Add(selection.Flight{GroupID: "g1"}))
	require.NoError(t, r.Flights.Add(selection.Flight{GroupID: "g2"}))

	_, err := r.Flights.Update("g1", func(f *selection.Flight) { f.GroupID = "g2" })
	assert.ErrorIs(t, err, selection.ErrDuplicate)

	moved, err := r.Flights.Update("g1", func(f *selection.Flight) { f.GroupID = "g3" })
	require.NoError(t, err)
	assert.Equal(t, "g3", moved.GroupID)
}

func TestRegistry_DisabledRejectsWrites(t *testing.T) {
	r := selection.NewRegistries()

	assert.False(t, r.Enabled(offers.Events))
	assert.ErrorIs(t, r.Flights.Add(selection.Flight{GroupID: "g1"}), selection.ErrDisabled)
}

func TestRegistry_DisableThenEnableIsEmpty(t *testing.T) {
	r := enabled(t)
	conv := &doubling{}
	ctx := context.Background()

	_, err := r.Events.BindGroup(ctx, conv, offer("E1", offers.Events, 50, "EUR"), "g1", 2, "EUR")
	require.NoError(t, err)
	require.NoError(t, r.Transfers.Add(selection.Transfer{GroupID: "g1"}))

	for _, c := range []offers.Category{offers.Events, offers.Transfers} {
		require.NoError(t, r.SetEnabled(c, false))
		require.NoError(t, r.SetEnabled(c, true))
		assert.Zero(t, r.Count(c), "category %s", c)
	}
}

func TestRegistry_ListReturnsCopies(t *testing.T) {
	r := enabled(t)
	require.NoError(t, r.Transfers.Add(selection.Transfer{
		GroupID: "g1",
		Legs:    []selection.Leg{{Kind: selection.LegArrival, Pickup: "LHR", Dropoff: "Hotel"}},
	}))

	list := r.Transfers.List()
	list[0].Legs[0].Pickup = "changed"

	got, _ := r.Transfers.Get("g1")
	assert.Equal(t, "LHR", got.Legs[0].Pickup)
}

func TestChooseOffer_SnapshotsOnce(t *testing.T) {
	r := enabled(t)
	conv := &doubling{}
	ctx := context.Background()

	h, err := r.Hotels.ChooseOffer(ctx, conv, "g1", offer("H1", offers.Hotels, 100, "GBP"), "EUR")
	require.NoError(t, err)
	require.NotNil(t, h.Offer)
	assert.Equal(t, 1, h.RoomCount)
	assert.Equal(t, "200", h.Offer.PricePerNight.Amount.String())
	assert.Equal(t, "EUR", h.Offer.PricePerNight.Currency)
	assert.Equal(t, "GBP", h.Offer.Original.Currency)
	assert.Equal(t, 1, conv.calls)

	// Reading again never reconverts.
	_ = r.Hotels.List()
	got, _ := r.Hotels.Get("g1")
	assert.Equal(t, "200", got.Offer.PricePerNight.Amount.String())
	assert.Equal(t, 1, conv.calls)
}

func TestChooseOffer_KeepsSelectionFields(t *testing.T) {
	r := enabled(t)
	require.NoError(t, r.Flights.Add(selection.Flight{GroupID: "g1", CabinClass: "business", Origin: "LHR", Destination: "JFK"}))

	o := offer("F1", offers.Flights, 300, "USD")
	o.Description = "LHR-JFK nonstop"
	f, err := r.Flights.ChooseOffer(context.Background(), &doubling{}, "g1", o, "USD")
	require.NoError(t, err)

	assert.Equal(t, "business", f.CabinClass)
	assert.Equal(t, "LHR-JFK nonstop", f.Offer.Routing)
	assert.Equal(t, "300", f.Offer.Price.Amount.String())
}

func TestChooseOffer_CategoryMismatch(t *testing.T) {
	r := enabled(t)

	_, err := r.Flights.ChooseOffer(context.Background(), &doubling{}, "g1", offer("H1", offers.Hotels, 1, "EUR"), "EUR")
	assert.ErrorIs(t, err, selection.ErrCategoryMismatch)
}

func TestTransfers_ChooseOffer(t *testing.T) {
	r := enabled(t)
	require.NoError(t, r.Transfers.Add(selection.Transfer{GroupID: "g1", Legs: []selection.Leg{{Kind: selection.LegArrival}}}))

	tr, err := r.Transfers.ChooseOffer(context.Background(), &doubling{}, "g1", offer("T1", offers.Transfers, 40, "EUR"), "EUR")
	require.NoError(t, err)
	require.NotNil(t, tr.Price)
	assert.Len(t, tr.Legs, 1)
	assert.Equal(t, "40", tr.Price.PricePerTransfer.Amount.String())
}

func TestEvents_BindAndUnbind(t *testing.T) {
	r := enabled(t)
	conv := &doubling{}
	ctx := context.Background()
	ev := offer("E1", offers.Events, 30, "EUR")

	_, err := r.Events.BindGroup(ctx, conv, ev, "g1", 2, "EUR")
	require.NoError(t, err)
	_, err = r.Events.BindGroup(ctx, conv, ev, "g2", 1, "EUR")
	require.NoError(t, err)
	got, err := r.Events.BindGroup(ctx, conv, ev, "g1", 4, "EUR")
	require.NoError(t, err)

	require.Len(t, got.Groups, 2)
	b, ok := got.Binding("g1")
	require.True(t, ok)
	assert.Equal(t, 4, b.TicketQuantity)

	_, err = r.Events.BindGroup(ctx, conv, ev, "g1", 0, "EUR")
	assert.ErrorIs(t, err, selection.ErrInvalidQuantity)

	got, err = r.Events.UnbindGroup("E1", "g1")
	require.NoError(t, err)
	assert.Len(t, got.Groups, 1)
	assert.Equal(t, 1, r.Events.Len())

	_, err = r.Events.UnbindGroup("E9", "g1")
	assert.ErrorIs(t, err, selection.ErrNotFound)
}

func TestRegistries_Dangling(t *testing.T) {
	r := enabled(t)
	conv := &doubling{}
	ctx := context.Background()

	require.NoError(t, r.Flights.Add(selection.Flight{GroupID: "g1"}))
	require.NoError(t, r.Hotels.Add(selection.Hotel{GroupID: "gone"}))
	_, err := r.Events.BindGroup(ctx, conv, offer("E1", offers.Events, 10, "EUR"), "default", 1, "EUR")
	require.NoError(t, err)
	_, err = r.Events.BindGroup(ctx, conv, offer("E1", offers.Events, 10, "EUR"), "gone", 1, "EUR")
	require.NoError(t, err)

	live := map[string]bool{"g1": true, "default": true}
	refs := r.Dangling(func(id string) bool { return live[id] })

	assert.Equal(t, []selection.DanglingRef{
		{Category: offers.Hotels, Key: "gone", GroupID: "gone"},
		{Category: offers.Events, Key: "E1", GroupID: "gone"},
	}, refs)
}

func TestRegistries_Freeze(t *testing.T) {
	r := enabled(t)
	require.NoError(t, r.Hotels.Add(selection.Hotel{GroupID: "g1"}))
	r.Freeze()

	assert.ErrorIs(t, r.Hotels.Add(selection.Hotel{GroupID: "g2"}), selection.ErrFrozen)
	assert.ErrorIs(t, r.Hotels.Remove("g1"), selection.ErrFrozen)
	assert.ErrorIs(t, r.SetEnabled(offers.Hotels, false), selection.ErrFrozen)
	_, err := r.Events.BindGroup(context.Background(), &doubling{}, offer("E1", offers.Events, 1, "EUR"), "g1", 1, "EUR")
	assert.ErrorIs(t, err, selection.ErrFrozen)
	assert.Equal(t, 1, r.Hotels.Len())
}

func TestRegistries_StateRoundTrip(t *testing.T) {
	r := enabled(t)
	_, err := r.Hotels.ChooseOffer(context.Background(), &doubling{}, "g1", offer("H1", offers.Hotels, 10, "EUR"), "EUR")
	require.NoError(t, err)
	require.NoError(t, r.SetEnabled(offers.Events, false))

	loaded := selection.NewRegistries()
	require.NoError(t, loaded.Load(r.State()))

	assert.Equal(t, r.State(), loaded.State())
	assert.False(t, loaded.Enabled(offers.Events))
	assert.True(t, loaded.Enabled(offers.Hotels))
}

func TestRegistry_LoadRejectsItemsInDisabledCategory(t *testing.T) {
	r := selection.NewRegistries()

	err := r.Load(selection.States{
		Flights: selection.State[selection.Flight]{Items: []selection.Flight{{GroupID: "g1"}}},
	})
	assert.ErrorIs(t, err, selection.ErrDisabled)
}

func TestRegistries_LoadValidatesItems(t *testing.T) {
	eur := func(v int64) money.ConvertedMoney { return money.Identity(money.New(decimal.NewFromInt(v), "EUR")) }

	tests := []struct {
		name    string
		states  selection.States
		wantErr error
	}{
		{
			name: "negative room count",
			states: selection.States{Hotels: selection.State[selection.Hotel]{Enabled: true, Items: []selection.Hotel{
				{GroupID: "g1", RoomCount: -3, Offer: &selection.HotelOffer{PricePerNight: eur(100)}},
			}}},
			wantErr: selection.ErrInvalidQuantity,
		},
		{
			name: "zero room count",
			states: selection.States{Hotels: selection.State[selection.Hotel]{Enabled: true, Items: []selection.Hotel{
				{GroupID: "g1"},
			}}},
			wantErr: selection.ErrInvalidQuantity,
		},
		{
			name: "negative nightly rate",
			states: selection.States{Hotels: selection.State[selection.Hotel]{Enabled: true, Items: []selection.Hotel{
				{GroupID: "g1", RoomCount: 1, Offer: &selection.HotelOffer{PricePerNight: eur(-100)}},
			}}},
			wantErr: selection.ErrInvalidPrice,
		},
		{
			name: "zero fare",
			states: selection.States{Flights: selection.State[selection.Flight]{Enabled: true, Items: []selection.Flight{
				{GroupID: "g1", Offer: &selection.FlightOffer{Price: eur(0)}},
			}}},
			wantErr: selection.ErrInvalidPrice,
		},
		{
			name: "negative transfer price",
			states: selection.States{Transfers: selection.State[selection.Transfer]{Enabled: true, Items: []selection.Transfer{
				{GroupID: "g1", Price: &selection.TransferPrice{PricePerTransfer: eur(-5)}},
			}}},
			wantErr: selection.ErrInvalidPrice,
		},
		{
			name: "group bound twice to one event",
			states: selection.States{Events: selection.State[selection.Event]{Enabled: true, Items: []selection.Event{
				{EventID: "E1", Groups: []selection.EventBinding{
					{GroupID: "g1", TicketQuantity: 1, UnitPrice: eur(100)},
					{GroupID: "g1", TicketQuantity: 1, UnitPrice: eur(100)},
				}},
			}}},
			wantErr: selection.ErrDuplicateBinding,
		},
		{
			name: "zero tickets",
			states: selection.States{Events: selection.State[selection.Event]{Enabled: true, Items: []selection.Event{
				{EventID: "E1", Groups: []selection.EventBinding{{GroupID: "g1", UnitPrice: eur(100)}}},
			}}},
			wantErr: selection.ErrInvalidQuantity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := selection.NewRegistries()
			err := r.Load(tt.states)
			require.ErrorIs(t, err, tt.wantErr)
			for _, c := range offers.Categories {
				assert.False(t, r.Enabled(c), "%s should stay untouched", c)
			}
		})
	}
}

func TestRegistries_LoadAcceptsValidItems(t *testing.T) {
	eur := money.Identity(money.New(decimal.NewFromInt(100), "EUR"))
	r := selection.NewRegistries()

	require.NoError(t, r.Load(selection.States{
		Hotels: selection.State[selection.Hotel]{Enabled: true, Items: []selection.Hotel{
			{GroupID: "g1", RoomCount: 2, Offer: &selection.HotelOffer{PricePerNight: eur}},
		}},
		Transfers: selection.State[selection.Transfer]{Enabled: true, Items: []selection.Transfer{{GroupID: "g1"}}},
		Events: selection.State[selection.Event]{Enabled: true, Items: []selection.Event{
			{EventID: "E1", Groups: []selection.EventBinding{
				{GroupID: "g1", TicketQuantity: 2, UnitPrice: eur},
				{GroupID: "g2", TicketQuantity: 1, UnitPrice: eur},
			}},
		}},
	}))
	assert.Equal(t, 1, r.Hotels.Len())
	assert.Equal(t, 1, r.Events.Len())
}

func TestChooseOffer_RejectsNonPositivePrice(t *testing.T) {
	ctx := context.Background()

	for _, price := range []int64{0, -100} {
		r := enabled(t)
		conv := &doubling{}

		_, err := r.Hotels.ChooseOffer(ctx, conv, "g1", offer("H1", offers.Hotels, price, "USD"), "EUR")
		assert.ErrorIs(t, err, selection.ErrInvalidPrice)
		_, err = r.Flights.ChooseOffer(ctx, conv, "g1", offer("F1", offers.Flights, price, "USD"), "EUR")
		assert.ErrorIs(t, err, selection.ErrInvalidPrice)
		_, err = r.Transfers.ChooseOffer(ctx, conv, "g1", offer("T1", offers.Transfers, price, "USD"), "EUR")
		assert.ErrorIs(t, err, selection.ErrInvalidPrice)
		_, err = r.Events.BindGroup(ctx, conv, offer("E1", offers.Events, price, "USD"), "g1", 1, "EUR")
		assert.ErrorIs(t, err, selection.ErrInvalidPrice)

		assert.Zero(t, conv.calls)
		assert.Zero(t, r.Hotels.Len()+r.Flights.Len()+r.Transfers.Len()+r.Events.Len())
	}
}

package quote_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/tripquote/internal/composition"
	"github.com/alex-user-go/tripquote/internal/ledger"
	"github.com/alex-user-go/tripquote/internal/money"
	"github.com/alex-user-go/tripquote/internal/obs"
	"github.com/alex-user-go/tripquote/internal/offers"
	"github.com/alex-user-go/tripquote/internal/quote"
	"github.com/alex-user-go/tripquote/internal/selection"
)

func newSubmitter() (*quote.Submitter, *obs.Metrics) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := obs.NewMetrics(logger)
	return quote.NewSubmitter(metrics, logger), metrics
}

func readyComposition(t *testing.T) *composition.Composition {
	t.Helper()
	c := composition.New(ledger.Party{Adults: 2})
	require.NoError(t, c.SetClient(composition.Client{FirstName: "Ada", LastName: "Lovelace"}))
	require.NoError(t, c.SetTrip(composition.Trip{PrimaryDestination: "Lisbon", StartDate: "2025-05-10", EndDate: "2025-05-12"}))
	require.NoError(t, c.SetPreferences(composition.Preferences{Tone: "friendly", Currency: "EUR"}))
	require.NoError(t, c.Selections().SetEnabled(offers.Hotels, true))
	require.NoError(t, c.Selections().Hotels.Add(selection.Hotel{
		GroupID:   ledger.DefaultGroupID,
		RoomCount: 1,
		Offer: &selection.HotelOffer{
			PricePerNight: money.Identity(money.New(decimal.RequireFromString("120.50"), "EUR")),
		},
	}))
	return c
}

func TestSubmit_Ready(t *testing.T) {
	s, metrics := newSubmitter()
	c := readyComposition(t)

	payload, report, err := s.Submit(c)
	require.NoError(t, err)

	assert.True(t, report.Ready)
	assert.True(t, payload.Frozen)
	require.NotNil(t, payload.Breakdown)
	assert.Equal(t, "241.00", payload.Breakdown.Total.Amount.StringFixed(2))
	assert.True(t, c.Frozen())
	assert.Equal(t, int64(1), metrics.Snapshot().QuotesSubmitted)

	_, _, err = s.Submit(c)
	assert.ErrorIs(t, err, quote.ErrAlreadySubmitted)
}

func TestSubmit_Incomplete(t *testing.T) {
	s, metrics := newSubmitter()
	c := readyComposition(t)
	require.NoError(t, c.Selections().SetEnabled(offers.Events, true))

	_, report, err := s.Submit(c)

	var incomplete *quote.IncompleteError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []string{"events is enabled but has no selections"}, incomplete.Reasons)
	assert.False(t, report.Ready)
	assert.False(t, c.Frozen())
	assert.Equal(t, int64(1), metrics.Snapshot().QuotesRejected)
	assert.Contains(t, err.Error(), "composition incomplete")
}

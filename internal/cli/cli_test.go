package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alex-user-go/tripquote/internal/cli"
	"github.com/alex-user-go/tripquote/internal/composition"
	"github.com/alex-user-go/tripquote/internal/ledger"
	"github.com/alex-user-go/tripquote/internal/money"
	"github.com/alex-user-go/tripquote/internal/offers"
	"github.com/alex-user-go/tripquote/internal/selection"
)

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := cli.NewRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&errOut)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func payloadJSON(t *testing.T, withHotel bool) string {
	t.Helper()
	c := composition.New(ledger.Party{Adults: 2})
	require.NoError(t, c.SetClient(composition.Client{FirstName: "Ada", LastName: "Lovelace"}))
	require.NoError(t, c.SetTrip(composition.Trip{PrimaryDestination: "Rome", StartDate: "2025-09-01", EndDate: "2025-09-04"}))
	require.NoError(t, c.SetPreferences(composition.Preferences{Tone: "warm", Currency: "EUR"}))
	require.NoError(t, c.Selections().SetEnabled(offers.Hotels, true))
	if withHotel {
		require.NoError(t, c.Selections().Hotels.Add(selection.Hotel{
			GroupID:   ledger.DefaultGroupID,
			RoomCount: 1,
			Offer: &selection.HotelOffer{
				ChosenOffer:   selection.ChosenOffer{Name: "Colosseo Suites"},
				PricePerNight: money.Identity(money.New(decimal.NewFromInt(150), "EUR")),
			},
		}))
	}
	data, err := json.Marshal(c.Payload())
	require.NoError(t, err)
	return string(data)
}

func TestSplit(t *testing.T) {
	out, _, err := run(t, "", "split", "--adults", "4", "--children", "2", "--ages", "13,6")
	require.NoError(t, err)

	assert.Contains(t, out, ledger.NameOlderChildren)
	assert.Contains(t, out, ledger.NameYoungerChildren)
	assert.Contains(t, out, "Group 1")
	assert.NotContains(t, out, "invalid")
}

func TestSplit_UnknownStrategy(t *testing.T) {
	_, _, err := run(t, "", "split", "--strategy", "random")
	assert.ErrorIs(t, err, ledger.ErrUnknownStrategy)
}

func TestBreakdown_Table(t *testing.T) {
	out, _, err := run(t, payloadJSON(t, true), "breakdown", "-")
	require.NoError(t, err)

	assert.Contains(t, out, "Colosseo Suites")
	assert.Contains(t, out, "450.00 EUR")
	assert.Contains(t, out, "ready to submit")
}

func TestBreakdown_JSON(t *testing.T) {
	out, _, err := run(t, payloadJSON(t, false), "breakdown", "--json", "-")
	require.NoError(t, err)

	var resp struct {
		Readiness struct {
			Ready   bool     `json:"ready"`
			Reasons []string `json:"reasons"`
		} `json:"readiness"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Readiness.Ready)
	assert.Equal(t, []string{"hotels is enabled but has no selections"}, resp.Readiness.Reasons)
}

func TestSubmit(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "draft.json")
	outFile := filepath.Join(dir, "final.json")
	require.NoError(t, os.WriteFile(in, []byte(payloadJSON(t, true)), 0o600))

	out, _, err := run(t, "", "submit", in, "-o", outFile)
	require.NoError(t, err)
	assert.Contains(t, out, "450.00 EUR")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	var final composition.Payload
	require.NoError(t, json.Unmarshal(data, &final))
	assert.True(t, final.Frozen)
	require.NotNil(t, final.Breakdown)

	_, _, err = run(t, "", "submit", outFile)
	assert.Error(t, err, "a frozen payload cannot be submitted twice")
}

func TestSubmit_Incomplete(t *testing.T) {
	_, errOut, err := run(t, payloadJSON(t, false), "submit", "-")
	require.Error(t, err)
	assert.Contains(t, errOut, "hotels is enabled but has no selections")
}

func TestConvert_Offline(t *testing.T) {
	t.Chdir(t.TempDir())

	out, _, err := run(t, "", "convert", "--offline", "--amount", "100", "--from", "USD", "--to", "EUR", "--spread", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "100.00 USD = 92.00 EUR")

	out, _, err = run(t, "", "convert", "--offline", "--amount", "5", "--from", "XYZ", "--to", "EUR")
	require.NoError(t, err)
	assert.Contains(t, out, "left unconverted")
}

func TestConvert_RequiresAmount(t *testing.T) {
	_, _, err := run(t, "", "convert", "--from", "USD")
	assert.Error(t, err)
}

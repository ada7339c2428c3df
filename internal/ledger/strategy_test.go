package ledger_test

import (
	"fmt"
	"testing"

	"github.com/alex-user-go/tripquote/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqID() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("g%d", n)
	}
}

func adultsOf(groups []ledger.Group) []int {
	out := make([]int, len(groups))
	for i, g := range groups {
		out[i] = g.Adults
	}
	return out
}

func TestAdultChunkSize(t *testing.T) {
	assert.Equal(t, 2, ledger.AdultChunkSize(1))
	assert.Equal(t, 2, ledger.AdultChunkSize(6))
	assert.Equal(t, 3, ledger.AdultChunkSize(7))
	assert.Equal(t, 3, ledger.AdultChunkSize(20))
}

func TestChildAges(t *testing.T) {
	assert.Equal(t, []int{10, 11, 12}, ledger.ChildAges(3, nil))
	assert.Equal(t, []int{4, 10}, ledger.ChildAges(2, []int{4}))
	assert.Equal(t, []int{7}, ledger.ChildAges(1, []int{7, 9}))
	assert.Empty(t, ledger.ChildAges(0, []int{5}))
}

func TestSmartSplit_AdultsOnly(t *testing.T) {
	tests := []struct {
		adults int
		want   []int
	}{
		{1, []int{1}},
		{4, []int{2, 2}},
		{5, []int{2, 2, 1}},
		{6, []int{2, 2, 2}},
		{7, []int{3, 3, 1}},
		{9, []int{3, 3, 3}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d adults", tt.adults), func(t *testing.T) {
			groups := ledger.SmartSplit(tt.adults, 0, nil, seqID())
			assert.Equal(t, tt.want, adultsOf(groups))
			for i, g := range groups {
				assert.Equal(t, fmt.Sprintf("Group %d", i+1), g.Name)
			}
		})
	}
}

func TestSmartSplit_ChildBuckets(t *testing.T) {
	groups := ledger.SmartSplit(2, 3, []int{9, 13, 15}, seqID())

	require.Len(t, groups, 2)

	assert.Equal(t, ledger.NameOlderChildren, groups[0].Name)
	assert.Equal(t, 2, groups[0].Children)
	assert.Equal(t, []int{13, 15}, groups[0].ChildAges)
	assert.Equal(t, 1, groups[0].Adults)

	assert.Equal(t, ledger.NameYoungerChildren, groups[1].Name)
	assert.Equal(t, 1, groups[1].Children)
	assert.Equal(t, []int{9}, groups[1].ChildAges)
	assert.Equal(t, 1, groups[1].Adults)
}

func TestSmartSplit_SingleChildJoinsFirstAdultGroup(t *testing.T) {
	groups := ledger.SmartSplit(4, 1, []int{5}, seqID())

	require.Len(t, groups, 2)
	assert.Equal(t, 1, groups[0].Children)
	assert.Equal(t, []int{5}, groups[0].ChildAges)
	assert.Equal(t, 0, groups[1].Children)
}

func TestSmartSplit_ChildWithoutAdults(t *testing.T) {
	groups := ledger.SmartSplit(0, 1, nil, seqID())

	require.Len(t, groups, 1)
	assert.Equal(t, ledger.NameChildren, groups[0].Name)
	assert.Equal(t, []int{10}, groups[0].ChildAges)
}

func TestSmartSplit_SynthesizedAgesBucketed(t *testing.T) {
	// Synthesized ages run 10, 11, 12, 13.
	groups := ledger.SmartSplit(4, 4, nil, seqID())

	require.Len(t, groups, 3)
	assert.Equal(t, []int{12, 13}, groups[0].ChildAges)
	assert.Equal(t, []int{10, 11}, groups[1].ChildAges)
	assert.Equal(t, "Group 1", groups[2].Name)
	assert.Equal(t, 2, groups[2].Adults)
}

func TestSmartSplit_AllocatesEveryTraveler(t *testing.T) {
	for a := 0; a <= 12; a++ {
		for c := 0; c <= 6; c++ {
			groups := ledger.SmartSplit(a, c, nil, seqID())

			var adults, children int
			seen := map[string]bool{}
			for _, g := range groups {
				assert.Positive(t, g.Travelers(), "a=%d c=%d group %q empty", a, c, g.Name)
				assert.False(t, seen[g.ID], "duplicate id %s", g.ID)
				seen[g.ID] = true
				adults += g.Adults
				children += g.Children
			}
			assert.Equal(t, a, adults, "adults a=%d c=%d", a, c)
			assert.Equal(t, c, children, "children a=%d c=%d", a, c)
		}
	}
}

func TestPartition(t *testing.T) {
	tests := []struct {
		name     string
		strategy ledger.Strategy
		wantName string
	}{
		{"solo", ledger.StrategySolo, "Travelers"},
		{"couple", ledger.StrategyCouple, "Travelers"},
		{"family", ledger.StrategyFamily, "Family"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, err := ledger.Partition(2, 2, []int{4, 6}, tt.strategy, seqID())
			require.NoError(t, err)
			require.Len(t, groups, 1)
			assert.Equal(t, ledger.DefaultGroupID, groups[0].ID)
			assert.Equal(t, tt.wantName, groups[0].Name)
			assert.Equal(t, 2, groups[0].Adults)
			assert.Equal(t, 2, groups[0].Children)
		})
	}
}

func TestPartition_Errors(t *testing.T) {
	_, err := ledger.Partition(2, 0, nil, "bus-tour", nil)
	assert.ErrorIs(t, err, ledger.ErrUnknownStrategy)

	_, err = ledger.Partition(-1, 0, nil, ledger.StrategySolo, nil)
	assert.ErrorIs(t, err, ledger.ErrInvalidParty)
}

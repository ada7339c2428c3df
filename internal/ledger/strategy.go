package ledger

import (
	"fmt"
	"sort"
)

// Strategy names how a party is split into groups.
type Strategy string

const (
	StrategySolo      Strategy = "solo"
	StrategyCouple    Strategy = "couple"
	StrategyFamily    Strategy = "family"
	StrategyGroupAuto Strategy = "group-auto"
)

// Smart split thresholds.
const (
	smallPartyMaxAdults = 6
	smallChunkSize      = 2
	largeChunkSize      = 3
	olderChildMinAge    = 12
	firstSyntheticAge   = 10
)

// Group names produced by the smart split.
const (
	NameOlderChildren   = "Older Children"
	NameYoungerChildren = "Younger Children"
	NameChildren        = "Children"
)

// Partition splits a party according to strategy. solo, couple and family
// yield the single sentinel group; group-auto delegates to SmartSplit.
func Partition(adults, children int, childAges []int, strategy Strategy, newID func() string) ([]Group, error) {
	if adults < 0 || children < 0 {
		return nil, fmt.Errorf("%w: negative traveler count", ErrInvalidParty)
	}

	switch strategy {
	case StrategySolo, StrategyCouple:
		return []Group{wholeParty("Travelers", adults, children, childAges)}, nil
	case StrategyFamily:
		return []Group{wholeParty("Family", adults, children, childAges)}, nil
	case StrategyGroupAuto:
		return SmartSplit(adults, children, childAges, newID), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// AdultChunkSize is 2 for parties of up to six adults and 3 above that.
func AdultChunkSize(adults int) int {
	if adults <= smallPartyMaxAdults {
		return smallChunkSize
	}
	return largeChunkSize
}

// ChildAges returns one age per child, keeping the given ones and numbering
// missing ones sequentially from 10.
func ChildAges(children int, given []int) []int {
	ages := make([]int, children)
	next := firstSyntheticAge
	for i := range ages {
		if i < len(given) && given[i] >= 0 {
			ages[i] = given[i]
			continue
		}
		ages[i] = next
		next++
	}
	return ages
}

// SmartSplit is the group-auto strategy.
//
// Adults are chunked by AdultChunkSize. With more than one child, children
// are bucketed into older (12+) and younger; each non-empty bucket becomes a
// group and takes one adult while adults remain, older bucket first. A
// single child joins the first adult group. Remaining adults form
// "Group N" groups of the chunk size; the count is ceil(adults/chunk) when no
// children are involved.
func SmartSplit(adults, children int, childAges []int, newID func() string) []Group {
	if newID == nil {
		newID = NewID
	}

	var groups []Group
	remaining := adults

	if children > 1 {
		var older, younger []int
		for _, age := range ChildAges(children, childAges) {
			if age >= olderChildMinAge {
				older = append(older, age)
			} else {
				younger = append(younger, age)
			}
		}

		for _, bucket := range []struct {
			name string
			ages []int
		}{
			{NameOlderChildren, older},
			{NameYoungerChildren, younger},
		} {
			if len(bucket.ages) == 0 {
				continue
			}
			sort.Ints(bucket.ages)
			g := Group{
				ID:        newID(),
				Name:      bucket.name,
				Children:  len(bucket.ages),
				ChildAges: bucket.ages,
			}
			if remaining > 0 {
				g.Adults = 1
				remaining--
			}
			groups = append(groups, g)
		}
	}

	chunk := AdultChunkSize(adults)
	n := 0
	for remaining > 0 {
		size := min(chunk, remaining)
		n++
		groups = append(groups, Group{
			ID:     newID(),
			Name:   fmt.Sprintf("Group %d", n),
			Adults: size,
		})
		remaining -= size
	}

	if children == 1 {
		ages := ChildAges(1, childAges)
		placed := false
		for i := range groups {
			if groups[i].Adults > 0 {
				groups[i].Children = 1
				groups[i].ChildAges = ages
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, Group{ID: newID(), Name: NameChildren, Children: 1, ChildAges: ages})
		}
	}

	return groups
}

func wholeParty(name string, adults, children int, childAges []int) Group {
	return Group{
		ID:        DefaultGroupID,
		Name:      name,
		Adults:    adults,
		Children:  children,
		ChildAges: ChildAges(children, childAges),
	}
}

package ledger

import "fmt"

// StructuralValidationError reports that groups do not reconcile with the
// party totals. It blocks progression past the travelers step.
type StructuralValidationError struct {
	Reason string
}

func (e *StructuralValidationError) Error() string {
	return "traveler groups invalid: " + e.Reason
}

// Validation is the outcome of Validate.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Err returns nil for a valid result, a *StructuralValidationError otherwise.
func (v Validation) Err() error {
	if v.Valid {
		return nil
	}
	return &StructuralValidationError{Reason: v.Reason}
}

func invalid(format string, args ...any) Validation {
	return Validation{Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the groups against the ledger's own party totals.
func (l *Ledger) Validate() Validation {
	return l.ValidateTotals(l.party.Adults, l.party.Children)
}

// ValidateTotals checks that the groups allocate exactly totalAdults and
// totalChildren and that none is empty. Run it after every structural edit.
func (l *Ledger) ValidateTotals(totalAdults, totalChildren int) Validation {
	if totalAdults < 0 || totalChildren < 0 {
		return invalid("negative traveler totals")
	}
	if totalAdults+totalChildren == 0 {
		return invalid("party has no travelers")
	}

	if !l.party.UseSubgroups {
		if l.party.Adults != totalAdults || l.party.Children != totalChildren {
			return invalid("party has %d adults and %d children, expected %d and %d",
				l.party.Adults, l.party.Children, totalAdults, totalChildren)
		}
		return Validation{Valid: true}
	}

	if len(l.groups) == 0 {
		return invalid("no groups while subgrouping is enabled")
	}

	var adults, children int
	for _, g := range l.groups {
		if g.Adults < 0 || g.Children < 0 {
			return invalid("group %q has a negative count", g.Name)
		}
		if g.Travelers() == 0 {
			return invalid("group %q is empty", g.Name)
		}
		adults += g.Adults
		children += g.Children
	}

	if adults != totalAdults {
		return invalid("groups allocate %d of %d adults", adults, totalAdults)
	}
	if children != totalChildren {
		return invalid("groups allocate %d of %d children", children, totalChildren)
	}

	return Validation{Valid: true}
}

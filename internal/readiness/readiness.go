// Package readiness decides whether a composition may be submitted as a
// quote. Hard reasons block submission; warnings never do.
package readiness

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/alex-user-go/tripquote/internal/composition"
	"github.com/alex-user-go/tripquote/internal/offers"
	"github.com/alex-user-go/tripquote/internal/validation"
)

// Section names of the detailed report.
const (
	SectionClient      = "client"
	SectionTrip        = "trip"
	SectionPreferences = "preferences"
	SectionTravelers   = "travelers"
)

// Sections lists every section in wizard order.
var Sections = []string{
	SectionClient,
	SectionTrip,
	SectionPreferences,
	SectionTravelers,
	string(offers.Flights),
	string(offers.Hotels),
	string(offers.Transfers),
	string(offers.Events),
}

// Report is the detailed readiness of a composition.
type Report struct {
	Ready    bool            `json:"ready"`
	Sections map[string]bool `json:"sections"`
	Reasons  []string        `json:"reasons,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// IsReady reports whether c can be submitted.
func IsReady(c *composition.Composition) bool {
	return Check(c).Ready
}

// Check evaluates every section of c.
func Check(c *composition.Composition) Report {
	r := Report{Sections: make(map[string]bool, len(Sections))}

	r.section(SectionClient, fieldReasons(SectionClient, c.Client()))

	tripReasons := fieldReasons(SectionTrip, c.Trip())
	if len(tripReasons) == 0 {
		if start, end, err := c.Trip().Dates(); err == nil && end.Before(start) {
			tripReasons = append(tripReasons, "trip.end_date must not be before trip.start_date")
		}
	}
	r.section(SectionTrip, tripReasons)

	r.section(SectionPreferences, fieldReasons(SectionPreferences, c.Preferences()))

	var travelerReasons []string
	if err := c.Ledger().Validate().Err(); err != nil {
		travelerReasons = append(travelerReasons, err.Error())
	}
	r.section(SectionTravelers, travelerReasons)

	sel := c.Selections()
	for _, cat := range offers.Categories {
		var reasons []string
		if sel.Enabled(cat) && sel.Count(cat) == 0 {
			reasons = append(reasons, fmt.Sprintf("%s is enabled but has no selections", cat))
		}
		r.section(string(cat), reasons)
	}

	r.Warnings = warnings(c)
	r.Ready = len(r.Reasons) == 0
	return r
}

func (r *Report) section(name string, reasons []string) {
	r.Sections[name] = len(reasons) == 0
	r.Reasons = append(r.Reasons, reasons...)
}

// warnings lists soft issues: groups left without a selection in an enabled
// category, references to removed groups and prices that could not be
// converted.
func warnings(c *composition.Composition) []string {
	var out []string
	sel := c.Selections()
	groups := c.Ledger().Groups()

	for _, cat := range offers.Categories {
		if !sel.Enabled(cat) || sel.Count(cat) == 0 {
			continue
		}
		covered := sel.GroupIDs(cat)
		for _, g := range groups {
			if !slices.Contains(covered, g.ID) {
				out = append(out, fmt.Sprintf("group %q has no %s selection", g.Name, cat))
			}
		}
	}

	b := c.Breakdown()
	for _, d := range b.Dangling {
		out = append(out, d.String())
	}
	for _, li := range b.LineItems {
		if li.Unconverted {
			out = append(out, fmt.Sprintf("%s is priced in %s, not %s", li.Label, li.UnitPrice.Currency, b.Currency))
		}
	}
	return out
}

func fieldReasons(section string, v any) []string {
	err := validation.Validator().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []string{fmt.Sprintf("%s: %v", section, err)}
	}

	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		reasons = append(reasons, describe(section+"."+fe.Field(), fe))
	}
	return reasons
}

func describe(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email address"
	case "e164":
		return field + " must be an E.164 phone number"
	case "iso4217":
		return field + " must be an ISO 4217 currency code"
	case "datetime":
		return field + " must be a date in YYYY-MM-DD format"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

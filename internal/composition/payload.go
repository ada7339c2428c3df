package composition

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alex-user-go/tripquote/internal/ledger"
	"github.com/alex-user-go/tripquote/internal/pricing"
	"github.com/alex-user-go/tripquote/internal/selection"
)

// Payload is the JSON form of a composition. The finalized payload handed to
// the quote-creation service carries the breakdown and Frozen=true.
type Payload struct {
	ID          string             `json:"id,omitempty"`
	CreatedAt   time.Time          `json:"created_at,omitzero"`
	Client      Client             `json:"client"`
	Trip        Trip               `json:"trip"`
	Preferences Preferences        `json:"preferences"`
	Party       ledger.Party       `json:"party"`
	Groups      []ledger.Group     `json:"groups,omitempty"`
	Selections  selection.States   `json:"selections"`
	Breakdown   *pricing.Breakdown `json:"breakdown,omitempty"`
	Frozen      bool               `json:"frozen,omitempty"`
}

// Payload exports the composition. Groups are only listed when subgrouping
// is on; the sentinel group is implied otherwise.
func (c *Composition) Payload() Payload {
	p := Payload{
		ID:          c.id,
		CreatedAt:   c.createdAt,
		Client:      c.client,
		Trip:        c.trip,
		Preferences: c.preferences,
		Party:       c.ledger.Party(),
		Selections:  c.selections.State(),
		Frozen:      c.frozen,
	}
	if c.ledger.Subgrouping() {
		p.Groups = c.ledger.Groups()
	}
	if c.frozen {
		b := c.Breakdown()
		p.Breakdown = &b
	}
	return p
}

// FromPayload rebuilds a composition. A missing id gets a fresh one. The
// breakdown in p is ignored; it is always recomputed.
func FromPayload(p Payload) (*Composition, error) {
	party := p.Party
	party.UseSubgroups = false

	c := New(party)
	if p.ID != "" {
		if _, err := uuid.Parse(p.ID); err != nil {
			return nil, fmt.Errorf("invalid composition id %q: %w", p.ID, err)
		}
		c.id = p.ID
	}
	if !p.CreatedAt.IsZero() {
		c.createdAt = p.CreatedAt
	}

	// Setters only fail once frozen.
	_ = c.SetClient(p.Client)
	_ = c.SetTrip(p.Trip)
	_ = c.SetPreferences(p.Preferences)

	if err := c.ledger.SetParty(party); err != nil {
		return nil, err
	}
	if p.Party.UseSubgroups {
		if err := c.ledger.ApplyPartition(p.Groups); err != nil {
			return nil, fmt.Errorf("groups: %w", err)
		}
	}

	if err := c.selections.Load(p.Selections); err != nil {
		return nil, fmt.Errorf("selections: %w", err)
	}

	if p.Frozen {
		c.Freeze()
	}
	return c, nil
}

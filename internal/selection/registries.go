package selection

import (
	"fmt"
	"slices"

	"github.com/alex-user-go/tripquote/internal/offers"
)

// DanglingRef is a selection or event binding whose group no longer exists.
type DanglingRef struct {
	Category Category `json:"category"`
	Key      string   `json:"key"`
	GroupID  string   `json:"group_id"`
}

func (d DanglingRef) String() string {
	if d.Key == d.GroupID {
		return fmt.Sprintf("%s selection for missing group %q", d.Category, d.GroupID)
	}
	return fmt.Sprintf("%s %q references missing group %q", d.Category, d.Key, d.GroupID)
}

// Registries groups the four category registries of one composition.
type Registries struct {
	Flights   *Flights
	Hotels    *Hotels
	Transfers *Transfers
	Events    *Events
}

// NewRegistries returns four disabled, empty registries.
func NewRegistries() *Registries {
	return &Registries{
		Flights:   &Flights{NewRegistry[Flight](offers.Flights)},
		Hotels:    &Hotels{NewRegistry[Hotel](offers.Hotels)},
		Transfers: &Transfers{NewRegistry[Transfer](offers.Transfers)},
		Events:    &Events{NewRegistry[Event](offers.Events)},
	}
}

// Enabled reports whether category c is enabled.
func (r *Registries) Enabled(c Category) bool {
	switch c {
	case offers.Flights:
		return r.Flights.Enabled()
	case offers.Hotels:
		return r.Hotels.Enabled()
	case offers.Transfers:
		return r.Transfers.Enabled()
	case offers.Events:
		return r.Events.Enabled()
	}
	return false
}

// SetEnabled toggles category c.
func (r *Registries) SetEnabled(c Category, on bool) error {
	switch c {
	case offers.Flights:
		return r.Flights.SetEnabled(on)
	case offers.Hotels:
		return r.Hotels.SetEnabled(on)
	case offers.Transfers:
		return r.Transfers.SetEnabled(on)
	case offers.Events:
		return r.Events.SetEnabled(on)
	}
	return fmt.Errorf("unknown category %q", c)
}

// Count returns the number of selections in category c.
func (r *Registries) Count(c Category) int {
	switch c {
	case offers.Flights:
		return r.Flights.Len()
	case offers.Hotels:
		return r.Hotels.Len()
	case offers.Transfers:
		return r.Transfers.Len()
	case offers.Events:
		return r.Events.Len()
	}
	return 0
}

// GroupIDs returns the distinct group ids category c references.
func (r *Registries) GroupIDs(c Category) []string {
	var ids []string
	add := func(id string) {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	switch c {
	case offers.Flights:
		for _, s := range r.Flights.items {
			add(s.GroupID)
		}
	case offers.Hotels:
		for _, s := range r.Hotels.items {
			add(s.GroupID)
		}
	case offers.Transfers:
		for _, s := range r.Transfers.items {
			add(s.GroupID)
		}
	case offers.Events:
		for _, ev := range r.Events.items {
			for _, b := range ev.Groups {
				add(b.GroupID)
			}
		}
	}
	return ids
}

// Dangling lists every reference for which resolve reports false.
func (r *Registries) Dangling(resolve func(groupID string) bool) []DanglingRef {
	var refs []DanglingRef
	for _, c := range offers.Categories {
		if c == offers.Events {
			continue
		}
		for _, id := range r.GroupIDs(c) {
			if !resolve(id) {
				refs = append(refs, DanglingRef{Category: c, Key: id, GroupID: id})
			}
		}
	}
	for _, ev := range r.Events.items {
		for _, b := range ev.Groups {
			if !resolve(b.GroupID) {
				refs = append(refs, DanglingRef{Category: offers.Events, Key: ev.EventID, GroupID: b.GroupID})
			}
		}
	}
	return refs
}

// Freeze makes every registry read-only.
func (r *Registries) Freeze() {
	r.Flights.freeze()
	r.Hotels.freeze()
	r.Transfers.freeze()
	r.Events.freeze()
}

// States is the serializable form of all four registries.
type States struct {
	Flights   State[Flight]   `json:"flights"`
	Hotels    State[Hotel]    `json:"hotels"`
	Transfers State[Transfer] `json:"transfers"`
	Events    State[Event]    `json:"events"`
}

// State returns a copy of every registry.
func (r *Registries) State() States {
	return States{
		Flights:   r.Flights.State(),
		Hotels:    r.Hotels.State(),
		Transfers: r.Transfers.State(),
		Events:    r.Events.State(),
	}
}

// Load replaces all registries with st.
func (r *Registries) Load(st States) error {
	if err := r.Flights.Load(st.Flights); err != nil {
		return err
	}
	if err := r.Hotels.Load(st.Hotels); err != nil {
		return err
	}
	if err := r.Transfers.Load(st.Transfers); err != nil {
		return err
	}
	return r.Events.Load(st.Events)
}

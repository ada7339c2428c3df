// Package ledger partitions a traveling party into named groups and keeps
// the allocation consistent with the party totals.
package ledger

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// DefaultGroupID is the reserved id of the implicit whole-party group. It is
// never stored as a row; Resolve synthesizes it from the party totals.
const DefaultGroupID = "default"

var (
	ErrGroupNotFound        = errors.New("group not found")
	ErrConfirmationRequired = errors.New("removing a non-empty group requires confirmation")
	ErrSubgroupingDisabled  = errors.New("subgrouping is disabled")
	ErrReservedID           = errors.New("group id is reserved")
	ErrDuplicateID          = errors.New("duplicate group id")
	ErrInvalidParty         = errors.New("invalid party")
	ErrUnknownStrategy      = errors.New("unknown split strategy")
	ErrFrozen               = errors.New("ledger is frozen")
)

// Party is the whole traveling party.
type Party struct {
	Adults       int   `json:"total_adults"`
	Children     int   `json:"total_children"`
	UseSubgroups bool  `json:"use_subgroups"`
	ChildAges    []int `json:"child_ages,omitempty"`
}

// Group is a named subset of the party.
type Group struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Adults        int      `json:"adults"`
	Children      int      `json:"children"`
	ChildAges     []int    `json:"child_ages,omitempty"`
	TravelerNames []string `json:"traveler_names,omitempty"`
}

// Travelers is adults plus children.
func (g Group) Travelers() int {
	return g.Adults + g.Children
}

func (g Group) clone() Group {
	g.ChildAges = slices.Clone(g.ChildAges)
	g.TravelerNames = slices.Clone(g.TravelerNames)
	return g
}

// NewID returns a fresh group id.
func NewID() string {
	return uuid.NewString()
}

// Ledger owns the groups of one composition. It is not safe for concurrent use.
type Ledger struct {
	party  Party
	groups []Group
	newID  func() string
	frozen bool
}

// New creates a Ledger for party.
func New(party Party) *Ledger {
	return &Ledger{party: party, newID: NewID}
}

// Party returns the party totals.
func (l *Ledger) Party() Party {
	return l.party
}

// SetParty replaces the party totals. Disabling subgroups drops stored groups.
func (l *Ledger) SetParty(p Party) error {
	if l.frozen {
		return ErrFrozen
	}
	if p.Adults < 0 || p.Children < 0 {
		return fmt.Errorf("%w: negative traveler count", ErrInvalidParty)
	}
	l.party = p
	if !p.UseSubgroups {
		l.groups = nil
	}
	return nil
}

// SetSubgrouping toggles subgroups. Turning it off collapses everything into
// the sentinel group.
func (l *Ledger) SetSubgrouping(on bool) error {
	p := l.party
	p.UseSubgroups = on
	return l.SetParty(p)
}

// Subgrouping reports whether groups are in use.
func (l *Ledger) Subgrouping() bool {
	return l.party.UseSubgroups
}

// Sentinel returns the synthesized whole-party group.
func (l *Ledger) Sentinel() Group {
	return Group{
		ID:        DefaultGroupID,
		Name:      "All travelers",
		Adults:    l.party.Adults,
		Children:  l.party.Children,
		ChildAges: ChildAges(l.party.Children, l.party.ChildAges),
	}
}

// Groups returns a copy of the current groups, or only the sentinel group
// when subgrouping is off.
func (l *Ledger) Groups() []Group {
	if !l.party.UseSubgroups {
		return []Group{l.Sentinel()}
	}
	out := make([]Group, len(l.groups))
	for i, g := range l.groups {
		out[i] = g.clone()
	}
	return out
}

// IDs returns the ids of Groups().
func (l *Ledger) IDs() []string {
	groups := l.Groups()
	ids := make([]string, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
	}
	return ids
}

// Resolve looks a group up by id. The sentinel id always resolves.
func (l *Ledger) Resolve(id string) (Group, bool) {
	if id == DefaultGroupID {
		return l.Sentinel(), true
	}
	if !l.party.UseSubgroups {
		return Group{}, false
	}
	if i := l.index(id); i >= 0 {
		return l.groups[i].clone(), true
	}
	return Group{}, false
}

// Has reports whether id resolves.
func (l *Ledger) Has(id string) bool {
	_, ok := l.Resolve(id)
	return ok
}

// ApplyPartition replaces the groups with the output of Partition. A single
// sentinel group switches subgrouping off. Group ids must be unique; on error
// the ledger is left unchanged.
func (l *Ledger) ApplyPartition(groups []Group) error {
	if l.frozen {
		return ErrFrozen
	}
	if len(groups) == 1 && groups[0].ID == DefaultGroupID {
		return l.SetSubgrouping(false)
	}

	stored := make([]Group, 0, len(groups))
	seen := make(map[string]bool, len(groups))
	for _, g := range groups {
		if g.ID == DefaultGroupID {
			return fmt.Errorf("%w: %s", ErrReservedID, g.ID)
		}
		if g.ID == "" {
			g.ID = l.newID()
		}
		if seen[g.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateID, g.ID)
		}
		seen[g.ID] = true
		stored = append(stored, g.clone())
	}

	l.party.UseSubgroups = true
	l.groups = stored
	return nil
}

// Split partitions the current party with strategy and applies the result.
func (l *Ledger) Split(strategy Strategy) error {
	groups, err := Partition(l.party.Adults, l.party.Children, l.party.ChildAges, strategy, l.newID)
	if err != nil {
		return err
	}
	return l.ApplyPartition(groups)
}

// AddGroup appends an empty group. It stays invalid until travelers are
// assigned to it.
func (l *Ledger) AddGroup() (Group, error) {
	if err := l.checkEditable(); err != nil {
		return Group{}, err
	}
	g := Group{ID: l.newID(), Name: fmt.Sprintf("Group %d", len(l.groups)+1)}
	l.groups = append(l.groups, g)
	return g.clone(), nil
}

// UpdateGroup applies fn to the group with id. The id cannot be changed.
func (l *Ledger) UpdateGroup(id string, fn func(*Group)) (Group, error) {
	if err := l.checkEditable(); err != nil {
		return Group{}, err
	}
	i := l.index(id)
	if i < 0 {
		return Group{}, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	g := l.groups[i].clone()
	fn(&g)
	g.ID = id
	l.groups[i] = g
	return g.clone(), nil
}

// RemoveGroup deletes a group. Removing a group that still holds travelers
// is destructive; callers must ask the user and pass confirmed=true.
func (l *Ledger) RemoveGroup(id string, confirmed bool) error {
	if err := l.checkEditable(); err != nil {
		return err
	}
	i := l.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	if l.groups[i].Travelers() > 0 && !confirmed {
		return ErrConfirmationRequired
	}
	l.groups = slices.Delete(l.groups, i, i+1)
	return nil
}

// DuplicateGroup inserts a copy of the group right after it.
func (l *Ledger) DuplicateGroup(id string) (Group, error) {
	if err := l.checkEditable(); err != nil {
		return Group{}, err
	}
	i := l.index(id)
	if i < 0 {
		return Group{}, fmt.Errorf("%w: %s", ErrGroupNotFound, id)
	}
	dup := l.groups[i].clone()
	dup.ID = l.newID()
	dup.Name = dup.Name + " (copy)"
	l.groups = slices.Insert(l.groups, i+1, dup)
	return dup.clone(), nil
}

// Freeze makes every further mutation fail with ErrFrozen.
func (l *Ledger) Freeze() {
	l.frozen = true
}

func (l *Ledger) checkEditable() error {
	if l.frozen {
		return ErrFrozen
	}
	if !l.party.UseSubgroups {
		return ErrSubgroupingDisabled
	}
	return nil
}

func (l *Ledger) index(id string) int {
	return slices.IndexFunc(l.groups, func(g Group) bool { return g.ID == id })
}

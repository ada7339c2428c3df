// Package selection stores the offers chosen for each traveler group, one
// registry per service category.
//
// Selections reference groups by id only. The registries never see the
// ledger; callers pass a resolve function wherever group existence matters.
package selection

import (
	"errors"
	"fmt"
	"slices"

	"github.com/alex-user-go/tripquote/internal/offers"
)

// Category is re-exported for callers that only deal with selections.
type Category = offers.Category

var (
	ErrFrozen           = errors.New("selections are frozen")
	ErrDisabled         = errors.New("category is disabled")
	ErrDuplicate        = errors.New("selection already exists")
	ErrNotFound         = errors.New("selection not found")
	ErrCategoryMismatch = errors.New("offer category does not match")
	ErrInvalidQuantity  = errors.New("quantity must be positive")
	ErrMissingKey       = errors.New("selection key is empty")
	ErrInvalidPrice     = errors.New("price must be positive")
	ErrDuplicateBinding = errors.New("group is bound twice")
)

// Item is implemented by every selection type.
type Item[S any] interface {
	// Key is the group id, or the event id for events.
	Key() string
	Clone() S
	// Validate checks the fields that pricing relies on.
	Validate() error
}

// State is the serializable form of a registry.
type State[S any] struct {
	Enabled bool `json:"enabled"`
	Items   []S  `json:"items"`
}

// Registry holds the selections of one category.
type Registry[S Item[S]] struct {
	category Category
	enabled  bool
	frozen   bool
	items    []S
}

// NewRegistry returns a disabled, empty registry.
func NewRegistry[S Item[S]](category Category) *Registry[S] {
	return &Registry[S]{category: category}
}

// Category returns the registry's category.
func (r *Registry[S]) Category() Category {
	return r.category
}

// Enabled reports whether the category is part of the composition.
func (r *Registry[S]) Enabled() bool {
	return r.enabled
}

// SetEnabled toggles the category. Disabling clears every selection and
// re-enabling starts empty.
func (r *Registry[S]) SetEnabled(on bool) error {
	if r.frozen {
		return ErrFrozen
	}
	r.enabled = on
	if !on {
		r.items = nil
	}
	return nil
}

// Add stores a new selection.
func (r *Registry[S]) Add(s S) error {
	if err := r.checkWritable(); err != nil {
		return err
	}
	key := s.Key()
	if key == "" {
		return ErrMissingKey
	}
	if r.index(key) >= 0 {
		return fmt.Errorf("%w: %s %s", ErrDuplicate, r.category, key)
	}
	r.items = append(r.items, s.Clone())
	return nil
}

// Update applies fn to the selection stored under key. A key change is
// allowed only when the new key is free.
func (r *Registry[S]) Update(key string, fn func(*S)) (S, error) {
	var zero S
	if err := r.checkWritable(); err != nil {
		return zero, err
	}
	i := r.index(key)
	if i < 0 {
		return zero, fmt.Errorf("%w: %s %s", ErrNotFound, r.category, key)
	}

	s := r.items[i].Clone()
	fn(&s)

	if newKey := s.Key(); newKey != key {
		if newKey == "" {
			return zero, ErrMissingKey
		}
		if r.index(newKey) >= 0 {
			return zero, fmt.Errorf("%w: %s %s", ErrDuplicate, r.category, newKey)
		}
	}

	r.items[i] = s
	return s.Clone(), nil
}

// Remove deletes the selection stored under key.
func (r *Registry[S]) Remove(key string) error {
	if err := r.checkWritable(); err != nil {
		return err
	}
	i := r.index(key)
	if i < 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, r.category, key)
	}
	r.items = slices.Delete(r.items, i, i+1)
	return nil
}

// Get returns a copy of the selection stored under key.
func (r *Registry[S]) Get(key string) (S, bool) {
	if i := r.index(key); i >= 0 {
		return r.items[i].Clone(), true
	}
	var zero S
	return zero, false
}

// List returns copies of all selections in insertion order.
func (r *Registry[S]) List() []S {
	out := make([]S, len(r.items))
	for i, s := range r.items {
		out[i] = s.Clone()
	}
	return out
}

// Len is the number of selections.
func (r *Registry[S]) Len() int {
	return len(r.items)
}

// State returns a serializable copy of the registry.
func (r *Registry[S]) State() State[S] {
	return State[S]{Enabled: r.enabled, Items: r.List()}
}

// Load replaces the registry content with st. Every item must pass
// Validate; on error the registry is left unchanged.
func (r *Registry[S]) Load(st State[S]) error {
	if r.frozen {
		return ErrFrozen
	}
	if !st.Enabled && len(st.Items) > 0 {
		return fmt.Errorf("%w: %s has %d selections", ErrDisabled, r.category, len(st.Items))
	}

	loaded := NewRegistry[S](r.category)
	loaded.enabled = st.Enabled
	for _, s := range st.Items {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("%s %s: %w", r.category, s.Key(), err)
		}
		if err := loaded.Add(s); err != nil {
			return err
		}
	}

	r.enabled = loaded.enabled
	r.items = loaded.items
	return nil
}

func (r *Registry[S]) freeze() {
	r.frozen = true
}

func (r *Registry[S]) checkWritable() error {
	if r.frozen {
		return ErrFrozen
	}
	if !r.enabled {
		return fmt.Errorf("%w: %s", ErrDisabled, r.category)
	}
	return nil
}

func (r *Registry[S]) index(key string) int {
	return slices.IndexFunc(r.items, func(s S) bool { return s.Key() == key })
}

package optimistic

import "slices"

// Identifiable is an entity with a unique identifier.
type Identifiable[K comparable] interface {
	EntityID() K
}

// Patch produces an updated copy of an entity. Implementations merge only the
// fields they carry.
type Patch[E any] interface {
	Apply(E) E
}

// PatchFunc adapts a function to Patch.
type PatchFunc[E any] func(E) E

// Apply calls f(e).
func (f PatchFunc[E]) Apply(e E) E {
	return f(e)
}

// List is an optimistic ordered collection of entities.
//
// Every operation derives the next snapshot from the current visible slice
// and issues it as one mutation, so two calls made back to back compose: the
// second observes the first's speculative snapshot. Snapshots never share a
// backing array with the slice they were derived from.
type List[K comparable, E Identifiable[K]] struct {
	store *Store[[]E]
}

// NewList creates a List over a copy of initial.
func NewList[K comparable, E Identifiable[K]](initial []E, confirm ConfirmFunc[[]E]) *List[K, E] {
	return &List[K, E]{
		store: New(slices.Clone(initial), confirm),
	}
}

// Store returns the underlying store for options, state and subscriptions.
func (l *List[K, E]) Store() *Store[[]E] {
	return l.store
}

// Items returns a copy of the visible entities.
func (l *List[K, E]) Items() []E {
	return slices.Clone(l.store.Data())
}

// Len returns the number of visible entities.
func (l *List[K, E]) Len() int {
	return len(l.store.Data())
}

// Find returns the visible entity with the given id.
func (l *List[K, E]) Find(id K) (E, bool) {
	for _, e := range l.store.Data() {
		if e.EntityID() == id {
			return e, true
		}
	}
	var zero E
	return zero, false
}

// Add appends item. Duplicate ids are not rejected.
func (l *List[K, E]) Add(item E) *Mutation[[]E] {
	return l.store.MutateFunc(func(current []E) []E {
		next := make([]E, 0, len(current)+1)
		next = append(next, current...)
		return append(next, item)
	})
}

// Update replaces the entity matching id with patch applied to it. When no
// entity matches, an unchanged snapshot is still issued.
func (l *List[K, E]) Update(id K, patch Patch[E]) *Mutation[[]E] {
	return l.store.MutateFunc(func(current []E) []E {
		next := make([]E, len(current))
		for i, e := range current {
			if e.EntityID() == id {
				next[i] = patch.Apply(e)
				continue
			}
			next[i] = e
		}
		return next
	})
}

// Remove drops the entity matching id, keeping the order of the rest. When
// no entity matches, an unchanged snapshot is still issued.
func (l *List[K, E]) Remove(id K) *Mutation[[]E] {
	return l.store.MutateFunc(func(current []E) []E {
		next := make([]E, 0, len(current))
		for _, e := range current {
			if e.EntityID() != id {
				next = append(next, e)
			}
		}
		return next
	})
}

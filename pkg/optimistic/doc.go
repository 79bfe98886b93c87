// Package optimistic applies user mutations to visible state immediately while
// an asynchronous confirmation runs in the background.
//
// A Store holds one value. Mutate makes the new value visible before it
// returns, then hands it to the store's ConfirmFunc on a separate goroutine.
// When the confirmation settles the store reconciles:
//
//   - success: the confirmed result becomes the visible value
//   - failure: the value from before the mutation is restored and the error
//     is kept until ResetError or the next Mutate
//
// # Fencing
//
// Every Mutate allocates the next sequence number. A settlement is accepted
// only if its sequence is still the store's current sequence; otherwise a
// newer mutation owns the outcome and the settlement is discarded without
// touching state or invoking callbacks. This works for any depth of overlap:
//
//	s.Mutate(a) // seq 1
//	s.Mutate(b) // seq 2
//	// b fails   -> rolled back to the value before a
//	// a settles -> discarded, nothing changes
//
// By default the rollback target is the last value nothing was pending on,
// so a failure undoes the whole overlapping chain. RollbackToPrevious instead
// restores the value visible when the failing mutation was issued, which may
// itself be unconfirmed.
//
// # Collections
//
// List wraps a Store of a slice of entities and derives Add, Update and Remove
// snapshots from the current visible value:
//
//	leads := optimistic.NewList[string](crm.SeedLeads(), confirm)
//	leads.Update("L001", crm.LeadPatch{Status: &qualified})
//	leads.Remove("L002") // observes the update above
//
// # Callbacks
//
// OnSuccess and OnError fire exactly once per accepted settlement, after the
// state change is applied and outside the store lock. Subscribe delivers a
// State snapshot on every change and is intended for re-rendering.
package optimistic

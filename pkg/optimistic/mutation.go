package optimistic

import (
	"context"
	"time"
)

// Outcome describes how a mutation settled.
type Outcome int

const (
	InFlight   Outcome = iota // Confirmation still running
	Committed                 // Confirmed and applied
	RolledBack                // Confirmation failed, previous value restored
	Discarded                 // Superseded by a newer mutation, state untouched
)

func (o Outcome) String() string {
	switch o {
	case InFlight:
		return "in_flight"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled_back"
	case Discarded:
		return "discarded"
	default:
		return "unknown"
	}
}

// Mutation is the handle of one Mutate call. It can be ignored; it exists so
// callers that care can wait for the settlement.
type Mutation[T any] struct {
	seq  uint64
	done chan struct{}

	// Written once before done is closed.
	outcome Outcome
	result  T
	err     error
}

func newMutation[T any](seq uint64) *Mutation[T] {
	return &Mutation[T]{seq: seq, done: make(chan struct{})}
}

func (m *Mutation[T]) finish(outcome Outcome, result T, err error) {
	m.outcome = outcome
	m.result = result
	m.err = err
	close(m.done)
}

// Seq returns the sequence number allocated to this mutation.
func (m *Mutation[T]) Seq() uint64 {
	return m.seq
}

// Done is closed once the confirmation has settled and the store has
// reconciled (or discarded) it.
func (m *Mutation[T]) Done() <-chan struct{} {
	return m.done
}

// Outcome returns InFlight until Done is closed.
func (m *Mutation[T]) Outcome() Outcome {
	select {
	case <-m.done:
		return m.outcome
	default:
		return InFlight
	}
}

// Result returns the value the confirmation returned. It is only meaningful
// after Done is closed.
func (m *Mutation[T]) Result() T {
	<-m.done
	return m.result
}

// Err returns the confirmation error, including for discarded mutations.
// It is nil before Done is closed.
func (m *Mutation[T]) Err() error {
	select {
	case <-m.done:
		return m.err
	default:
		return nil
	}
}

// Wait blocks until the mutation settles or ctx is done.
func (m *Mutation[T]) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-m.done:
		return m.outcome, m.err
	case <-ctx.Done():
		return InFlight, ctx.Err()
	}
}

// Observer receives mutation lifecycle events for metrics.
type Observer interface {
	MutationIssued(store string)
	MutationSettled(store string, outcome Outcome, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) MutationIssued(string)                          {}
func (nopObserver) MutationSettled(string, Outcome, time.Duration) {}

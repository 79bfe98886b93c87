package console

import (
	"context"

	"github.com/vango-dev/sellerconsole/pkg/optimistic"
)

// Ticket tracks one issued mutation independently of the collection's
// element type.
type Ticket struct {
	Collection Collection `json:"collection"`
	Seq        uint64     `json:"sequence"`

	done    <-chan struct{}
	outcome func() optimistic.Outcome
}

func ticketOf[T any](coll Collection, m *optimistic.Mutation[T]) Ticket {
	return Ticket{
		Collection: coll,
		Seq:        m.Seq(),
		done:       m.Done(),
		outcome:    m.Outcome,
	}
}

// Done is closed once the mutation has settled.
func (t Ticket) Done() <-chan struct{} {
	return t.done
}

// Outcome reports how the mutation settled so far.
func (t Ticket) Outcome() optimistic.Outcome {
	if t.outcome == nil {
		return optimistic.InFlight
	}
	return t.outcome()
}

// Wait blocks until the mutation settles or ctx is done.
func (t Ticket) Wait(ctx context.Context) (optimistic.Outcome, error) {
	select {
	case <-t.done:
		return t.Outcome(), nil
	case <-ctx.Done():
		return optimistic.InFlight, ctx.Err()
	}
}

package optimistic

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Options apply to mutations issued after the call; in-flight confirmations
// keep the options they were issued with.

// Named sets the name used in logs, traces and metrics.
func (s *Store[T]) Named(name string) *Store[T] {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
	return s
}

// Context sets the parent context handed to confirmations.
func (s *Store[T]) Context(ctx context.Context) *Store[T] {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	return s
}

// Timeout bounds each confirmation. Zero, the default, means no timeout: a
// confirmation that never returns leaves the store pending until a newer
// mutation supersedes it.
func (s *Store[T]) Timeout(d time.Duration) *Store[T] {
	s.mu.Lock()
	s.timeout = d
	s.mu.Unlock()
	return s
}

// RollbackPolicy selects the value a failed confirmation restores.
type RollbackPolicy int

const (
	// RollbackToSettled restores the value visible before the oldest mutation
	// of the current overlapping chain, discarding every speculative change
	// issued while earlier ones were still pending.
	RollbackToSettled RollbackPolicy = iota

	// RollbackToPrevious restores the value visible when the failed mutation
	// was issued, which may include an earlier unconfirmed mutation.
	RollbackToPrevious
)

func (p RollbackPolicy) String() string {
	switch p {
	case RollbackToPrevious:
		return "previous"
	case RollbackToSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Rollback sets the rollback policy. The default is RollbackToSettled.
func (s *Store[T]) Rollback(p RollbackPolicy) *Store[T] {
	s.mu.Lock()
	s.rollback = p
	s.mu.Unlock()
	return s
}

// OnSuccess registers a callback for accepted successful confirmations.
func (s *Store[T]) OnSuccess(fn func(T)) *Store[T] {
	s.mu.Lock()
	s.onSuccess = fn
	s.mu.Unlock()
	return s
}

// OnError registers a callback for accepted failed confirmations.
func (s *Store[T]) OnError(fn func(error)) *Store[T] {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
	return s
}

// OnDiscard registers a callback for settlements ignored because a newer
// mutation was issued. It receives the stale sequence number.
func (s *Store[T]) OnDiscard(fn func(seq uint64)) *Store[T] {
	s.mu.Lock()
	s.onDiscard = fn
	s.mu.Unlock()
	return s
}

// Logger sets the structured logger.
func (s *Store[T]) Logger(l *slog.Logger) *Store[T] {
	if l == nil {
		return s
	}
	s.mu.Lock()
	s.logger = l
	s.mu.Unlock()
	return s
}

// Tracer sets the tracer used for confirmation spans.
func (s *Store[T]) Tracer(t trace.Tracer) *Store[T] {
	if t == nil {
		return s
	}
	s.mu.Lock()
	s.tracer = t
	s.mu.Unlock()
	return s
}

// Observer sets the metrics observer.
func (s *Store[T]) Observer(o Observer) *Store[T] {
	if o == nil {
		o = nopObserver{}
	}
	s.mu.Lock()
	s.observer = o
	s.mu.Unlock()
	return s
}

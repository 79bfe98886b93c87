package optimistic

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/sellerconsole/pkg/optimistic"

// ErrConfirmPanic is reported when a ConfirmFunc panics.
var ErrConfirmPanic = errors.New("optimistic: confirmation panicked")

// ConfirmFunc confirms a speculative value and returns the value to commit.
// It may block for an arbitrary time; ctx is cancelled only when the store
// has a Timeout configured.
type ConfirmFunc[T any] func(ctx context.Context, value T) (T, error)

// State is a point-in-time snapshot of a Store.
type State[T any] struct {
	Data      T
	IsPending bool
	Error     error
	Sequence  uint64
}

// Store manages one optimistically updated value.
// It is safe for concurrent use; every visible state transition happens
// under a single lock.
type Store[T any] struct {
	confirm ConfirmFunc[T]

	mu      sync.Mutex
	data    T
	pending bool
	err     error
	seq     uint64

	// base is the rollback target of the outstanding mutation chain, used by
	// RollbackToSettled.
	base T

	// Options
	name      string
	ctx       context.Context
	timeout   time.Duration
	rollback  RollbackPolicy
	onSuccess func(T)
	onError   func(error)
	onDiscard func(uint64)
	logger    *slog.Logger
	tracer    trace.Tracer
	observer  Observer

	subs subscribers[T]
}

// New creates a Store holding initial and confirming mutations with confirm.
func New[T any](initial T, confirm ConfirmFunc[T]) *Store[T] {
	return &Store[T]{
		confirm:  confirm,
		data:     initial,
		name:     "default",
		ctx:      context.Background(),
		logger:   slog.Default().With("component", "optimistic"),
		tracer:   otel.Tracer(tracerName),
		observer: nopObserver{},
	}
}

// Mutate makes value visible immediately and starts its confirmation.
// Failures never surface here; they are reported through the store state
// and the OnError callback.
func (s *Store[T]) Mutate(value T) *Mutation[T] {
	return s.MutateFunc(func(T) T { return value })
}

// MutateFunc computes the next value from the current visible value and
// applies it like Mutate. fn runs under the store lock and must not call
// back into the store.
func (s *Store[T]) MutateFunc(fn func(current T) T) *Mutation[T] {
	s.mu.Lock()
	previous := s.data
	if s.rollback == RollbackToSettled && s.pending {
		previous = s.base
	}
	s.base = previous
	next := fn(s.data)
	s.seq++
	m := newMutation[T](s.seq)
	s.data = next
	s.pending = true
	s.err = nil
	cfg := s.settleConfigLocked()
	s.mu.Unlock()

	cfg.observer.MutationIssued(cfg.name)
	s.subs.notify(s.Snapshot)

	go s.run(cfg, m, previous, next)
	return m
}

// ResetError clears the last confirmation error. Data and pending status are
// left untouched.
func (s *Store[T]) ResetError() {
	s.mu.Lock()
	if s.err == nil {
		s.mu.Unlock()
		return
	}
	s.err = nil
	s.mu.Unlock()
	s.subs.notify(s.Snapshot)
}

// SetValue replaces the visible value without confirmation. The sequence,
// pending status and error are left untouched, so an in-flight mutation that
// later fails still rolls back to the value captured when it was issued.
func (s *Store[T]) SetValue(value T) {
	s.mu.Lock()
	s.data = value
	s.mu.Unlock()
	s.subs.notify(s.Snapshot)
}

// Snapshot returns the current state.
func (s *Store[T]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State[T]{
		Data:      s.data,
		IsPending: s.pending,
		Error:     s.err,
		Sequence:  s.seq,
	}
}

// Data returns the visible value.
func (s *Store[T]) Data() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// IsPending reports whether the latest mutation is still unconfirmed.
func (s *Store[T]) IsPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Err returns the error of the last accepted failed confirmation.
func (s *Store[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Sequence returns the sequence number of the latest mutation.
func (s *Store[T]) Sequence() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Name returns the store name used in logs, traces and metrics.
func (s *Store[T]) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that caused the change and must not mutate the
// store synchronously. The returned function removes the subscription.
func (s *Store[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	return s.subs.add(fn)
}

// settleConfig is the option set captured when a mutation is issued, so that
// option changes never race with in-flight confirmations.
type settleConfig[T any] struct {
	name      string
	ctx       context.Context
	timeout   time.Duration
	onSuccess func(T)
	onError   func(error)
	onDiscard func(uint64)
	logger    *slog.Logger
	tracer    trace.Tracer
	observer  Observer
}

func (s *Store[T]) settleConfigLocked() settleConfig[T] {
	return settleConfig[T]{
		name:      s.name,
		ctx:       s.ctx,
		timeout:   s.timeout,
		onSuccess: s.onSuccess,
		onError:   s.onError,
		onDiscard: s.onDiscard,
		logger:    s.logger,
		tracer:    s.tracer,
		observer:  s.observer,
	}
}

// run confirms next and reconciles the store with the settlement.
func (s *Store[T]) run(cfg settleConfig[T], m *Mutation[T], previous, next T) {
	ctx := cfg.ctx
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}
	ctx, span := cfg.tracer.Start(ctx, "optimistic.confirm", trace.WithAttributes(
		attribute.String("optimistic.store", cfg.name),
		attribute.Int64("optimistic.sequence", int64(m.seq)),
	))
	defer span.End()

	start := time.Now()
	result, err := s.callConfirm(ctx, next)
	elapsed := time.Since(start)

	s.mu.Lock()
	if s.seq != m.seq {
		current := s.seq
		s.mu.Unlock()

		cfg.logger.Debug("discarded stale settlement",
			"store", cfg.name, "seq", m.seq, "current", current, "error", err)
		span.SetAttributes(attribute.String("optimistic.outcome", Discarded.String()))
		cfg.observer.MutationSettled(cfg.name, Discarded, elapsed)
		if cfg.onDiscard != nil {
			cfg.onDiscard(m.seq)
		}
		m.finish(Discarded, result, err)
		return
	}

	if err != nil {
		s.data = previous
		s.pending = false
		s.err = err
		s.mu.Unlock()

		cfg.logger.Warn("confirmation failed, rolled back",
			"store", cfg.name, "seq", m.seq, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("optimistic.outcome", RolledBack.String()))
		cfg.observer.MutationSettled(cfg.name, RolledBack, elapsed)
		s.subs.notify(s.Snapshot)
		if cfg.onError != nil {
			cfg.onError(err)
		}
		m.finish(RolledBack, result, err)
		return
	}

	s.data = result
	s.pending = false
	s.err = nil
	s.mu.Unlock()

	cfg.logger.Debug("confirmation committed", "store", cfg.name, "seq", m.seq)
	span.SetAttributes(attribute.String("optimistic.outcome", Committed.String()))
	cfg.observer.MutationSettled(cfg.name, Committed, elapsed)
	s.subs.notify(s.Snapshot)
	if cfg.onSuccess != nil {
		cfg.onSuccess(result)
	}
	m.finish(Committed, result, nil)
}

// callConfirm invokes the confirmation function, turning a panic into an error.
func (s *Store[T]) callConfirm(ctx context.Context, value T) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = fmt.Errorf("%w: %v\n%s", ErrConfirmPanic, r, debug.Stack())
		}
	}()
	return s.confirm(ctx, value)
}

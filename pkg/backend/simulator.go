// Package backend provides the stand-in confirmation service used by the
// seller console. It adds random latency to every call and can fail a share
// of calls to exercise rollback paths.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-dev/sellerconsole/pkg/optimistic"
)

// ErrNetwork is returned for simulated failures.
var ErrNetwork = errors.New("simulated API failure - network error")

const (
	// DefaultFailureRate is the failure probability when failures are enabled.
	DefaultFailureRate = 0.3

	// DefaultMinLatency is the lower bound of the simulated latency.
	DefaultMinLatency = 1000 * time.Millisecond

	// DefaultMaxLatency is the upper bound of the simulated latency.
	DefaultMaxLatency = 2000 * time.Millisecond
)

// Config configures a Simulator.
type Config struct {
	// SimulateFailure enables random failures.
	SimulateFailure bool `json:"simulateFailure"`

	// FailureRate is the probability in [0,1] that a call fails when
	// SimulateFailure is set. Each call is drawn independently.
	FailureRate float64 `json:"failureRate"`

	// MinLatency and MaxLatency bound the uniformly distributed delay.
	MinLatency time.Duration `json:"-"`
	MaxLatency time.Duration `json:"-"`
}

// DefaultConfig returns the reference configuration: no failures, 30%
// failure rate once enabled, 1-2s latency.
func DefaultConfig() Config {
	return Config{
		SimulateFailure: false,
		FailureRate:     DefaultFailureRate,
		MinLatency:      DefaultMinLatency,
		MaxLatency:      DefaultMaxLatency,
	}
}

// Validate checks ranges.
func (c Config) Validate() error {
	if c.FailureRate < 0 || c.FailureRate > 1 {
		return fmt.Errorf("backend: failure rate %v outside [0,1]", c.FailureRate)
	}
	if c.MinLatency < 0 || c.MaxLatency < 0 {
		return fmt.Errorf("backend: negative latency")
	}
	if c.MaxLatency < c.MinLatency {
		return fmt.Errorf("backend: max latency %s below min latency %s", c.MaxLatency, c.MinLatency)
	}
	return nil
}

// Stats counts simulator calls.
type Stats struct {
	Calls     int64
	Failures  int64
	Cancelled int64
}

// Simulator is an in-process confirmation service with injected latency and
// failures. It is safe for concurrent use.
type Simulator struct {
	cfg    Config
	logger *slog.Logger

	mu  sync.Mutex
	rnd *rand.Rand

	calls     atomic.Int64
	failures  atomic.Int64
	cancelled atomic.Int64
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithSeed makes latency and failure draws deterministic.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) {
		s.rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewSimulator creates a Simulator after validating cfg.
func NewSimulator(cfg Config, opts ...Option) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		cfg:    cfg,
		logger: slog.Default().With("component", "backend"),
		rnd:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the simulator configuration.
func (s *Simulator) Config() Config {
	return s.cfg
}

// Stats returns call counters.
func (s *Simulator) Stats() Stats {
	return Stats{
		Calls:     s.calls.Load(),
		Failures:  s.failures.Load(),
		Cancelled: s.cancelled.Load(),
	}
}

// draw returns the latency and failure decision for one call.
func (s *Simulator) draw() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	latency := s.cfg.MinLatency
	if spread := s.cfg.MaxLatency - s.cfg.MinLatency; spread > 0 {
		latency += time.Duration(s.rnd.Int64N(int64(spread) + 1))
	}
	fail := s.cfg.SimulateFailure && s.rnd.Float64() < s.cfg.FailureRate
	return latency, fail
}

// Wait sleeps for one simulated round trip and reports whether the call
// fails. It returns ctx.Err() if ctx ends first.
func (s *Simulator) Wait(ctx context.Context) error {
	s.calls.Add(1)
	latency, fail := s.draw()

	if latency > 0 {
		timer := time.NewTimer(latency)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			s.cancelled.Add(1)
			return ctx.Err()
		}
	}

	if fail {
		s.failures.Add(1)
		s.logger.Debug("simulated failure", "latency", latency)
		return ErrNetwork
	}
	s.logger.Debug("simulated success", "latency", latency)
	return nil
}

// Confirm adapts a Simulator to an optimistic.ConfirmFunc that echoes the
// submitted value on success.
func Confirm[T any](s *Simulator) optimistic.ConfirmFunc[T] {
	return func(ctx context.Context, value T) (T, error) {
		if err := s.Wait(ctx); err != nil {
			var zero T
			return zero, err
		}
		return value, nil
	}
}

// Package metrics exports the console's Prometheus metrics: the optimistic
// mutation lifecycle, HTTP requests and websocket clients.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/sellerconsole/pkg/optimistic"
)

// Config configures the metrics.
type Config struct {
	// Namespace is the metrics namespace (default: "sellerconsole").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the metrics.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "sellerconsole",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the console's collectors. It implements optimistic.Observer.
type Metrics struct {
	mutationsTotal   *prometheus.CounterVec
	settlementsTotal *prometheus.CounterVec
	confirmDuration  *prometheus.HistogramVec
	inflight         *prometheus.GaugeVec

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	wsClients prometheus.Gauge
	wsErrors  *prometheus.CounterVec
}

var _ optimistic.Observer = (*Metrics)(nil)

// New registers the console metrics.
func New(opts ...Option) *Metrics {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		mutationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mutations_total",
			Help:        "Total number of optimistic mutations issued",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		settlementsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "settlements_total",
			Help:        "Total number of settled confirmations by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"store", "outcome"}),

		confirmDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "confirm_duration_seconds",
			Help:        "Backend confirmation duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"store"}),

		inflight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "inflight_confirmations",
			Help:        "Number of confirmations not yet settled",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests by route and status",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "route", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method", "route"}),

		wsClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_clients",
			Help:        "Number of connected websocket clients",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total websocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// MutationIssued implements optimistic.Observer.
func (m *Metrics) MutationIssued(store string) {
	m.mutationsTotal.WithLabelValues(store).Inc()
	m.inflight.WithLabelValues(store).Inc()
}

// MutationSettled implements optimistic.Observer.
func (m *Metrics) MutationSettled(store string, outcome optimistic.Outcome, elapsed time.Duration) {
	m.settlementsTotal.WithLabelValues(store, outcome.String()).Inc()
	m.confirmDuration.WithLabelValues(store).Observe(elapsed.Seconds())
	m.inflight.WithLabelValues(store).Dec()
}

// ClientConnected records a websocket client joining.
func (m *Metrics) ClientConnected() {
	m.wsClients.Inc()
}

// ClientDisconnected records a websocket client leaving.
func (m *Metrics) ClientDisconnected() {
	m.wsClients.Dec()
}

// WebSocketError records a websocket error of the given type, e.g. "write".
func (m *Metrics) WebSocketError(errorType string) {
	m.wsErrors.WithLabelValues(errorType).Inc()
}

// Middleware records request counts and durations labelled by chi route
// pattern, which keeps label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// Package server exposes the seller console over HTTP: a JSON API for the
// console operations, a websocket that pushes state and toasts, health and
// Prometheus endpoints.
package server

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/sellerconsole/internal/console"
	"github.com/vango-dev/sellerconsole/internal/errors"
	"github.com/vango-dev/sellerconsole/internal/metrics"
)

const tracerName = "github.com/vango-dev/sellerconsole/internal/server"

// Config configures a Server.
type Config struct {
	// Address is the listen address, e.g. "localhost:3000".
	Address string

	// ShutdownTimeout bounds graceful shutdown. Default: 10 seconds.
	ShutdownTimeout time.Duration

	// ReadHeaderTimeout bounds reading request headers. Default: 10 seconds.
	ReadHeaderTimeout time.Duration

	// Gatherer serves /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer

	// Metrics records HTTP metrics when set.
	Metrics *metrics.Metrics

	Logger *slog.Logger
	Tracer trace.Tracer
}

// Server serves one console.
type Server struct {
	config  Config
	console *console.Console
	hub     *Hub
	router  chi.Router
	logger  *slog.Logger
	tracer  trace.Tracer

	httpServer  *http.Server
	unsubscribe func()
}

// New wires the console and hub behind a chi router. The hub should be the
// console's toast emitter.
func New(config Config, c *console.Console, hub *Hub) *Server {
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}
	if config.ReadHeaderTimeout == 0 {
		config.ReadHeaderTimeout = 10 * time.Second
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default().With("component", "server")
	}
	tracer := config.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	s := &Server{
		config:  config,
		console: c,
		hub:     hub,
		logger:  logger,
		tracer:  tracer,
	}

	hub.OnConnect(s.stateFrame)
	hub.OnAction(s.handleAction)
	s.unsubscribe = c.Subscribe(func() { hub.Broadcast(s.stateFrame()) })

	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(tracing(s.tracer))
	if s.config.Metrics != nil {
		r.Use(s.config.Metrics.Middleware)
	}

	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.hub.ServeHTTP)
	if s.config.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/selection", s.handleSelection)
		r.Delete("/selection", s.handleClearSelection)

		r.Get("/leads", s.handleListLeads)
		r.Patch("/leads/{id}", s.handleUpdateLead)
		r.Post("/leads/{id}/select", s.handleSelectLead)
		r.Post("/leads/{id}/convert", s.handleConvertLead)

		r.Get("/opportunities", s.handleListOpportunities)

		r.Post("/{collection}/retry", s.handleRetry)
		r.Delete("/{collection}/error", s.handleDismiss)
	})
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.config.Address,
		Handler:           s.router,
		ReadHeaderTimeout: s.config.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.New(errors.CodeServerFailed).WithDetail(err.Error()).Wrap(err)

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown disconnects websocket clients and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.unsubscribe()
	s.hub.Close()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// handleAction runs toast actions sent over the websocket.
func (s *Server) handleAction(clientID, action string) {
	name, ok := strings.CutPrefix(action, "retry:")
	if !ok {
		s.logger.Debug("unknown client action", "client", clientID, "action", action)
		return
	}
	coll, err := console.ParseCollection(name)
	if err == nil {
		_, err = s.console.Retry(coll)
	}
	if err != nil {
		s.logger.Info("client retry rejected", "client", clientID, "action", action, "error", err)
	}
}

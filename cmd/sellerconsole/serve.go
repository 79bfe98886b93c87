package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/sellerconsole/internal/config"
	"github.com/vango-dev/sellerconsole/internal/console"
	"github.com/vango-dev/sellerconsole/internal/crm"
	"github.com/vango-dev/sellerconsole/internal/errors"
	"github.com/vango-dev/sellerconsole/internal/metrics"
	"github.com/vango-dev/sellerconsole/internal/server"
	"github.com/vango-dev/sellerconsole/pkg/backend"
)

type serveFlags struct {
	host            string
	port            int
	simulateFailure bool
	lang            string
	rollback        string
}

func serveCmd() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the console server",
		Long: `Start the seller console HTTP server.

The server exposes the JSON API under /api, pushes state and toasts to
browsers over /ws, and serves Prometheus metrics on /metrics.

Examples:
  sellerconsole serve
  sellerconsole serve --port=8080 --simulate-failure
  sellerconsole serve --lang=pt-BR --rollback=settled`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cmd, cfg)
		},
	}

	cmd.Flags().StringVarP(&f.host, "host", "H", "", "Host to bind to (default from sellerconsole.json)")
	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "Port to listen on (default from sellerconsole.json)")
	cmd.Flags().BoolVar(&f.simulateFailure, "simulate-failure", false, "Fail a share of backend confirmations")
	cmd.Flags().StringVar(&f.lang, "lang", "", "Toast language, e.g. en or pt-BR")
	cmd.Flags().StringVar(&f.rollback, "rollback", "", "Rollback target: previous or settled")
	return cmd
}

// apply overrides cfg with the flags the user set.
func (f serveFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Server.Host = f.host
	}
	if flags.Changed("port") {
		if f.port <= 0 || f.port > 65535 {
			return badFlag("port", "%d is out of range", f.port)
		}
		cfg.Server.Port = f.port
	}
	if flags.Changed("simulate-failure") {
		cfg.Backend.SimulateFailure = f.simulateFailure
	}
	if flags.Changed("lang") {
		cfg.Language = f.lang
	}
	if flags.Changed("rollback") {
		cfg.Rollback = f.rollback
	}
	return nil
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	logger := cfg.Logger(cmd.ErrOrStderr())
	slog.SetDefault(logger)
	out := cmd.OutOrStdout()

	bc, err := cfg.BackendConfig()
	if err != nil {
		return errors.New(errors.CodeConfigValue).WithDetail(err.Error()).Wrap(err)
	}
	simOpts := []backend.Option{backend.WithLogger(logger.With("component", "backend"))}
	if cfg.Backend.Seed != 0 {
		simOpts = append(simOpts, backend.WithSeed(cfg.Backend.Seed))
	}
	sim, err := backend.NewSimulator(bc, simOpts...)
	if err != nil {
		return errors.FromError(err, errors.CodeConfigValue)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(
		metrics.WithRegistry(reg),
		metrics.WithNamespace(cfg.Metrics.Namespace),
	)

	hub := server.NewHub(server.HubOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Metrics:        m,
		Logger:         logger.With("component", "hub"),
	})

	c := console.New(crm.SeedLeads(), console.Simulated(sim), console.Options{
		Emitter:  hub,
		Language: cfg.LanguageTag(),
		Timeout:  cfg.ConfirmTimeoutDuration(),
		Rollback: cfg.RollbackPolicy(),
		Observer: m,
		Context:  ctx,
		Logger:   logger.With("component", "console"),
	})

	srvCfg := server.Config{
		Address:         cfg.Address(),
		ShutdownTimeout: cfg.ShutdownTimeoutDuration(),
		Metrics:         m,
		Logger:          logger.With("component", "server"),
	}
	if cfg.MetricsEnabled() {
		srvCfg.Gatherer = reg
	}
	srv := server.New(srvCfg, c, hub)

	printBanner(out)
	success(out, "Listening on %s", cfg.URL())
	if p := cfg.Path(); p != "" {
		info(out, "Config:    %s", p)
	}
	info(out, "Language:  %s", cfg.LanguageTag())
	info(out, "Rollback:  %s", cfg.RollbackPolicy())
	if bc.SimulateFailure {
		warn(out, "Simulating backend failures (%.0f%% of calls)", bc.FailureRate*100)
	}

	return srv.Run(ctx)
}

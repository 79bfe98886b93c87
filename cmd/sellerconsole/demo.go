package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/sellerconsole/internal/console"
	"github.com/vango-dev/sellerconsole/internal/crm"
	"github.com/vango-dev/sellerconsole/internal/errors"
	"github.com/vango-dev/sellerconsole/internal/i18n"
	"github.com/vango-dev/sellerconsole/pkg/backend"
	"github.com/vango-dev/sellerconsole/pkg/toast"
)

type demoFlags struct {
	failureRate float64
	seed        uint64
	latency     time.Duration
	lang        string
}

func demoCmd() *cobra.Command {
	var f demoFlags

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a scripted console session",
		Long: `Run a scripted session against the simulated backend and print every
state change and toast.

The script edits a lead twice without waiting, converts another lead
into an opportunity and retries whatever failed.

Examples:
  sellerconsole demo
  sellerconsole demo --failure-rate=0.5 --seed=7
  sellerconsole demo --lang=pt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.failureRate < 0 || f.failureRate > 1 {
				return badFlag("failure-rate", "%v is not in [0,1]", f.failureRate)
			}
			if f.latency <= 0 {
				return badFlag("latency", "must be positive")
			}
			return runDemo(cmd.Context(), cmd.OutOrStdout(), f)
		},
	}

	cmd.Flags().Float64Var(&f.failureRate, "failure-rate", 0, "Share of confirmations that fail")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "Simulator seed")
	cmd.Flags().DurationVar(&f.latency, "latency", 200*time.Millisecond, "Maximum simulated latency")
	cmd.Flags().StringVar(&f.lang, "lang", "en", "Toast language")
	return cmd
}

// transcript serializes output from the goroutines that settle mutations.
type transcript struct {
	mu sync.Mutex
	w  io.Writer
}

func (t *transcript) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format, args...)
}

func (t *transcript) Emit(event string, payload any) {
	if tst, ok := payload.(toast.Toast); ok {
		line := fmt.Sprintf("  [toast %s] %s", tst.Level, tst.Message)
		if tst.ActionLabel != "" {
			line += fmt.Sprintf(" (%s)", tst.ActionLabel)
		}
		t.printf("%s\n", line)
	}
}

func runDemo(ctx context.Context, w io.Writer, f demoFlags) error {
	bc := backend.DefaultConfig()
	bc.SimulateFailure = f.failureRate > 0
	bc.FailureRate = f.failureRate
	bc.MinLatency = f.latency / 4
	bc.MaxLatency = f.latency
	sim, err := backend.NewSimulator(bc, backend.WithSeed(f.seed))
	if err != nil {
		return err
	}

	out := &transcript{w: w}
	c := console.New(crm.SeedLeads(), console.Simulated(sim), console.Options{
		Emitter:  out,
		Language: i18n.Match(f.lang),
		Context:  ctx,
	})
	unsubscribe := c.Subscribe(func() {
		leads, opps := c.LeadsState(), c.OpportunitiesState()
		out.printf("  leads seq=%d pending=%v  opportunities seq=%d pending=%v\n",
			leads.Sequence, leads.IsPending, opps.Sequence, opps.IsPending)
	})
	defer unsubscribe()

	printBanner(w)
	out.printf("Leads:\n")
	for _, l := range c.Leads(crm.DefaultLeadQuery()) {
		out.printf("  %s  %-16s %-20s %3d  %s\n", l.ID, l.Name, l.Company, l.Score, l.Status)
	}

	out.printf("\nEditing L001 twice without waiting\n")
	contacted := crm.StatusContacted
	first, err := c.UpdateLead("L001", crm.LeadPatch{Status: &contacted})
	if err != nil {
		return err
	}
	name := "Ana Silva Souza"
	second, err := c.UpdateLead("L001", crm.LeadPatch{Name: &name})
	if err != nil {
		return err
	}
	if err := waitAll(ctx, first, second); err != nil {
		return err
	}

	out.printf("\nConverting L003\n")
	if err := c.SelectLead("L003"); err != nil {
		return err
	}
	lead, _ := c.Lead("L003")
	conv, err := c.ConvertLead("L003", crm.DefaultConvertInput(lead))
	if err != nil {
		return err
	}
	if err := waitAll(ctx, conv.OppTicket, conv.LeadTicket); err != nil {
		return err
	}

	for _, coll := range []console.Collection{console.Leads, console.Opportunities} {
		t, err := c.Retry(coll)
		if errors.CategoryOf(err) == errors.CategoryConflict {
			continue
		}
		if err != nil {
			return err
		}
		out.printf("\nRetrying %s\n", coll)
		if err := waitAll(ctx, t); err != nil {
			return err
		}
	}

	s := c.Summary()
	out.printf("\nPipeline: %d opportunities, %s\n", s.Count, crm.FormatCurrency(&s.TotalValue, c.Language()))
	if l, ok := c.Lead("L001"); ok {
		out.printf("L001 is now %s (%s)\n", l.Name, l.Status)
	}
	st := sim.Stats()
	out.printf("Backend: %d calls, %d failed\n", st.Calls, st.Failures)
	return nil
}

func waitAll(ctx context.Context, tickets ...console.Ticket) error {
	for _, t := range tickets {
		if _, err := t.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

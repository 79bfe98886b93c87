// Package console is the seller console's application layer. It owns the
// optimistic leads and opportunities collections, the lead selection and
// the feedback toasts, and exposes the operations the UI performs.
package console

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/vango-dev/sellerconsole/internal/crm"
	"github.com/vango-dev/sellerconsole/internal/errors"
	"github.com/vango-dev/sellerconsole/internal/i18n"
	"github.com/vango-dev/sellerconsole/pkg/backend"
	"github.com/vango-dev/sellerconsole/pkg/optimistic"
	"github.com/vango-dev/sellerconsole/pkg/toast"
)

// Collection names an optimistic collection of the console.
type Collection string

const (
	Leads         Collection = "leads"
	Opportunities Collection = "opportunities"
)

// ParseCollection validates a collection name from a URL.
func ParseCollection(s string) (Collection, error) {
	switch c := Collection(s); c {
	case Leads, Opportunities:
		return c, nil
	}
	return "", errors.New(errors.CodeUnknownColl).WithDetailf("collection %q", s)
}

// Confirmers are the backend calls that confirm each collection.
type Confirmers struct {
	Leads         optimistic.ConfirmFunc[[]crm.Lead]
	Opportunities optimistic.ConfirmFunc[[]crm.Opportunity]
}

// Simulated returns confirmers backed by sim.
func Simulated(sim *backend.Simulator) Confirmers {
	return Confirmers{
		Leads:         backend.Confirm[[]crm.Lead](sim),
		Opportunities: backend.Confirm[[]crm.Opportunity](sim),
	}
}

// Options configures a Console. The zero value is usable.
type Options struct {
	// Emitter receives toasts. Nil drops them.
	Emitter toast.Emitter

	// Language selects the toast language. Defaults to English.
	Language language.Tag

	// Timeout bounds every confirmation. Zero means no timeout.
	Timeout time.Duration

	// Rollback selects what a failed confirmation restores.
	Rollback optimistic.RollbackPolicy

	// Observer receives mutation lifecycle events, e.g. for metrics.
	Observer optimistic.Observer

	// Context is passed to confirmations; cancelling it aborts them.
	Context context.Context

	Logger *slog.Logger
}

// Console holds the state of one seller console.
type Console struct {
	leads    *optimistic.List[string, crm.Lead]
	opps     *optimistic.List[string, crm.Opportunity]
	selected *optimistic.Store[string]

	emitter toast.Emitter
	lang    language.Tag
	logger  *slog.Logger

	mu      sync.Mutex
	nextOpp int
	replay  map[Collection]replay
}

// replay re-issues the latest logical mutation of a collection.
type replay struct {
	seq   uint64
	issue func() Ticket
}

// New creates a console over seed leads and an empty opportunities list.
func New(seed []crm.Lead, confirm Confirmers, opts Options) *Console {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "console")
	}
	lang := opts.Language
	if lang == language.Und {
		lang = language.English
	}

	c := &Console{
		emitter: opts.Emitter,
		lang:    lang,
		logger:  logger,
		replay:  make(map[Collection]replay),
	}

	c.leads = optimistic.NewList[string](seed, confirm.Leads)
	c.leads.Store().
		Named(string(Leads)).
		Context(opts.Context).
		Timeout(opts.Timeout).
		Rollback(opts.Rollback).
		Logger(logger).
		Observer(opts.Observer).
		OnSuccess(func([]crm.Lead) { c.saved(Leads) }).
		OnError(func(err error) { c.failed(Leads, err) })

	c.opps = optimistic.NewList[string, crm.Opportunity](nil, confirm.Opportunities)
	c.opps.Store().
		Named(string(Opportunities)).
		Context(opts.Context).
		Timeout(opts.Timeout).
		Rollback(opts.Rollback).
		Logger(logger).
		Observer(opts.Observer).
		OnSuccess(func([]crm.Opportunity) { c.saved(Opportunities) }).
		OnError(func(err error) { c.failed(Opportunities, err) })

	c.selected = optimistic.New[string]("", nil).Named("selection").Logger(logger)
	return c
}

// Language returns the language toasts are rendered in.
func (c *Console) Language() language.Tag {
	return c.lang
}

// UpdateLead validates the lead with patch applied and issues the update.
func (c *Console) UpdateLead(id string, patch crm.LeadPatch) (Ticket, error) {
	lead, ok := c.leads.Find(id)
	if !ok {
		return Ticket{}, errors.New(errors.CodeLeadNotFound).WithDetailf("lead %s", id)
	}
	if err := crm.ValidateLead(patch.Apply(lead)); err != nil {
		return Ticket{}, c.invalid(errors.CodeLeadInvalid, err)
	}

	issue := func() Ticket {
		return ticketOf(Leads, c.leads.Update(id, patch))
	}
	t := issue()
	c.remember(Leads, t.Seq, issue)
	c.logger.Debug("lead update issued", "lead", id, "seq", t.Seq)
	return t, nil
}

// Conversion is the result of converting a lead.
type Conversion struct {
	Opportunity crm.Opportunity `json:"opportunity"`
	OppTicket   Ticket          `json:"opportunityMutation"`
	LeadTicket  Ticket          `json:"leadMutation"`
}

// ConvertLead creates an opportunity from the lead, marks the lead
// qualified and clears the selection. Both mutations are issued back to
// back; neither waits for the other's confirmation.
func (c *Console) ConvertLead(id string, in crm.ConvertInput) (Conversion, error) {
	lead, ok := c.leads.Find(id)
	if !ok {
		return Conversion{}, errors.New(errors.CodeLeadNotFound).WithDetailf("lead %s", id)
	}

	c.mu.Lock()
	oppID := crm.OpportunityID(c.nextOpp + 1)
	opp, err := in.Opportunity(oppID, lead)
	if err == nil {
		c.nextOpp++
	}
	c.mu.Unlock()
	if err != nil {
		return Conversion{}, c.invalid(errors.CodeOpportunityInput, err)
	}

	addOpp := func() Ticket {
		return ticketOf(Opportunities, c.opps.Add(opp))
	}
	qualified := crm.StatusQualified
	patch := crm.LeadPatch{Status: &qualified}
	qualify := func() Ticket {
		return ticketOf(Leads, c.leads.Update(id, patch))
	}

	conv := Conversion{Opportunity: opp}
	conv.OppTicket = addOpp()
	c.remember(Opportunities, conv.OppTicket.Seq, addOpp)
	conv.LeadTicket = qualify()
	c.remember(Leads, conv.LeadTicket.Seq, qualify)
	c.selected.SetValue("")

	c.logger.Info("lead converted", "lead", id, "opportunity", opp.ID)
	return conv, nil
}

// SelectLead opens the detail panel for the lead.
func (c *Console) SelectLead(id string) error {
	if _, ok := c.leads.Find(id); !ok {
		return errors.New(errors.CodeLeadNotFound).WithDetailf("lead %s", id)
	}
	c.selected.SetValue(id)
	return nil
}

// ClearSelection closes the detail panel.
func (c *Console) ClearSelection() {
	c.selected.SetValue("")
}

// Selected returns the selected lead as currently visible.
func (c *Console) Selected() (crm.Lead, bool) {
	id := c.selected.Data()
	if id == "" {
		return crm.Lead{}, false
	}
	return c.leads.Find(id)
}

// LeadsState returns the leads collection's state.
func (c *Console) LeadsState() optimistic.State[[]crm.Lead] {
	return c.leads.Store().Snapshot()
}

// OpportunitiesState returns the opportunities collection's state.
func (c *Console) OpportunitiesState() optimistic.State[[]crm.Opportunity] {
	return c.opps.Store().Snapshot()
}

// Lead returns the visible lead with id.
func (c *Console) Lead(id string) (crm.Lead, bool) {
	return c.leads.Find(id)
}

// SelectedID returns the id of the selected lead, or "".
func (c *Console) SelectedID() string {
	return c.selected.Data()
}

// Leads returns the visible leads matching q.
func (c *Console) Leads(q crm.LeadQuery) []crm.Lead {
	return q.Apply(c.leads.Items())
}

// Opportunities returns the visible opportunities in creation order.
func (c *Console) Opportunities() []crm.Opportunity {
	return c.opps.Items()
}

// Summary totals the visible opportunities.
func (c *Console) Summary() crm.Summary {
	return crm.Summarize(c.opps.Items())
}

// Retry clears the collection's error and re-issues the mutation that
// failed.
func (c *Console) Retry(coll Collection) (Ticket, error) {
	failedErr, seq, err := c.failure(coll)
	if err != nil {
		return Ticket{}, err
	}

	c.mu.Lock()
	r, ok := c.replay[coll]
	c.mu.Unlock()
	if failedErr == nil || !ok || r.seq != seq {
		return Ticket{}, errors.New(errors.CodeNothingToRetry).WithDetailf("collection %s", coll)
	}

	c.resetError(coll)
	t := r.issue()
	c.remember(coll, t.Seq, r.issue)
	c.logger.Info("retrying failed mutation", "collection", coll, "failed", seq, "seq", t.Seq)
	return t, nil
}

// Dismiss clears the collection's error without retrying.
func (c *Console) Dismiss(coll Collection) error {
	if _, _, err := c.failure(coll); err != nil {
		return err
	}
	c.resetError(coll)
	return nil
}

// Subscribe calls fn after any state change of the console. fn runs on the
// goroutine that made the change and must not block.
func (c *Console) Subscribe(fn func()) (unsubscribe func()) {
	unsubs := []func(){
		c.leads.Store().Subscribe(func(optimistic.State[[]crm.Lead]) { fn() }),
		c.opps.Store().Subscribe(func(optimistic.State[[]crm.Opportunity]) { fn() }),
		c.selected.Subscribe(func(optimistic.State[string]) { fn() }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// failure returns the collection's current error and sequence.
func (c *Console) failure(coll Collection) (error, uint64, error) {
	switch coll {
	case Leads:
		s := c.leads.Store().Snapshot()
		return s.Error, s.Sequence, nil
	case Opportunities:
		s := c.opps.Store().Snapshot()
		return s.Error, s.Sequence, nil
	}
	return nil, 0, errors.New(errors.CodeUnknownColl).WithDetailf("collection %q", coll)
}

func (c *Console) resetError(coll Collection) {
	switch coll {
	case Leads:
		c.leads.Store().ResetError()
	case Opportunities:
		c.opps.Store().ResetError()
	}
}

// remember records issue as the collection's latest logical mutation unless
// a newer one was recorded first.
func (c *Console) remember(coll Collection, seq uint64, issue func() Ticket) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.replay[coll]; ok && r.seq > seq {
		return
	}
	c.replay[coll] = replay{seq: seq, issue: issue}
}

func (c *Console) invalid(code string, err error) error {
	var verr *crm.ValidationError
	if stderrors.As(err, &verr) {
		return errors.New(code).WithFields(i18n.Fields(c.lang, verr)).Wrap(err)
	}
	return errors.FromError(err, code)
}

func (c *Console) saved(coll Collection) {
	key := i18n.KeyLeadsSaved
	if coll == Opportunities {
		key = i18n.KeyOpportunitiesSaved
	}
	toast.Success(c.emitter, i18n.Text(c.lang, key))
}

func (c *Console) failed(coll Collection, err error) {
	key := i18n.KeyLeadsFailed
	if coll == Opportunities {
		key = i18n.KeyOpportunitiesFail
	}
	toast.WithAction(c.emitter, toast.TypeError,
		i18n.Text(c.lang, key, err),
		i18n.Text(c.lang, i18n.KeyRetry),
		RetryAction(coll))
}

// RetryAction is the toast action id that retries coll.
func RetryAction(coll Collection) string {
	return "retry:" + string(coll)
}

package console

import (
	"context"
	stderrors "errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/text/language"

	"github.com/vango-dev/sellerconsole/internal/crm"
	"github.com/vango-dev/sellerconsole/internal/errors"
	"github.com/vango-dev/sellerconsole/pkg/optimistic"
	"github.com/vango-dev/sellerconsole/pkg/toast"
)

var errBackend = stderrors.New("boom")

// switchable confirms immediately, failing while fail is set.
type switchable struct {
	fail atomic.Bool
}

func confirmWith[T any](s *switchable) optimistic.ConfirmFunc[T] {
	return func(_ context.Context, v T) (T, error) {
		if s.fail.Load() {
			var zero T
			return zero, errBackend
		}
		return v, nil
	}
}

func newTestConsole(t *testing.T, lang language.Tag) (*Console, *switchable, *toast.Recorder) {
	t.Helper()
	sw := &switchable{}
	rec := &toast.Recorder{}
	c := New(crm.SeedLeads(), Confirmers{
		Leads:         confirmWith[[]crm.Lead](sw),
		Opportunities: confirmWith[[]crm.Opportunity](sw),
	}, Options{Emitter: rec, Language: lang})
	return c, sw, rec
}

func settle(t *testing.T, tk Ticket) optimistic.Outcome {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := tk.Wait(ctx)
	if err != nil {
		t.Fatalf("%s mutation %d did not settle: %v", tk.Collection, tk.Seq, err)
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestUpdateLeadCommits(t *testing.T) {
	c, _, rec := newTestConsole(t, language.English)

	tk, err := c.UpdateLead("L002", crm.LeadPatch{Name: ptr("Carlos S.")})
	if err != nil {
		t.Fatalf("UpdateLead() error = %v", err)
	}
	if tk.Collection != Leads || tk.Seq != 1 {
		t.Errorf("ticket = %+v, want leads seq 1", tk)
	}
	if got := settle(t, tk); got != optimistic.Committed {
		t.Fatalf("outcome = %v, want committed", got)
	}

	lead, _ := c.leads.Find("L002")
	if lead.Name != "Carlos S." {
		t.Errorf("Name = %q, want Carlos S.", lead.Name)
	}
	toasts := rec.Toasts()
	if len(toasts) != 1 || toasts[0].Level != toast.TypeSuccess || toasts[0].Message != "Leads saved" {
		t.Errorf("toasts = %+v, want one success", toasts)
	}
}

func TestUpdateLeadRejected(t *testing.T) {
	c, _, _ := newTestConsole(t, language.Portuguese)

	_, err := c.UpdateLead("L999", crm.LeadPatch{})
	if !stderrors.Is(err, errors.New(errors.CodeLeadNotFound)) {
		t.Errorf("unknown lead error = %v, want %s", err, errors.CodeLeadNotFound)
	}
	if errors.HTTPStatus(err) != http.StatusNotFound {
		t.Errorf("HTTPStatus = %d, want 404", errors.HTTPStatus(err))
	}

	_, err = c.UpdateLead("L001", crm.LeadPatch{Email: ptr("nope")})
	var ce *errors.ConsoleError
	if !stderrors.As(err, &ce) || ce.Code != errors.CodeLeadInvalid {
		t.Fatalf("invalid email error = %v, want %s", err, errors.CodeLeadInvalid)
	}
	if ce.Fields["email"] != "Informe um email válido" {
		t.Errorf("Fields = %v, want localized email message", ce.Fields)
	}

	if seq := c.leads.Store().Sequence(); seq != 0 {
		t.Errorf("Sequence = %d, rejected edits must not issue mutations", seq)
	}
}

func TestFailureToastAndRetry(t *testing.T) {
	c, sw, rec := newTestConsole(t, language.English)
	sw.fail.Store(true)

	tk, err := c.UpdateLead("L003", crm.LeadPatch{Name: ptr("Maria O.")})
	if err != nil {
		t.Fatalf("UpdateLead() error = %v", err)
	}
	if got := settle(t, tk); got != optimistic.RolledBack {
		t.Fatalf("outcome = %v, want rolled back", got)
	}
	if lead, _ := c.leads.Find("L003"); lead.Name != "Maria Oliveira" {
		t.Errorf("Name = %q, want rollback to Maria Oliveira", lead.Name)
	}

	toasts := rec.Toasts()
	if len(toasts) != 1 {
		t.Fatalf("toasts = %+v, want one", toasts)
	}
	if got := toasts[0]; got.Level != toast.TypeError ||
		got.Message != "Failed to update leads: boom" ||
		got.ActionLabel != "Retry" || got.ActionID != "retry:leads" {
		t.Errorf("toast = %+v", got)
	}

	sw.fail.Store(false)
	retry, err := c.Retry(Leads)
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if retry.Seq != 2 {
		t.Errorf("retry seq = %d, want 2", retry.Seq)
	}
	if got := settle(t, retry); got != optimistic.Committed {
		t.Fatalf("retry outcome = %v, want committed", got)
	}
	if lead, _ := c.leads.Find("L003"); lead.Name != "Maria O." {
		t.Errorf("Name = %q, want Maria O. after retry", lead.Name)
	}
	if err := c.leads.Store().Err(); err != nil {
		t.Errorf("Err() = %v, want nil after retry", err)
	}
}

func TestRetryWithoutFailure(t *testing.T) {
	c, _, _ := newTestConsole(t, language.English)

	_, err := c.Retry(Opportunities)
	if !stderrors.Is(err, errors.New(errors.CodeNothingToRetry)) {
		t.Errorf("Retry() error = %v, want %s", err, errors.CodeNothingToRetry)
	}
	if _, err := c.Retry("accounts"); !stderrors.Is(err, errors.New(errors.CodeUnknownColl)) {
		t.Errorf("Retry(accounts) error = %v, want %s", err, errors.CodeUnknownColl)
	}
}

func TestDismiss(t *testing.T) {
	c, sw, _ := newTestConsole(t, language.English)
	sw.fail.Store(true)

	tk, _ := c.UpdateLead("L001", crm.LeadPatch{Name: ptr("X")})
	settle(t, tk)
	if c.leads.Store().Err() == nil {
		t.Fatal("expected an error after the failed update")
	}

	if err := c.Dismiss(Leads); err != nil {
		t.Fatalf("Dismiss() error = %v", err)
	}
	if err := c.leads.Store().Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
	if _, err := c.Retry(Leads); err == nil {
		t.Error("Retry() after Dismiss should have nothing to retry")
	}
	if err := c.Dismiss("accounts"); err == nil {
		t.Error("Dismiss(accounts) should fail")
	}
}

func TestConvertLead(t *testing.T) {
	c, _, rec := newTestConsole(t, language.English)
	if err := c.SelectLead("L003"); err != nil {
		t.Fatalf("SelectLead() error = %v", err)
	}

	in := crm.DefaultConvertInput(crm.SeedLeads()[2])
	in.Amount = "5000"
	conv, err := c.ConvertLead("L003", in)
	if err != nil {
		t.Fatalf("ConvertLead() error = %v", err)
	}

	// Both mutations are visible before either settles.
	if conv.Opportunity.ID != "O001" || conv.Opportunity.LeadID != "L003" {
		t.Errorf("opportunity = %+v", conv.Opportunity)
	}
	if _, ok := c.Selected(); ok {
		t.Error("selection should be cleared after conversion")
	}

	settle(t, conv.OppTicket)
	settle(t, conv.LeadTicket)

	opps := c.Opportunities()
	if len(opps) != 1 || opps[0].ID != "O001" {
		t.Errorf("Opportunities() = %+v", opps)
	}
	if lead, _ := c.leads.Find("L003"); lead.Status != crm.StatusQualified {
		t.Errorf("Status = %s, want qualified", lead.Status)
	}
	if s := c.Summary(); s.Count != 1 || s.TotalValue != 5000 {
		t.Errorf("Summary() = %+v", s)
	}
	if n := len(rec.Toasts()); n != 2 {
		t.Errorf("toasts = %d, want one per collection", n)
	}

	in.Name = ""
	if _, err := c.ConvertLead("L001", in); errors.CategoryOf(err) != errors.CategoryValidation {
		t.Errorf("invalid conversion error = %v, want validation", err)
	}
	conv, err = c.ConvertLead("L001", crm.DefaultConvertInput(crm.SeedLeads()[0]))
	if err != nil {
		t.Fatalf("second ConvertLead() error = %v", err)
	}
	if conv.Opportunity.ID != "O002" {
		t.Errorf("second id = %s, want O002", conv.Opportunity.ID)
	}
	settle(t, conv.OppTicket)
	settle(t, conv.LeadTicket)
}

func TestConvertLeadRollsBackBoth(t *testing.T) {
	c, sw, rec := newTestConsole(t, language.English)
	sw.fail.Store(true)

	conv, err := c.ConvertLead("L001", crm.DefaultConvertInput(crm.SeedLeads()[0]))
	if err != nil {
		t.Fatalf("ConvertLead() error = %v", err)
	}
	settle(t, conv.OppTicket)
	settle(t, conv.LeadTicket)

	if n := len(c.Opportunities()); n != 0 {
		t.Errorf("Opportunities() has %d items, want rollback to empty", n)
	}
	if lead, _ := c.leads.Find("L001"); lead.Status != crm.StatusNew {
		t.Errorf("Status = %s, want rollback to new", lead.Status)
	}
	for _, tst := range rec.Toasts() {
		if tst.Level != toast.TypeError {
			t.Errorf("toast = %+v, want only errors", tst)
		}
	}

	sw.fail.Store(false)
	tk, err := c.Retry(Opportunities)
	if err != nil {
		t.Fatalf("Retry(opportunities) error = %v", err)
	}
	settle(t, tk)
	if opps := c.Opportunities(); len(opps) != 1 || opps[0].ID != conv.Opportunity.ID {
		t.Errorf("Opportunities() = %+v, want the retried opportunity", opps)
	}
}

func TestSelection(t *testing.T) {
	c, _, _ := newTestConsole(t, language.English)

	if err := c.SelectLead("L999"); !stderrors.Is(err, errors.New(errors.CodeLeadNotFound)) {
		t.Errorf("SelectLead(L999) = %v, want not found", err)
	}
	if err := c.SelectLead("L002"); err != nil {
		t.Fatalf("SelectLead() error = %v", err)
	}

	tk, _ := c.UpdateLead("L002", crm.LeadPatch{Status: ptr(crm.StatusQualified)})
	lead, ok := c.Selected()
	if !ok || lead.Status != crm.StatusQualified {
		t.Errorf("Selected() = %+v, %v; want the speculative edit", lead, ok)
	}
	settle(t, tk)

	c.ClearSelection()
	if _, ok := c.Selected(); ok {
		t.Error("Selected() after ClearSelection should be empty")
	}
	if seq := c.selected.Sequence(); seq != 0 {
		t.Errorf("selection Sequence = %d, want 0", seq)
	}
}

func TestLeadsQuery(t *testing.T) {
	c, _, _ := newTestConsole(t, language.English)

	q := crm.DefaultLeadQuery()
	q.Status = string(crm.StatusQualified)
	got := c.Leads(q)
	if len(got) != 2 || got[0].ID != "L006" || got[1].ID != "L003" {
		t.Errorf("Leads(qualified) = %+v", got)
	}
}

func TestSubscribe(t *testing.T) {
	c, _, _ := newTestConsole(t, language.English)

	var calls atomic.Int32
	unsubscribe := c.Subscribe(func() { calls.Add(1) })

	c.SelectLead("L001")
	tk, _ := c.UpdateLead("L001", crm.LeadPatch{Name: ptr("Ana")})
	settle(t, tk)

	// select, issue, settle
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}

	unsubscribe()
	c.ClearSelection()
	if n := calls.Load(); n != 3 {
		t.Errorf("calls after unsubscribe = %d, want 3", n)
	}
}

func TestPortugueseToasts(t *testing.T) {
	c, _, rec := newTestConsole(t, language.BrazilianPortuguese)

	tk, _ := c.UpdateLead("L001", crm.LeadPatch{Name: ptr("Ana")})
	settle(t, tk)

	if got := rec.Toasts(); len(got) != 1 || got[0].Message != "Leads salvos" {
		t.Errorf("toasts = %+v, want Portuguese success", got)
	}
}

func TestParseCollection(t *testing.T) {
	for _, s := range []string{"leads", "opportunities"} {
		if c, err := ParseCollection(s); err != nil || string(c) != s {
			t.Errorf("ParseCollection(%q) = %q, %v", s, c, err)
		}
	}
	if _, err := ParseCollection("accounts"); errors.HTTPStatus(err) != http.StatusNotFound {
		t.Errorf("ParseCollection(accounts) status = %d, want 404", errors.HTTPStatus(err))
	}
}

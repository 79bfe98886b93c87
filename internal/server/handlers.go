package server

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	"github.com/vango-dev/sellerconsole/internal/console"
	"github.com/vango-dev/sellerconsole/internal/crm"
	"github.com/vango-dev/sellerconsole/internal/errors"
	"github.com/vango-dev/sellerconsole/internal/i18n"
	"github.com/vango-dev/sellerconsole/pkg/optimistic"
)

const maxBodyBytes = 64 << 10

// CollectionView is the JSON form of an optimistic collection.
type CollectionView[T any] struct {
	Data      T      `json:"data"`
	IsPending bool   `json:"isPending"`
	Error     string `json:"error,omitempty"`
	Sequence  uint64 `json:"sequence"`
}

func viewOf[T any](s optimistic.State[T]) CollectionView[T] {
	v := CollectionView[T]{Data: s.Data, IsPending: s.IsPending, Sequence: s.Sequence}
	if s.Error != nil {
		v.Error = s.Error.Error()
	}
	return v
}

// StateView is the full console state pushed to clients.
type StateView struct {
	Leads         CollectionView[[]crm.Lead]        `json:"leads"`
	Opportunities CollectionView[[]crm.Opportunity] `json:"opportunities"`
	Selected      string                            `json:"selected,omitempty"`
}

func (s *Server) state() StateView {
	return StateView{
		Leads:         viewOf(s.console.LeadsState()),
		Opportunities: viewOf(s.console.OpportunitiesState()),
		Selected:      s.console.SelectedID(),
	}
}

func (s *Server) stateFrame() Frame {
	return Frame{Type: FrameState, Payload: s.state()}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "clients": s.hub.Len()})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state())
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	lead, ok := s.console.Selected()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"lead": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"lead": lead})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.console.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

// handleListLeads serves GET /api/leads?search=&status=&sort=&dir=.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	q, err := leadQuery(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leads":            s.console.Leads(q),
		"hasActiveFilters": q.HasActiveFilters(),
		"sort":             q.SortField,
		"dir":              q.SortDir,
	})
}

func leadQuery(r *http.Request) (crm.LeadQuery, error) {
	v := r.URL.Query()
	q := crm.DefaultLeadQuery()
	q.Search = v.Get("search")
	q.Lang = requestLanguage(r)

	if status := v.Get("status"); status != "" {
		if status != crm.StatusAll && !validStatus(status) {
			return q, badRequest("unknown status %q", status)
		}
		q.Status = status
	}
	if sort := v.Get("sort"); sort != "" {
		switch f := crm.SortField(sort); f {
		case crm.SortScore, crm.SortName, crm.SortCompany:
			q.SortField = f
			if f != crm.SortScore {
				q.SortDir = crm.Asc
			}
		default:
			return q, badRequest("unknown sort field %q", sort)
		}
	}
	if dir := v.Get("dir"); dir != "" {
		switch d := crm.SortDir(dir); d {
		case crm.Asc, crm.Desc:
			q.SortDir = d
		default:
			return q, badRequest("unknown sort direction %q", dir)
		}
	}
	return q, nil
}

func validStatus(s string) bool {
	for _, st := range crm.LeadStatuses {
		if string(st) == s {
			return true
		}
	}
	return false
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var patch crm.LeadPatch
	if err := decodeJSON(w, r, &patch, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.console.UpdateLead(chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, t)
}

func (s *Server) handleSelectLead(w http.ResponseWriter, r *http.Request) {
	if err := s.console.SelectLead(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleConvertLead accepts a ConvertInput; an empty body converts with the
// form's defaults.
func (s *Server) handleConvertLead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	lead, ok := s.console.Lead(id)
	if !ok {
		s.writeError(w, r, errors.New(errors.CodeLeadNotFound).WithDetailf("lead %s", id))
		return
	}

	in := crm.DefaultConvertInput(lead)
	if err := decodeJSON(w, r, &in, true); err != nil {
		s.writeError(w, r, err)
		return
	}
	conv, err := s.console.ConvertLead(id, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, conv)
}

// OpportunityRow is an opportunity as listed in the pipeline table.
type OpportunityRow struct {
	crm.Opportunity
	LeadName        string `json:"leadName"`
	AmountFormatted string `json:"amountFormatted"`
}

func (s *Server) handleListOpportunities(w http.ResponseWriter, r *http.Request) {
	lang := requestLanguage(r)
	leads := s.console.Leads(crm.DefaultLeadQuery())
	opps := s.console.Opportunities()

	rows := make([]OpportunityRow, len(opps))
	for i, o := range opps {
		name := crm.LeadName(leads, o.LeadID)
		if name == "" {
			name = i18n.Text(lang, i18n.KeyUnknownLead)
		}
		rows[i] = OpportunityRow{
			Opportunity:     o,
			LeadName:        name,
			AmountFormatted: crm.FormatCurrency(o.Amount, lang),
		}
	}

	summary := crm.Summarize(opps)
	writeJSON(w, http.StatusOK, map[string]any{
		"opportunities":  rows,
		"summary":        summary,
		"totalFormatted": crm.FormatCurrency(&summary.TotalValue, lang),
		"wonFormatted":   crm.FormatCurrency(&summary.WonValue, lang),
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	coll, err := console.ParseCollection(chi.URLParam(r, "collection"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	t, err := s.console.Retry(coll)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, t)
}

func (s *Server) handleDismiss(w http.ResponseWriter, r *http.Request) {
	coll, err := console.ParseCollection(chi.URLParam(r, "collection"))
	if err == nil {
		err = s.console.Dismiss(coll)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requestLanguage picks the language from ?lang= or Accept-Language.
func requestLanguage(r *http.Request) language.Tag {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return i18n.Match(lang)
	}
	return i18n.Match(r.Header.Get("Accept-Language"))
}

func badRequest(format string, args ...any) error {
	return errors.New(errors.CodeBadRequest).WithDetailf(format, args...)
}

// decodeJSON reads a JSON body into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && stderrors.Is(err, io.EOF) {
			return nil
		}
		return errors.New(errors.CodeBadRequest).WithDetail(err.Error()).Wrap(err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and renders it as a ConsoleError.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	ce := errors.FromError(err, errors.CodeServerFailed)
	writeJSON(w, status, map[string]any{"error": ce})
}

// Package crm holds the seller console's domain model: leads, opportunities,
// their validation rules and the list queries the console offers.
package crm

import "fmt"

// LeadStatus is the qualification status of a lead.
type LeadStatus string

const (
	StatusNew         LeadStatus = "new"
	StatusContacted   LeadStatus = "contacted"
	StatusQualified   LeadStatus = "qualified"
	StatusUnqualified LeadStatus = "unqualified"
)

// LeadStatuses lists every status in display order.
var LeadStatuses = []LeadStatus{StatusNew, StatusContacted, StatusQualified, StatusUnqualified}

// Stage is an opportunity pipeline stage.
type Stage string

const (
	StageProspecting   Stage = "prospecting"
	StageQualification Stage = "qualification"
	StageProposal      Stage = "proposal"
	StageNegotiation   Stage = "negotiation"
	StageClosedWon     Stage = "closed-won"
	StageClosedLost    Stage = "closed-lost"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{
	StageProspecting, StageQualification, StageProposal,
	StageNegotiation, StageClosedWon, StageClosedLost,
}

// Lead is a prospective customer.
type Lead struct {
	ID      string     `json:"id" validate:"required"`
	Name    string     `json:"name" validate:"notblank"`
	Company string     `json:"company"`
	Email   string     `json:"email" validate:"notblank,email"`
	Source  string     `json:"source"`
	Score   int        `json:"score" validate:"gte=0,lte=100"`
	Status  LeadStatus `json:"status" validate:"oneof=new contacted qualified unqualified"`
}

// EntityID implements optimistic.Identifiable.
func (l Lead) EntityID() string { return l.ID }

// LeadPatch carries the editable lead fields. Nil fields are left unchanged.
type LeadPatch struct {
	Name   *string     `json:"name,omitempty"`
	Email  *string     `json:"email,omitempty"`
	Status *LeadStatus `json:"status,omitempty"`
}

// Apply implements optimistic.Patch.
func (p LeadPatch) Apply(l Lead) Lead {
	if p.Name != nil {
		l.Name = *p.Name
	}
	if p.Email != nil {
		l.Email = *p.Email
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	return l
}

// Opportunity is a qualified sales deal created from a lead.
type Opportunity struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name" validate:"notblank"`
	Stage       Stage    `json:"stage" validate:"oneof=prospecting qualification proposal negotiation closed-won closed-lost"`
	Amount      *float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
	AccountName string   `json:"accountName" validate:"notblank"`
	LeadID      string   `json:"leadId" validate:"required"`
}

// EntityID implements optimistic.Identifiable.
func (o Opportunity) EntityID() string { return o.ID }

// OpportunityID returns the id for the n-th opportunity, e.g. O001.
func OpportunityID(n int) string {
	return fmt.Sprintf("O%03d", n)
}

// SeedLeads returns the mock leads the console starts with.
func SeedLeads() []Lead {
	return []Lead{
		{ID: "L001", Name: "Ana Silva", Company: "TechCorp", Email: "ana.silva@techcorp.com", Source: "Website", Score: 95, Status: StatusNew},
		{ID: "L002", Name: "Carlos Santos", Company: "Innovation Ltd", Email: "carlos@innovation.com", Source: "LinkedIn", Score: 87, Status: StatusContacted},
		{ID: "L003", Name: "Maria Oliveira", Company: "StartupXYZ", Email: "maria@startupxyz.com", Source: "Event", Score: 72, Status: StatusQualified},
		{ID: "L004", Name: "João Costa", Company: "Enterprise Solutions", Email: "joao@enterprise.com", Source: "Referral", Score: 91, Status: StatusNew},
		{ID: "L005", Name: "Fernanda Lima", Company: "Digital Agency", Email: "fernanda@digital.com", Source: "Google Ads", Score: 68, Status: StatusContacted},
		{ID: "L006", Name: "Roberto Alves", Company: "Manufacturing Co", Email: "roberto@manufacturing.com", Source: "Website", Score: 83, Status: StatusQualified},
	}
}

package i18n

import (
	"errors"
	"testing"

	"golang.org/x/text/language"

	"github.com/vango-dev/sellerconsole/internal/crm"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		in   []string
		want language.Tag
	}{
		{nil, language.English},
		{[]string{"pt-BR,pt;q=0.9,en;q=0.8"}, language.Portuguese},
		{[]string{"en-US"}, language.English},
		{[]string{"de-DE"}, language.English},
		{[]string{"!!bad"}, language.English},
	}
	for _, tt := range tests {
		got := Match(tt.in...)
		base, _ := got.Base()
		wantBase, _ := tt.want.Base()
		if base != wantBase {
			t.Errorf("Match(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestText(t *testing.T) {
	if got := Text(language.English, KeyLeadsSaved); got != "Leads saved" {
		t.Errorf("Text(en) = %q", got)
	}
	if got := Text(language.Portuguese, KeyLeadsSaved); got != "Leads salvos" {
		t.Errorf("Text(pt) = %q", got)
	}
	if got := Text(language.Portuguese, KeyLeadsFailed, errors.New("boom")); got != "Falha ao atualizar leads: boom" {
		t.Errorf("Text(pt, args) = %q", got)
	}
}

func TestTextFallsBackToEnglish(t *testing.T) {
	if got := Text(language.German, KeyRetry); got != "Retry" {
		t.Errorf("Text(de) = %q, want English fallback", got)
	}
}

func TestFields(t *testing.T) {
	lead := crm.SeedLeads()[0]
	lead.Name = ""
	lead.Email = "nope"

	var verr *crm.ValidationError
	if !errors.As(crm.ValidateLead(lead), &verr) {
		t.Fatal("expected a validation error")
	}

	got := Fields(language.Portuguese, verr)
	if got["name"] != "Nome é obrigatório" {
		t.Errorf("name = %q", got["name"])
	}
	if got["email"] != "Informe um email válido" {
		t.Errorf("email = %q", got["email"])
	}
}

// Package i18n holds the console's user-visible strings in English and
// Portuguese.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/vango-dev/sellerconsole/internal/crm"
)

// Message keys used outside the crm package.
const (
	KeyLeadsSaved         = "toast.leads.saved"
	KeyLeadsFailed        = "toast.leads.failed"
	KeyOpportunitiesSaved = "toast.opportunities.saved"
	KeyOpportunitiesFail  = "toast.opportunities.failed"
	KeyRetry              = "toast.retry"
	KeyUnknownLead        = "opportunities.unknownLead"
)

// Supported lists the available languages; the first is the fallback.
var Supported = []language.Tag{language.English, language.Portuguese}

var matcher = language.NewMatcher(Supported)

var cat = build()

func build() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(key, en, pt string) {
		_ = b.SetString(language.English, key, en)
		_ = b.SetString(language.Portuguese, key, pt)
	}

	set(KeyLeadsSaved, "Leads saved", "Leads salvos")
	set(KeyLeadsFailed, "Failed to update leads: %v", "Falha ao atualizar leads: %v")
	set(KeyOpportunitiesSaved, "Opportunity saved", "Oportunidade salva")
	set(KeyOpportunitiesFail, "Failed to update opportunities: %v", "Falha ao atualizar oportunidades: %v")
	set(KeyRetry, "Retry", "Tentar novamente")
	set(KeyUnknownLead, "Unknown lead", "Lead desconhecido")

	set(crm.KeyNameRequired, "Name is required", "Nome é obrigatório")
	set(crm.KeyEmailRequired, "Email is required", "Email é obrigatório")
	set(crm.KeyEmailInvalid, "Please enter a valid email address", "Informe um email válido")
	set(crm.KeyStatusInvalid, "Unknown status", "Status desconhecido")
	set(crm.KeyScoreInvalid, "Score must be between 0 and 100", "A pontuação deve estar entre 0 e 100")
	set(crm.KeyOpportunityRequired, "Opportunity name is required", "Nome da oportunidade é obrigatório")
	set(crm.KeyAccountRequired, "Account name is required", "Nome da conta é obrigatório")
	set(crm.KeyAmountInvalid, "Amount must be a valid number", "O valor deve ser um número válido")
	set(crm.KeyStageInvalid, "Unknown stage", "Estágio desconhecido")
	set(crm.KeyInvalid, "Invalid value", "Valor inválido")
	return b
}

// Match returns the supported language closest to the given tags or
// Accept-Language style strings. Unknown input falls back to English.
func Match(preferred ...string) language.Tag {
	var tags []language.Tag
	for _, p := range preferred {
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Supported[0]
	}
	return Supported[idx]
}

// Printer returns a printer that translates catalog keys for the supported
// language closest to tag.
func Printer(tag language.Tag) *message.Printer {
	_, idx, _ := matcher.Match(tag)
	return message.NewPrinter(Supported[idx], message.Catalog(cat))
}

// Text translates key for tag, formatting args into the message.
func Text(tag language.Tag, key string, args ...any) string {
	return Printer(tag).Sprintf(key, args...)
}

// Fields translates validation errors into field -> message.
func Fields(tag language.Tag, verr *crm.ValidationError) map[string]string {
	p := Printer(tag)
	out := make(map[string]string, len(verr.Fields))
	for _, f := range verr.Fields {
		if _, ok := out[f.Field]; !ok {
			out[f.Field] = p.Sprintf(f.Key)
		}
	}
	return out
}

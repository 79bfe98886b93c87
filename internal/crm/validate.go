package crm

import (
	"errors"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Message keys for field errors. They are looked up in the i18n catalog.
const (
	KeyNameRequired        = "validation.name.required"
	KeyEmailRequired       = "validation.email.required"
	KeyEmailInvalid        = "validation.email.invalid"
	KeyStatusInvalid       = "validation.status.invalid"
	KeyScoreInvalid        = "validation.score.invalid"
	KeyOpportunityRequired = "validation.opportunityName.required"
	KeyAccountRequired     = "validation.accountName.required"
	KeyAmountInvalid       = "validation.amount.invalid"
	KeyStageInvalid        = "validation.stage.invalid"
	KeyInvalid             = "validation.invalid"
)

// validate is shared; validator.Validate caches struct metadata and is safe
// for concurrent use.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := validate.RegisterValidation("notblank", notBlank); err != nil {
		panic("crm: register notblank: " + err.Error())
	}
}

// notBlank rejects empty and whitespace-only strings.
func notBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// FieldError is one failed rule.
type FieldError struct {
	Field string `json:"field"`
	Key   string `json:"key"`
}

// ValidationError lists the failed rules of one form.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Key)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Has reports whether field failed.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// ValidateLead checks a lead as edited in the detail panel.
func ValidateLead(l Lead) error {
	return translate(validate.Struct(l), leadKeys)
}

// ValidateOpportunity checks an opportunity before it is created.
func ValidateOpportunity(o Opportunity) error {
	return translate(validate.Struct(o), opportunityKeys)
}

// ConvertInput is the convert-to-opportunity form.
type ConvertInput struct {
	Name        string `json:"name" validate:"notblank"`
	Stage       Stage  `json:"stage" validate:"oneof=prospecting qualification proposal negotiation closed-won closed-lost"`
	Amount      string `json:"amount"`
	AccountName string `json:"accountName" validate:"notblank"`
}

// DefaultConvertInput pre-fills the form for lead.
func DefaultConvertInput(l Lead) ConvertInput {
	return ConvertInput{
		Name:        l.Company + " - Opportunity",
		Stage:       StageProspecting,
		AccountName: l.Company,
	}
}

// Opportunity validates the form and builds the opportunity for lead.
func (in ConvertInput) Opportunity(id string, lead Lead) (Opportunity, error) {
	if in.Stage == "" {
		in.Stage = StageProspecting
	}
	var fields []FieldError
	if err := translate(validate.Struct(in), opportunityKeys); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return Opportunity{}, err
		}
		fields = verr.Fields
	}
	amount, ok := parseAmount(in.Amount)
	if !ok {
		fields = append(fields, FieldError{Field: "amount", Key: KeyAmountInvalid})
	}
	if len(fields) > 0 {
		return Opportunity{}, &ValidationError{Fields: fields}
	}

	opp := Opportunity{
		ID:          id,
		Name:        strings.TrimSpace(in.Name),
		Stage:       in.Stage,
		AccountName: strings.TrimSpace(in.AccountName),
		LeadID:      lead.ID,
		Amount:      amount,
	}
	if err := ValidateOpportunity(opp); err != nil {
		return Opportunity{}, err
	}
	return opp, nil
}

// parseAmount reads the optional amount field. Any float syntax is accepted,
// exponents included; NaN and infinities are not. Blank means no amount.
func parseAmount(s string) (*float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}

type ruleKey struct{ field, tag string }

var leadKeys = map[ruleKey]string{
	{"name", "notblank"}:  KeyNameRequired,
	{"email", "notblank"}: KeyEmailRequired,
	{"email", "email"}:    KeyEmailInvalid,
	{"status", "oneof"}:   KeyStatusInvalid,
	{"score", "gte"}:      KeyScoreInvalid,
	{"score", "lte"}:      KeyScoreInvalid,
}

var opportunityKeys = map[ruleKey]string{
	{"name", "notblank"}:        KeyOpportunityRequired,
	{"accountName", "notblank"}: KeyAccountRequired,
	{"amount", "gte"}:           KeyAmountInvalid,
	{"stage", "oneof"}:          KeyStageInvalid,
}

// translate turns validator errors into a ValidationError with message keys.
func translate(err error, keys map[ruleKey]string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		key, ok := keys[ruleKey{fe.Field(), fe.Tag()}]
		if !ok {
			key = KeyInvalid
		}
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Key: key})
	}
	return out
}

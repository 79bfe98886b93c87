package crm

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Summary aggregates the opportunities pipeline.
type Summary struct {
	Count      int     `json:"count"`
	TotalValue float64 `json:"totalValue"`
	WonCount   int     `json:"wonCount"`
	WonValue   float64 `json:"wonValue"`
}

// Summarize totals opportunity amounts; missing amounts count as zero.
func Summarize(opps []Opportunity) Summary {
	var s Summary
	for _, o := range opps {
		s.Count++
		amount := 0.0
		if o.Amount != nil {
			amount = *o.Amount
		}
		s.TotalValue += amount
		if o.Stage == StageClosedWon {
			s.WonCount++
			s.WonValue += amount
		}
	}
	return s
}

// LeadName returns the name of the lead with id, or "" if unknown.
func LeadName(leads []Lead, id string) string {
	for _, l := range leads {
		if l.ID == id {
			return l.Name
		}
	}
	return ""
}

// FormatCurrency renders an amount in Brazilian reais using the number
// conventions of tag. Missing or zero amounts render as "-".
func FormatCurrency(amount *float64, tag language.Tag) string {
	if amount == nil || *amount == 0 {
		return "-"
	}
	p := message.NewPrinter(tag)
	return "R$ " + p.Sprint(number.Decimal(*amount, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

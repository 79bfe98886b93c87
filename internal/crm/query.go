package crm

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortField is a sortable lead column.
type SortField string

const (
	SortScore   SortField = "score"
	SortName    SortField = "name"
	SortCompany SortField = "company"
)

// SortDir is a sort direction.
type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

// StatusAll disables the status filter.
const StatusAll = "all"

// LeadQuery filters and sorts the leads list.
type LeadQuery struct {
	Search    string
	Status    string // a LeadStatus or StatusAll
	SortField SortField
	SortDir   SortDir
	Lang      language.Tag
}

// DefaultLeadQuery shows every lead, highest score first.
func DefaultLeadQuery() LeadQuery {
	return LeadQuery{
		Status:    StatusAll,
		SortField: SortScore,
		SortDir:   Desc,
		Lang:      language.English,
	}
}

// HasActiveFilters reports whether search or status narrow the list.
func (q LeadQuery) HasActiveFilters() bool {
	return q.Search != "" || (q.Status != "" && q.Status != StatusAll)
}

// ToggleSort returns the query after clicking the field's column header:
// the active field flips direction, a new field starts descending for score
// and ascending otherwise.
func (q LeadQuery) ToggleSort(field SortField) LeadQuery {
	if q.SortField == field {
		if q.SortDir == Asc {
			q.SortDir = Desc
		} else {
			q.SortDir = Asc
		}
		return q
	}
	q.SortField = field
	if field == SortScore {
		q.SortDir = Desc
	} else {
		q.SortDir = Asc
	}
	return q
}

// Apply returns the matching leads in query order. leads is not modified.
func (q LeadQuery) Apply(leads []Lead) []Lead {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Lead, 0, len(leads))
	for _, l := range leads {
		if search != "" &&
			!strings.Contains(strings.ToLower(l.Name), search) &&
			!strings.Contains(strings.ToLower(l.Company), search) {
			continue
		}
		if q.Status != "" && q.Status != StatusAll && string(l.Status) != q.Status {
			continue
		}
		out = append(out, l)
	}

	lang := q.Lang
	if lang == language.Und {
		lang = language.English
	}
	// Collators are not safe for concurrent use.
	col := collate.New(lang, collate.IgnoreCase)

	slices.SortStableFunc(out, func(a, b Lead) int {
		var c int
		switch q.SortField {
		case SortName:
			c = col.CompareString(a.Name, b.Name)
		case SortCompany:
			c = col.CompareString(a.Company, b.Company)
		default:
			c = a.Score - b.Score
		}
		if q.SortDir == Asc {
			return c
		}
		return -c
	})
	return out
}

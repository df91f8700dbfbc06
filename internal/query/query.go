// Package query filters and orders transaction collections.
package query

import (
	"cmp"
	"slices"
	"strings"

	"github.com/budgetbook/budgetbook/internal/model"
)

// Filters are AND-composed; zero values are ignored.
type Filters struct {
	Institution string
	Category    string
	DateFrom    model.Date // inclusive
	DateTo      model.Date // inclusive
	Search      string     // case-insensitive substring of description, category or institution
}

// Sort fields.
const (
	FieldDate        = "date"
	FieldAmount      = "amount"
	FieldDescription = "description"
	FieldCategory    = "category"
	FieldInstitution = "institution"
)

// Sort orders by one field. An unknown or empty field keeps input order.
type Sort struct {
	Field string
	Desc  bool
}

// FilterAndSort returns a new slice; records is not modified. Records that
// lack the sort field always come last, whatever the direction.
func FilterAndSort(records []model.TransactionRecord, f Filters, s Sort) []model.TransactionRecord {
	out := make([]model.TransactionRecord, 0, len(records))
	for _, r := range records {
		if f.match(r) {
			out = append(out, r)
		}
	}
	if less := comparator(s.Field); less != nil {
		slices.SortStableFunc(out, func(a, b model.TransactionRecord) int {
			am, bm := missing(s.Field, a), missing(s.Field, b)
			switch {
			case am && bm:
				return 0
			case am:
				return 1
			case bm:
				return -1
			}
			c := less(a, b)
			if s.Desc {
				c = -c
			}
			return c
		})
	}
	return out
}

func (f Filters) match(r model.TransactionRecord) bool {
	if f.Institution != "" && r.Institution != f.Institution {
		return false
	}
	if f.Category != "" && r.Category != f.Category {
		return false
	}
	if !f.DateFrom.IsZero() || !f.DateTo.IsZero() {
		if r.Date.IsZero() {
			return false
		}
		if !f.DateFrom.IsZero() && r.Date.Before(f.DateFrom) {
			return false
		}
		if !f.DateTo.IsZero() && r.Date.After(f.DateTo) {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(r.Description), q) &&
			!strings.Contains(strings.ToLower(r.Category), q) &&
			!strings.Contains(strings.ToLower(r.Institution), q) {
			return false
		}
	}
	return true
}

func comparator(field string) func(a, b model.TransactionRecord) int {
	switch field {
	case FieldDate:
		return func(a, b model.TransactionRecord) int { return a.Date.Compare(b.Date) }
	case FieldAmount:
		return func(a, b model.TransactionRecord) int { return a.Amount.Cmp(b.Amount) }
	case FieldDescription:
		return byText(func(r model.TransactionRecord) string { return r.Description })
	case FieldCategory:
		return byText(func(r model.TransactionRecord) string { return r.Category })
	case FieldInstitution:
		return byText(func(r model.TransactionRecord) string { return r.Institution })
	}
	return nil
}

func byText(get func(model.TransactionRecord) string) func(a, b model.TransactionRecord) int {
	return func(a, b model.TransactionRecord) int {
		return cmp.Compare(strings.ToLower(get(a)), strings.ToLower(get(b)))
	}
}

func missing(field string, r model.TransactionRecord) bool {
	switch field {
	case FieldDate:
		return r.Date.IsZero()
	case FieldAmount:
		return r.Amount.IsZero()
	case FieldDescription:
		return strings.TrimSpace(r.Description) == ""
	case FieldCategory:
		return strings.TrimSpace(r.Category) == ""
	case FieldInstitution:
		return strings.TrimSpace(r.Institution) == ""
	}
	return false
}

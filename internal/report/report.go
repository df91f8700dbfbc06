// Package report summarizes spending per category and month.
package report

import (
	"cmp"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/budgetbook/budgetbook/internal/model"
)

// Month is a calendar month in YYYY-MM form.
type Month string

func monthOf(d model.Date) Month {
	return Month(d.Time().Format("2006-01"))
}

// CategoryLine is one category's activity over the report window.
type CategoryLine struct {
	Category string                    `json:"category"`
	Count    int                       `json:"count"`
	Total    decimal.Decimal           `json:"total"`
	Monthly  map[Month]decimal.Decimal `json:"monthly"`
	Mean     float64                   `json:"monthlyMean"`
	StdDev   float64                   `json:"monthlyStdDev"`
}

// Report is the spending summary of a set of transactions.
type Report struct {
	Months     []Month         `json:"months"`
	Income     decimal.Decimal `json:"income"`
	Expenses   decimal.Decimal `json:"expenses"`
	Net        decimal.Decimal `json:"net"`
	Categories []CategoryLine  `json:"categories"`
	Undated    int             `json:"undated"`
}

// Build groups records by category and month. Monthly statistics cover every
// month of the window, counting months without activity as zero. Records
// without a date count toward totals only. Categories are ordered by total
// outflow, largest first.
func Build(records []model.TransactionRecord) Report {
	r := Report{
		Months:     []Month{},
		Income:     decimal.Zero,
		Expenses:   decimal.Zero,
		Categories: []CategoryLine{},
	}

	lines := map[string]*CategoryLine{}
	var first, last time.Time
	for _, rec := range records {
		if rec.Amount.IsPositive() {
			r.Income = r.Income.Add(rec.Amount)
		} else {
			r.Expenses = r.Expenses.Add(rec.Amount)
		}

		l, ok := lines[rec.Category]
		if !ok {
			l = &CategoryLine{Category: rec.Category, Total: decimal.Zero, Monthly: map[Month]decimal.Decimal{}}
			lines[rec.Category] = l
		}
		l.Count++
		l.Total = l.Total.Add(rec.Amount)

		if rec.Date.IsZero() {
			r.Undated++
			continue
		}
		t := rec.Date.Time()
		if first.IsZero() || t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
		m := monthOf(rec.Date)
		l.Monthly[m] = l.Monthly[m].Add(rec.Amount)
	}
	r.Net = r.Income.Add(r.Expenses)
	r.Months = monthsBetween(first, last)

	for _, l := range lines {
		series := make([]float64, len(r.Months))
		for i, m := range r.Months {
			series[i] = l.Monthly[m].InexactFloat64()
		}
		l.Mean, l.StdDev = meanStdDev(series)
		r.Categories = append(r.Categories, *l)
	}
	slices.SortFunc(r.Categories, func(a, b CategoryLine) int {
		if c := a.Total.Cmp(b.Total); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return r
}

// monthsBetween lists every month from first to last inclusive.
func monthsBetween(first, last time.Time) []Month {
	months := []Month{}
	if first.IsZero() {
		return months
	}
	end := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)
	for m := time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, Month(m.Format("2006-01")))
	}
	return months
}

func meanStdDev(series []float64) (float64, float64) {
	switch len(series) {
	case 0:
		return 0, 0
	case 1:
		return series[0], 0
	}
	return stat.MeanStdDev(series, nil)
}

// Unusual returns the categories whose amount in month deviates from their
// monthly mean by more than k standard deviations.
func (r Report) Unusual(month Month, k float64) []CategoryLine {
	var out []CategoryLine
	for _, l := range r.Categories {
		if l.StdDev == 0 {
			continue
		}
		v := l.Monthly[month].InexactFloat64()
		if z := (v - l.Mean) / l.StdDev; z > k || z < -k {
			out = append(out, l)
		}
	}
	return out
}

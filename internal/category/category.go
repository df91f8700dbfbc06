// Package category assigns spending categories to transaction descriptions.
package category

import (
	"strings"

	"golang.org/x/text/cases"
)

// Canonical labels.
const (
	Pension   = "Pension"
	Transfers = "Transfers"
	Other     = "Other"
	Groceries = "Groceries"
	Transport = "Transport"
	Food      = "Food"
	Income    = "Income"
)

// Rule maps description keywords to a label. Keywords are case-folded.
type Rule struct {
	Label    string
	Keywords []string
}

// rules are evaluated in order; the first rule with a matching keyword wins.
var rules = []Rule{
	{Pension, []string{"пенсия", "pension"}},
	{Transfers, []string{"перевод с карты", "альфа-банк", "transfer"}},
	{Other, []string{"прочие операции", "прочие", "прочее", "other operations", "miscellaneous"}},
	{Groceries, []string{"продукт", "магнит", "пятерочка", "пятёрочка", "grocer", "supermarket"}},
	{Transport, []string{"транспорт", "метро", "автобус", "transport", "taxi"}},
	{Food, []string{"кафе", "ресторан", "еда", "cafe", "restaurant"}},
	{Income, []string{"зарплат", "доход", "salary", "income"}},
}

var synonyms = map[string]string{
	"прочее":           Other,
	"прочие":           Other,
	"прочие операции":  Other,
	"misc":             Other,
	"пенсия":           Pension,
	"переводы":         Transfers,
	"продукты":         Groceries,
	"транспорт":        Transport,
	"питание":          Food,
	"кафе и рестораны": Food,
	"доходы":           Income,
	"зарплата":         Income,
}

func init() {
	for _, r := range rules {
		synonyms[fold(r.Label)] = r.Label
	}
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// Classify returns the label of the first rule matching description, or Other.
func Classify(description string) string {
	d := fold(description)
	for _, r := range rules {
		for _, kw := range r.Keywords {
			if strings.Contains(d, kw) {
				return r.Label
			}
		}
	}
	return Other
}

// Canonical collapses synonyms of the fixed labels. Unknown labels are
// returned trimmed; an empty label is Other.
func Canonical(label string) string {
	l := strings.TrimSpace(label)
	if l == "" {
		return Other
	}
	if c, ok := synonyms[fold(l)]; ok {
		return c
	}
	return l
}

// Labels lists the fixed labels in rule order.
func Labels() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Label
	}
	return out
}

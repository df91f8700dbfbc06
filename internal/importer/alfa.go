package importer

import (
	"github.com/budgetbook/budgetbook/internal/amount"
	"github.com/budgetbook/budgetbook/internal/model"
)

// Alfabank statements prefix each description with an operation code and
// write amounts in RUR.
func Alfabank() *Grammar {
	g := &Grammar{
		key:         "alfa",
		institution: "Alfa-Bank",
		aliases:     []string{"alfabank", "alfa-bank", "альфа", "альфа-банк"},
		markers:     []string{"альфа-банк", "альфа банк", "альфабанк", "alfa-bank", "alfabank"},
		deny:        denyList("www.alfabank.ru"),
		convention:  amount.Either,
		layouts: []Layout{
			{Name: "date-description-income-expense-balance", Columns: []Column{
				{FieldDate, "A"}, {FieldDescription, "B"}, {FieldIncome, "C"}, {FieldExpense, "D"}, {FieldBalance, "E"},
			}},
			{Name: "date-description-amount-balance", Columns: []Column{
				{FieldDate, "A"}, {FieldDescription, "B"}, {FieldAmount, "C"}, {FieldBalance, "D"},
			}},
			{Name: "account-report", Columns: []Column{
				{FieldDate, "B"}, {FieldDescription, "L"}, {FieldAmount, "N"}, {FieldCategory, "F"},
			}},
		},
	}
	g.rules = []Rule{
		{
			Name:    "coded",
			Pattern: compile(`(\d{2}\.\d{2}\.\d{4})\s+([A-Z0-9_]+)\s+(.+?)\s+([+-]?\d[\d\s]*[.,]\d{2})\s*RUR`),
			Build: func(g *Grammar, m []string) model.Candidate {
				d, _ := g.ParseDate(m[1])
				c := model.Candidate{
					Date:        d,
					Amount:      nullAmount(g.ParseAmount(m[4])),
					Description: "[" + m[2] + "] " + m[3],
					Category:    g.Classify(m[3]),
				}
				c.SetMeta("code", m[2])
				return c
			},
		},
	}
	return g
}

package importer

import (
	"github.com/budgetbook/budgetbook/internal/amount"
	"github.com/budgetbook/budgetbook/internal/model"
)

// Tinkoff statements carry operation and posting timestamps, the amount in
// operation and card currency, the description and the card's last four digits.
func Tinkoff() *Grammar {
	g := &Grammar{
		key:         "tinkoff",
		institution: "Tinkoff",
		aliases:     []string{"tbank", "t-bank", "тинькофф", "тбанк"},
		markers:     []string{"тинькофф", "tinkoff", "тбанк"},
		deny:        denyList("www.tbank.ru", "www.tinkoff.ru"),
		convention:  amount.Either,
		layouts: []Layout{
			{Name: "date-description-amount-category", Columns: []Column{
				{FieldDate, "A"}, {FieldDescription, "B"}, {FieldAmount, "C"}, {FieldCategory, "D"},
			}},
			{Name: "date-time-description-amount-category", Columns: []Column{
				{FieldDate, "A"}, {FieldTime, "B"}, {FieldDescription, "C"}, {FieldAmount, "D"}, {FieldCategory, "E"},
			}},
		},
	}
	g.rules = []Rule{
		{
			Name:    "operation-posting",
			Pattern: compile(`(\d{2}\.\d{2}\.\d{4})\s+(\d{2}:\d{2})\s+\d{2}\.\d{2}\.\d{4}\s+\d{2}:\d{2}\s+([+-]?\d[\d\s]*[.,]\d{2})\s*₽\s*[+-]?\d[\d\s]*[.,]\d{2}\s*₽\s*([А-Яа-яЁёA-Za-z0-9 .№()%-]+?)\s+(\d{4})`),
			Build: func(g *Grammar, m []string) model.Candidate {
				c := tinkoffCandidate(g, m[1], m[4], m[3])
				c.SetMeta("time", m[2])
				c.SetMeta("card", m[5])
				return c
			},
		},
		{
			Name:    "date-time-description-amount",
			Pattern: compile(`(\d{2}\.\d{2}\.\d{4})\s+(\d{2}:\d{2})\s+(.+?)\s+([+-]?\d[\d\s]*[.,]\d{2})\s*₽`),
			Build: func(g *Grammar, m []string) model.Candidate {
				c := tinkoffCandidate(g, m[1], m[3], m[4])
				c.SetMeta("time", m[2])
				return c
			},
		},
	}
	return g
}

func tinkoffCandidate(g *Grammar, date, desc, amt string) model.Candidate {
	d, _ := g.ParseDate(date)
	return model.Candidate{
		Date:        d,
		Amount:      nullAmount(g.ParseAmount(amt)),
		Description: desc,
		Category:    g.Classify(desc),
	}
}

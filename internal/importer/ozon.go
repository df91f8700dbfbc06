package importer

import (
	"github.com/budgetbook/budgetbook/internal/amount"
	"github.com/budgetbook/budgetbook/internal/model"
)

// Ozon statements write the sign apart from the amount: "date hh:mm:ss
// number description + 1 000.00 ₽".
func Ozon() *Grammar {
	g := &Grammar{
		key:         "ozon",
		institution: "Ozon Bank",
		aliases:     []string{"ozonbank", "озон"},
		markers:     []string{"озон банк", "озон-банк", "ozon bank", "ozonbank", "ozon-bank"},
		deny:        denyList("www.ozon.ru"),
		convention:  amount.Either,
	}
	g.rules = []Rule{
		{
			Name:    "signed",
			Pattern: compile(`(\d{2}\.\d{2}\.\d{4})\s+(\d{2}:\d{2}:\d{2})\s+(\d+)\s+(.+?)\s+([+-])\s?([\d\s]+[.,]\d{2})\s?₽`),
			Build: func(g *Grammar, m []string) model.Candidate {
				d, _ := g.ParseDate(m[1])
				c := model.Candidate{
					Date:        d,
					Amount:      nullAmount(g.ParseAmount(m[5] + m[6])),
					Description: m[4],
					Category:    g.Classify(m[4]),
				}
				c.SetMeta("time", m[2])
				c.SetMeta("number", m[3])
				c.SetMeta("sign", m[5])
				return c
			},
		},
	}
	return g
}

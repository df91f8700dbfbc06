package importer

import (
	"github.com/budgetbook/budgetbook/internal/amount"
	"github.com/budgetbook/budgetbook/internal/model"
)

// sberFallbackDeny guards the loose fallback rules, which otherwise pick up
// headers and footers that happen to start with a date.
var sberFallbackDeny = []string{
	"действителен до",
	"для проверки подлинности",
	"итого по операциям",
	"остаток на",
	"генеральная лицензия",
	"расшифровка операций",
	"продолжение на следующей странице",
	"дата формирования",
	"пао сбербанк",
	"www.sberbank.ru",
	"альфа-банк",
	"www.alfabank.ru",
	"генеральная лицензия банка россии",
	"страница",
	"итого",
	"баланс на начало",
	"баланс на конец",
	"выписка",
	"период",
	"счет",
	"карта",
	"номер",
	"лицензия",
	"банк россии",
}

// Sberbank statements list "date time code description amount balance".
func Sberbank() *Grammar {
	g := &Grammar{
		key:         "sber",
		institution: "Sberbank",
		aliases:     []string{"sberbank", "сбер", "сбербанк"},
		markers:     []string{"сбербанк", "сбер банк", "sberbank"},
		deny:        denyList("пао сбербанк", "www.sberbank.ru"),
		convention:  amount.Comma,
		layouts: []Layout{
			{Name: "date-time-amount-description-balance", Columns: []Column{
				{FieldDate, "A"}, {FieldTime, "B"}, {FieldAmount, "C"}, {FieldDescription, "D"}, {FieldBalance, "E"},
			}},
			{Name: "date-description-amount-balance", Columns: []Column{
				{FieldDate, "A"}, {FieldDescription, "B"}, {FieldAmount, "C"}, {FieldBalance, "D"},
			}},
		},
	}
	fallback := func(c model.Candidate) bool {
		return hasDateAndAmount(c) && ValidDescription(c.Description, sberFallbackDeny)
	}
	g.rules = []Rule{
		{
			Name:    "full",
			Pattern: compile(`(\d{2}\.\d{2}\.\d{4})\s+(\d{2}:\d{2})\s+(\d+)\s+(.+?)\s+([+-]?\d{1,3}(?:\s\d{3})*(?:,\d{2})?)\s+(\d{1,3}(?:\s\d{3})*(?:,\d{2})?)`),
			Build: func(g *Grammar, m []string) model.Candidate {
				c := sberCandidate(g, m[1], m[4], m[5])
				c.SetMeta("time", m[2])
				c.SetMeta("code", m[3])
				c.Balance = nullAmount(g.ParseAmount(m[6]))
				return c
			},
		},
		{
			Name:    "date-description-amount",
			Pattern: compile(`(\d{2}\.\d{2}\.\d{4})\s+(.+?)\s+([+-]?\d{1,3}(?:\s\d{3})*(?:,\d{2})?)`),
			Build: func(g *Grammar, m []string) model.Candidate {
				return sberCandidate(g, m[1], m[2], m[3])
			},
			Accept: fallback,
		},
		{
			Name:    "date-time-description-amount",
			Pattern: compile(`(\d{2}\.\d{2}\.\d{4})\s+(\d{2}:\d{2})\s+(.+?)\s+([+-]?\d{1,3}(?:\s\d{3})*(?:,\d{2})?)`),
			Build: func(g *Grammar, m []string) model.Candidate {
				c := sberCandidate(g, m[1], m[3], m[4])
				c.SetMeta("time", m[2])
				return c
			},
			Accept: fallback,
		},
	}
	return g
}

func sberCandidate(g *Grammar, date, desc, amt string) model.Candidate {
	d, _ := g.ParseDate(date)
	return model.Candidate{
		Date:        d,
		Amount:      nullAmount(g.ParseAmount(amt)),
		Description: desc,
		Category:    g.Classify(desc),
	}
}

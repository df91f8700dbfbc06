package model

import (
	"maps"
	"strings"

	"github.com/shopspring/decimal"
)

// Candidate is a possibly-incomplete transaction produced by an extraction rule
// or a spreadsheet row. Every monetary field is optional.
type Candidate struct {
	Date        Date
	Amount      decimal.NullDecimal
	Income      decimal.NullDecimal
	Expense     decimal.NullDecimal
	Balance     decimal.NullDecimal
	Description string
	Category    string
	Institution string
	Raw         string
	Meta        map[string]string
}

// SetMeta records an institution-specific field, ignoring empty values.
func (c *Candidate) SetMeta(key, value string) {
	if value == "" {
		return
	}
	if c.Meta == nil {
		c.Meta = make(map[string]string)
	}
	c.Meta[key] = value
}

// Normalize folds separate income/expense columns into a signed Amount.
// Non-zero income wins over expense; the sign of either column is ignored.
func (c Candidate) Normalize() Candidate {
	switch {
	case c.Income.Valid && !c.Income.Decimal.IsZero():
		c.Amount = decimal.NewNullDecimal(c.Income.Decimal.Abs())
	case c.Expense.Valid && !c.Expense.Decimal.IsZero():
		c.Amount = decimal.NewNullDecimal(c.Expense.Decimal.Abs().Neg())
	}
	c.Income = decimal.NullDecimal{}
	c.Expense = decimal.NullDecimal{}
	c.Description = strings.TrimSpace(c.Description)
	c.Category = strings.TrimSpace(c.Category)
	return c
}

// Record converts a normalized candidate into a TransactionRecord. It reports
// false when the candidate has no date or a missing or zero amount.
func (c Candidate) Record() (TransactionRecord, bool) {
	if c.Date.IsZero() || !c.Amount.Valid || c.Amount.Decimal.IsZero() {
		return TransactionRecord{}, false
	}
	meta := maps.Clone(c.Meta)
	if c.Balance.Valid {
		if meta == nil {
			meta = make(map[string]string)
		}
		if _, ok := meta["balance"]; !ok {
			meta["balance"] = c.Balance.Decimal.String()
		}
	}
	return TransactionRecord{
		Date:        c.Date,
		Amount:      c.Amount.Decimal,
		Description: strings.TrimSpace(c.Description),
		Category:    c.Category,
		Institution: c.Institution,
		Raw:         c.Raw,
		Meta:        meta,
	}, true
}

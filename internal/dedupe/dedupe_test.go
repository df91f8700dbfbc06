package dedupe

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetbook/budgetbook/internal/model"
)

func rec(day int, amount, desc string) model.TransactionRecord {
	return model.TransactionRecord{
		Date:        model.NewDate(2024, 3, day),
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
		Category:    "Other",
		Institution: "Sberbank",
	}
}

func TestKey_Normalizes(t *testing.T) {
	a := rec(5, "-250.00", "Кафе  Пушкин")
	b := rec(5, "-250", "КАФЕ ПУШКИН")
	b.ID = "transaction-x"
	b.Raw = "different raw"
	assert.Equal(t, Key(a), Key(b))

	c := rec(5, "-250", "Кафе Пушкин")
	c.Institution = "Tinkoff"
	assert.NotEqual(t, Key(a), Key(c))

	d := rec(5, "-250", "Кафе Пушкин")
	d.Category = "Food"
	assert.NotEqual(t, Key(a), Key(d))
}

func TestDedupe_CrossFile(t *testing.T) {
	fileA := []model.TransactionRecord{rec(5, "-100", "Coffee"), rec(6, "200", "Salary")}
	fileB := []model.TransactionRecord{rec(6, "200", "Salary"), rec(7, "-5", "Bus")}

	res := Dedupe(fileA, fileB)
	require.Len(t, res.Unique, 1)
	assert.Equal(t, "Bus", res.Unique[0].Description)
	require.Len(t, res.Duplicates, 1)
	assert.Equal(t, "Salary", res.Duplicates[0].Description)
}

func TestDedupe_WithinIncoming(t *testing.T) {
	in := []model.TransactionRecord{rec(5, "-1", "a a a"), rec(5, "-1", "aaa"), rec(5, "-1", "bbb")}
	res := Dedupe(nil, in)
	assert.Equal(t, []model.TransactionRecord{in[0], in[2]}, res.Unique)
	assert.Equal(t, []model.TransactionRecord{in[1]}, res.Duplicates)
}

func TestDedupe_Idempotent(t *testing.T) {
	a := []model.TransactionRecord{rec(1, "1", "one"), rec(2, "2", "two"), rec(1, "1", "one")}
	b := []model.TransactionRecord{rec(2, "2", "two"), rec(3, "3", "three")}

	first := Collapse(a).Unique
	merged := append(first, Dedupe(first, b).Unique...)
	require.Len(t, merged, 3)

	again := Dedupe(merged, nil)
	assert.Empty(t, again.Unique)
	assert.Empty(t, again.Duplicates)

	collapsed := Collapse(merged)
	assert.Equal(t, merged, collapsed.Unique)
	assert.Empty(t, collapsed.Duplicates)
}

func TestDedupe_Empty(t *testing.T) {
	res := Dedupe(nil, nil)
	assert.Empty(t, res.Unique)
	assert.Empty(t, res.Duplicates)
}

func TestDedupe_MissingFields(t *testing.T) {
	in := []model.TransactionRecord{{}, {}, {Description: "x"}}
	res := Collapse(in)
	assert.Len(t, res.Unique, 2)
	assert.Len(t, res.Duplicates, 1)
}

package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/budgetbook/budgetbook/internal/model"
)

func TestBuild(t *testing.T) {
	records := []model.TransactionRecord{
		{Date: model.NewDate(2024, 1, 3), Amount: decimal.RequireFromString("-100"), Category: "Food"},
		{Date: model.NewDate(2024, 2, 9), Amount: decimal.RequireFromString("-300"), Category: "Food"},
		{Date: model.NewDate(2024, 3, 1), Amount: decimal.RequireFromString("-120"), Category: "Food"},
		{Date: model.NewDate(2024, 3, 20), Amount: decimal.RequireFromString("-80"), Category: "Food"},
		{Date: model.NewDate(2024, 1, 15), Amount: decimal.RequireFromString("-50"), Category: "Transport"},
		{Date: model.NewDate(2024, 3, 15), Amount: decimal.RequireFromString("-50"), Category: "Transport"},
		{Date: model.NewDate(2024, 1, 10), Amount: decimal.RequireFromString("1000"), Category: "Income"},
		{Amount: decimal.RequireFromString("-10"), Category: "Other"},
	}

	r := Build(records)

	assert.Equal(t, []Month{"2024-01", "2024-02", "2024-03"}, r.Months)
	assert.True(t, r.Income.Equal(decimal.NewFromInt(1000)))
	assert.True(t, r.Expenses.Equal(decimal.NewFromInt(-710)), r.Expenses.String())
	assert.True(t, r.Net.Equal(decimal.NewFromInt(290)))
	assert.Equal(t, 1, r.Undated)

	var order []string
	for _, l := range r.Categories {
		order = append(order, l.Category)
	}
	assert.Equal(t, []string{"Food", "Transport", "Other", "Income"}, order)

	food := r.Categories[0]
	assert.Equal(t, 4, food.Count)
	assert.True(t, food.Monthly["2024-03"].Equal(decimal.NewFromInt(-200)))
	assert.InDelta(t, -200, food.Mean, 1e-9)
	assert.InDelta(t, 100, food.StdDev, 1e-9)

	transport := r.Categories[1]
	_, ok := transport.Monthly["2024-02"]
	assert.False(t, ok)
	assert.InDelta(t, -100.0/3, transport.Mean, 1e-9)
}

func TestBuild_FillsQuietMonths(t *testing.T) {
	r := Build([]model.TransactionRecord{
		{Date: model.NewDate(2023, 12, 5), Amount: decimal.RequireFromString("-100"), Category: "Food"},
		{Date: model.NewDate(2024, 2, 5), Amount: decimal.RequireFromString("-100"), Category: "Food"},
	})

	assert.Equal(t, []Month{"2023-12", "2024-01", "2024-02"}, r.Months)
	require.Len(t, r.Categories, 1)
	food := r.Categories[0]
	assert.InDelta(t, -200.0/3, food.Mean, 1e-9)
	assert.InDelta(t, 57.735026919, food.StdDev, 1e-6)
	assert.Len(t, r.Unusual("2024-01", 1), 1)
}

func TestBuild_Empty(t *testing.T) {
	r := Build(nil)
	assert.Empty(t, r.Months)
	assert.Empty(t, r.Categories)
	assert.True(t, r.Net.IsZero())
}

func TestBuild_SingleMonthHasNoSpread(t *testing.T) {
	r := Build([]model.TransactionRecord{
		{Date: model.NewDate(2024, 5, 1), Amount: decimal.RequireFromString("-42.50"), Category: "Food"},
	})
	require.Len(t, r.Categories, 1)
	assert.InDelta(t, -42.5, r.Categories[0].Mean, 1e-9)
	assert.Zero(t, r.Categories[0].StdDev)
}

func TestUnusual(t *testing.T) {
	r := Build([]model.TransactionRecord{
		{Date: model.NewDate(2024, 1, 3), Amount: decimal.RequireFromString("-100"), Category: "Food"},
		{Date: model.NewDate(2024, 2, 9), Amount: decimal.RequireFromString("-300"), Category: "Food"},
		{Date: model.NewDate(2024, 3, 1), Amount: decimal.RequireFromString("-200"), Category: "Food"},
		{Date: model.NewDate(2024, 1, 15), Amount: decimal.RequireFromString("-50"), Category: "Transport"},
		{Date: model.NewDate(2024, 3, 15), Amount: decimal.RequireFromString("-50"), Category: "Transport"},
		{Amount: decimal.RequireFromString("-10"), Category: "Other"},
	})

	// Transport skipped February entirely, Food was one deviation off.
	got := r.Unusual("2024-02", 1.1)
	require.Len(t, got, 1)
	assert.Equal(t, "Transport", got[0].Category)

	assert.Len(t, r.Unusual("2024-02", 0.9), 2)
	assert.Empty(t, r.Unusual("2024-02", 2))
}

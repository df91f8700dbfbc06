package importer

import (
	"iter"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/amount"
	"github.com/budgetbook/budgetbook/internal/category"
	"github.com/budgetbook/budgetbook/internal/dates"
	"github.com/budgetbook/budgetbook/internal/grid"
	"github.com/budgetbook/budgetbook/internal/model"
)

// Field is a semantic spreadsheet column.
type Field string

const (
	FieldDate        Field = "date"
	FieldTime        Field = "time"
	FieldDescription Field = "description"
	FieldAmount      Field = "amount"
	FieldIncome      Field = "income"
	FieldExpense     Field = "expense"
	FieldBalance     Field = "balance"
	FieldCategory    Field = "category"
)

// Optional reports whether a layout may match without a header for f.
func (f Field) Optional() bool {
	return f == FieldTime || f == FieldCategory || f == FieldBalance
}

// Column binds a field to a column letter.
type Column struct {
	Field  Field
	Letter string
}

// Layout is a spreadsheet column mapping.
type Layout struct {
	Name    string
	Columns []Column
}

// Required returns the columns a header row must label for the layout to match.
func (l Layout) Required() []Column {
	var out []Column
	for _, c := range l.Columns {
		if !c.Field.Optional() {
			out = append(out, c)
		}
	}
	return out
}

// ExtractGrid yields one candidate per row below headerRow using layout.
// Rows that produce neither a date nor any amount are skipped.
func ExtractGrid(s Strategy, g grid.Grid, layout Layout, headerRow int) iter.Seq[model.Candidate] {
	return func(yield func(model.Candidate) bool) {
		for row := headerRow + 1; row <= g.RowCount(); row++ {
			c, ok := extractRow(s, g, layout, row)
			if !ok {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

func extractRow(s Strategy, g grid.Grid, layout Layout, row int) (model.Candidate, bool) {
	c := model.Candidate{Institution: s.Institution()}
	var raw []string
	for _, col := range layout.Columns {
		cell := g.Cell(row, grid.ColumnIndex(col.Letter))
		if cell.IsEmpty() {
			continue
		}
		raw = append(raw, strings.TrimSpace(cell.String()))
		switch col.Field {
		case FieldDate:
			c.Date = cellDate(s, cell)
		case FieldTime:
			c.SetMeta("time", strings.TrimSpace(cell.String()))
		case FieldDescription:
			c.Description = strings.TrimSpace(cell.String())
		case FieldCategory:
			c.Category = strings.TrimSpace(cell.String())
		case FieldAmount:
			c.Amount = nullAmount(cellAmount(s, cell))
		case FieldIncome:
			c.Income = nullAmount(cellAmount(s, cell))
		case FieldExpense:
			c.Expense = nullAmount(cellAmount(s, cell))
		case FieldBalance:
			c.Balance = nullAmount(cellAmount(s, cell))
		}
	}
	if len(raw) == 0 {
		return model.Candidate{}, false
	}
	if c.Category != "" {
		c.Category = category.Canonical(c.Category)
	} else {
		c.Category = s.Classify(c.Description)
	}
	c.Raw = strings.Join(raw, " | ")
	c.SetMeta("layout", layout.Name)
	c.SetMeta("row", strconv.Itoa(row))
	return c, true
}

func cellDate(s Strategy, cell grid.Cell) model.Date {
	var (
		d  model.Date
		ok bool
	)
	switch cell.Type {
	case grid.DateTime:
		d, ok = dates.FromTime(cell.Time)
	case grid.Number:
		d, ok = dates.FromSerial(cell.Number)
	default:
		d, ok = s.ParseDate(cell.Text)
	}
	if !ok {
		return model.Date{}
	}
	return d
}

func cellAmount(s Strategy, cell grid.Cell) decimal.Decimal {
	if cell.Type == grid.Number {
		return amount.FromFloat(cell.Number)
	}
	return s.ParseAmount(cell.Text)
}

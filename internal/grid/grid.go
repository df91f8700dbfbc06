// Package grid is the tabular view of a spreadsheet statement: a 1-based
// row/column matrix of typed cells.
package grid

import (
	"iter"
	"strconv"
	"strings"
	"time"
)

// CellType tags the value a Cell carries.
type CellType int

const (
	Empty CellType = iota
	String
	Number
	DateTime
)

// Cell is one spreadsheet value.
type Cell struct {
	Type   CellType
	Text   string
	Number float64
	Time   time.Time
}

// StringCell returns a string cell, or an empty cell for blank text.
func StringCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{Type: String, Text: s}
}

func NumberCell(f float64) Cell {
	return Cell{Type: Number, Number: f, Text: strconv.FormatFloat(f, 'f', -1, 64)}
}

func TimeCell(t time.Time) Cell {
	return Cell{Type: DateTime, Time: t, Text: t.Format(time.RFC3339)}
}

func (c Cell) IsEmpty() bool { return c.Type == Empty }

// String returns the cell's display text.
func (c Cell) String() string { return c.Text }

// Grid is read-only tabular input.
type Grid interface {
	RowCount() int
	// Cell returns the cell at row, col (both 1-based); out of range is Empty.
	Cell(row, col int) Cell
	// Cells yields the populated cells of a row with their column numbers.
	Cells(row int) iter.Seq2[int, Cell]
}

// Sheet is an in-memory Grid.
type Sheet struct {
	rows [][]Cell
}

// NewSheet wraps rows; rows[0] is row 1.
func NewSheet(rows [][]Cell) *Sheet {
	return &Sheet{rows: rows}
}

// FromStrings builds a sheet of string cells, typing numeric text as numbers.
func FromStrings(rows [][]string) *Sheet {
	out := make([][]Cell, len(rows))
	for i, r := range rows {
		out[i] = make([]Cell, len(r))
		for j, v := range r {
			out[i][j] = parseCell(v)
		}
	}
	return NewSheet(out)
}

func parseCell(v string) Cell {
	s := strings.TrimSpace(v)
	if s == "" {
		return Cell{}
	}
	if numeric(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return NumberCell(f)
		}
	}
	return StringCell(v)
}

// numeric rejects the words ParseFloat accepts ("NaN", "Inf").
func numeric(s string) bool {
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' && r != 'e' && r != 'E' {
			return false
		}
	}
	return true
}

func (s *Sheet) RowCount() int { return len(s.rows) }

func (s *Sheet) Cell(row, col int) Cell {
	if row < 1 || row > len(s.rows) {
		return Cell{}
	}
	r := s.rows[row-1]
	if col < 1 || col > len(r) {
		return Cell{}
	}
	return r[col-1]
}

func (s *Sheet) Cells(row int) iter.Seq2[int, Cell] {
	return func(yield func(int, Cell) bool) {
		if row < 1 || row > len(s.rows) {
			return
		}
		for i, c := range s.rows[row-1] {
			if c.IsEmpty() {
				continue
			}
			if !yield(i+1, c) {
				return
			}
		}
	}
}

// RowText joins the populated cells of a row with sep.
func RowText(g Grid, row int, sep string) string {
	var parts []string
	for _, c := range g.Cells(row) {
		parts = append(parts, strings.TrimSpace(c.String()))
	}
	return strings.Join(parts, sep)
}

// ColumnIndex converts a column letter ("A", "AB") to its 1-based number.
// It returns 0 for anything that is not a column letter.
func ColumnIndex(letter string) int {
	n := 0
	for _, r := range strings.ToUpper(strings.TrimSpace(letter)) {
		if r < 'A' || r > 'Z' {
			return 0
		}
		n = n*26 + int(r-'A'+1)
	}
	return n
}

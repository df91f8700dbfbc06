package grid

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

// ReadXLSX reads the first worksheet of an Office Open XML workbook.
// Numeric cells keep their raw value, so date-formatted cells arrive as
// serial day numbers.
func ReadXLSX(r io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", name, err)
	}

	out := make([][]Cell, len(rows))
	for i, row := range rows {
		out[i] = make([]Cell, len(row))
		for j, v := range row {
			if v == "" {
				continue
			}
			ref, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, fmt.Errorf("cell %d,%d: %w", i+1, j+1, err)
			}
			typ, err := f.GetCellType(name, ref)
			if err != nil {
				return nil, fmt.Errorf("cell %s: %w", ref, err)
			}
			out[i][j] = typedCell(typ, v)
		}
	}
	return NewSheet(out), nil
}

func typedCell(typ excelize.CellType, v string) Cell {
	switch typ {
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return NumberCell(f)
		}
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return TimeCell(t)
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return NumberCell(f)
		}
	}
	return StringCell(v)
}

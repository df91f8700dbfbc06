package grid

import (
	"fmt"
	"io"

	"github.com/extrame/xls"
)

// ReadXLS reads the first worksheet of a legacy BIFF workbook.
func ReadXLS(r io.ReadSeeker) (*Sheet, error) {
	wb, err := xls.OpenReader(r, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("opening XLS workbook: %w", err)
	}
	if wb.NumSheets() == 0 {
		return nil, fmt.Errorf("XLS workbook has no sheets")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, fmt.Errorf("reading first XLS sheet")
	}

	var rows [][]string
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		vals := make([]string, row.LastCol())
		for j := range vals {
			vals[j] = row.Col(j)
		}
		rows = append(rows, vals)
	}
	return FromStrings(rows), nil
}

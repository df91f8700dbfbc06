package grid

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestColumnIndex(t *testing.T) {
	tests := []struct {
		letter string
		want   int
	}{
		{"A", 1}, {"b", 2}, {"L", 12}, {"N", 14}, {"Z", 26}, {"AA", 27}, {"AZ", 52}, {"", 0}, {"A1", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ColumnIndex(tt.letter), tt.letter)
	}
}

func TestSheet_Cells(t *testing.T) {
	s := FromStrings([][]string{
		{"Дата", "", "Сумма"},
		{"05.03.2024", "Coffee", "-250.5", "NaN"},
	})
	assert.Equal(t, 2, s.RowCount())

	var cols []int
	for col := range s.Cells(1) {
		cols = append(cols, col)
	}
	assert.Equal(t, []int{1, 3}, cols)

	assert.Equal(t, String, s.Cell(2, 1).Type)
	assert.Equal(t, Number, s.Cell(2, 3).Type)
	assert.Equal(t, -250.5, s.Cell(2, 3).Number)
	assert.Equal(t, String, s.Cell(2, 4).Type)
	assert.True(t, s.Cell(3, 1).IsEmpty())
	assert.True(t, s.Cell(1, 9).IsEmpty())
	assert.True(t, s.Cell(0, 1).IsEmpty())

	assert.Equal(t, "05.03.2024 | Coffee | -250.5 | NaN", RowText(s, 2, " | "))
}

func TestReadCSV_Semicolon(t *testing.T) {
	in := "\xef\xbb\xbfДата;Описание;Сумма\n05.03.2024;Кафе;\"-1 250,00\"\n"
	s, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, s.RowCount())
	assert.Equal(t, "Дата", s.Cell(1, 1).Text)
	assert.Equal(t, "-1 250,00", s.Cell(2, 3).Text)
	assert.Equal(t, String, s.Cell(2, 3).Type)
}

func TestReadCSV_Comma(t *testing.T) {
	in := "Date,Description,Amount\n2024-03-05,Coffee,-4.50\n2024-03-06,Salary\n"
	s, err := ReadCSV(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 3, s.RowCount())
	assert.Equal(t, -4.5, s.Cell(2, 3).Number)
	assert.True(t, s.Cell(3, 3).IsEmpty())
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Дата", "Описание", "Сумма"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{45306, "Магнит", -1250.5}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"16.01.2024", "Метро", "-57,00"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	s, err := ReadXLSX(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, 3, s.RowCount())
	assert.Equal(t, "Описание", s.Cell(1, 2).Text)
	assert.Equal(t, Number, s.Cell(2, 1).Type)
	assert.Equal(t, 45306.0, s.Cell(2, 1).Number)
	assert.Equal(t, -1250.5, s.Cell(2, 3).Number)
	assert.Equal(t, String, s.Cell(3, 3).Type)
	assert.Equal(t, "-57,00", s.Cell(3, 3).Text)
}

func TestReadXLSX_NotAWorkbook(t *testing.T) {
	_, err := ReadXLSX(strings.NewReader("plain text"))
	assert.Error(t, err)
}

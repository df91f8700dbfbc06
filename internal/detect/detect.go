// Package detect decides which institution grammar applies to a document.
package detect

import (
	"fmt"
	"strings"

	"github.com/budgetbook/budgetbook/internal/grid"
	"github.com/budgetbook/budgetbook/internal/importer"
	"github.com/budgetbook/budgetbook/internal/model"
)

// DefaultHeaderScanRows bounds the search for a spreadsheet header row.
const DefaultHeaderScanRows = 20

// headerWords mark a row as a candidate header row.
var headerWords = []string{"дата", "описание", "сумма", "приход", "расход", "date", "description", "amount", "income", "expense"}

// vocabulary lists, per field, the header words that label it.
var vocabulary = map[importer.Field][]string{
	importer.FieldDate:        {"дата", "date"},
	importer.FieldDescription: {"описание", "операция", "назначение", "description", "transaction"},
	importer.FieldAmount:      {"сумма", "amount"},
	importer.FieldCategory:    {"категория", "category"},
	importer.FieldIncome:      {"приход", "доход", "поступлен", "income"},
	importer.FieldExpense:     {"расход", "списан", "expense"},
	importer.FieldBalance:     {"остаток", "баланс", "balance"},
	importer.FieldTime:        {"время", "time"},
}

// Detection is the outcome of format and institution detection.
type Detection struct {
	Strategy importer.Strategy
	// Institution is the display name for the statement. For spreadsheets it
	// comes from a content marker when one is found.
	Institution string
	Layout      *importer.Layout
	HeaderRow   int
	Marker      string
}

// Detector matches documents against a registry.
type Detector struct {
	registry *importer.Registry
	scanRows int
}

// New returns a Detector; scanRows <= 0 selects DefaultHeaderScanRows.
func New(registry *importer.Registry, scanRows int) *Detector {
	if scanRows <= 0 {
		scanRows = DefaultHeaderScanRows
	}
	return &Detector{registry: registry, scanRows: scanRows}
}

// Textual selects the grammar for extracted text. Text carries no reliable
// structure, so an explicit selection is required.
func (d *Detector) Textual(text, selection string) (*Detection, error) {
	if strings.TrimSpace(selection) == "" {
		return nil, model.NewError(model.KindInstitutionNotSelected,
			"select the issuing institution for text statements", text)
	}
	s, err := d.registry.Get(selection)
	if err != nil {
		return nil, err
	}
	return &Detection{Strategy: s, Institution: s.Institution()}, nil
}

// Tabular finds the header row and layout of a spreadsheet. When selection is
// set only that institution's layouts are tried and its name labels the result.
func (d *Detector) Tabular(g grid.Grid, selection string) (*Detection, error) {
	candidates := d.registry.Strategies()
	if strings.TrimSpace(selection) != "" {
		s, err := d.registry.Get(selection)
		if err != nil {
			return nil, err
		}
		candidates = []importer.Strategy{s}
	}

	var attempts []model.Attempt
	seen := make(map[string]bool)
	fail := func(s importer.Strategy, layout, reason string) {
		if layout != "" {
			// keep the first reason per layout
			k := s.Key() + "/" + layout
			if seen[k] {
				return
			}
			seen[k] = true
		}
		attempts = append(attempts, model.Attempt{Institution: s.Key(), Layout: layout, Reason: reason})
	}

	var found *Detection
	headerRows := 0
	for row := 1; row <= min(d.scanRows, g.RowCount()) && found == nil; row++ {
		if !isHeaderRow(g, row) {
			continue
		}
		headerRows++
		for _, s := range candidates {
			for _, l := range s.Layouts() {
				if reason := matchLayout(g, row, l); reason != "" {
					fail(s, l.Name, fmt.Sprintf("row %d: %s", row, reason))
					continue
				}
				found = &Detection{Strategy: s, Institution: s.Institution(), Layout: &l, HeaderRow: row}
				break
			}
			if found != nil {
				break
			}
		}
	}

	marked, marker := ScanGrid(g, d.registry)
	if found == nil {
		if headerRows == 0 {
			for _, s := range candidates {
				fail(s, "", fmt.Sprintf("no header row within the first %d rows", d.scanRows))
			}
		}
		if marked == nil {
			for _, s := range candidates {
				fail(s, "", "no institution marker found")
			}
		}
		e := model.NewError(model.KindFormatNotRecognized, "no known spreadsheet layout matched", headerSnippet(g))
		e.Attempts = attempts
		return nil, e
	}

	if selection == "" && marked != nil {
		found.Institution = marked.Institution()
		found.Marker = marker
	}
	return found, nil
}

func isHeaderRow(g grid.Grid, row int) bool {
	for _, c := range g.Cells(row) {
		if c.Type != grid.String {
			continue
		}
		text := strings.ToLower(c.Text)
		for _, w := range headerWords {
			if strings.Contains(text, w) {
				return true
			}
		}
	}
	return false
}

// matchLayout returns "" when every required column of l is labelled by a
// recognized header word, or the reason the layout does not fit.
func matchLayout(g grid.Grid, row int, l importer.Layout) string {
	for _, col := range l.Required() {
		cell := g.Cell(row, grid.ColumnIndex(col.Letter))
		if cell.IsEmpty() {
			return fmt.Sprintf("column %s (%s) has no header", col.Letter, col.Field)
		}
		if !labels(cell.Text, col.Field) {
			return fmt.Sprintf("column %s header %q is not a %s column", col.Letter, strings.TrimSpace(cell.Text), col.Field)
		}
	}
	return ""
}

func labels(header string, f importer.Field) bool {
	h := strings.ToLower(header)
	for _, w := range vocabulary[f] {
		if strings.Contains(h, w) {
			return true
		}
	}
	return false
}

func headerSnippet(g grid.Grid) string {
	for row := 1; row <= min(g.RowCount(), DefaultHeaderScanRows); row++ {
		if s := grid.RowText(g, row, " | "); s != "" {
			return s
		}
	}
	return ""
}

// ScanGrid returns the institution whose marker appears earliest in the
// string cells of g, read row by row, with the marker found.
func ScanGrid(g grid.Grid, registry *importer.Registry) (importer.Strategy, string) {
	var b strings.Builder
	for row := 1; row <= g.RowCount(); row++ {
		for _, c := range g.Cells(row) {
			if c.Type == grid.String {
				b.WriteString(c.Text)
				b.WriteByte('\n')
			}
		}
	}
	return ScanText(b.String(), registry)
}

// ScanText returns the institution whose marker occurs earliest in text.
// The letterhead comes before transaction descriptions that may name other
// banks. At the same offset the longer marker wins, then registry order.
// Callers may use it to preselect a grammar for text statements.
func ScanText(text string, registry *importer.Registry) (importer.Strategy, string) {
	lower := strings.ToLower(text)
	var best importer.Strategy
	var bestMarker string
	bestAt := -1
	for _, s := range registry.Strategies() {
		for _, m := range s.Markers() {
			at := strings.Index(lower, m)
			if at < 0 {
				continue
			}
			if bestAt < 0 || at < bestAt || (at == bestAt && len(m) > len(bestMarker)) {
				best, bestMarker, bestAt = s, m, at
			}
		}
	}
	return best, bestMarker
}

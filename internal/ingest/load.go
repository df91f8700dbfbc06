// Package ingest turns statement files into ledger records.
package ingest

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/budgetbook/budgetbook/internal/grid"
	"github.com/budgetbook/budgetbook/internal/model"
	"github.com/budgetbook/budgetbook/internal/pdftext"
	"github.com/budgetbook/budgetbook/internal/pipeline"
)

// Extensions lists the file types Load understands.
var Extensions = []string{".pdf", ".xlsx", ".xls", ".csv", ".txt"}

var (
	pdfMagic = []byte("%PDF-")
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
)

// Supported reports whether name has an extension Load understands.
func Supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load decodes data into a pipeline document. The container is chosen by
// the file extension, or by the leading bytes when the extension is not
// recognized.
func Load(name string, data []byte, institution string) (pipeline.Document, error) {
	doc := pipeline.Document{Name: name, Institution: institution}

	kind := strings.ToLower(filepath.Ext(name))
	if !Supported(name) {
		kind = sniff(data)
	}

	var err error
	switch kind {
	case ".pdf":
		doc.Container = pipeline.Textual
		doc.Text, err = pdftext.Text(data)
	case ".txt":
		doc.Container = pipeline.Textual
		doc.Text = decodeText(data)
	case ".xlsx":
		doc.Container = pipeline.Tabular
		doc.Grid, err = grid.ReadXLSX(bytes.NewReader(data))
	case ".xls":
		doc.Container = pipeline.Tabular
		doc.Grid, err = grid.ReadXLS(bytes.NewReader(data))
	case ".csv":
		doc.Container = pipeline.Tabular
		doc.Grid, err = grid.ReadCSV(strings.NewReader(decodeText(data)))
	default:
		return doc, model.NewError(model.KindUnsupportedContainer,
			fmt.Sprintf("unsupported file type %q", filepath.Ext(name)), string(head(data)))
	}
	if err != nil {
		return doc, fmt.Errorf("loading %s: %w", name, err)
	}
	return doc, nil
}

func sniff(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return ".pdf"
	case bytes.HasPrefix(data, zipMagic):
		return ".xlsx"
	case bytes.HasPrefix(data, oleMagic):
		return ".xls"
	}
	return ""
}

// decodeText returns data as UTF-8. Anything that is not valid UTF-8 is
// read as Windows-1251, the encoding of older Russian bank exports.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	out, err := charmap.Windows1251.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(out)
}

func head(data []byte) []byte {
	if len(data) > 32 {
		data = data[:32]
	}
	return bytes.ToValidUTF8(data, []byte("?"))
}

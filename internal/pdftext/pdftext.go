// Package pdftext extracts the text layer of PDF statements.
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Pages returns the text of each page in order. Words on a page are joined
// by single spaces, so a statement row wrapped over several lines reads as
// one run of text.
func Pages(r io.ReaderAt, size int64) (pages []string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("reading PDF: %v", p)
		}
	}()

	pr, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	n := pr.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	for i := 1; i <= n; i++ {
		page := pr.Page(i)
		if page.V.IsNull() {
			continue
		}
		pages = append(pages, pageText(page))
	}
	return pages, nil
}

func pageText(page pdf.Page) string {
	var words []string
	rows, err := page.GetTextByRow()
	if err == nil {
		for _, row := range rows {
			for _, w := range row.Content {
				if s := strings.TrimSpace(w.S); s != "" {
					words = append(words, s)
				}
			}
		}
	}
	if len(words) == 0 {
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		plain, err := page.GetPlainText(fonts)
		if err != nil {
			return ""
		}
		return strings.Join(strings.Fields(plain), " ")
	}
	return strings.Join(words, " ")
}

// Text joins pages with newlines. It fails when no page carries any text,
// which is the case for scanned, image-only documents.
func Text(data []byte) (string, error) {
	pages, err := Pages(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("PDF has no text layer")
	}
	return text, nil
}

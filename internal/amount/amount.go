// Package amount parses and formats monetary amounts written under
// locale-specific conventions.
package amount

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Convention describes how a locale writes numbers. Whitespace is always
// accepted as a thousands separator.
type Convention struct {
	Name      string
	Decimal   rune // decimal mark used by Format
	Thousands rune // extra thousands separator, 0 for none
	Lenient   bool // accept both '.' and ',' as the decimal mark

	grammar *regexp.Regexp
}

// NewConvention compiles the signed-number grammar for a convention.
func NewConvention(name string, decimalMark, thousands rune, lenient bool) Convention {
	marks := regexp.QuoteMeta(string(decimalMark))
	if lenient {
		marks = `.,`
	}
	integer := `\d+`
	if thousands != 0 {
		integer = `(?:\d{1,3}(?:` + regexp.QuoteMeta(string(thousands)) + `\d{3})+|\d+)`
	}
	return Convention{
		Name:      name,
		Decimal:   decimalMark,
		Thousands: thousands,
		Lenient:   lenient,
		grammar:   regexp.MustCompile(`[+-]?` + integer + `(?:[` + marks + `]\d+)?`),
	}
}

var (
	// Comma writes "12 345,67".
	Comma = NewConvention("comma", ',', 0, false)
	// Dot writes "12 345.67".
	Dot = NewConvention("dot", '.', 0, false)
	// Either reads "12 345.67" and "12 345,67" alike.
	Either = NewConvention("either", '.', 0, true)
)

var glyphs = strings.NewReplacer(
	"₽", "", "$", "", "€", "", "£", "",
	"RUR", "", "RUB", "", "руб.", "", "руб", "",
	"−", "-", // U+2212 minus sign
)

// Parse extracts the first number in text under conv. It returns zero when
// no number is found; it never fails.
func Parse(text string, conv Convention) decimal.Decimal {
	if conv.grammar == nil {
		conv = Either
	}
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, glyphs.Replace(text))

	m := conv.grammar.FindString(clean)
	if m == "" {
		return decimal.Zero
	}
	if conv.Thousands != 0 {
		m = strings.ReplaceAll(m, string(conv.Thousands), "")
	}
	m = strings.Replace(m, ",", ".", 1)
	m = strings.TrimPrefix(m, "+")
	d, err := decimal.NewFromString(m)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FromFloat converts a numeric spreadsheet cell.
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// Format renders d with two fraction digits under conv, grouping thousands
// with a space (or the convention's own separator).
func Format(d decimal.Decimal, conv Convention) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	sep := " "
	if conv.Thousands != 0 {
		sep = string(conv.Thousands)
	}
	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(sep)
		}
		b.WriteRune(r)
	}
	mark := conv.Decimal
	if mark == 0 {
		mark = '.'
	}
	b.WriteRune(mark)
	b.WriteString(frac)
	return b.String()
}

package importer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/model"
)

// DefaultSanityCeiling is the largest absolute amount accepted by default.
var DefaultSanityCeiling = decimal.NewFromInt(1_000_000)

// minDescriptionLen is the shortest description accepted, in runes.
const minDescriptionLen = 3

// commonBoilerplate appears in letterheads and page footers of every institution.
var commonBoilerplate = []string{
	"действителен до",
	"для проверки подлинности",
	"итого по операциям",
	"остаток на",
	"генеральная лицензия",
	"расшифровка операций",
	"продолжение на следующей странице",
	"дата формирования",
}

func denyList(extra ...string) []string {
	return append(append([]string(nil), commonBoilerplate...), extra...)
}

// NoiseFilter drops candidates that are statement boilerplate or implausible.
type NoiseFilter struct {
	Ceiling decimal.Decimal
}

// NewNoiseFilter returns a filter with the given ceiling; a zero or negative
// ceiling selects DefaultSanityCeiling.
func NewNoiseFilter(ceiling decimal.Decimal) NoiseFilter {
	if !ceiling.IsPositive() {
		ceiling = DefaultSanityCeiling
	}
	return NoiseFilter{Ceiling: ceiling}
}

// Reason explains why c is noise for s, or returns "" when c is kept.
func (f NoiseFilter) Reason(s Strategy, c model.Candidate) string {
	if r := descriptionReason(c.Description, s.DenyList()); r != "" {
		return r
	}
	ceiling := f.Ceiling
	if !ceiling.IsPositive() {
		ceiling = DefaultSanityCeiling
	}
	if c.Amount.Valid && c.Amount.Decimal.Abs().GreaterThan(ceiling) {
		return "amount above sanity ceiling"
	}
	return ""
}

// Keep reports whether c survives the filter.
func (f NoiseFilter) Keep(s Strategy, c model.Candidate) bool {
	return f.Reason(s, c) == ""
}

// ValidDescription reports whether desc looks like a real transaction description.
func ValidDescription(desc string, deny []string) bool {
	return descriptionReason(desc, deny) == ""
}

func descriptionReason(desc string, deny []string) string {
	d := strings.ToLower(strings.TrimSpace(desc))
	if utf8.RuneCountInString(d) < minDescriptionLen {
		return "description too short"
	}
	if strings.IndexFunc(d, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		return "description is only digits"
	}
	for _, phrase := range deny {
		if strings.Contains(d, phrase) {
			return "boilerplate: " + phrase
		}
	}
	return ""
}

package importer

import (
	"iter"
	"regexp"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/amount"
	"github.com/budgetbook/budgetbook/internal/category"
	"github.com/budgetbook/budgetbook/internal/dates"
	"github.com/budgetbook/budgetbook/internal/model"
)

// Rule is one extraction pattern. Build turns submatches into a candidate;
// Accept decides whether the candidate counts (nil accepts any candidate
// with a date and a non-zero amount).
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Build   func(g *Grammar, m []string) model.Candidate
	Accept  func(c model.Candidate) bool
}

func (r Rule) accepts(c model.Candidate) bool {
	if r.Accept != nil {
		return r.Accept(c)
	}
	return hasDateAndAmount(c)
}

func hasDateAndAmount(c model.Candidate) bool {
	return !c.Date.IsZero() && c.Amount.Valid && !c.Amount.Decimal.IsZero()
}

// Grammar is a table-driven Strategy.
type Grammar struct {
	key         string
	institution string
	aliases     []string
	markers     []string
	deny        []string
	convention  amount.Convention
	rules       []Rule
	layouts     []Layout
}

func (g *Grammar) Key() string { return g.key }
func (g *Grammar) Institution() string { return g.institution }
func (g *Grammar) Aliases() []string { return append([]string(nil), g.aliases...) }
func (g *Grammar) Markers() []string { return append([]string(nil), g.markers...) }
func (g *Grammar) DenyList() []string { return append([]string(nil), g.deny...) }
func (g *Grammar) Layouts() []Layout { return append([]Layout(nil), g.layouts...) }

// RuleNames lists the extraction rules in the order they are tried.
func (g *Grammar) RuleNames() []string {
	names := make([]string, len(g.rules))
	for i, r := range g.rules {
		names[i] = r.Name
	}
	return names
}

func (g *Grammar) ParseAmount(s string) decimal.Decimal { return amount.Parse(s, g.convention) }

func (g *Grammar) ParseDate(s string) (model.Date, bool) { return dates.Parse(s) }

func (g *Grammar) Classify(description string) string { return category.Classify(description) }

// Extract tries the rules in order. The first rule that produces at least one
// accepted candidate is used for the whole document; later rules are only
// consulted when every earlier rule produced nothing.
func (g *Grammar) Extract(text string) iter.Seq[model.Candidate] {
	return func(yield func(model.Candidate) bool) {
		for _, r := range g.rules {
			n := 0
			for m := range submatches(r.Pattern, text) {
				c := r.Build(g, m)
				c.Institution = g.institution
				c.Raw = m[0]
				c.SetMeta("pattern", r.Name)
				if !r.accepts(c) {
					continue
				}
				n++
				if !yield(c) {
					return
				}
			}
			if n > 0 {
				return
			}
		}
	}
}

// submatches yields successive non-overlapping matches of re in text.
func submatches(re *regexp.Regexp, text string) iter.Seq[[]string] {
	return func(yield func([]string) bool) {
		for pos := 0; pos < len(text); {
			loc := re.FindStringSubmatchIndex(text[pos:])
			if loc == nil {
				return
			}
			m := make([]string, len(loc)/2)
			for i := range m {
				if loc[2*i] >= 0 {
					m[i] = text[pos+loc[2*i] : pos+loc[2*i+1]]
				}
			}
			if !yield(m) {
				return
			}
			next := pos + loc[1]
			if loc[1] == loc[0] {
				_, size := utf8.DecodeRuneInString(text[next:])
				next += max(size, 1)
			}
			pos = next
		}
	}
}

// nullAmount wraps a parsed amount, leaving zero as "missing".
func nullAmount(d decimal.Decimal) decimal.NullDecimal {
	if d.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// ws matches any whitespace including the no-break spaces PDF text carries.
const ws = `[\s\p{Zs}]`

// compile expands the {ws} placeholder and compiles a rule pattern.
func compile(pattern string) *regexp.Regexp {
	return regexp.MustCompile(expandWS(pattern))
}

func expandWS(p string) string {
	out := make([]byte, 0, len(p))
	inClass := false
	for i := 0; i < len(p); i++ {
		switch {
		case p[i] == '\\' && i+1 < len(p) && p[i+1] == 's':
			if inClass {
				out = append(out, `\s\p{Zs}`...)
			} else {
				out = append(out, ws...)
			}
			i++
		case p[i] == '\\' && i+1 < len(p):
			out = append(out, p[i], p[i+1])
			i++
		default:
			switch p[i] {
			case '[':
				inClass = true
			case ']':
				inClass = false
			}
			out = append(out, p[i])
		}
	}
	return string(out)
}

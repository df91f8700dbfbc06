// Package importer holds the per-institution statement grammars and the
// registry that looks them up.
package importer

import (
	"fmt"
	"iter"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/budgetbook/budgetbook/internal/model"
)

// Strategy extracts transactions from one institution's statements.
type Strategy interface {
	// Key is the registry key, e.g. "sber".
	Key() string
	// Institution is the canonical display name, e.g. "Sberbank".
	Institution() string
	Aliases() []string
	// Extract yields candidates from statement text in document order.
	Extract(text string) iter.Seq[model.Candidate]
	// RuleNames lists the text extraction rules in fallback order.
	RuleNames() []string
	ParseAmount(s string) decimal.Decimal
	ParseDate(s string) (model.Date, bool)
	Classify(description string) string
	// Layouts are the spreadsheet column mappings, most specific first.
	Layouts() []Layout
	// Markers are lower-case phrases that identify the institution in a document.
	Markers() []string
	// DenyList holds lower-case boilerplate phrases that disqualify a description.
	DenyList() []string
}

// Registry maps institution keys and aliases to strategies. It is built once
// and never modified, so it is safe for concurrent use.
type Registry struct {
	ordered []Strategy
	byKey   map[string]Strategy
}

// NewRegistry creates a registry of strategies in the given order.
// Panics on a duplicate key or alias.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{byKey: make(map[string]Strategy)}
	for _, s := range strategies {
		for _, k := range append([]string{s.Key()}, s.Aliases()...) {
			k = strings.ToLower(k)
			if _, ok := r.byKey[k]; ok {
				panic("duplicate institution key: " + k)
			}
			r.byKey[k] = s
		}
		r.ordered = append(r.ordered, s)
	}
	return r
}

// Get returns the strategy for key or alias, ignoring case.
func (r *Registry) Get(key string) (Strategy, error) {
	s, ok := r.byKey[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		e := model.NewError(model.KindUnknownInstitution, fmt.Sprintf("unknown institution %q", key), "")
		return nil, e
	}
	return s, nil
}

// Strategies returns the registered strategies in registration order.
func (r *Registry) Strategies() []Strategy {
	return append([]Strategy(nil), r.ordered...)
}

// DefaultRegistry returns a registry with all built-in institutions.
func DefaultRegistry() *Registry {
	return NewRegistry(Sberbank(), Tinkoff(), Ozon(), Alfabank())
}

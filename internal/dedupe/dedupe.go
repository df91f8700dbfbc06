// Package dedupe detects transactions already present in a corpus.
package dedupe

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/budgetbook/budgetbook/internal/model"
)

// Result partitions incoming records, preserving their order.
type Result struct {
	Unique     []model.TransactionRecord
	Duplicates []model.TransactionRecord
}

// Key is the identity of a record: day, amount, description without
// whitespace and case-folded, institution and category. Two genuine
// same-day transactions with identical fields share a key.
func Key(r model.TransactionRecord) string {
	desc := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, r.Description)
	return strings.Join([]string{
		r.Date.String(),
		r.Amount.String(),
		cases.Fold().String(desc),
		r.Institution,
		r.Category,
	}, "\x1f")
}

// Dedupe splits incoming into records not yet in existing (or earlier in
// incoming) and duplicates. The first occurrence wins.
func Dedupe(existing, incoming []model.TransactionRecord) Result {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, r := range existing {
		seen[Key(r)] = struct{}{}
	}
	var res Result
	for _, r := range incoming {
		k := Key(r)
		if _, dup := seen[k]; dup {
			res.Duplicates = append(res.Duplicates, r)
			continue
		}
		seen[k] = struct{}{}
		res.Unique = append(res.Unique, r)
	}
	return res
}

// Collapse keeps the first record of every identity.
func Collapse(records []model.TransactionRecord) Result {
	return Dedupe(nil, records)
}

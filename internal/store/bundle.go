package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/budgetbook/budgetbook/internal/model"
)

// BundleVersion is written into every export.
const BundleVersion = "2.0"

// BundleFormat names the payload of a bundle.
const BundleFormat = "transactions"

// Bundle is the export/restore document.
type Bundle struct {
	Version      string                    `json:"version"`
	ExportedAt   time.Time                 `json:"exportedAt"`
	Format       string                    `json:"format"`
	Transactions []model.TransactionRecord `json:"transactions"`
	Categories   []string                  `json:"categories"`
	Summary      Summary                   `json:"summary"`
}

// Summary describes the contents of a bundle.
type Summary struct {
	TotalTransactions int           `json:"totalTransactions"`
	TotalCategories   int           `json:"totalCategories"`
	Banks             []string      `json:"banks"`
	DateRange         *model.Period `json:"dateRange"`
}

// NewBundle assembles a bundle and its summary.
func NewBundle(txns []model.TransactionRecord, categories []string, now time.Time) *Bundle {
	if txns == nil {
		txns = []model.TransactionRecord{}
	}
	if categories == nil {
		categories = []string{}
	}
	return &Bundle{
		Version:      BundleVersion,
		ExportedAt:   now.UTC(),
		Format:       BundleFormat,
		Transactions: txns,
		Categories:   categories,
		Summary:      summarize(txns, categories),
	}
}

func summarize(txns []model.TransactionRecord, categories []string) Summary {
	s := Summary{
		TotalTransactions: len(txns),
		TotalCategories:   len(categories),
		Banks:             []string{},
	}
	for _, t := range txns {
		if !slices.Contains(s.Banks, t.Institution) {
			s.Banks = append(s.Banks, t.Institution)
		}
		if t.Date.IsZero() {
			continue
		}
		if s.DateRange == nil {
			s.DateRange = &model.Period{From: t.Date, To: t.Date}
			continue
		}
		if t.Date.Before(s.DateRange.From) {
			s.DateRange.From = t.Date
		}
		if t.Date.After(s.DateRange.To) {
			s.DateRange.To = t.Date
		}
	}
	return s
}

// Write encodes the bundle as indented JSON.
func (b *Bundle) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding bundle: %w", err)
	}
	return nil
}

// ReadBundle decodes a bundle. A document without a transactions array
// is rejected.
func ReadBundle(r io.Reader) (*Bundle, error) {
	var raw struct {
		Bundle
		Transactions *[]json.RawMessage `json:"transactions"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	if raw.Transactions == nil {
		return nil, errors.New("invalid bundle: missing transactions array")
	}
	b := raw.Bundle
	b.Transactions = make([]model.TransactionRecord, 0, len(*raw.Transactions))
	for i, msg := range *raw.Transactions {
		if string(msg) == "null" {
			continue
		}
		var rec model.TransactionRecord
		if err := json.Unmarshal(msg, &rec); err != nil {
			return nil, fmt.Errorf("decoding transaction %d: %w", i, err)
		}
		b.Transactions = append(b.Transactions, rec)
	}
	return &b, nil
}

package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionRecord is one canonical transaction.
type TransactionRecord struct {
	ID          string // storage key; empty until persisted
	Date        Date
	Amount      decimal.Decimal // negative = outflow, positive = inflow
	Description string
	Category    string
	Institution string
	Raw         string
	Meta        map[string]string
	Account     string
	FileName    string
	CreatedAt   time.Time
}

// Clone returns a copy that shares no maps with r.
func (r TransactionRecord) Clone() TransactionRecord {
	r.Meta = maps.Clone(r.Meta)
	return r
}

type recordJSON struct {
	ID          string            `json:"id,omitempty"`
	Date        Date              `json:"date"`
	Amount      json.Number       `json:"amount"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Institution string            `json:"institution,omitempty"`
	Bank        string            `json:"bank,omitempty"`
	Raw         string            `json:"raw,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
	Account     string            `json:"account,omitempty"`
	FileName    string            `json:"fileName,omitempty"`
	CreatedAt   *time.Time        `json:"createdAt,omitempty"`
}

func (r TransactionRecord) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		ID:          r.ID,
		Date:        r.Date,
		Amount:      json.Number(r.Amount.String()),
		Description: r.Description,
		Category:    r.Category,
		Institution: r.Institution,
		Raw:         r.Raw,
		Meta:        r.Meta,
		Account:     r.Account,
		FileName:    r.FileName,
	}
	if !r.CreatedAt.IsZero() {
		out.CreatedAt = &r.CreatedAt
	}
	return json.Marshal(out)
}

// UnmarshalJSON also accepts quoted amounts and the legacy "bank" key.
func (r *TransactionRecord) UnmarshalJSON(b []byte) error {
	var in struct {
		recordJSON
		Amount json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	amt, err := decodeAmount(in.Amount)
	if err != nil {
		return err
	}
	*r = TransactionRecord{
		ID:          in.ID,
		Date:        in.Date,
		Amount:      amt,
		Description: in.Description,
		Category:    in.Category,
		Institution: in.Institution,
		Raw:         in.Raw,
		Meta:        in.Meta,
		Account:     in.Account,
		FileName:    in.FileName,
	}
	if r.Institution == "" {
		r.Institution = in.Bank
	}
	if in.CreatedAt != nil {
		r.CreatedAt = *in.CreatedAt
	}
	return nil
}

func decodeAmount(raw json.RawMessage) (decimal.Decimal, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return decimal.Zero, nil
	}
	s := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, err
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %s: %w", raw, err)
	}
	return d, nil
}

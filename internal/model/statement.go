package model

import (
	"encoding/json"
	"time"
)

// Period is the date range a statement covers.
type Period struct {
	From Date `json:"from"`
	To   Date `json:"to"`
}

// StatementHeader is the descriptive part of a Statement.
type StatementHeader struct {
	Institution string
	Account     string
	Owner       string
	Period      *Period
	FileName    string
	ParsedAt    time.Time
}

// Statement is the result of parsing one document. It is not modified after
// construction; Transactions returns copies.
type Statement struct {
	header       StatementHeader
	transactions []TransactionRecord
}

// NewStatement copies txns into a new Statement.
func NewStatement(h StatementHeader, txns []TransactionRecord) *Statement {
	if h.Period != nil {
		p := *h.Period
		h.Period = &p
	}
	own := make([]TransactionRecord, len(txns))
	for i, t := range txns {
		own[i] = t.Clone()
	}
	return &Statement{header: h, transactions: own}
}

func (s *Statement) Institution() string { return s.header.Institution }
func (s *Statement) Account() string { return s.header.Account }
func (s *Statement) Owner() string { return s.header.Owner }
func (s *Statement) FileName() string { return s.header.FileName }
func (s *Statement) ParsedAt() time.Time { return s.header.ParsedAt }
func (s *Statement) Len() int { return len(s.transactions) }

// Period returns a copy of the statement period, or nil when unknown.
func (s *Statement) Period() *Period {
	if s.header.Period == nil {
		return nil
	}
	p := *s.header.Period
	return &p
}

// Transactions returns a copy of the statement's records in document order.
func (s *Statement) Transactions() []TransactionRecord {
	out := make([]TransactionRecord, len(s.transactions))
	for i, t := range s.transactions {
		out[i] = t.Clone()
	}
	return out
}

func (s *Statement) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Institution  string              `json:"institution"`
		Account      string              `json:"account,omitempty"`
		Owner        string              `json:"owner,omitempty"`
		Period       *Period             `json:"period,omitempty"`
		FileName     string              `json:"fileName,omitempty"`
		ParsedAt     time.Time           `json:"parsedAt"`
		Transactions []TransactionRecord `json:"transactions"`
	}{
		Institution:  s.header.Institution,
		Account:      s.header.Account,
		Owner:        s.header.Owner,
		Period:       s.header.Period,
		FileName:     s.header.FileName,
		ParsedAt:     s.header.ParsedAt,
		Transactions: s.transactions,
	})
}

// Aggregate flattens statements into one collection. Each record is stamped
// with its statement's account and file name, and with the statement's
// institution when the record has none.
func Aggregate(statements ...*Statement) []TransactionRecord {
	var out []TransactionRecord
	for _, s := range statements {
		if s == nil {
			continue
		}
		for _, t := range s.Transactions() {
			if t.Institution == "" {
				t.Institution = s.header.Institution
			}
			t.Account = s.header.Account
			t.FileName = s.header.FileName
			out = append(out, t)
		}
	}
	return out
}

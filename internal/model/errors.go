package model

import (
	"fmt"
	"strings"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindUnsupportedContainer   ErrorKind = "unsupported_container"
	KindFormatNotRecognized    ErrorKind = "format_not_recognized"
	KindInstitutionNotSelected ErrorKind = "institution_not_selected"
	KindUnknownInstitution     ErrorKind = "unknown_institution"
)

// Attempt describes one institution/layout the detector tried and why it was rejected.
type Attempt struct {
	Institution string `json:"institution"`
	Layout      string `json:"layout,omitempty"`
	Reason      string `json:"reason"`
}

// Error is a terminal failure of statement processing.
type Error struct {
	Kind     ErrorKind
	Message  string
	Snippet  string
	Attempts []Attempt
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrUnsupportedContainer   = &Error{Kind: KindUnsupportedContainer, Message: "unsupported document container"}
	ErrFormatNotRecognized    = &Error{Kind: KindFormatNotRecognized, Message: "statement format not recognized"}
	ErrInstitutionNotSelected = &Error{Kind: KindInstitutionNotSelected, Message: "institution must be selected for text documents"}
	ErrUnknownInstitution     = &Error{Kind: KindUnknownInstitution, Message: "unknown institution"}
)

// NewError returns an Error of kind with a message and an input snippet.
func NewError(kind ErrorKind, msg, snippet string) *Error {
	return &Error{Kind: kind, Message: msg, Snippet: Snippet(snippet, 80)}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if b.Len() == 0 {
		b.WriteString(string(e.Kind))
	}
	if e.Snippet != "" {
		fmt.Fprintf(&b, " (input %q)", e.Snippet)
	}
	if len(e.Attempts) > 0 {
		b.WriteString("; tried:")
		for i, a := range e.Attempts {
			if i > 0 {
				b.WriteString(";")
			}
			b.WriteString(" ")
			b.WriteString(a.Institution)
			if a.Layout != "" {
				b.WriteString("/" + a.Layout)
			}
			b.WriteString(": " + a.Reason)
		}
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Snippet returns at most n runes of s with runs of whitespace collapsed.
func Snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

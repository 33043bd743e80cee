package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidSelector is matched by every *InvalidSelectorError.
	ErrInvalidSelector = errors.New("invalid selector")
)

// ValidationError reports a malformed input record. The whole derivation
// call fails; offending records are never skipped or coerced.
type ValidationError struct {
	Entity string // transaction, obligation, product
	ID     string
	Field  string
	Err    error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid ")
	b.WriteString(e.Entity)
	if e.ID != "" {
		fmt.Fprintf(&b, " %q", e.ID)
	}
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrValidation}
	}
	return []error{ErrValidation, e.Err}
}

// InvalidSelectorError is returned when a transaction filter is asked for a
// kind it does not know.
type InvalidSelectorError struct {
	Value string
}

func (e *InvalidSelectorError) Error() string {
	return fmt.Sprintf("invalid selector %q: must be one of all, income, expense", e.Value)
}

func (e *InvalidSelectorError) Unwrap() error {
	return ErrInvalidSelector
}

package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the construction and decoding stages.
// Match them with errors.Is; typed errors below wrap them.
var (
	// ErrNoLayout is returned when no record layout could be produced for the
	// requested source and selection filter.
	ErrNoLayout = errors.New("no structure found for selected filters in source")

	// ErrInvariant is returned when a contract, record or field violates a
	// construction-time invariant.
	ErrInvariant = errors.New("contract invariant violated")

	// ErrTemplateCycle is returned when LIKE template references form a cycle.
	ErrTemplateCycle = errors.New("template reference cycle")

	// ErrLineLength is returned when a line does not match the contract line
	// length in strict mode.
	ErrLineLength = errors.New("line length mismatch")

	// ErrUnknownRecord is returned when no selector matches a line.
	ErrUnknownRecord = errors.New("unknown record type")

	// ErrStructure is returned when structural validation is enforced and the
	// decoded document violates its grammar.
	ErrStructure = errors.New("document structure violated")
)

// InvariantError describes which record or field broke a contract invariant.
type InvariantError struct {
	Record  string
	Field   string
	Message string
}

func (e *InvariantError) Error() string {
	switch {
	case e.Record != "" && e.Field != "":
		return fmt.Sprintf("record %s, field %s: %s", e.Record, e.Field, e.Message)
	case e.Record != "":
		return fmt.Sprintf("record %s: %s", e.Record, e.Message)
	case e.Field != "":
		return fmt.Sprintf("field %s: %s", e.Field, e.Message)
	default:
		return e.Message
	}
}

// Unwrap lets errors.Is(err, ErrInvariant) succeed.
func (e *InvariantError) Unwrap() error {
	return ErrInvariant
}

func invariantf(record, field, format string, args ...any) error {
	return &InvariantError{Record: record, Field: field, Message: fmt.Sprintf(format, args...)}
}

package core

import "strings"

// FieldType is the logical type of a fixed-width field.
type FieldType string

// Field type constants.
const (
	FieldString  FieldType = "string"
	FieldInteger FieldType = "integer"
	FieldDecimal FieldType = "decimal"
	FieldDate    FieldType = "date"
	FieldSign    FieldType = "sign"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldString, FieldInteger, FieldDecimal, FieldDate, FieldSign:
		return true
	default:
		return false
	}
}

// Numeric reports whether values of this type are coerced to numbers.
func (t FieldType) Numeric() bool {
	return t == FieldInteger || t == FieldDecimal
}

// ParseFieldType converts a string to a FieldType.
// Returns FieldString and false if the name is unknown.
func ParseFieldType(s string) (FieldType, bool) {
	t := FieldType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return FieldString, false
	}
	return t, true
}

// FieldSpec describes one field of a record: a 1-based inclusive byte range
// plus its logical type.
type FieldSpec struct {
	Name        string    `json:"name" jsonschema:"minLength=1"`
	Start       int       `json:"start" jsonschema:"minimum=1"`
	Length      int       `json:"length" jsonschema:"minimum=1"`
	Type        FieldType `json:"type" jsonschema:"enum=string,enum=integer,enum=decimal,enum=date,enum=sign"`
	Decimals    *int      `json:"decimals" jsonschema:"minimum=0"`
	Description string    `json:"description,omitempty"`
}

// NewField builds a non-decimal field and validates it.
func NewField(name string, start, length int, t FieldType) (FieldSpec, error) {
	f := FieldSpec{Name: name, Start: start, Length: length, Type: t}
	return f, f.Validate()
}

// NewDecimalField builds a decimal field carrying an implicit scale.
func NewDecimalField(name string, start, length, decimals int) (FieldSpec, error) {
	f := FieldSpec{Name: name, Start: start, Length: length, Type: FieldDecimal, Decimals: IntPtr(decimals)}
	return f, f.Validate()
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// End returns the last byte position covered by the field (inclusive).
func (f FieldSpec) End() int {
	return f.Start + f.Length - 1
}

// Scale returns the implicit decimal digit count, 0 for non-decimal fields.
func (f FieldSpec) Scale() int {
	if f.Decimals == nil {
		return 0
	}
	return *f.Decimals
}

// WithStart returns a copy of f moved to a new start position.
func (f FieldSpec) WithStart(start int) FieldSpec {
	c := f
	c.Start = start
	if f.Decimals != nil {
		c.Decimals = IntPtr(*f.Decimals)
	}
	return c
}

// Validate checks the field invariants. A decimal field must carry a
// non-negative scale and every other type must carry none.
func (f FieldSpec) Validate() error {
	if f.Name == "" {
		return invariantf("", "", "field name is required")
	}
	if f.Start < 1 {
		return invariantf("", f.Name, "start must be >= 1, got %d", f.Start)
	}
	if f.Length < 1 {
		return invariantf("", f.Name, "length must be >= 1, got %d", f.Length)
	}
	if !f.Type.Valid() {
		return invariantf("", f.Name, "unknown field type %q", f.Type)
	}
	if f.Type == FieldDecimal {
		if f.Decimals == nil {
			return invariantf("", f.Name, "decimals is required for decimal type")
		}
		if *f.Decimals < 0 {
			return invariantf("", f.Name, "decimals must be >= 0, got %d", *f.Decimals)
		}
	} else if f.Decimals != nil {
		return invariantf("", f.Name, "decimals must be null when type is %s", f.Type)
	}
	return nil
}

// SelectorSpec identifies a record type by a literal value at a byte range.
type SelectorSpec struct {
	Start  int    `json:"start" jsonschema:"minimum=1"`
	Length int    `json:"length" jsonschema:"minimum=1"`
	Value  string `json:"value" jsonschema:"minLength=1"`
}

// End returns the last byte position of the selector range (inclusive).
func (s SelectorSpec) End() int {
	return s.Start + s.Length - 1
}

// Matches reports whether line carries the selector value at its range.
// Positions count characters, not UTF-8 bytes.
func (s SelectorSpec) Matches(line []rune) bool {
	from := s.Start - 1
	to := from + s.Length
	if from < 0 || to > len(line) {
		return false
	}
	return string(line[from:to]) == s.Value
}

// Validate checks the selector invariants.
func (s SelectorSpec) Validate() error {
	if s.Start < 1 {
		return invariantf("", "selector", "start must be >= 1, got %d", s.Start)
	}
	if s.Length < 1 {
		return invariantf("", "selector", "length must be >= 1, got %d", s.Length)
	}
	if s.Value == "" {
		return invariantf("", "selector", "value is required")
	}
	return nil
}

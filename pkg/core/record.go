package core

import (
	"errors"
	"sort"
	"strings"
)

// RecordSpec is one fixed-width record shape: a selector plus its fields.
type RecordSpec struct {
	Name     string       `json:"name" jsonschema:"minLength=1"`
	Selector SelectorSpec `json:"selector"`
	Fields   []FieldSpec  `json:"fields" jsonschema:"minItems=1"`
}

// SumOfLengths returns the total number of bytes declared by the fields.
func (r *RecordSpec) SumOfLengths() int {
	total := 0
	for _, f := range r.Fields {
		total += f.Length
	}
	return total
}

// MaxEnd returns the highest end position over all fields.
func (r *RecordSpec) MaxEnd() int {
	end := 0
	for _, f := range r.Fields {
		if e := f.End(); e > end {
			end = e
		}
	}
	return end
}

// Field returns the field with the given name.
func (r *RecordSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// SortedFields returns the fields ordered by start position.
func (r *RecordSpec) SortedFields() []FieldSpec {
	ordered := make([]FieldSpec, len(r.Fields))
	copy(ordered, r.Fields)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})
	return ordered
}

// Validate checks field validity, unique names and non-overlapping ranges.
func (r *RecordSpec) Validate() error {
	if r.Name == "" {
		return invariantf("", "", "record name is required")
	}
	if err := r.Selector.Validate(); err != nil {
		return withRecord(err, r.Name)
	}
	if len(r.Fields) == 0 {
		return invariantf(r.Name, "", "at least one field is required")
	}

	seen := make(map[string]int, len(r.Fields))
	var duplicates []string
	for _, f := range r.Fields {
		if err := f.Validate(); err != nil {
			return withRecord(err, r.Name)
		}
		seen[f.Name]++
		if seen[f.Name] == 2 {
			duplicates = append(duplicates, f.Name)
		}
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return invariantf(r.Name, "", "duplicate field names: %s", strings.Join(duplicates, ", "))
	}

	previousEnd := 0
	for _, f := range r.SortedFields() {
		if f.Start <= previousEnd {
			return invariantf(r.Name, f.Name, "overlapping fields: starts at %d but previous field ends at %d", f.Start, previousEnd)
		}
		previousEnd = f.End()
	}
	return nil
}

func withRecord(err error, record string) error {
	var ie *InvariantError
	if errors.As(err, &ie) && ie.Record == "" {
		ie.Record = record
	}
	return err
}

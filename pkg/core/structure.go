package core

import (
	"sort"
	"strings"
)

// StructureScope is the region of a document in which a rule counts records.
type StructureScope string

// Structure scopes.
const (
	ScopeFile    StructureScope = "file"
	ScopeInvoice StructureScope = "invoice"
	ScopeLine    StructureScope = "line"
)

// Valid reports whether s is a known scope.
func (s StructureScope) Valid() bool {
	switch s {
	case ScopeFile, ScopeInvoice, ScopeLine:
		return true
	default:
		return false
	}
}

// StructureRule constrains the decoded record stream: how often a record may
// occur in its scope and where it sits in the section order. Label may differ
// from RecordName when one record type is reused in two scopes, e.g. REF(E)
// and REF(L).
type StructureRule struct {
	Label       string         `json:"label" yaml:"label" jsonschema:"minLength=1"`
	RecordName  string         `json:"record_name" yaml:"record_name" jsonschema:"minLength=1"`
	Scope       StructureScope `json:"scope" yaml:"scope" jsonschema:"enum=file,enum=invoice,enum=line"`
	MinOccurs   int            `json:"min_occurs" yaml:"min_occurs" jsonschema:"minimum=0"`
	MaxOccurs   *int           `json:"max_occurs" yaml:"max_occurs" jsonschema:"minimum=1"`
	OrderIndex  int            `json:"order_index" yaml:"order_index" jsonschema:"minimum=1"`
	Description string         `json:"description,omitempty" yaml:"description"`
}

// Validate checks the rule bounds.
func (r StructureRule) Validate() error {
	if r.Label == "" {
		return invariantf("", "", "structure rule label is required")
	}
	if r.RecordName == "" {
		return invariantf("", "", "structure rule %s: record name is required", r.Label)
	}
	if !r.Scope.Valid() {
		return invariantf("", "", "structure rule %s: unknown scope %q", r.Label, r.Scope)
	}
	if r.MinOccurs < 0 {
		return invariantf("", "", "structure rule %s: min_occurs must be >= 0", r.Label)
	}
	if r.MaxOccurs != nil {
		if *r.MaxOccurs < 1 {
			return invariantf("", "", "structure rule %s: max_occurs must be >= 1", r.Label)
		}
		if *r.MaxOccurs < r.MinOccurs {
			return invariantf("", "", "structure rule %s: max_occurs must be >= min_occurs", r.Label)
		}
	}
	if r.OrderIndex < 1 {
		return invariantf("", "", "structure rule %s: order_index must be >= 1", r.Label)
	}
	return nil
}

// Allows reports whether count is within [MinOccurs, MaxOccurs].
func (r StructureRule) Allows(count int) bool {
	if count < r.MinOccurs {
		return false
	}
	return r.MaxOccurs == nil || count <= *r.MaxOccurs
}

// SortRules returns the rules ordered by order index, then label.
func SortRules(rules []StructureRule) []StructureRule {
	ordered := append([]StructureRule(nil), rules...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].OrderIndex != ordered[j].OrderIndex {
			return ordered[i].OrderIndex < ordered[j].OrderIndex
		}
		return ordered[i].Label < ordered[j].Label
	})
	return ordered
}

// RuleLabels returns the labels of rules, upper-cased, in order.
func RuleLabels(rules []StructureRule) []string {
	labels := make([]string, 0, len(rules))
	for _, r := range SortRules(rules) {
		labels = append(labels, strings.ToUpper(r.Label))
	}
	return labels
}

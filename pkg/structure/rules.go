package structure

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// DefaultSource is the structure_source recorded with the default rules.
const DefaultSource = "DOCTECHN IDIL section 3.2"

// DefaultInvoiceRules returns the IDIL invoice document grammar: one file
// header, then invoice blocks of header, due dates, comments, header
// references, two address lines, detail lines with their own references and
// installments, and an optional footer.
func DefaultInvoiceRules() []core.StructureRule {
	return []core.StructureRule{
		{Label: "FIC", RecordName: "FIC", Scope: core.ScopeFile, MinOccurs: 1, MaxOccurs: core.IntPtr(1), OrderIndex: 1, Description: "File header"},
		{Label: "ENT", RecordName: "ENT", Scope: core.ScopeInvoice, MinOccurs: 1, MaxOccurs: core.IntPtr(1), OrderIndex: 2, Description: "Invoice header"},
		{Label: "ECH", RecordName: "ECH", Scope: core.ScopeInvoice, MinOccurs: 1, MaxOccurs: nil, OrderIndex: 3, Description: "Due dates"},
		{Label: "COM", RecordName: "COM", Scope: core.ScopeInvoice, MinOccurs: 0, MaxOccurs: nil, OrderIndex: 4, Description: "Free comments"},
		{Label: "REF(E)", RecordName: "REF", Scope: core.ScopeInvoice, MinOccurs: 0, MaxOccurs: nil, OrderIndex: 5, Description: "Invoice references"},
		{Label: "ADR", RecordName: "ADR", Scope: core.ScopeInvoice, MinOccurs: 1, MaxOccurs: core.IntPtr(1), OrderIndex: 6, Description: "Address line"},
		{Label: "AD2", RecordName: "AD2", Scope: core.ScopeInvoice, MinOccurs: 1, MaxOccurs: core.IntPtr(1), OrderIndex: 7, Description: "Address line complement"},
		{Label: "LIG", RecordName: "LIG", Scope: core.ScopeInvoice, MinOccurs: 1, MaxOccurs: nil, OrderIndex: 8, Description: "Invoice line"},
		{Label: "REF(L)", RecordName: "REF", Scope: core.ScopeLine, MinOccurs: 0, MaxOccurs: nil, OrderIndex: 9, Description: "Line reference"},
		{Label: "LEC", RecordName: "LEC", Scope: core.ScopeLine, MinOccurs: 0, MaxOccurs: nil, OrderIndex: 10, Description: "Line installment"},
		{Label: "PIE", RecordName: "PIE", Scope: core.ScopeInvoice, MinOccurs: 0, MaxOccurs: nil, OrderIndex: 11, Description: "Invoice footer / VAT recap"},
	}
}

// RuleSet is the YAML form of a rules file.
type RuleSet struct {
	Source string               `yaml:"source"`
	Rules  []core.StructureRule `yaml:"rules"`
}

// ReadRules decodes and validates a YAML rule set.
func ReadRules(r io.Reader) (*RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil {
		return nil, fmt.Errorf("failed to decode rules: %w", err)
	}
	if len(rs.Rules) == 0 {
		return nil, fmt.Errorf("rules file declares no rules")
	}
	labels := make(map[string]struct{}, len(rs.Rules))
	for _, rule := range rs.Rules {
		if err := rule.Validate(); err != nil {
			return nil, err
		}
		if _, dup := labels[rule.Label]; dup {
			return nil, fmt.Errorf("duplicate rule label %q", rule.Label)
		}
		labels[rule.Label] = struct{}{}
	}
	return &rs, nil
}

// LoadRules reads a rule set from a YAML file. The file path becomes the
// source when the file does not name one.
func LoadRules(path string) (*RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer func() { _ = f.Close() }()

	rs, err := ReadRules(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if rs.Source == "" {
		rs.Source = path
	}
	return rs, nil
}

// MarshalRules renders rules as a YAML rule set.
func MarshalRules(source string, rules []core.StructureRule) ([]byte, error) {
	return yaml.Marshal(RuleSet{Source: source, Rules: core.SortRules(rules)})
}

var qualifiedLabelRe = regexp.MustCompile(`^([A-Z0-9_]+)\(([A-Z0-9_]+)\)$`)

// labelPattern matches a rule label in free text. Qualified labels such as
// REF(E) tolerate spaces before the parenthesis.
func labelPattern(label string) *regexp.Regexp {
	upper := strings.ToUpper(label)
	if m := qualifiedLabelRe.FindStringSubmatch(upper); m != nil {
		return regexp.MustCompile(`(?i)` + regexp.QuoteMeta(m[1]) + `\s*\(` + regexp.QuoteMeta(m[2]) + `\)`)
	}
	return regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(upper) + `\b`)
}

// MissingLabels returns the rule labels that do not occur in text, sorted.
func MissingLabels(text string, rules []core.StructureRule) []string {
	var missing []string
	for _, label := range core.RuleLabels(rules) {
		if !labelPattern(label).MatchString(text) {
			missing = append(missing, label)
		}
	}
	sort.Strings(missing)
	return missing
}

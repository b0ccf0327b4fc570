package dialect

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/layout"
)

// Filter selects top-level structures by exact name or name prefix.
type Filter struct {
	Names    []string
	Prefixes []string
}

// Empty reports whether the filter selects nothing explicitly.
func (f Filter) Empty() bool {
	return len(f.Names) == 0 && len(f.Prefixes) == 0
}

// matcher is a filter normalized with a dialect's identifier rules.
type matcher struct {
	names    map[string]struct{}
	prefixes []string
}

func (d *Dialect) matcher(f Filter) matcher {
	if f.Empty() {
		f = Filter{Prefixes: d.config.DefaultPrefixes}
	}
	m := matcher{names: make(map[string]struct{}, len(f.Names))}
	for _, n := range f.Names {
		if n = d.normalize(strings.TrimSpace(n)); n != "" {
			m.names[n] = struct{}{}
		}
	}
	for _, p := range f.Prefixes {
		if p = d.normalize(strings.TrimSpace(p)); p != "" {
			m.prefixes = append(m.prefixes, p)
		}
	}
	return m
}

func (m matcher) match(name string) bool {
	if len(m.names) == 0 && len(m.prefixes) == 0 {
		return true
	}
	if _, ok := m.names[name]; ok {
		return true
	}
	for _, p := range m.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// BuildOptions control record assembly.
type BuildOptions struct {
	Filter        Filter
	PreserveNames bool
}

// Records is the outcome of flattening one source.
type Records struct {
	Records     []core.RecordSpec
	Diagnostics []layout.Diagnostic
}

// Build flattens the selected structures of src into record specs.
// Structures without a record name or without fields are dropped; the first
// structure wins when two map to the same record name. No record at all is
// core.ErrNoLayout.
func (d *Dialect) Build(src *layout.Source, opts BuildOptions) (*Records, error) {
	fl, err := layout.NewFlattener(src, d.LayoutOptions())
	if err != nil {
		return nil, err
	}

	out := &Records{
		Diagnostics: append(append([]layout.Diagnostic(nil), src.Diagnostics...), fl.Diagnostics()...),
	}
	m := d.matcher(opts.Filter)
	seen := make(map[string]struct{})

	for _, tree := range src.Trees {
		if !m.match(d.normalize(tree.Name)) {
			continue
		}
		name, ok := d.naming(tree.Name, opts.PreserveNames)
		if !ok {
			continue
		}
		if _, dup := seen[name]; dup {
			out.Diagnostics = append(out.Diagnostics, layout.Diagnostic{
				Line:    tree.Line,
				Message: fmt.Sprintf("structure %s maps to record %s already defined, ignored", tree.Name, name),
			})
			continue
		}
		fields, _ := fl.Flatten(tree)
		if len(fields) == 0 {
			continue
		}
		seen[name] = struct{}{}
		out.Records = append(out.Records, core.RecordSpec{
			Name:     name,
			Selector: d.selector(tree, name, fields),
			Fields:   fields,
		})
	}

	if len(out.Records) == 0 {
		return nil, core.ErrNoLayout
	}
	return out, nil
}

// Contract assembles a validated contract from built records.
func (d *Dialect) Contract(program string, strict bool, recs *Records) (*core.ContractSpec, error) {
	lineLength := d.config.LineLength.DeriveLineLength(recs.Records)
	if d.config.StrictSingleRecord {
		strict = strict && len(recs.Records) == 1
	}
	c, err := core.NewContract(program, lineLength, strict, recs.Records)
	if err != nil {
		return nil, fmt.Errorf("invalid contract for %s: %w", program, err)
	}
	return c, nil
}

// Extract parses text and returns its contract in one step.
func (d *Dialect) Extract(text, program string, strict bool, opts BuildOptions) (*core.ContractSpec, []layout.Diagnostic, error) {
	src, err := d.Parse(text)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s source: %w", d.Name, err)
	}
	recs, err := d.Build(src, opts)
	if err != nil {
		return nil, src.Diagnostics, err
	}
	c, err := d.Contract(program, strict, recs)
	if err != nil {
		return nil, recs.Diagnostics, err
	}
	return c, recs.Diagnostics, nil
}

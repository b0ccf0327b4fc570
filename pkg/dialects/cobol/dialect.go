package cobol

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/dialect"
	"github.com/leapstack-labs/leaplayout/pkg/layout"
)

// COBOL is the COBOL dialect instance.
var COBOL = dialect.New(Config).
	Parser(Parse).
	Selector(ValueSelector).
	Normalize(NormalizeName).
	Build()

func init() {
	dialect.Register(COBOL)
}

var (
	nonIdentRe = regexp.MustCompile(`[^A-Z0-9_]`)
	underRe    = regexp.MustCompile(`_+`)
)

// NormalizeName uppercases a data name and maps it to [A-Z0-9_].
func NormalizeName(name string) string {
	cleaned := strings.ReplaceAll(strings.ToUpper(name), "-", "_")
	cleaned = nonIdentRe.ReplaceAllString(cleaned, "_")
	cleaned = strings.Trim(underRe.ReplaceAllString(cleaned, "_"), "_")
	if cleaned == "" {
		return "FIELD"
	}
	return cleaned
}

// ValueSelector uses the first elementary item carrying a literal VALUE as
// the record selector. Without one, the first character of the record name
// at byte 1 is used.
func ValueSelector(root *layout.Node, record string, fields []core.FieldSpec) core.SelectorSpec {
	if sel, ok := valueSelector(root, fields); ok {
		return sel
	}
	return dialect.NamePrefixSelector(1)(root, record, fields)
}

func valueSelector(root *layout.Node, fields []core.FieldSpec) (core.SelectorSpec, bool) {
	var (
		found  *layout.Node
		prefix []string
	)
	var search func(n *layout.Node, path []string) bool
	search = func(n *layout.Node, path []string) bool {
		if n.Redefines || n.Skip {
			return false
		}
		if n.Storage != nil {
			if n.Value != "" {
				found, prefix = n, path
				return true
			}
			return false
		}
		next := path
		if !n.Transparent {
			name := n.Name
			if n.Repeat() > 1 {
				name += "_1"
			}
			next = append(append([]string(nil), path...), name)
		}
		for _, c := range n.Children {
			if search(c, next) {
				return true
			}
		}
		return false
	}
	var start []string
	if !root.Transparent {
		start = []string{root.Name}
	}
	for _, c := range root.Children {
		if search(c, start) {
			break
		}
	}
	if found == nil {
		return core.SelectorSpec{}, false
	}

	base := strings.Join(append(prefix, found.Name), Config.Separator)
	for _, name := range []string{base, base + "_1"} {
		for _, f := range fields {
			if f.Name == name && len(found.Value) <= f.Length {
				return core.SelectorSpec{Start: f.Start, Length: len(found.Value), Value: found.Value}, true
			}
		}
	}
	return core.SelectorSpec{}, false
}

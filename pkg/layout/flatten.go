package layout

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// Options control how qualified field names are formed.
type Options struct {
	// QualifyWithRoot includes the top-level structure name in field names.
	QualifyWithRoot bool
	// Separator joins name segments. Defaults to "_".
	Separator string
	// DescriptionSeparator joins inherited group descriptions. Defaults to " | ".
	DescriptionSeparator string
}

func (o Options) withDefaults() Options {
	if o.Separator == "" {
		o.Separator = "_"
	}
	if o.DescriptionSeparator == "" {
		o.DescriptionSeparator = " | "
	}
	return o
}

// scope is the naming context inherited from enclosing groups.
type scope struct {
	prefix []string
	descs  []string
}

func (s scope) with(name, desc string) scope {
	next := scope{
		prefix: append(append([]string(nil), s.prefix...), name),
		descs:  s.descs,
	}
	if desc != "" {
		next.descs = append(append([]string(nil), s.descs...), desc)
	}
	return next
}

// acc is the flattening accumulator: the next free 1-based position and the
// fields emitted so far. It is passed by value and returned by every step.
type acc struct {
	pos    int
	fields []core.FieldSpec
	used   map[string]int
}

func newAcc() acc {
	return acc{pos: 1, used: make(map[string]int)}
}

// add appends f at the cursor, renaming it with a numeric suffix on collision.
func (a acc) add(f core.FieldSpec) acc {
	name := f.Name
	if n := a.used[f.Name]; n > 0 {
		for suffix := n + 1; ; suffix++ {
			candidate := f.Name + "_" + strconv.Itoa(suffix)
			if a.used[candidate] == 0 {
				name = candidate
				a.used[f.Name] = suffix
				break
			}
		}
	}
	a.used[name]++
	f.Name = name
	a.fields = append(a.fields, f)
	return a
}

// end returns the last byte consumed so far.
func (a acc) end() int {
	return a.pos - 1
}

// Flattener turns the trees of one source into field layouts. Templates are
// resolved once at construction; Flatten is then a pure function of its tree.
type Flattener struct {
	opts      Options
	templates map[string]Template
	diags     []Diagnostic
}

// Flatten walks root depth-first and returns its fields in emission order
// together with the final cursor end position.
func (f *Flattener) Flatten(root *Node) ([]core.FieldSpec, int) {
	sc := scope{}
	if f.opts.QualifyWithRoot && !root.Transparent {
		sc = sc.with(root.Name, "")
	}
	a := newAcc()
	for _, c := range root.Children {
		a = f.emit(c, sc, a)
	}
	return a.fields, a.end()
}

// Template returns the relative layout registered under STRUCTURE.GROUP.
func (f *Flattener) Template(key string) (Template, bool) {
	t, ok := f.templates[key]
	return t, ok
}

// Diagnostics returns warnings raised while resolving templates.
func (f *Flattener) Diagnostics() []Diagnostic {
	return f.diags
}

func (f *Flattener) qualify(sc scope, name string) string {
	segments := append(append([]string(nil), sc.prefix...), name)
	return strings.Join(segments, f.opts.Separator)
}

func (f *Flattener) describe(sc scope, own ...string) string {
	parts := append([]string(nil), sc.descs...)
	for _, d := range own {
		if d != "" {
			parts = append(parts, d)
		}
	}
	return strings.Join(parts, f.opts.DescriptionSeparator)
}

func indexed(name string, i, occurs int) string {
	if occurs > 1 {
		return name + "_" + strconv.Itoa(i)
	}
	return name
}

func (f *Flattener) emit(n *Node, sc scope, a acc) acc {
	if n.Redefines || n.Skip {
		return a
	}
	occurs := n.Repeat()

	switch {
	case n.Storage != nil:
		base := f.qualify(sc, n.Name)
		desc := f.describe(sc, n.Description)
		for i := 1; i <= occurs; i++ {
			field := n.Storage.Field(indexed(base, i, occurs), a.pos)
			field.Description = desc
			a = a.add(field)
			a.pos += n.Storage.Length
		}
		return a

	case n.Template != nil:
		t, ok := f.templates[n.Template.Key()]
		if !ok {
			break
		}
		base := f.qualify(sc, n.Name)
		for i := 1; i <= occurs; i++ {
			a = f.clone(t, indexed(base, i, occurs), f.describe(sc, n.Description), a)
		}
		return a
	}

	for i := 1; i <= occurs; i++ {
		child := sc
		if !n.Transparent {
			child = sc.with(indexed(n.Name, i, occurs), n.Description)
		}
		for _, c := range n.Children {
			a = f.emit(c, child, a)
		}
	}
	return a
}

// clone copies a template's relative layout at the cursor, preserving its
// internal spacing, then advances by the template length.
func (f *Flattener) clone(t Template, prefix, desc string, a acc) acc {
	if t.Length == 0 {
		return a
	}
	base := a.pos
	for _, tf := range t.Fields {
		c := tf.WithStart(base + tf.Start - 1)
		if tf.Name == "" {
			c.Name = prefix
		} else {
			c.Name = prefix + f.opts.Separator + tf.Name
		}
		parts := []string{}
		if desc != "" {
			parts = append(parts, desc)
		}
		if tf.Description != "" {
			parts = append(parts, tf.Description)
		}
		c.Description = strings.Join(parts, f.opts.DescriptionSeparator)
		a = a.add(c)
	}
	a.pos = base + t.Length
	return a
}

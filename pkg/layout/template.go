package layout

import (
	"errors"
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplayout/internal/dag"
	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// Template is the relative layout of a group: field names are relative to
// the group and positions start at 1.
type Template struct {
	Key    string
	Fields []core.FieldSpec
	// Length is the highest relative end position.
	Length int
}

type templateSource struct {
	structure string
	node      *Node
}

// NewFlattener registers every group of src as a template, resolves LIKE
// references in dependency order and returns a ready Flattener.
//
// Groups directly under a structure take precedence when two groups share a
// name; otherwise the first declaration wins. A reference to an unknown
// template is reported as a diagnostic and the referencing item emits
// nothing. A reference cycle is fatal.
func NewFlattener(src *Source, opts Options) (*Flattener, error) {
	f := &Flattener{
		opts:      opts.withDefaults(),
		templates: make(map[string]Template),
	}

	sources := registerTemplates(src)

	g := dag.New[templateSource]()
	for key, ts := range sources {
		g.AddNode(key, ts)
	}

	for _, root := range src.Trees {
		if err := f.linkReferences(g, sources, root); err != nil {
			return nil, err
		}
	}

	order, err := g.TopologicalSort()
	if err != nil {
		return nil, templateCycle(err)
	}
	for _, n := range order {
		f.templates[n.ID] = f.relative(n.ID, n.Data.node)
	}
	return f, nil
}

// registerTemplates indexes non-root groups and LIKE items by
// STRUCTURE.GROUP.
func registerTemplates(src *Source) map[string]templateSource {
	sources := make(map[string]templateSource)
	register := func(structure string, n *Node) {
		if n.Skip || n.Storage != nil {
			return
		}
		key := templateKey(structure, n.Name)
		if _, exists := sources[key]; !exists {
			sources[key] = templateSource{structure: structure, node: n}
		}
	}

	for _, root := range src.Trees {
		for _, c := range root.Children {
			register(root.Name, c)
		}
	}
	for _, root := range src.Trees {
		for _, c := range root.Children {
			c.Walk(func(n *Node, depth int) bool {
				if n.Skip {
					return false
				}
				if depth > 0 {
					register(root.Name, n)
				}
				return true
			})
		}
	}
	return sources
}

// linkReferences adds an edge from every referenced template to each
// registered template enclosing the referencing item.
func (f *Flattener) linkReferences(g *dag.Graph[templateSource], sources map[string]templateSource, root *Node) error {
	var path []*Node
	var visit func(n *Node) error
	visit = func(n *Node) error {
		if n.Skip {
			return nil
		}
		path = append(path, n)
		defer func() { path = path[:len(path)-1] }()

		if n.Template != nil {
			ref := n.Template.Key()
			if _, ok := sources[ref]; !ok {
				f.diags = append(f.diags, Diagnostic{
					Line:    n.Line,
					Message: fmt.Sprintf("unresolved template %s referenced by %s.%s", ref, root.Name, n.Name),
				})
			} else {
				for _, anc := range path {
					key := templateKey(root.Name, anc.Name)
					if ts, ok := sources[key]; !ok || ts.node != anc {
						continue
					}
					if err := g.AddEdge(ref, key); err != nil {
						return templateCycle(err)
					}
				}
			}
		}
		for _, c := range n.Children {
			if err := visit(c); err != nil {
				return err
			}
		}
		return nil
	}

	for _, c := range root.Children {
		if err := visit(c); err != nil {
			return err
		}
	}
	return nil
}

// relative flattens a group from position 1 with names relative to it.
// Occurrences of the group itself are not part of its template shape.
func (f *Flattener) relative(key string, n *Node) Template {
	t := Template{Key: key}
	a := newAcc()
	if n.Template != nil {
		ref, ok := f.templates[n.Template.Key()]
		if !ok {
			return t
		}
		a = f.clone(ref, "", "", a)
		for i := range a.fields {
			a.fields[i].Name = strings.TrimPrefix(a.fields[i].Name, f.opts.Separator)
		}
	} else {
		for _, c := range n.Children {
			a = f.emit(c, scope{}, a)
		}
	}
	t.Fields = a.fields
	for _, field := range a.fields {
		if end := field.End(); end > t.Length {
			t.Length = end
		}
	}
	return t
}

func templateCycle(err error) error {
	var ce *dag.CycleError
	if errors.As(err, &ce) {
		return fmt.Errorf("%w: %s", core.ErrTemplateCycle, strings.Join(ce.Path, " -> "))
	}
	return fmt.Errorf("%w: %w", core.ErrTemplateCycle, err)
}

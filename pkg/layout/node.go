// Package layout turns declaration trees into flat, byte-offset field layouts.
//
// Dialect packages parse source text into a Source: a forest of Node trees,
// one per top-level structure. The Flattener then walks each tree depth-first,
// threading an explicit position cursor, and emits core.FieldSpec values.
// Template references (LIKE) are resolved in a separate pass before any
// record is flattened, ordered by a dependency graph.
package layout

import (
	"fmt"

	"github.com/leapstack-labs/leaplayout/pkg/picture"
)

// TemplateRef names a group of a structure whose layout is copied in place.
type TemplateRef struct {
	Structure string
	Group     string
}

// Key returns the template lookup key, STRUCTURE.GROUP.
func (r TemplateRef) Key() string {
	return templateKey(r.Structure, r.Group)
}

func (r TemplateRef) String() string {
	return r.Key()
}

func templateKey(structure, group string) string {
	return structure + "." + group
}

// Node is one declared item of a structure.
type Node struct {
	Level       int
	Name        string
	Occurs      int
	Remainder   string
	Redefines   bool
	Description string

	// Storage is set for elementary items with a recognized picture or
	// storage clause. Template is set for LIKE items. Neither means group.
	Storage  *picture.Result
	Template *TemplateRef

	// Skip drops the item and its children without consuming space.
	Skip bool
	// Transparent groups add neither a name prefix nor a description.
	Transparent bool

	// Value is the literal of a VALUE clause, if any.
	Value string
	// Line is the 1-based source line of the declaration.
	Line int

	Children []*Node
}

// IsGroup reports whether the node is a plain group.
func (n *Node) IsGroup() bool {
	return n.Storage == nil && n.Template == nil
}

// Repeat returns the occurrence count, at least 1.
func (n *Node) Repeat() int {
	if n.Occurs < 1 {
		return 1
	}
	return n.Occurs
}

// Walk visits n and its descendants in document order. Returning false from
// fn prunes the subtree.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Diagnostic is a non-fatal message produced while reading a source.
type Diagnostic struct {
	Line    int
	Message string
}

func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	}
	return d.Message
}

// Source is the parsed form of one declaration source.
type Source struct {
	Trees       []*Node
	Diagnostics []Diagnostic
}

// Tree returns the top-level structure with the given name.
func (s *Source) Tree(name string) (*Node, bool) {
	for _, t := range s.Trees {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// TreeBuilder reconstructs the level hierarchy of a source with a parent
// stack. Dialects feed it one declaration at a time.
type TreeBuilder struct {
	src   Source
	stack []*Node
}

// Start opens a new top-level tree.
func (b *TreeBuilder) Start(root *Node) {
	b.src.Trees = append(b.src.Trees, root)
	b.stack = append(b.stack[:0], root)
}

// Open reports whether a tree is currently open.
func (b *TreeBuilder) Open() bool {
	return len(b.stack) > 0
}

// Close ends the current tree. Later declarations are ignored until Start.
func (b *TreeBuilder) Close() {
	b.stack = b.stack[:0]
}

// Add attaches n under the nearest open item with a lower level. Elementary
// items never receive children. Returns false when no tree is open.
func (b *TreeBuilder) Add(n *Node) bool {
	if len(b.stack) == 0 {
		return false
	}
	for len(b.stack) > 1 {
		top := b.stack[len(b.stack)-1]
		if top.Level < n.Level && top.IsGroup() {
			break
		}
		b.stack = b.stack[:len(b.stack)-1]
	}
	parent := b.stack[len(b.stack)-1]
	parent.Children = append(parent.Children, n)
	b.stack = append(b.stack, n)
	return true
}

// Warnf records a diagnostic.
func (b *TreeBuilder) Warnf(line int, format string, args ...any) {
	b.src.Diagnostics = append(b.src.Diagnostics, Diagnostic{Line: line, Message: fmt.Sprintf(format, args...)})
}

// Source returns the built forest.
func (b *TreeBuilder) Source() *Source {
	src := b.src
	return &src
}

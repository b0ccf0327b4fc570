// Package dialect provides declaration dialect configuration and record assembly.
//
// This package contains the public contract for dialect definitions used by the
// extractor and the CLI. Concrete dialect implementations are registered from
// pkg/dialects/*/ packages.
package dialect

import (
	"strings"

	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/layout"
)

// ParseFunc reads raw source text into a declaration forest.
type ParseFunc func(text string) (*layout.Source, error)

// NamingFunc maps a top-level structure name to a record name.
// Returning false means the structure produces no record.
type NamingFunc func(structure string, preserve bool) (string, bool)

// SelectorFunc derives the selector of a record from its declaration.
type SelectorFunc func(root *layout.Node, record string, fields []core.FieldSpec) core.SelectorSpec

// Dialect represents a declaration dialect.
type Dialect struct {
	Name       string
	Extensions []string

	config    *core.DialectConfig
	parse     ParseFunc
	naming    NamingFunc
	selector  SelectorFunc
	normalize func(string) string
}

// Config returns the static configuration the dialect was built from.
func (d *Dialect) Config() *core.DialectConfig {
	return d.config
}

// GetName returns the dialect name.
func (d *Dialect) GetName() string {
	return d.Name
}

// Parse reads source text into a declaration forest.
func (d *Dialect) Parse(text string) (*layout.Source, error) {
	return d.parse(text)
}

// NormalizeName applies the dialect's identifier normalization.
func (d *Dialect) NormalizeName(name string) string {
	return d.normalize(name)
}

// RecordName maps a structure name to its record name.
func (d *Dialect) RecordName(structure string, preserve bool) (string, bool) {
	return d.naming(structure, preserve)
}

// LayoutOptions returns the flattening options of the dialect.
func (d *Dialect) LayoutOptions() layout.Options {
	return layout.Options{
		QualifyWithRoot: d.config.QualifyWithRoot,
		Separator:       d.config.Separator,
	}
}

// Claims reports whether the dialect handles files with this extension.
func (d *Dialect) Claims(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range d.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

// Builder provides a fluent API for constructing dialects.
type Builder struct {
	dialect *Dialect
}

// New creates a dialect builder from a DialectConfig.
func New(cfg *core.DialectConfig) *Builder {
	return &Builder{
		dialect: &Dialect{
			Name:       cfg.Name,
			Extensions: append([]string(nil), cfg.Extensions...),
			config:     cfg,
			naming:     IdentityNaming,
			selector:   NamePrefixSelector(1),
			normalize:  strings.ToUpper,
		},
	}
}

// Parser sets the source parser.
func (b *Builder) Parser(fn ParseFunc) *Builder {
	b.dialect.parse = fn
	return b
}

// Naming sets the structure-to-record naming rule.
func (b *Builder) Naming(fn NamingFunc) *Builder {
	b.dialect.naming = fn
	return b
}

// Selector sets the selector derivation.
func (b *Builder) Selector(fn SelectorFunc) *Builder {
	b.dialect.selector = fn
	return b
}

// Normalize sets the identifier normalization used for filters.
func (b *Builder) Normalize(fn func(string) string) *Builder {
	b.dialect.normalize = fn
	return b
}

// Build returns the constructed dialect.
func (b *Builder) Build() *Dialect {
	if b.dialect.parse == nil {
		b.dialect.parse = func(string) (*layout.Source, error) {
			return &layout.Source{}, nil
		}
	}
	return b.dialect
}

// IdentityNaming uses the structure name as the record name.
func IdentityNaming(structure string, _ bool) (string, bool) {
	return structure, structure != ""
}

// NamePrefixSelector selects records by the first n characters of their
// name, at byte 1.
func NamePrefixSelector(n int) SelectorFunc {
	return func(_ *layout.Node, record string, _ []core.FieldSpec) core.SelectorSpec {
		value := record
		if len(value) > n {
			value = value[:n]
		}
		return core.SelectorSpec{Start: 1, Length: len(value), Value: value}
	}
}

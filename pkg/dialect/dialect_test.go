package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/layout"
	"github.com/leapstack-labs/leaplayout/pkg/picture"
)

func field(level int, name string, length int) *layout.Node {
	r, _ := picture.Char(length)
	return &layout.Node{Level: level, Name: name, Occurs: 1, Storage: &r}
}

func structure(name string, children ...*layout.Node) *layout.Node {
	return &layout.Node{Level: 1, Name: name, Occurs: 1, Children: children}
}

func testDialect(cfg *core.DialectConfig) *Dialect {
	return New(cfg).
		Naming(func(s string, preserve bool) (string, bool) {
			if s == "SKIPPED" && !preserve {
				return "", false
			}
			return s, true
		}).
		Selector(NamePrefixSelector(3)).
		Build()
}

func TestBuild_FilterAndNaming(t *testing.T) {
	src := &layout.Source{Trees: []*layout.Node{
		structure("REC_ENT", field(5, "TYPE", 3), field(5, "A", 2)),
		structure("REC_ADR", field(5, "TYPE", 3), field(5, "B", 2)),
		structure("OTHER", field(5, "C", 5)),
		structure("SKIPPED", field(5, "D", 5)),
		structure("REC_EMPTY"),
	}}
	d := testDialect(&core.DialectConfig{Name: "test", DefaultPrefixes: []string{"REC_"}})

	recs, err := d.Build(src, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, recs.Records, 2)
	assert.Equal(t, "REC_ENT", recs.Records[0].Name)
	assert.Equal(t, core.SelectorSpec{Start: 1, Length: 3, Value: "REC"}, recs.Records[0].Selector)

	recs, err = d.Build(src, BuildOptions{Filter: Filter{Names: []string{"other", "skipped"}}})
	require.NoError(t, err)
	require.Len(t, recs.Records, 1)
	assert.Equal(t, "OTHER", recs.Records[0].Name)

	recs, err = d.Build(src, BuildOptions{Filter: Filter{Names: []string{"SKIPPED"}}, PreserveNames: true})
	require.NoError(t, err)
	assert.Equal(t, "SKIPPED", recs.Records[0].Name)

	_, err = d.Build(src, BuildOptions{Filter: Filter{Prefixes: []string{"NONE_"}}})
	assert.ErrorIs(t, err, core.ErrNoLayout)
}

func TestBuild_EmptyDefaultSelectsAll(t *testing.T) {
	src := &layout.Source{Trees: []*layout.Node{
		structure("X", field(5, "A", 1)),
		structure("Y", field(5, "B", 1)),
	}}
	d := testDialect(&core.DialectConfig{Name: "test"})

	recs, err := d.Build(src, BuildOptions{})
	require.NoError(t, err)
	assert.Len(t, recs.Records, 2)
}

func TestBuild_DuplicateRecordKeepsFirst(t *testing.T) {
	src := &layout.Source{Trees: []*layout.Node{
		structure("DUP", field(5, "FIRST", 1)),
		structure("DUP", field(5, "SECOND", 1)),
	}}
	d := testDialect(&core.DialectConfig{Name: "test"})

	recs, err := d.Build(src, BuildOptions{})
	require.NoError(t, err)
	require.Len(t, recs.Records, 1)
	assert.Equal(t, "FIRST", recs.Records[0].Fields[0].Name)
	require.Len(t, recs.Diagnostics, 1)
	assert.Contains(t, recs.Diagnostics[0].Message, "already defined")
}

func TestContract_LineLengthPolicies(t *testing.T) {
	recs := &Records{Records: []core.RecordSpec{
		{Name: "A", Selector: core.SelectorSpec{Start: 1, Length: 1, Value: "A"}, Fields: []core.FieldSpec{
			{Name: "X", Start: 1, Length: 6, Type: core.FieldString},
		}},
		{Name: "B", Selector: core.SelectorSpec{Start: 1, Length: 1, Value: "B"}, Fields: []core.FieldSpec{
			{Name: "Y", Start: 1, Length: 2, Type: core.FieldString},
			{Name: "Z", Start: 5, Length: 2, Type: core.FieldString},
		}},
	}}

	tests := []struct {
		name       string
		cfg        core.DialectConfig
		strict     bool
		wantLength int
		wantStrict bool
		wantErr    bool
	}{
		{"common sum", core.DialectConfig{Name: "t", LineLength: core.LineLengthCommonSum}, false, 6, false, false},
		{"common sum strict rejects gaps", core.DialectConfig{Name: "t", LineLength: core.LineLengthCommonSum}, true, 0, false, true},
		{"max end", core.DialectConfig{Name: "t", LineLength: core.LineLengthMaxEnd}, false, 6, false, false},
		{"max end strict single record only", core.DialectConfig{Name: "t", LineLength: core.LineLengthMaxEnd, StrictSingleRecord: true}, true, 6, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			d := New(&cfg).Build()
			c, err := d.Contract("PROG", tt.strict, recs)
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrInvariant)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLength, c.LineLength)
			assert.Equal(t, tt.wantStrict, c.StrictLengthValidation)
		})
	}
}

func TestRegistry(t *testing.T) {
	d := New(&core.DialectConfig{Name: "Registry-Test", Extensions: []string{".rtx"}}).Build()
	Register(d)

	got, ok := Get("registry-test")
	require.True(t, ok)
	assert.Same(t, d, got)
	assert.Contains(t, List(), "registry-test")

	got, ok = ForPath("/tmp/layout.RTX")
	require.True(t, ok)
	assert.Same(t, d, got)

	_, ok = ForPath("/tmp/noext")
	assert.False(t, ok)

	again := New(&core.DialectConfig{Name: "registry-test", Extensions: []string{".rty"}}).Build()
	Register(again)
	_, ok = ForPath("/tmp/layout.rtx")
	assert.False(t, ok, "re-registering releases the old extensions")
	got, ok = ForPath("/tmp/layout.rty")
	require.True(t, ok)
	assert.Same(t, again, got)

	thief := New(&core.DialectConfig{Name: "registry-thief", Extensions: []string{".rty"}}).Build()
	assert.PanicsWithValue(t, "dialect: extension .rty already claimed by registry-test", func() { Register(thief) })
	_, ok = Get("registry-thief")
	assert.False(t, ok)
}

func TestNamePrefixSelector(t *testing.T) {
	sel := NamePrefixSelector(3)
	assert.Equal(t, core.SelectorSpec{Start: 1, Length: 3, Value: "ENT"}, sel(nil, "ENTETE", nil))
	assert.Equal(t, core.SelectorSpec{Start: 1, Length: 2, Value: "AB"}, sel(nil, "AB", nil))
}

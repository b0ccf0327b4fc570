package core_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

func field(name string, start, length int) core.FieldSpec {
	return core.FieldSpec{Name: name, Start: start, Length: length, Type: core.FieldString}
}

func entRecord() core.RecordSpec {
	return core.RecordSpec{
		Name:     "ENT",
		Selector: core.SelectorSpec{Start: 1, Length: 3, Value: "ENT"},
		Fields: []core.FieldSpec{
			field("TYPE", 1, 3),
			{Name: "MONTANT", Start: 4, Length: 7, Type: core.FieldDecimal, Decimals: core.IntPtr(2)},
		},
	}
}

func TestFieldSpec_Validate(t *testing.T) {
	tests := []struct {
		name    string
		field   core.FieldSpec
		wantErr string
	}{
		{"valid", field("A", 1, 3), ""},
		{"no name", field("", 1, 3), "field name is required"},
		{"start zero", field("A", 0, 3), "start must be >= 1, got 0"},
		{"empty", field("A", 1, 0), "length must be >= 1, got 0"},
		{"unknown type", core.FieldSpec{Name: "A", Start: 1, Length: 1, Type: "blob"}, `unknown field type "blob"`},
		{"decimal without scale", core.FieldSpec{Name: "A", Start: 1, Length: 5, Type: core.FieldDecimal}, "decimals is required"},
		{"negative scale", core.FieldSpec{Name: "A", Start: 1, Length: 5, Type: core.FieldDecimal, Decimals: core.IntPtr(-1)}, "decimals must be >= 0"},
		{"scale on string", core.FieldSpec{Name: "A", Start: 1, Length: 5, Type: core.FieldString, Decimals: core.IntPtr(0)}, "decimals must be null when type is string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrInvariant)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFieldSpec_Positions(t *testing.T) {
	f, err := core.NewDecimalField("MT", 13, 11, 2)
	require.NoError(t, err)
	assert.Equal(t, 23, f.End())
	assert.Equal(t, 2, f.Scale())

	moved := f.WithStart(1)
	assert.Equal(t, 1, moved.Start)
	assert.Equal(t, 13, f.Start)
	*moved.Decimals = 4
	assert.Equal(t, 2, f.Scale(), "WithStart must not share the scale pointer")

	s, err := core.NewField("TYPE", 1, 3, core.FieldString)
	require.NoError(t, err)
	assert.Zero(t, s.Scale())
}

func TestParseFieldType(t *testing.T) {
	ft, ok := core.ParseFieldType(" Decimal ")
	assert.True(t, ok)
	assert.Equal(t, core.FieldDecimal, ft)
	assert.True(t, ft.Numeric())

	ft, ok = core.ParseFieldType("blob")
	assert.False(t, ok)
	assert.Equal(t, core.FieldString, ft)
	assert.False(t, core.FieldDate.Numeric())
}

func TestSelectorSpec_Matches(t *testing.T) {
	sel := core.SelectorSpec{Start: 2, Length: 3, Value: "ÉCH"}
	assert.True(t, sel.Matches([]rune("xÉCH")))
	assert.False(t, sel.Matches([]rune("xECH")))
	assert.False(t, sel.Matches([]rune("xÉC")), "short lines never match")
	assert.Equal(t, 4, sel.End())
}

func TestRecordSpec_Validate(t *testing.T) {
	rec := entRecord()
	require.NoError(t, rec.Validate())
	assert.Equal(t, 10, rec.SumOfLengths())
	assert.Equal(t, 10, rec.MaxEnd())

	dup := entRecord()
	dup.Fields = append(dup.Fields, field("TYPE", 11, 1))
	assert.ErrorContains(t, dup.Validate(), "record ENT: duplicate field names: TYPE")

	overlap := entRecord()
	overlap.Fields = append(overlap.Fields, field("X", 10, 2))
	err := overlap.Validate()
	var ie *core.InvariantError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "ENT", ie.Record)
	assert.Equal(t, "X", ie.Field)

	badSel := entRecord()
	badSel.Selector.Value = ""
	assert.ErrorContains(t, badSel.Validate(), "record ENT, field selector: value is required")
}

func TestNewContract(t *testing.T) {
	c, err := core.NewContract("IDP470RA", 10, true, []core.RecordSpec{entRecord()})
	require.NoError(t, err)
	assert.Equal(t, core.SchemaVersion, c.SchemaVersion)
	assert.NotNil(t, c.StructureRules)
	assert.Equal(t, []string{"ENT"}, c.RecordNames())

	_, err = core.NewContract("IDP470RA", 12, true, []core.RecordSpec{entRecord()})
	assert.ErrorContains(t, err, "sum(lengths)=10, expected line_length=12")

	_, err = core.NewContract("IDP470RA", 12, false, []core.RecordSpec{entRecord()})
	assert.NoError(t, err, "lenient contracts allow trailing filler")

	_, err = core.NewContract("IDP470RA", 8, false, []core.RecordSpec{entRecord()})
	assert.ErrorContains(t, err, "exceeds line length 8")

	_, err = core.NewContract("IDP470RA", 10, true, []core.RecordSpec{entRecord(), entRecord()})
	assert.ErrorContains(t, err, "duplicate record types: ENT")

	_, err = core.NewContract("", 10, true, []core.RecordSpec{entRecord()})
	assert.ErrorIs(t, err, core.ErrInvariant)

	_, err = core.NewContract("P", 10, true, nil)
	assert.ErrorContains(t, err, "at least one record type")
}

func TestContract_WithStructure(t *testing.T) {
	c, err := core.NewContract("P", 10, true, []core.RecordSpec{entRecord()})
	require.NoError(t, err)

	rules := []core.StructureRule{{Label: "ENT", RecordName: "ENT", Scope: core.ScopeInvoice, MinOccurs: 1, MaxOccurs: core.IntPtr(1), OrderIndex: 1}}
	withRules, err := c.WithStructure("house grammar", rules, true)
	require.NoError(t, err)
	assert.Len(t, withRules.StructureRules, 1)
	assert.True(t, withRules.StrictStructureValidation)
	assert.Empty(t, c.StructureRules)
	assert.Empty(t, c.StructureSource)

	bad := []core.StructureRule{{Label: "ENT", RecordName: "ENT", Scope: "page", OrderIndex: 1}}
	_, err = c.WithStructure("x", bad, false)
	assert.ErrorContains(t, err, `unknown scope "page"`)
}

func TestContract_SaveLoad(t *testing.T) {
	c, err := core.NewContract("P", 10, true, []core.RecordSpec{entRecord()})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "p_contract.json")
	require.NoError(t, core.SaveContract(c, path))

	loaded, err := core.LoadContract(path)
	require.NoError(t, err)
	assert.Equal(t, c.RecordTypes, loaded.RecordTypes)
	assert.True(t, c.GeneratedAt.Equal(loaded.GeneratedAt))

	_, err = core.ReadContract(strings.NewReader(`{"source_program":"P","line_length":3,"record_types":[],"extra":1}`))
	assert.ErrorContains(t, err, "failed to decode contract")

	_, err = core.ReadContract(strings.NewReader(`{"source_program":"P","line_length":3,"record_types":[]}`))
	assert.ErrorIs(t, err, core.ErrInvariant)

	_, err = core.LoadContract(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "failed to open contract")
}

func TestStructureRule(t *testing.T) {
	rule := core.StructureRule{Label: "LIG", RecordName: "LIG", Scope: core.ScopeInvoice, MinOccurs: 1, OrderIndex: 8}
	require.NoError(t, rule.Validate())
	assert.False(t, rule.Allows(0))
	assert.True(t, rule.Allows(500))

	rule.MaxOccurs = core.IntPtr(2)
	assert.False(t, rule.Allows(3))

	rule.MinOccurs = 3
	assert.ErrorContains(t, rule.Validate(), "max_occurs must be >= min_occurs")

	rules := []core.StructureRule{
		{Label: "ref(l)", OrderIndex: 9},
		{Label: "FIC", OrderIndex: 1},
		{Label: "B", OrderIndex: 9},
	}
	assert.Equal(t, []string{"FIC", "B", "REF(L)"}, core.RuleLabels(rules))
}

func TestRecord_JSON(t *testing.T) {
	rec := core.NewRecord("ENT", 7, 3)
	rec.Set("TYPE", "ENT")
	rec.Set("QTE", int64(12))
	rec.Set("BLANK", nil)
	rec.Set("TYPE", "ENT")

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Equal(t, `{"record_type":"ENT","line_number":7,"TYPE":"ENT","QTE":12,"BLANK":null}`, string(data))

	var back core.Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "ENT", back.Type)
	assert.Equal(t, 7, back.LineNumber)
	assert.Equal(t, []string{"TYPE", "QTE", "BLANK"}, back.Names())
	qte, ok := back.Get("QTE")
	require.True(t, ok)
	assert.Equal(t, json.Number("12"), qte)

	assert.Error(t, json.Unmarshal([]byte(`[1]`), &back))
}

func TestIssueAndSeverity(t *testing.T) {
	is := core.Issue{LineNumber: 4, Message: "unknown record type", Kind: core.IssueUnknownRecord, Severity: core.SeverityError}
	assert.Equal(t, "line 4: unknown record type", is.String())
	assert.Equal(t, "unknown record type", core.Issue{Message: "unknown record type"}.String())

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(is))
	assert.Contains(t, buf.String(), `"severity":"error"`)

	var back core.Issue
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, core.SeverityError, back.Severity)

	tests := []struct {
		in   string
		want core.Severity
		ok   bool
	}{
		{"error", core.SeverityError, true},
		{"WARNING", core.SeverityWarning, true},
		{"info", core.SeverityInfo, true},
		{"fatal", core.SeverityWarning, false},
	}
	for _, tt := range tests {
		got, ok := core.ParseSeverity(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
	assert.Equal(t, "unknown", core.Severity(42).String())
}

func TestLineLengthPolicy(t *testing.T) {
	short := core.RecordSpec{Name: "A", Fields: []core.FieldSpec{field("X", 5, 3)}}
	long := core.RecordSpec{Name: "B", Fields: []core.FieldSpec{field("Y", 1, 6)}}
	records := []core.RecordSpec{short, long}

	assert.Equal(t, 6, core.LineLengthCommonSum.DeriveLineLength(records))
	assert.Equal(t, 7, core.LineLengthMaxEnd.DeriveLineLength(records))
	assert.Equal(t, "max-end", core.LineLengthMaxEnd.String())
}

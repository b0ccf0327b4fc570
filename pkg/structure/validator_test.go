package structure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// stream builds records numbered from line 1.
func stream(types ...string) []*core.Record {
	out := make([]*core.Record, len(types))
	for i, typ := range types {
		out[i] = core.NewRecord(typ, i+1, 0)
	}
	return out
}

func messages(issues []core.Issue) []string {
	out := make([]string, len(issues))
	for i, is := range issues {
		out[i] = is.String()
	}
	return out
}

func byKind(issues []core.Issue, kind core.IssueKind) []core.Issue {
	var out []core.Issue
	for _, is := range issues {
		if is.Kind == kind {
			out = append(out, is)
		}
	}
	return out
}

func TestValidate_ValidDocument(t *testing.T) {
	records := stream(
		"FIC",
		"ENT", "ECH", "COM", "REF", "ADR", "AD2", "LIG", "REF", "LEC", "LIG", "PIE",
		"ENT", "ECH", "ADR", "AD2", "LIG",
	)
	issues := Validate(DefaultInvoiceRules(), records)
	assert.Empty(t, issues, messages(issues))
}

func TestValidate_NoRules(t *testing.T) {
	assert.Nil(t, Validate(nil, stream("X", "Y")))
}

func TestValidate_Empty(t *testing.T) {
	issues := Validate(DefaultInvoiceRules(), nil)
	require.Len(t, issues, 1)
	assert.Equal(t, core.IssueEmpty, issues[0].Kind)
}

func TestValidate_ConsecutiveHeaders(t *testing.T) {
	records := stream("FIC", "ENT", "ENT", "ECH", "ADR", "AD2", "LIG")
	issues := Validate(DefaultInvoiceRules(), records)

	assert.Empty(t, byKind(issues, core.IssueOrder), messages(issues))

	var lig []core.Issue
	for _, is := range issues {
		if is.Label == "LIG" {
			lig = append(lig, is)
		}
	}
	require.Len(t, lig, 1)
	assert.Equal(t, 2, lig[0].LineNumber, "scoped to the first block")
	assert.Contains(t, lig[0].Message, "minimum 1, found 0")
	assert.Equal(t, core.SeverityWarning, lig[0].Severity)
}

func TestValidate_FileHeader(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		issues := Validate(DefaultInvoiceRules(), stream("ENT", "ECH", "ADR", "AD2", "LIG"))
		require.Len(t, issues, 1)
		assert.Equal(t, "Structure rule violated [FIC]: minimum 1, found 0.", issues[0].Message)
	})
	t.Run("not first", func(t *testing.T) {
		issues := Validate(DefaultInvoiceRules(), stream("ENT", "FIC", "ECH", "ADR", "AD2", "LIG"))
		require.Len(t, issues, 1)
		assert.Equal(t, 1, issues[0].LineNumber)
		assert.Contains(t, issues[0].Message, "first record must be FIC")
	})
	t.Run("repeated", func(t *testing.T) {
		issues := Validate(DefaultInvoiceRules(), stream("FIC", "FIC", "ENT", "ECH", "ADR", "AD2", "LIG"))
		require.Len(t, issues, 1)
		assert.Contains(t, issues[0].Message, "maximum 1, found 2")
	})
}

func TestValidate_RecordsBeforeFirstHeader(t *testing.T) {
	issues := Validate(DefaultInvoiceRules(), stream("FIC", "ECH", "ENT", "ECH", "ADR", "AD2", "LIG"))
	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].LineNumber)
	assert.Equal(t, "Structure order violated: record before first ENT (ECH).", issues[0].Message)
}

func TestValidate_NoInvoiceBlock(t *testing.T) {
	issues := Validate(DefaultInvoiceRules(), stream("FIC"))
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "no invoice block found")
}

func TestValidate_Ordering(t *testing.T) {
	tests := []struct {
		name    string
		records []*core.Record
		want    []string
	}{
		{
			name:    "address before due dates",
			records: stream("FIC", "ENT", "ADR", "ECH", "AD2", "LIG"),
			want:    []string{"line 4: Structure order violated in invoice block: ECH out of expected sequence."},
		},
		{
			name:    "detail after footer",
			records: stream("FIC", "ENT", "ECH", "ADR", "AD2", "PIE", "LIG"),
			want:    []string{"line 7: Structure order violated in invoice block around LIG."},
		},
		{
			name:    "detail after line sub-records resets",
			records: stream("FIC", "ENT", "ECH", "ADR", "AD2", "LIG", "LEC", "LIG", "REF", "LIG"),
			want:    nil,
		},
		{
			name:    "comment between details",
			records: stream("FIC", "ENT", "ECH", "ADR", "AD2", "LIG", "COM", "LIG"),
			want:    []string{"line 7: Structure order violated in invoice block: COM out of expected sequence."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := byKind(Validate(DefaultInvoiceRules(), tt.records), core.IssueOrder)
			if tt.want == nil {
				assert.Empty(t, issues, messages(issues))
				return
			}
			assert.Equal(t, tt.want, messages(issues))
		})
	}
}

func TestValidate_LineSegments(t *testing.T) {
	issues := Validate(DefaultInvoiceRules(), stream("FIC", "ENT", "ECH", "ADR", "AD2", "LEC", "LIG"))
	require.Len(t, issues, 1)
	assert.Equal(t, "Structure rule violated [LEC]: LEC without parent LIG.", issues[0].Message)

	bounded := DefaultInvoiceRules()
	for i := range bounded {
		if bounded[i].Label == "LEC" {
			bounded[i].MaxOccurs = core.IntPtr(1)
		}
	}
	issues = Validate(bounded, stream("FIC", "ENT", "ECH", "ADR", "AD2", "LIG", "LEC", "LIG", "LEC", "LEC"))
	require.Len(t, issues, 1)
	assert.Equal(t, 8, issues[0].LineNumber, "reported on the detail opening the segment")
	assert.Contains(t, issues[0].Message, "[LEC]: maximum 1, found 2")
}

// A reference placed before the first detail line counts as an invoice
// reference even if it was meant for that line; once any detail has been
// seen, every later reference is a line reference.
func TestValidate_ReferenceScopeQuirk(t *testing.T) {
	rules := DefaultInvoiceRules()
	for i := range rules {
		switch rules[i].Label {
		case "REF(E)":
			rules[i].MaxOccurs = core.IntPtr(1)
		case "REF(L)":
			rules[i].MaxOccurs = core.IntPtr(1)
		}
	}

	issues := Validate(rules, stream("FIC", "ENT", "ECH", "REF", "REF", "ADR", "AD2", "LIG", "REF"))
	require.Len(t, issues, 1, messages(issues))
	assert.Contains(t, issues[0].Message, "[REF(E)]: maximum 1, found 2")

	// An invoice-level reference after the first detail is counted as a line
	// reference of the last detail.
	issues = Validate(rules, stream("FIC", "ENT", "ECH", "ADR", "AD2", "LIG", "REF", "REF"))
	require.Len(t, issues, 1, messages(issues))
	assert.Contains(t, issues[0].Message, "[REF(L)]: maximum 1, found 2")
}

func TestValidate_CustomGrammar(t *testing.T) {
	rules := []core.StructureRule{
		{Label: "HDR", RecordName: "H", Scope: core.ScopeFile, MinOccurs: 1, MaxOccurs: core.IntPtr(1), OrderIndex: 1},
		{Label: "DOC", RecordName: "D", Scope: core.ScopeInvoice, MinOccurs: 1, MaxOccurs: core.IntPtr(1), OrderIndex: 2},
		{Label: "ITEM", RecordName: "I", Scope: core.ScopeInvoice, MinOccurs: 1, OrderIndex: 3},
		{Label: "NOTE", RecordName: "N", Scope: core.ScopeLine, OrderIndex: 4},
	}
	issues := Validate(rules, stream("H", "D", "I", "N", "I", "D", "N"))
	msgs := messages(issues)
	require.Len(t, issues, 2, msgs)
	assert.True(t, strings.Contains(msgs[0], "[NOTE]: N without parent ITEM"), msgs)
	assert.True(t, strings.Contains(msgs[1], "[ITEM]: minimum 1, found 0"), msgs)
}

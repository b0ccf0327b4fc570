package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplayout/internal/cli/testutil"
	"github.com/leapstack-labs/leaplayout/pkg/core"
)

func extractFixture(t *testing.T, cc *CommandContext, dir string) *core.ContractSpec {
	t.Helper()
	res, err := cc.extractSource(context.Background(), filepath.Join(dir, "idp470ra.pli"))
	require.NoError(t, err)
	return res.Contract
}

func TestDecodeInputs(t *testing.T) {
	dir := testutil.CopyFixtures(t, "idp470ra.pli", "FACT0101.txt")
	tr := testutil.NewTestRendererJSON()
	cc := newTestContext(t, tr)
	contract := extractFixture(t, cc, dir)

	err := decodeInputs(context.Background(), cc, contract, []string{filepath.Join(dir, "FACT0101.txt")}, "")
	require.NoError(t, err)

	var out ParseJSONOutput
	require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &out))
	require.Len(t, out.Files, 1)
	assert.Equal(t, 14, out.Records)
	assert.Zero(t, out.Issues)
	assert.Zero(t, out.Failed)

	f := out.Files[0]
	assert.Equal(t, filepath.Join(cc.Cfg.OutputDir, "FACT0101.jsonl"), f.Output)
	assert.Equal(t, map[string]int{"FIC": 1, "ENT": 2, "ECH": 2, "ADR": 2, "AD2": 2, "LIG": 3, "PIE": 2}, f.ByType)
	assert.FileExists(t, f.Output)
}

func TestDecodeInputs_Errors(t *testing.T) {
	dir := testutil.CopyFixtures(t, "idp470ra.pli", "FACT0101.txt")
	tr := testutil.NewTestRendererJSON()
	cc := newTestContext(t, tr)
	contract := extractFixture(t, cc, dir)
	input := filepath.Join(dir, "FACT0101.txt")

	t.Run("records with several inputs", func(t *testing.T) {
		err := decodeInputs(context.Background(), cc, contract, []string{input, input}, filepath.Join(dir, "x.jsonl"))
		assert.ErrorContains(t, err, "--records needs exactly one input, got 2")
	})

	t.Run("missing input", func(t *testing.T) {
		err := decodeInputs(context.Background(), cc, contract, []string{filepath.Join(dir, "nope.txt")}, "")
		assert.Error(t, err)
	})

	bad := filepath.Join(dir, "short.txt")
	require.NoError(t, os.WriteFile(bad, []byte("FICDGFIP\n"), 0o600))

	t.Run("short line is collected by default", func(t *testing.T) {
		tr.Reset()
		err := decodeInputs(context.Background(), cc, contract, []string{bad}, "")
		require.NoError(t, err)

		var out ParseJSONOutput
		require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &out))
		assert.Zero(t, out.Failed)
		require.Len(t, out.Files[0].Issues, 1)
		assert.Equal(t, core.IssueLineLength, out.Files[0].Issues[0].Kind)
	})

	t.Run("fail fast aborts the file", func(t *testing.T) {
		tr.Reset()
		cc.Cfg.FailFast = true
		t.Cleanup(func() { cc.Cfg.FailFast = false })

		err := decodeInputs(context.Background(), cc, contract, []string{bad}, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrLineLength)
		assert.Contains(t, err.Error(), "1 of 1 inputs failed")

		var out ParseJSONOutput
		require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &out))
		assert.Equal(t, 1, out.Failed)
		assert.NotEmpty(t, out.Files[0].Error)
	})
}

func TestDecodeInputs_StrictStructure(t *testing.T) {
	dir := testutil.CopyFixtures(t, "idp470ra.pli")
	tr := testutil.NewTestRendererJSON()
	cc := newTestContext(t, tr)
	cc.Cfg.StrictStructure = true
	contract := extractFixture(t, cc, dir)
	require.True(t, contract.StrictStructureValidation)

	// A file header and no invoice block breaks the document grammar.
	input := filepath.Join(dir, "header_only.txt")
	require.NoError(t, os.WriteFile(input, []byte("FICDGFIP     20240131"+strings.Repeat(" ", 19)+"\n"), 0o600))

	tests := []struct {
		name      string
		failFast  bool
		tolerate  bool
		wantError bool
	}{
		{name: "defaults abort a strict contract", wantError: true},
		{name: "fail fast does not relax the structure", failFast: true, wantError: true},
		{name: "tolerate structure collects", tolerate: true},
		{name: "tolerate structure with fail fast", failFast: true, tolerate: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr.Reset()
			cc.Cfg.FailFast = tt.failFast
			cc.Cfg.TolerateStructure = tt.tolerate

			err := decodeInputs(context.Background(), cc, contract, []string{input}, "")
			if tt.wantError {
				assert.ErrorIs(t, err, core.ErrStructure)
			} else {
				assert.NoError(t, err)
			}

			var out ParseJSONOutput
			require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &out))
			assert.Equal(t, 1, out.Records)
			require.Len(t, out.Files[0].Issues, 1)
			assert.Contains(t, out.Files[0].Issues[0].Message, "no invoice block found")
		})
	}
}

func TestRenderParse_Markdown(t *testing.T) {
	issues := make([]core.Issue, 0, maxIssueRows+5)
	for i := 1; i <= maxIssueRows+5; i++ {
		issues = append(issues, core.Issue{
			LineNumber: i,
			Message:    fmt.Sprintf("line too short: expected 40, got %d", i),
			Kind:       core.IssueLineLength,
			Severity:   core.SeverityError,
		})
	}
	summary := ParseJSONOutput{
		Files: []FileSummary{
			{Input: "a.txt", Output: "out/a.jsonl", Records: 3, ByType: map[string]int{"LIG": 2, "ENT": 1}, Issues: []core.Issue{}},
			{Input: "b.txt", Records: 0, ByType: map[string]int{}, Issues: issues, Error: "aborted"},
		},
		Records: 3,
		Issues:  len(issues),
		Failed:  1,
	}

	tr := testutil.NewTestRendererMarkdown()
	require.NoError(t, renderParse(tr.Renderer, summary))

	out := tr.Output()
	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Decoded 3 records from 2 files")
	assert.Contains(t, out, "ENT=1 LIG=2")
	assert.Contains(t, out, "## Issues in b.txt")
	assert.Contains(t, out, "Line Length")
	assert.Contains(t, out, "... and 5 more")
	assert.Equal(t, maxIssueRows, strings.Count(out, "| error |"))
	assert.Contains(t, tr.ErrorOutput(), "1 input(s) aborted")
}

func TestRenderExtract_Markdown(t *testing.T) {
	dir := testutil.CopyFixtures(t, "idp470ra.pli")
	tr := testutil.NewTestRendererMarkdown()
	cc := newTestContext(t, tr)

	res, err := cc.extractSource(context.Background(), filepath.Join(dir, "idp470ra.pli"))
	require.NoError(t, err)
	require.NoError(t, renderExtract(tr.Renderer, res, "out/idp470ra_contract.json"))

	out := tr.Output()
	testutil.AssertValidMarkdown(t, out)
	assert.Contains(t, out, "# Contract IDP470RA")
	assert.Contains(t, out, "- **Line length:** 40")
	assert.Contains(t, out, "| FIC |")
	assert.Contains(t, out, "Contract saved to out/idp470ra_contract.json")
}

func TestFormatCounts(t *testing.T) {
	assert.Equal(t, "", formatCounts(nil))
	assert.Equal(t, "AD2=1 ENT=2 LIG=10", formatCounts(map[string]int{"LIG": 10, "ENT": 2, "AD2": 1}))
}

package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	tests := []struct {
		in   string
		want OutputMode
	}{
		{"", ModeAuto},
		{"auto", ModeAuto},
		{"TEXT", ModeText},
		{"md", ModeMarkdown},
		{"markdown", ModeMarkdown},
		{" json ", ModeJSON},
		{"yaml", ModeAuto},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mode(tt.in))
		})
	}
	assert.True(t, ValidMode("md"))
	assert.False(t, ValidMode("yaml"))
}

func TestEffectiveMode(t *testing.T) {
	var buf bytes.Buffer
	assert.Equal(t, ModeText, NewRendererWithTTY(&buf, &buf, true, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeMarkdown, NewRendererWithTTY(&buf, &buf, false, ModeAuto).EffectiveMode())
	assert.Equal(t, ModeJSON, NewRendererWithTTY(&buf, &buf, true, ModeJSON).EffectiveMode())
	assert.False(t, NewRenderer(&buf, &buf, ModeAuto).IsTTY(), "buffers are never terminals")
}

func TestRenderer_Markdown(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRendererWithTTY(&out, &errOut, false, ModeAuto)

	r.Header(1, "Contract IDP470RA")
	r.KeyValue("Line length", "1200")
	r.Success("saved")
	r.Error("boom")
	r.Table([]string{"Record", "Fields"}, [][]any{{"ENT", 12}, {"LIG", 30}})

	got := out.String()
	assert.Contains(t, got, "# Contract IDP470RA\n")
	assert.Contains(t, got, "- **Line length:** 1200\n")
	assert.Contains(t, got, "saved\n")
	assert.NotContains(t, got, "✓")
	assert.Contains(t, got, "| ENT | 12 |")
	assert.NotContains(t, got, "\x1b[")
	assert.Equal(t, "boom\n", errOut.String())
}

func TestRenderer_JSON(t *testing.T) {
	var out bytes.Buffer
	r := NewRendererWithTTY(&out, &out, false, ModeJSON)
	require.NoError(t, r.JSON(map[string]any{"label": "<ENT>"}))
	assert.Equal(t, "{\n  \"label\": \"<ENT>\"\n}\n", out.String())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "Unknown Record", Title("unknown_record"))
	assert.Equal(t, "Line Length", Title("line_length"))
	assert.Equal(t, "## Rules", FormatHeader(2, "Rules"))
	assert.Equal(t, "# X", FormatHeader(0, "X"))
	assert.Equal(t, "```json\n{}\n```", FormatCodeBlock("json", "{}\n"))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "a b", Truncate("a\nb", 10))
}

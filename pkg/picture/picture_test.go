package picture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		pic      string
		usage    Usage
		length   int
		typ      core.FieldType
		decimals int
	}{
		{name: "alphanumeric", pic: "X(10)", length: 10, typ: core.FieldString},
		{name: "alpha forces string", pic: "9(3)X", length: 4, typ: core.FieldString},
		{name: "display integer", pic: "9(5)", length: 5, typ: core.FieldInteger},
		{name: "signed integer", pic: "S9(5)", length: 5, typ: core.FieldInteger},
		{name: "display decimal", pic: "9(5)V99", length: 7, typ: core.FieldDecimal, decimals: 2},
		{name: "zero suppressed decimal", pic: "ZZZ9V9(3)", length: 7, typ: core.FieldDecimal, decimals: 3},
		{name: "packed decimal", pic: "9(5)V99", usage: Packed, length: 4, typ: core.FieldDecimal, decimals: 2},
		{name: "packed even digits", pic: "S9(6)", usage: Packed, length: 4, typ: core.FieldInteger},
		{name: "binary halfword", pic: "9(4)", usage: Binary, length: 2, typ: core.FieldInteger},
		{name: "binary fullword", pic: "9(7)", usage: Binary, length: 4, typ: core.FieldInteger},
		{name: "binary doubleword", pic: "9(12)", usage: Binary, length: 8, typ: core.FieldInteger},
		{name: "single float", pic: "9(5)", usage: Float4, length: 4, typ: core.FieldInteger},
		{name: "double float", pic: "9(5)V9", usage: Float8, length: 8, typ: core.FieldDecimal, decimals: 1},
		{name: "usage ignored for alphanumeric", pic: "X(3)", usage: Packed, length: 3, typ: core.FieldString},
		{name: "trailing period", pic: "9(3).", length: 3, typ: core.FieldInteger},
		{name: "assumed scaling consumes nothing", pic: "9(3)PP", length: 3, typ: core.FieldInteger},
		{name: "edited insertion", pic: "ZZ9.99", length: 6, typ: core.FieldInteger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usage := tt.usage
			if usage == "" {
				usage = Display
			}
			got, ok := Evaluate(tt.pic, usage)
			require.True(t, ok)
			assert.Equal(t, tt.length, got.Length)
			assert.Equal(t, tt.typ, got.Type)
			assert.Equal(t, tt.decimals, got.Decimals)
		})
	}
}

func TestEvaluate_Malformed(t *testing.T) {
	for _, pic := range []string{"", "9(", "9(x)", "(3)", "9(0)", "Q9", "V", "S", "X(999999999)", "X(65535)X"} {
		t.Run(pic, func(t *testing.T) {
			_, ok := Evaluate(pic, Display)
			assert.False(t, ok)
		})
	}
}

func TestExpand_Bound(t *testing.T) {
	got, ok := Evaluate("X(65535)", Display)
	require.True(t, ok)
	assert.Equal(t, MaxLength, got.Length)

	_, ok = Expand("(70000)X", Prefix)
	assert.False(t, ok)
	_, ok = Expand("X(40000)X(40000)", Suffix)
	assert.False(t, ok, "the bound applies to the whole picture")
}

func TestEvaluateStyle_Prefix(t *testing.T) {
	got, ok := EvaluateStyle("(5)9V(2)9", Display, Prefix)
	require.True(t, ok)
	assert.Equal(t, 7, got.Length)
	assert.Equal(t, core.FieldDecimal, got.Type)
	assert.Equal(t, 2, got.Decimals)

	_, ok = EvaluateStyle("9(5)", Display, Prefix)
	assert.False(t, ok, "suffix repetition has no token to repeat in prefix style")
}

func TestParseUsage(t *testing.T) {
	tests := map[string]Usage{
		"COMP-3":         Packed,
		"packed-decimal": Packed,
		"COMP":           Binary,
		"COMP-4":         Binary,
		"BINARY":         Binary,
		"COMP-1":         Float4,
		"COMP-2":         Float8,
		"DISPLAY":        Display,
		"":               Display,
		"WHATEVER":       Display,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseUsage(in), in)
	}
}

func TestPackedAndBinaryLength(t *testing.T) {
	assert.Equal(t, 4, PackedLength(7))
	assert.Equal(t, 4, PackedLength(6))
	assert.Equal(t, 1, PackedLength(1))
	assert.Equal(t, 2, BinaryLength(4))
	assert.Equal(t, 4, BinaryLength(9))
	assert.Equal(t, 8, BinaryLength(10))
}

func TestResultField(t *testing.T) {
	r, ok := Evaluate("9(5)V99", Packed)
	require.True(t, ok)
	f := r.Field("AMOUNT", 10)
	require.NoError(t, f.Validate())
	assert.Equal(t, 13, f.End())
	require.NotNil(t, f.Decimals)
	assert.Equal(t, 2, *f.Decimals)

	i, ok := Evaluate("9(3)", Display)
	require.True(t, ok)
	assert.Nil(t, i.Field("COUNT", 1).Decimals)
}

func TestClauses(t *testing.T) {
	c, ok := Char(12)
	require.True(t, ok)
	assert.Equal(t, core.FieldString, c.Type)

	_, ok = Char(0)
	assert.False(t, ok)
	_, ok = Char(MaxLength + 1)
	assert.False(t, ok)

	d, ok := FixedDecimal(15, 2)
	require.True(t, ok)
	assert.Equal(t, 15, d.Length)
	assert.Equal(t, core.FieldDecimal, d.Type)
	assert.Equal(t, 2, d.Decimals)

	n, ok := FixedDecimal(5, 0)
	require.True(t, ok)
	assert.Equal(t, core.FieldInteger, n.Type)

	_, ok = FixedDecimal(2, 3)
	assert.False(t, ok)

	b, ok := FixedBinary(31)
	require.True(t, ok)
	assert.Equal(t, 4, b.Length)
	b, _ = FixedBinary(15)
	assert.Equal(t, 2, b.Length)
	b, _ = FixedBinary(63)
	assert.Equal(t, 8, b.Length)
}

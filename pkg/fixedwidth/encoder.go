package fixedwidth

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// Encoder renders records back into fixed-width lines.
//
// Text is left-aligned and space-filled. Numbers are right-aligned and
// zero-filled with a trailing '-' when negative; decimals are written
// without a point, scaled by the field's implicit digits. A nil value leaves
// the field blank.
type Encoder struct {
	contract *core.ContractSpec
}

// NewEncoder returns an encoder for c.
func NewEncoder(c *core.ContractSpec) *Encoder {
	return &Encoder{contract: c}
}

// EncodeLine renders one record. The record type's selector value is always
// written at its range.
func (e *Encoder) EncodeLine(rec *core.Record) (string, error) {
	spec, ok := e.contract.Record(rec.Type)
	if !ok {
		return "", fmt.Errorf("line %d: record type %q is not in the contract", rec.LineNumber, rec.Type)
	}

	line := []rune(strings.Repeat(" ", e.contract.LineLength))
	for _, f := range spec.Fields {
		v, _ := rec.Get(f.Name)
		text, err := formatField(v, f)
		if err != nil {
			return "", fmt.Errorf("line %d, record %s, field %s: %w", rec.LineNumber, rec.Type, f.Name, err)
		}
		copy(line[f.Start-1:], []rune(text))
	}
	copy(line[spec.Selector.Start-1:], []rune(spec.Selector.Value))
	return string(line), nil
}

// Encode writes one line per record, each terminated by "\n".
func (e *Encoder) Encode(w io.Writer, records []*core.Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		line, err := e.EncodeLine(rec)
		if err != nil {
			return err
		}
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// formatField renders v into exactly f.Length characters.
func formatField(v any, f core.FieldSpec) (string, error) {
	if v == nil {
		return strings.Repeat(" ", f.Length), nil
	}
	if f.Type.Numeric() {
		if d, ok := toDecimal(v); ok {
			text, err := formatNumber(d, f)
			if _, raw := v.(string); err == nil || !raw {
				return text, err
			}
		}
	}
	text := fmt.Sprint(v)
	if n := len([]rune(text)); n > f.Length {
		return "", fmt.Errorf("value %q is %d characters, field holds %d", text, n, f.Length)
	}
	return text + strings.Repeat(" ", f.Length-len([]rune(text))), nil
}

func formatNumber(d decimal.Decimal, f core.FieldSpec) (string, error) {
	scaled := d.Shift(int32(f.Scale()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return "", fmt.Errorf("value %s has more than %d decimal digits", d, f.Scale())
	}
	digits := scaled.Abs().Truncate(0).String()
	width := f.Length
	suffix := ""
	if scaled.Sign() < 0 {
		width--
		suffix = "-"
	}
	if len(digits) > width {
		return "", fmt.Errorf("value %s needs %d digits, field holds %d", d, len(digits), width)
	}
	return strings.Repeat("0", width-len(digits)) + digits + suffix, nil
}

// toDecimal accepts the numeric values produced by Coerce and by JSON
// decoding. A numeric string is accepted too; when it does not fit the field
// as a number it is written back as text, the way it was decoded.
func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, true
	case int64:
		return decimal.NewFromInt(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case float64:
		return decimal.NewFromFloat(n), true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	default:
		return decimal.Decimal{}, false
	}
}

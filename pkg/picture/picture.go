// Package picture evaluates mainframe picture strings and storage clauses.
//
// Given a picture such as 9(5)V99 and a usage such as COMP-3 it returns the
// physical byte length, the logical field type and the implicit decimal scale.
// It is a pure function package: no I/O, no state.
package picture

import (
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// Usage is the storage representation of a numeric item.
type Usage string

// Usage values.
const (
	Display Usage = "DISPLAY"
	Packed  Usage = "COMP-3"
	Binary  Usage = "BINARY"
	Float4  Usage = "COMP-1"
	Float8  Usage = "COMP-2"
)

// ParseUsage maps a usage keyword to a Usage. Unknown or empty keywords mean
// display storage.
func ParseUsage(keyword string) Usage {
	switch strings.ToUpper(strings.TrimSpace(keyword)) {
	case "COMP-3", "COMPUTATIONAL-3", "PACKED-DECIMAL":
		return Packed
	case "COMP", "COMP-4", "COMP-5", "COMPUTATIONAL", "COMPUTATIONAL-4", "COMPUTATIONAL-5", "BINARY":
		return Binary
	case "COMP-1", "COMPUTATIONAL-1":
		return Float4
	case "COMP-2", "COMPUTATIONAL-2":
		return Float8
	default:
		return Display
	}
}

// Result is the evaluation of a picture or storage clause.
type Result struct {
	// Length is the physical storage length in bytes.
	Length int
	// Type is the logical type of the value.
	Type core.FieldType
	// Decimals is the implicit scale; only meaningful for decimal results.
	Decimals int
	// Digits is the number of significant digit positions.
	Digits int
}

// Field builds a FieldSpec at the given position from the evaluation.
func (r Result) Field(name string, start int) core.FieldSpec {
	f := core.FieldSpec{Name: name, Start: start, Length: r.Length, Type: r.Type}
	if r.Type == core.FieldDecimal {
		f.Decimals = core.IntPtr(r.Decimals)
	}
	return f
}

// Style selects how repetition counts are written.
type Style int

const (
	// Suffix repetition, COBOL style: 9(5).
	Suffix Style = iota
	// Prefix repetition, PL/I style: (5)9.
	Prefix
)

// MaxLength bounds the display length of a single item. Pictures and clauses
// declaring more are rejected as malformed.
const MaxLength = 65535

// storage symbols consume one byte in display form.
const storageSymbols = "9ZAXB0.,-+/*$"

// Evaluate evaluates a COBOL-style picture with the given usage.
// The boolean is false for malformed or empty pictures; callers skip the field.
func Evaluate(pic string, usage Usage) (Result, bool) {
	return EvaluateStyle(pic, usage, Suffix)
}

// EvaluateStyle evaluates a picture written in the given repetition style.
func EvaluateStyle(pic string, usage Usage, style Style) (Result, bool) {
	symbols, ok := Expand(pic, style)
	if !ok || len(symbols) == 0 {
		return Result{}, false
	}

	var (
		length      int
		digits      int
		decimals    int
		decimalPart bool
		alpha       bool
	)
	for _, s := range symbols {
		switch s {
		case 'V':
			decimalPart = true
			continue
		case 'S', 'P':
			continue
		case 'A', 'X':
			alpha = true
		case '9', 'Z':
			digits++
			if decimalPart {
				decimals++
			}
		}
		if !strings.ContainsRune(storageSymbols, s) {
			return Result{}, false
		}
		length++
	}

	if digits > 0 {
		if n, ok := usageLength(usage, digits); ok {
			length = n
		}
	}
	if length == 0 {
		return Result{}, false
	}

	switch {
	case alpha || digits == 0:
		return Result{Length: length, Type: core.FieldString, Digits: digits}, true
	case decimals > 0:
		return Result{Length: length, Type: core.FieldDecimal, Decimals: decimals, Digits: digits}, true
	default:
		return Result{Length: length, Type: core.FieldInteger, Digits: digits}, true
	}
}

// usageLength returns the physical length imposed by a non-display usage.
func usageLength(usage Usage, digits int) (int, bool) {
	switch usage {
	case Packed:
		return PackedLength(digits), true
	case Binary:
		return BinaryLength(digits), true
	case Float4:
		return 4, true
	case Float8:
		return 8, true
	default:
		return 0, false
	}
}

// PackedLength is ceil((digits+1)/2): two digits per byte plus a sign nibble.
func PackedLength(digits int) int {
	return (digits + 2) / 2
}

// BinaryLength is 2, 4 or 8 bytes for up to 4, up to 9, or more digits.
func BinaryLength(digits int) int {
	switch {
	case digits <= 4:
		return 2
	case digits <= 9:
		return 4
	default:
		return 8
	}
}

// EvaluateUsage evaluates an item declared with a usage but no picture.
// Only floating usages carry an implied length.
func EvaluateUsage(usage Usage) (Result, bool) {
	switch usage {
	case Float4:
		return Result{Length: 4, Type: core.FieldString}, true
	case Float8:
		return Result{Length: 8, Type: core.FieldString}, true
	default:
		return Result{}, false
	}
}

// Expand returns the picture symbols with repetition groups unrolled and
// upper-cased. Quotes, spaces and a trailing period are ignored. Pictures
// expanding beyond MaxLength symbols are rejected before any allocation.
func Expand(pic string, style Style) ([]rune, bool) {
	compact := strings.ToUpper(strings.NewReplacer(" ", "", "'", "", `"`, "").Replace(pic))
	compact = strings.TrimSuffix(compact, ".")
	src := []rune(compact)

	var out []rune
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c != '(' {
			out = append(out, c)
			continue
		}
		end := i + 1
		for end < len(src) && src[end] != ')' {
			end++
		}
		if end >= len(src) {
			return nil, false
		}
		n, err := strconv.Atoi(string(src[i+1 : end]))
		if err != nil || n < 1 || n > MaxLength {
			return nil, false
		}
		switch style {
		case Prefix:
			if end+1 >= len(src) || len(out)+n > MaxLength {
				return nil, false
			}
			tok := src[end+1]
			for k := 0; k < n; k++ {
				out = append(out, tok)
			}
			i = end + 1
		default:
			if len(out) == 0 || len(out)-1+n > MaxLength {
				return nil, false
			}
			tok := out[len(out)-1]
			for k := 1; k < n; k++ {
				out = append(out, tok)
			}
			i = end
		}
	}
	if len(out) > MaxLength {
		return nil, false
	}
	return out, true
}

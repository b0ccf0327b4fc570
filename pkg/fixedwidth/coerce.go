package fixedwidth

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// Coerce converts the raw text of a field to its logical value.
//
// Trailing spaces are trimmed. String, date and sign fields keep the text.
// Numeric fields yield nil when blank, an int64 for integers and a
// decimal.Decimal for decimals. A decimal written without a separator carries
// an implicit point Decimals digits from the right. Text that is not a number
// is returned trimmed instead of failing.
func Coerce(raw string, f core.FieldSpec) any {
	value := strings.TrimRight(raw, " ")
	if !f.Type.Numeric() {
		return value
	}

	normalized, hasPoint := normalizeNumber(value)
	if normalized == "" {
		return nil
	}

	switch f.Type {
	case core.FieldInteger:
		n, err := strconv.ParseInt(normalized, 10, 64)
		if err == nil {
			return n
		}
		if errors.Is(err, strconv.ErrRange) {
			if d, derr := decimal.NewFromString(normalized); derr == nil {
				return d
			}
		}
		return value
	case core.FieldDecimal:
		d, err := decimal.NewFromString(normalized)
		if err != nil {
			return value
		}
		if !hasPoint {
			d = d.Shift(int32(-f.Scale()))
		}
		return d
	default:
		return value
	}
}

// normalizeNumber strips blanks and grouping marks from numeric text. The
// last '.' or ',' is the decimal point; earlier ones group thousands. A
// trailing sign is moved to the front.
func normalizeNumber(value string) (string, bool) {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r == ' ' || r == '\'' {
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()
	if s == "" {
		return "", false
	}

	if last := s[len(s)-1]; (last == '-' || last == '+') && len(s) > 1 {
		s = string(last) + s[:len(s)-1]
	}

	point := strings.LastIndexAny(s, ".,")
	if point < 0 {
		return s, false
	}
	intPart := strings.NewReplacer(".", "", ",", "").Replace(s[:point])
	return intPart + "." + s[point+1:], true
}

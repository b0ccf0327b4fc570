package picture

import "github.com/leapstack-labs/leaplayout/pkg/core"

// Char evaluates a CHAR(n) storage clause.
func Char(n int) (Result, bool) {
	if n < 1 || n > MaxLength {
		return Result{}, false
	}
	return Result{Length: n, Type: core.FieldString}, true
}

// FixedDecimal evaluates a DEC FIXED(p,q) clause of a record written in
// display form: p bytes, decimal when the scale q is positive.
func FixedDecimal(precision, scale int) (Result, bool) {
	if precision < 1 || precision > MaxLength || scale < 0 || scale > precision {
		return Result{}, false
	}
	if scale > 0 {
		return Result{Length: precision, Type: core.FieldDecimal, Decimals: scale, Digits: precision}, true
	}
	return Result{Length: precision, Type: core.FieldInteger, Digits: precision}, true
}

// FixedBinary evaluates a BIN FIXED(p) clause where p counts bits without
// the sign: halfword up to 15, fullword up to 31, doubleword beyond.
func FixedBinary(precision int) (Result, bool) {
	if precision < 1 {
		return Result{}, false
	}
	length := 8
	switch {
	case precision <= 15:
		length = 2
	case precision <= 31:
		length = 4
	}
	return Result{Length: length, Type: core.FieldInteger, Digits: precision}, true
}

// Package pli provides the PL/I declaration dialect.
// This package is pure Go; it registers itself with pkg/dialect on import.
package pli

import "github.com/leapstack-labs/leaplayout/pkg/core"

// Config is the PL/I dialect configuration.
var Config = &core.DialectConfig{
	Name:       "pli",
	Extensions: []string{".pli", ".pl1", ".inc"},

	// Field names start below the structure: DEMAT_ENT.GRP.X -> GRP_X
	QualifyWithRoot: false,
	Separator:       "_",

	DefaultPrefixes: []string{"DEMAT_", "STO_D_"},

	LineLength: core.LineLengthCommonSum,
}

// Structure name prefixes mapped away when naming records.
var recordPrefixes = []string{"DEMAT_", "STO_D_"}

// Structures holding shared templates only.
var templateOnly = map[string]struct{}{
	"DEMAT_GEN": {},
	"STO_D_GEN": {},
}

// First-level group names with special flattening.
const (
	skippedGroup     = "ID"
	transparentGroup = "GS"
)

// selectorLength is the number of leading record-name characters used as
// the record selector.
const selectorLength = 3

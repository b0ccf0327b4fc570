// Package cobol provides the COBOL copybook dialect.
// This package is pure Go; it registers itself with pkg/dialect on import.
package cobol

import "github.com/leapstack-labs/leaplayout/pkg/core"

// Config is the COBOL dialect configuration.
var Config = &core.DialectConfig{
	Name:       "cobol",
	Extensions: []string{".cbl", ".cob", ".cpy"},

	// Field names are qualified from the 01 record down
	QualifyWithRoot: true,
	Separator:       "_",

	// Every 01 record is selected by default
	DefaultPrefixes: nil,

	LineLength:         core.LineLengthMaxEnd,
	StrictSingleRecord: true,
}

// Levels that declare no storage of their own: RENAMES, independent items
// and condition names.
var ignoredLevels = map[int]struct{}{66: {}, 77: {}, 88: {}}

// Keywords that may follow the level number when the item name is omitted.
var clauseKeywords = map[string]struct{}{
	"PIC": {}, "PICTURE": {}, "VALUE": {}, "VALUES": {}, "REDEFINES": {},
	"OCCURS": {}, "USAGE": {}, "COMP": {}, "COMP-1": {}, "COMP-2": {},
	"COMP-3": {}, "COMP-4": {}, "COMP-5": {}, "BINARY": {}, "DISPLAY": {},
	"PACKED-DECIMAL": {},
}

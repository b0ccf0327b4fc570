package core

// DialectConfig holds the static configuration for a declaration dialect.
// This is pure data, no parsing functions.
//
// The runtime behavior (source parsing, record naming) lives in
// pkg/dialect.Dialect, which embeds this config.
type DialectConfig struct {
	// Name is the dialect identifier ("pli", "cobol")
	Name string

	// Extensions are the source file extensions this dialect claims, lowercase with dot
	Extensions []string

	// Naming of flattened fields
	QualifyWithRoot bool   // include the top-level structure name in field names
	Separator       string // joins qualified name segments

	// Default structure selection when the caller gives no filter.
	// Empty means every structure is selected.
	DefaultPrefixes []string

	// Line length derivation over the selected records
	LineLength LineLengthPolicy

	// StrictSingleRecord only honors strict length validation when exactly
	// one record is selected.
	StrictSingleRecord bool
}

// LineLengthPolicy chooses how a contract line length is derived.
type LineLengthPolicy int

const (
	// LineLengthCommonSum uses the common sum of field lengths when every
	// record agrees, else the largest sum.
	LineLengthCommonSum LineLengthPolicy = iota
	// LineLengthMaxEnd uses the largest end position over all records.
	LineLengthMaxEnd
)

// String returns the string representation of LineLengthPolicy.
func (p LineLengthPolicy) String() string {
	switch p {
	case LineLengthCommonSum:
		return "common-sum"
	case LineLengthMaxEnd:
		return "max-end"
	default:
		return "unknown"
	}
}

// DeriveLineLength applies the policy to records.
func (p LineLengthPolicy) DeriveLineLength(records []RecordSpec) int {
	length := 0
	switch p {
	case LineLengthMaxEnd:
		for i := range records {
			if end := records[i].MaxEnd(); end > length {
				length = end
			}
		}
	default:
		for i := range records {
			if sum := records[i].SumOfLengths(); sum > length {
				length = sum
			}
		}
	}
	return length
}

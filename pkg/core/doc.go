// Package core defines the shared language of the leaplayout system.
//
// This package contains:
//   - The contract model (FieldSpec, SelectorSpec, RecordSpec, ContractSpec)
//   - Document grammar constraints (StructureRule, StructureScope)
//   - Decoded records and non-fatal diagnostics (Record, Issue)
//   - The error taxonomy shared by every stage (sentinel errors)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core

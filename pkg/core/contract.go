package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SchemaVersion is the version written into every contract artifact.
const SchemaVersion = "1.0"

// ContractSpec is the validated layout description of every record shape
// that shares one physical line length. Once built it is never mutated and may
// be shared freely across concurrent decoders.
type ContractSpec struct {
	SchemaVersion             string          `json:"schema_version"`
	SourceProgram             string          `json:"source_program" jsonschema:"minLength=1"`
	GeneratedAt               time.Time       `json:"generated_at"`
	LineLength                int             `json:"line_length" jsonschema:"minimum=1"`
	StrictLengthValidation    bool            `json:"strict_length_validation"`
	StrictStructureValidation bool            `json:"strict_structure_validation"`
	StructureSource           string          `json:"structure_source,omitempty"`
	StructureRules            []StructureRule `json:"structure_rules"`
	RecordTypes               []RecordSpec    `json:"record_types" jsonschema:"minItems=1"`
}

// NewContract builds a contract and validates every invariant.
func NewContract(program string, lineLength int, strict bool, records []RecordSpec) (*ContractSpec, error) {
	c := &ContractSpec{
		SchemaVersion:          SchemaVersion,
		SourceProgram:          program,
		GeneratedAt:            time.Now().UTC().Truncate(time.Second),
		LineLength:             lineLength,
		StrictLengthValidation: strict,
		StructureRules:         []StructureRule{},
		RecordTypes:            records,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the global invariants: unique record names, every record
// within the line length and, in strict mode, every byte of the line covered.
func (c *ContractSpec) Validate() error {
	if c.SourceProgram == "" {
		return invariantf("", "", "source program is required")
	}
	if c.LineLength < 1 {
		return invariantf("", "", "line length must be >= 1, got %d", c.LineLength)
	}
	if len(c.RecordTypes) == 0 {
		return invariantf("", "", "at least one record type is required")
	}

	seen := make(map[string]int, len(c.RecordTypes))
	var duplicates []string
	for i := range c.RecordTypes {
		rec := &c.RecordTypes[i]
		if err := rec.Validate(); err != nil {
			return err
		}
		seen[rec.Name]++
		if seen[rec.Name] == 2 {
			duplicates = append(duplicates, rec.Name)
		}
	}
	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		return invariantf("", "", "duplicate record types: %s", strings.Join(duplicates, ", "))
	}

	for i := range c.RecordTypes {
		rec := &c.RecordTypes[i]
		if end := rec.MaxEnd(); end > c.LineLength {
			return invariantf(rec.Name, "", "exceeds line length %d: max end position = %d", c.LineLength, end)
		}
		if c.StrictLengthValidation {
			if sum := rec.SumOfLengths(); sum != c.LineLength {
				return invariantf(rec.Name, "", "sum(lengths)=%d, expected line_length=%d", sum, c.LineLength)
			}
		}
	}

	for _, rule := range c.StructureRules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Record returns the record type with the given name.
func (c *ContractSpec) Record(name string) (*RecordSpec, bool) {
	for i := range c.RecordTypes {
		if c.RecordTypes[i].Name == name {
			return &c.RecordTypes[i], true
		}
	}
	return nil, false
}

// RecordNames returns record type names in declaration order.
func (c *ContractSpec) RecordNames() []string {
	names := make([]string, len(c.RecordTypes))
	for i, r := range c.RecordTypes {
		names[i] = r.Name
	}
	return names
}

// WithStructure returns a copy of the contract carrying the given rules.
// The receiver is left untouched.
func (c *ContractSpec) WithStructure(source string, rules []StructureRule, strict bool) (*ContractSpec, error) {
	cp := *c
	cp.StructureSource = source
	cp.StructureRules = append([]StructureRule(nil), rules...)
	cp.StrictStructureValidation = strict
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return &cp, nil
}

// MarshalIndent serializes the contract artifact.
func (c *ContractSpec) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// ReadContract decodes and validates a contract artifact.
func ReadContract(r io.Reader) (*ContractSpec, error) {
	var c ContractSpec
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode contract: %w", err)
	}
	if c.SchemaVersion == "" {
		c.SchemaVersion = SchemaVersion
	}
	if c.StructureRules == nil {
		c.StructureRules = []StructureRule{}
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadContract reads a contract artifact from disk.
func LoadContract(path string) (*ContractSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open contract: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadContract(f)
}

// SaveContract writes the contract artifact to disk, creating parent
// directories as needed.
func SaveContract(c *ContractSpec, path string) error {
	data, err := c.MarshalIndent()
	if err != nil {
		return fmt.Errorf("failed to encode contract: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create contract directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return fmt.Errorf("failed to write contract: %w", err)
	}
	return nil
}

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaplayout/internal/charset"
	"github.com/leapstack-labs/leaplayout/internal/cli/config"
	"github.com/leapstack-labs/leaplayout/pkg/extract"
	"github.com/leapstack-labs/leaplayout/pkg/structure"
)

// generateSchemaDocs generates the configuration and contract references and
// the contract JSON Schema.
func generateSchemaDocs(outDir string) error {
	log.Printf("Generating schema docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := generateConfigurationDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate configuration.md: %w", err)
	}
	log.Printf("  Generated configuration.md")

	if err := generateContractDoc(outDir); err != nil {
		return fmt.Errorf("failed to generate contract.md: %w", err)
	}
	log.Printf("  Generated contract.md")

	data, err := extract.SchemaJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(outDir, "contract.schema.json"), append(data, '\n'), 0600); err != nil {
		return err
	}
	log.Printf("  Generated contract.schema.json")

	return nil
}

// ConfigField represents a configuration field definition.
type ConfigField struct {
	Name        string
	Type        string
	Default     string
	Description string
	Category    string // "extraction", "rules", "decoding", "output"
}

// getConfigSchema returns the configuration schema definition.
// This is based on internal/cli/config/types.go Config.
func getConfigSchema() []ConfigField {
	d := config.Defaults()
	return []ConfigField{
		{Name: "program", Type: "string", Description: "Program name recorded in the contract (default: source file stem)", Category: "extraction"},
		{Name: "engine", Type: "string", Default: d.Engine, Description: "Declaration dialect: auto, pli or cobol", Category: "extraction"},
		{Name: "source_encoding", Type: "string", Default: d.SourceEncoding, Description: "Encoding of declaration sources", Category: "extraction"},
		{Name: "strict", Type: "bool", Default: strconv.FormatBool(d.Strict), Description: "Require every record to cover the whole line", Category: "extraction"},
		{Name: "prefixes", Type: "[]string", Description: "Structure name prefixes to select (dialect default when empty)", Category: "extraction"},
		{Name: "names", Type: "[]string", Description: "Exact structure names to select", Category: "extraction"},
		{Name: "preserve_names", Type: "bool", Default: "false", Description: "Keep structure names instead of stripping prefixes", Category: "extraction"},

		{Name: "rules_file", Type: "string", Description: "YAML structure rules replacing the default invoice grammar", Category: "rules"},
		{Name: "order_doc", Type: "string", Description: "Ordering document checked for rule labels (txt, md, html)", Category: "rules"},
		{Name: "no_rules", Type: "bool", Default: "false", Description: "Attach no structure rules", Category: "rules"},
		{Name: "strict_structure", Type: "bool", Default: "false", Description: "Fail decoding on the first structural issue", Category: "rules"},

		{Name: "input_encoding", Type: "string", Default: d.InputEncoding, Description: "Encoding of decoded inputs: " + strings.Join(charset.Names(), ", "), Category: "decoding"},
		{Name: "fail_fast", Type: "bool", Default: strconv.FormatBool(d.FailFast), Description: "Abort a file on its first bad line instead of collecting issues", Category: "decoding"},
		{Name: "tolerate_structure", Type: "bool", Default: strconv.FormatBool(d.TolerateStructure), Description: "Keep structural issues as diagnostics even for strict contracts", Category: "decoding"},
		{Name: "workers", Type: "int", Default: strconv.Itoa(d.Workers), Description: "Files decoded concurrently", Category: "decoding"},

		{Name: "output_dir", Type: "string", Default: d.OutputDir, Description: "Directory for contracts and JSONL records", Category: "output"},
		{Name: "state_path", Type: "string", Default: d.StatePath, Description: "SQLite contract cache", Category: "output"},
		{Name: "cache", Type: "bool", Default: strconv.FormatBool(d.Cache), Description: "Reuse contracts built from identical sources", Category: "output"},
		{Name: "output", Type: "string", Default: d.OutputFormat, Description: "Output format: auto, text, markdown, json", Category: "output"},
		{Name: "verbose", Type: "bool", Default: "false", Description: "Debug logging on stderr", Category: "output"},
	}
}

var configCategories = []struct {
	key, title, intro string
}{
	{"extraction", "Extraction", "How declarations are parsed and which structures become record types:"},
	{"rules", "Structure Rules", "The document grammar attached to extracted contracts:"},
	{"decoding", "Decoding", "How fixed-width inputs are read:"},
	{"output", "Outputs and Cache", "Where results go and how they are shown:"},
}

// generateConfigurationDoc generates the configuration reference page.
func generateConfigurationDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Configuration", "leaplayout configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph("leaplayout reads `" + config.DefaultConfigName + "` from the working directory or its nearest parent. Relative paths in the file are resolved against its directory.")

	fields := getConfigSchema()
	for _, cat := range configCategories {
		w.Header(2, cat.title)
		w.Paragraph(cat.intro)
		var rows [][]string
		for _, f := range fields {
			if f.Category != cat.key {
				continue
			}
			def := f.Default
			if def == "" {
				def = "-"
			}
			rows = append(rows, []string{InlineCode(f.Name), f.Type, InlineCode(def), f.Description})
		}
		w.Table([]string{"Field", "Type", "Default", "Description"}, rows)
	}

	w.Header(2, "Full Configuration Example")
	w.CodeBlock("yaml", `# leaplayout.yaml
engine: pli
prefixes: [DEMAT_, STO_D_]
order_doc: docs/doctechn.html

input_encoding: cp037
fail_fast: true
workers: 8

output_dir: outputs
state_path: .leaplayout/cache.db`)

	w.Header(2, "Environment Variables")
	w.Paragraph("Every field can be set as `LEAPLAYOUT_<FIELD>`, e.g. `LEAPLAYOUT_WORKERS=8`. List fields take comma-separated values.")

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

// generateContractDoc generates the contract reference page.
func generateContractDoc(outDir string) error {
	w := NewMarkdownWriter()

	w.Frontmatter("Contract", "Record contract reference")
	w.GeneratedMarker()

	w.Header(1, "Contract")
	w.Paragraph("A contract describes every record type sharing one physical line length. Positions are 1-based and inclusive. The full JSON Schema is in `contract.schema.json` (`" + extract.SchemaID + "`).")

	w.Header(2, "Default Structure Rules")
	w.Paragraph("Attached to extracted contracts unless `no_rules` or `rules_file` is set:")
	var rows [][]string
	for _, r := range structure.DefaultInvoiceRules() {
		maxOccurs := "n"
		if r.MaxOccurs != nil {
			maxOccurs = strconv.Itoa(*r.MaxOccurs)
		}
		rows = append(rows, []string{
			strconv.Itoa(r.OrderIndex), InlineCode(r.Label), r.RecordName, string(r.Scope),
			strconv.Itoa(r.MinOccurs), maxOccurs, cleanDescription(r.Description),
		})
	}
	w.Table([]string{"Order", "Label", "Record", "Scope", "Min", "Max", "Description"}, rows)

	return os.WriteFile(filepath.Join(outDir, "contract.md"), w.Bytes(), 0600)
}

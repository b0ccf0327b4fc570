package main

import (
	"cmp"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/leaplayout/internal/cli"
)

// generateCLIDocs generates CLI documentation from Cobra commands.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	// Create output directory
	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Get root command
	rootCmd := cli.NewRootCmd()

	// Generate index page
	if err := generateCLIIndex(rootCmd, outDir); err != nil {
		return fmt.Errorf("failed to generate index: %w", err)
	}
	log.Printf("  Generated index.md")

	// Generate page for each command
	for _, cmd := range rootCmd.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "__complete" {
			continue
		}
		if err := generateCommandPage(cmd, outDir); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.Name(), err)
		}
		log.Printf("  Generated %s.md", cmd.Name())
	}

	return nil
}

// generateCLIIndex generates the CLI overview page.
func generateCLIIndex(rootCmd *cobra.Command, outDir string) error {
	w := NewMarkdownWriter()

	// Frontmatter
	w.Frontmatter("CLI Reference", "Command-line interface reference for leaplayout")
	w.GeneratedMarker()

	// Title and intro
	w.Header(1, "CLI Reference")
	w.Paragraph("leaplayout extracts record layouts from PL/I programs and COBOL copybooks into JSON contracts, then decodes mainframe fixed-width files with them.")

	// Installation
	w.Header(2, "Installation")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/leaplayout/cmd/leaplayout@latest")

	// Basic usage: extract once, decode many
	w.Header(2, "Basic Usage")
	w.CodeBlock("bash", `leaplayout extract IDP470RA.pli
leaplayout parse outputs/idp470ra_contract.json FACT0101.txt`)

	// Commands table, cache subcommands are listed on the cache page
	w.Header(2, "Commands")

	headers := []string{"Command", "Description"}
	var rows [][]string

	for _, cmd := range rootCmd.Commands() {
		if cmd.Hidden || cmd.Name() == "help" || cmd.Name() == "__complete" {
			continue
		}
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(cmd.Name()), cmd.Name())
		rows = append(rows, []string{link, cleanDescription(cmd.Short)})
	}

	w.Table(headers, rows)

	// Global flags with the config key each one overrides
	w.Header(2, "Global Options")
	w.Paragraph("These flags are available for all commands. Each one overrides the configuration key shown:")
	markPersistent(rootCmd.PersistentFlags())
	writeFlagsTable(w, rootCmd.PersistentFlags())

	// Environment variables
	w.Header(2, "Environment Variables")
	w.Paragraph("Every configuration key can be set as `LEAPLAYOUT_<KEY>`, for example:")

	envHeaders := []string{"Variable", "Description"}
	envRows := [][]string{
		{InlineCode("LEAPLAYOUT_ENGINE"), "Declaration dialect: auto, pli or cobol"},
		{InlineCode("LEAPLAYOUT_INPUT_ENCODING"), "Encoding of decoded inputs"},
		{InlineCode("LEAPLAYOUT_FAIL_FAST"), "Abort a file on its first bad line"},
		{InlineCode("LEAPLAYOUT_OUTPUT_DIR"), "Directory for contracts and JSONL records"},
		{InlineCode("LEAPLAYOUT_STATE_PATH"), "Contract cache database"},
		{InlineCode("LEAPLAYOUT_WORKERS"), "Files decoded concurrently"},
	}
	w.Table(envHeaders, envRows)

	w.Paragraph("Command-line flags take precedence over environment variables, which take precedence over `leaplayout.yaml`.")

	// Exit codes
	w.Header(2, "Exit Codes")
	exitHeaders := []string{"Code", "Meaning"}
	exitRows := [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Error (check stderr for details)"},
	}
	w.Table(exitHeaders, exitRows)

	// Getting help
	w.Header(2, "Getting Help")
	w.CodeBlock("bash", `# General help
leaplayout help
leaplayout --help

# Command-specific help
leaplayout parse --help`)

	// Write file
	filename := filepath.Join(outDir, "index.md")
	return os.WriteFile(filename, w.Bytes(), 0600)
}

// generateCommandPage generates documentation for a single command.
func generateCommandPage(cmd *cobra.Command, outDir string) error {
	w := NewMarkdownWriter()

	// Frontmatter
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	// Title and long description
	w.Header(1, cmd.Name())
	w.Paragraph(cmp.Or(cmd.Long, cmd.Short))

	// Usage
	w.Header(2, "Usage")
	useLine := "leaplayout " + strings.TrimPrefix(cmd.UseLine(), "leaplayout ")
	if cmd.HasSubCommands() {
		useLine = fmt.Sprintf("leaplayout %s <subcommand> [options]", cmd.Name())
	}
	w.CodeBlock("bash", useLine)

	// Subcommands (cache list, clear, forget)
	if cmd.HasSubCommands() {
		w.Header(2, "Subcommands")
		var rows [][]string
		for _, sub := range cmd.Commands() {
			if sub.Hidden {
				continue
			}
			rows = append(rows, []string{InlineCode(sub.UseLine()), cleanDescription(sub.Short)})
		}
		w.Table([]string{"Subcommand", "Description"}, rows)
	}

	// Local flags
	if cmd.HasLocalFlags() {
		w.Header(2, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}

	// Inherited flags are documented once on the index page
	if cmd.HasInheritedFlags() {
		w.Header(2, "Global Options")
		w.Paragraph("See the [CLI reference](/cli/) for the configuration key behind each global option.")
	}

	// Examples
	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}

	// Write file
	return os.WriteFile(filepath.Join(outDir, cmd.Name()+".md"), w.Bytes(), 0600)
}

// flagConfigKeys names the configuration key of flags whose name differs.
var flagConfigKeys = map[string]string{
	"state":    "state_path",
	"encoding": "input_encoding",
}

// configKey returns the leaplayout.yaml key set by a global flag, or "" for
// flags that only affect the invocation.
func configKey(f *pflag.Flag) string {
	switch f.Name {
	case "config", "help":
		return ""
	}
	if key, ok := flagConfigKeys[f.Name]; ok {
		return key
	}
	return strings.ReplaceAll(f.Name, "-", "_")
}

// writeFlagsTable writes a table of flags. Persistent flags also list the
// configuration key they override.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	withKeys := false
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		short := ""
		if f.Shorthand != "" {
			short = "-" + f.Shorthand
		}
		def := f.DefValue
		if def != "" && f.Value.Type() != "bool" {
			def = InlineCode(def)
		}
		key := ""
		if _, persistent := f.Annotations[persistentAnnotation]; persistent {
			if k := configKey(f); k != "" {
				key = InlineCode(k)
				withKeys = true
			}
		}
		rows = append(rows, []string{InlineCode("--" + f.Name), short, def, key, cleanDescription(f.Usage)})
	})

	headers := []string{"Option", "Short", "Default", "Config key", "Description"}
	if !withKeys {
		headers = append(headers[:3], headers[4])
		for i, r := range rows {
			rows[i] = append(r[:3], r[4])
		}
	}
	w.Table(headers, rows)
}

// persistentAnnotation marks the root command's persistent flags before
// they are rendered.
const persistentAnnotation = "gendocs_persistent"

func markPersistent(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		_ = flags.SetAnnotation(f.Name, persistentAnnotation, []string{"true"})
	})
}

// dedent removes the indentation shared by every non-blank line.
func dedent(text string) string {
	lines := strings.Split(strings.Trim(text, "\n"), "\n")
	// Find the smallest indentation, ignoring blank lines
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	// Strip it from every line
	for i, line := range lines {
		if len(line) >= indent && indent > 0 {
			lines[i] = line[indent:]
		}
	}
	return strings.Join(lines, "\n")
}

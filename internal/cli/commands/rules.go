package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplayout/internal/cli/output"
	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/extract"
	"github.com/leapstack-labs/leaplayout/pkg/structure"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	YAML  bool   // Print the rule set as a rules file
	Check string // Ordering document to verify
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the document structure rules",
		Long: `List the structure rules attached to extracted contracts: the default
invoice grammar, or the rules file from --rules-file.

--yaml prints the rule set in the rules file format, a starting point for a
custom grammar. --check reports rule labels an ordering document never
mentions.`,
		Example: `  # Show the default invoice grammar
  leaplayout rules

  # Start a custom grammar
  leaplayout rules --yaml > rules.yaml

  # Verify an ordering document
  leaplayout rules --check doctechn.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRules(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.YAML, "yaml", false, "Print as a YAML rules file")
	cmd.Flags().StringVar(&opts.Check, "check", "", "Ordering document to check for missing labels")
	return cmd
}

func loadRuleSet(cc *CommandContext) (*structure.RuleSet, error) {
	if cc.Cfg.RulesFile != "" {
		return structure.LoadRules(cc.Cfg.RulesFile)
	}
	return &structure.RuleSet{Source: structure.DefaultSource, Rules: structure.DefaultInvoiceRules()}, nil
}

func runRules(cmd *cobra.Command, opts *RulesOptions) error {
	cc := NewCommandContext(cmd)
	r := cc.Renderer
	rs, err := loadRuleSet(cc)
	if err != nil {
		return err
	}

	if opts.YAML {
		data, err := structure.MarshalRules(rs.Source, rs.Rules)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	var missing []string
	if opts.Check != "" {
		text, err := extract.ReadOrderDocument(opts.Check)
		if err != nil {
			return fmt.Errorf("failed to read ordering document: %w", err)
		}
		missing = structure.MissingLabels(text, rs.Rules)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(RulesJSONOutput{Source: rs.Source, Rules: rs.Rules, Missing: missing})
	}

	r.Header(1, fmt.Sprintf("Structure Rules (%d)", len(rs.Rules)))
	r.KeyValue("Source", orNone(rs.Source))
	r.Println("")
	rows := make([][]any, 0, len(rs.Rules))
	for _, rule := range rs.Rules {
		rows = append(rows, []any{
			rule.OrderIndex, rule.Label, rule.RecordName, output.Title(string(rule.Scope)),
			rule.MinOccurs, formatMax(rule.MaxOccurs), rule.Description,
		})
	}
	r.Table([]string{"Order", "Label", "Record", "Scope", "Min", "Max", "Description"}, rows)
	r.Println("")

	if opts.Check != "" {
		if len(missing) == 0 {
			r.Success("Every label appears in " + opts.Check)
		} else {
			for _, label := range missing {
				r.Warning(fmt.Sprintf("%s is not mentioned in %s", label, opts.Check))
			}
		}
	}
	return nil
}

// RulesJSONOutput is the JSON output of the rules command.
type RulesJSONOutput struct {
	Source  string               `json:"source"`
	Rules   []core.StructureRule `json:"rules"`
	Missing []string             `json:"missing_labels,omitempty"`
}

func formatMax(n *int) string {
	if n == nil {
		return "n"
	}
	return strconv.Itoa(*n)
}

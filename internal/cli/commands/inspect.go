package commands

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplayout/internal/cli/output"
	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// NewInspectCommand creates the inspect command.
func NewInspectCommand() *cobra.Command {
	var records []string
	cmd := &cobra.Command{
		Use:   "inspect <contract|source>",
		Short: "Show the field layout of a contract",
		Long: `Print every record type of a contract with its field positions.

The argument is a contract JSON file, or a declaration source which is
extracted on the fly (nothing is written).`,
		Example: `  leaplayout inspect outputs/idp470ra_contract.json
  leaplayout inspect IDP470RA.pli --record ENT
  leaplayout inspect invoice.cpy -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			contract, err := loadContractArg(cmd, cc, args[0])
			if err != nil {
				return err
			}
			return renderInspect(cc.Renderer, contract, records)
		},
	}
	cmd.Flags().StringSliceVar(&records, "record", nil, "Only show these record types")
	return cmd
}

// loadContractArg reads a contract file, or extracts one from a source.
func loadContractArg(cmd *cobra.Command, cc *CommandContext, arg string) (*core.ContractSpec, error) {
	if strings.EqualFold(filepath.Ext(arg), ".json") {
		return core.LoadContract(arg)
	}
	res, err := cc.extractSource(cmd.Context(), arg)
	if err != nil {
		return nil, err
	}
	return res.Contract, nil
}

func renderInspect(r *output.Renderer, c *core.ContractSpec, only []string) error {
	selected := make([]core.RecordSpec, 0, len(c.RecordTypes))
	for _, name := range only {
		if _, ok := c.Record(strings.ToUpper(name)); !ok {
			return fmt.Errorf("record type %q not found (available: %s)", name, strings.Join(c.RecordNames(), ", "))
		}
	}
	for _, rec := range c.RecordTypes {
		if len(only) == 0 || containsFold(only, rec.Name) {
			selected = append(selected, rec)
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		view := *c
		view.RecordTypes = selected
		return r.JSON(&view)
	}

	r.Header(1, fmt.Sprintf("%s (line length %d)", c.SourceProgram, c.LineLength))
	r.KeyValue("Schema version", c.SchemaVersion)
	r.KeyValue("Strict length", strconv.FormatBool(c.StrictLengthValidation))
	r.KeyValue("Strict structure", strconv.FormatBool(c.StrictStructureValidation))
	r.KeyValue("Structure source", orNone(c.StructureSource))
	r.Println("")

	for _, rec := range selected {
		r.Header(2, fmt.Sprintf("%s  selector %d-%d = %q", rec.Name, rec.Selector.Start, rec.Selector.End(), rec.Selector.Value))
		rows := make([][]any, 0, len(rec.Fields))
		for _, f := range rec.Fields {
			scale := ""
			if f.Type == core.FieldDecimal {
				scale = strconv.Itoa(f.Scale())
			}
			rows = append(rows, []any{f.Name, f.Start, f.End(), f.Length, string(f.Type), scale, output.Truncate(f.Description, 60)})
		}
		r.Table([]string{"Field", "Start", "End", "Length", "Type", "Scale", "Description"}, rows)
		r.Muted(fmt.Sprintf("%d fields, %d characters, last position %d", len(rec.Fields), rec.SumOfLengths(), rec.MaxEnd()))
		r.Println("")
	}
	return nil
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplayout/internal/cli/output"
	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/extract"
)

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	var contractOut string
	cmd := &cobra.Command{
		Use:   "extract <source>",
		Short: "Build a record contract from a PL/I or COBOL source",
		Long: `Parse the record declarations of a PL/I program or COBOL copybook and
write the resulting contract as JSON.

The dialect is chosen from the file extension unless --engine is set.
Default invoice structure rules are attached unless --no-rules is given.`,
		Example: `  # Extract with the default prefixes (DEMAT_, STO_D_)
  leaplayout extract IDP470RA.pli

  # COBOL copybook, only two records, custom output path
  leaplayout extract invoice.cpy --names INV-HEADER,INV-LINE --contract out/inv.json

  # Check the rules against an ordering document
  leaplayout extract IDP470RA.pli --order-doc doctechn.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args[0], contractOut)
		},
	}
	cmd.Flags().StringVar(&contractOut, "contract", "", "Contract output path (default: <output-dir>/<program>_contract.json)")
	return cmd
}

func runExtract(cmd *cobra.Command, source, contractOut string) error {
	cc := NewCommandContext(cmd)
	res, err := cc.extractSource(cmd.Context(), source)
	if err != nil {
		return err
	}

	path := contractOut
	if path == "" {
		path = cc.contractPath(res.Contract.SourceProgram)
	}
	if err := core.SaveContract(res.Contract, path); err != nil {
		return err
	}
	cc.Logger.Info("contract saved", "path", path)

	return renderExtract(cc.Renderer, res, path)
}

// ExtractJSONOutput is the JSON output of the extract command.
type ExtractJSONOutput struct {
	Program       string              `json:"program"`
	Dialect       string              `json:"dialect"`
	ContractPath  string              `json:"contract_path"`
	LineLength    int                 `json:"line_length"`
	Records       []RecordSummary     `json:"records"`
	Rules         int                 `json:"rules"`
	Cached        bool                `json:"cached"`
	Diagnostics   []DiagnosticSummary `json:"diagnostics,omitempty"`
	MissingLabels []string            `json:"missing_labels,omitempty"`
}

// RecordSummary describes one record type of a contract.
type RecordSummary struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
	Fields   int    `json:"fields"`
	Length   int    `json:"length"`
}

// DiagnosticSummary is a non-fatal declaration problem.
type DiagnosticSummary struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func summarizeRecords(c *core.ContractSpec) []RecordSummary {
	out := make([]RecordSummary, 0, len(c.RecordTypes))
	for _, r := range c.RecordTypes {
		out = append(out, RecordSummary{
			Name:     r.Name,
			Selector: fmt.Sprintf("%d-%d = %q", r.Selector.Start, r.Selector.End(), r.Selector.Value),
			Fields:   len(r.Fields),
			Length:   r.SumOfLengths(),
		})
	}
	return out
}

func renderExtract(r *output.Renderer, res *extract.Result, path string) error {
	c := res.Contract
	if r.EffectiveMode() == output.ModeJSON {
		out := ExtractJSONOutput{
			Program:       c.SourceProgram,
			Dialect:       res.Dialect,
			ContractPath:  path,
			LineLength:    c.LineLength,
			Records:       summarizeRecords(c),
			Rules:         len(c.StructureRules),
			Cached:        res.Cached,
			MissingLabels: res.MissingLabels,
		}
		for _, d := range res.Diagnostics {
			out.Diagnostics = append(out.Diagnostics, DiagnosticSummary{Line: d.Line, Message: d.Message})
		}
		return r.JSON(out)
	}

	r.Header(1, "Contract "+c.SourceProgram)
	r.KeyValue("Dialect", res.Dialect)
	r.KeyValue("Line length", strconv.Itoa(c.LineLength))
	r.KeyValue("Strict length", strconv.FormatBool(c.StrictLengthValidation))
	r.KeyValue("Structure rules", fmt.Sprintf("%d (%s)", len(c.StructureRules), orNone(c.StructureSource)))
	r.KeyValue("Cached", strconv.FormatBool(res.Cached))
	r.Println("")

	rows := make([][]any, 0, len(c.RecordTypes))
	for _, s := range summarizeRecords(c) {
		rows = append(rows, []any{s.Name, s.Selector, s.Fields, s.Length})
	}
	r.Table([]string{"Record", "Selector", "Fields", "Length"}, rows)
	r.Println("")

	for _, d := range res.Diagnostics {
		r.Warning(fmt.Sprintf("line %d: %s", d.Line, d.Message))
	}
	if len(res.MissingLabels) > 0 {
		r.Warning("Labels missing from ordering document: " + strings.Join(res.MissingLabels, ", "))
	}
	r.Success("Contract saved to " + path)
	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

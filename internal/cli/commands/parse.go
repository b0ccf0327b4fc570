package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplayout/internal/cli/output"
	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/fixedwidth"
)

// maxIssueRows bounds the issue table in text and markdown output.
const maxIssueRows = 50

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	var recordsOut string
	cmd := &cobra.Command{
		Use:   "parse <contract> <input>...",
		Short: "Decode fixed-width files with a contract",
		Long: `Decode mainframe fixed-width files into JSON Lines, one record per line.

Each input is written to <output-dir>/<input name>.jsonl. Files are decoded
concurrently (--workers) with the same contract.

Bad lines are collected as issues and the rest of the file is decoded.
--fail-fast aborts a file on its first bad line instead. A contract that
enforces its structure aborts on the first structural issue unless
--tolerate-structure is set.`,
		Example: `  # Decode one file
  leaplayout parse outputs/idp470ra_contract.json FACT0101.txt

  # Decode a month of EBCDIC files, stopping each at its first bad line
  leaplayout parse contract.json in/*.dat --fail-fast --encoding cp037`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			contract, err := core.LoadContract(args[0])
			if err != nil {
				return err
			}
			return decodeInputs(cmd.Context(), cc, contract, args[1:], recordsOut)
		},
	}
	cmd.Flags().StringVar(&recordsOut, "records", "", "JSONL output path (single input only)")
	return cmd
}

// ParseJSONOutput is the JSON output of the parse and run commands.
type ParseJSONOutput struct {
	Files   []FileSummary `json:"files"`
	Records int           `json:"records"`
	Issues  int           `json:"issues"`
	Failed  int           `json:"failed"`
}

// FileSummary is the outcome of one decoded input.
type FileSummary struct {
	Input   string         `json:"input"`
	Output  string         `json:"output,omitempty"`
	Records int            `json:"records"`
	ByType  map[string]int `json:"by_type"`
	Issues  []core.Issue   `json:"issues"`
	Error   string         `json:"error,omitempty"`
}

func decodeInputs(ctx context.Context, cc *CommandContext, contract *core.ContractSpec, inputs []string, recordsOut string) error {
	if recordsOut != "" && len(inputs) > 1 {
		return fmt.Errorf("--records needs exactly one input, got %d", len(inputs))
	}

	dec := fixedwidth.NewDecoder(contract)
	results, err := dec.DecodeFiles(ctx, inputs, cc.Cfg.InputEncoding, cc.Cfg.Workers, cc.decodeOptions())
	if err != nil {
		return err
	}

	summary := ParseJSONOutput{Files: make([]FileSummary, 0, len(results))}
	for _, fr := range results {
		fs := FileSummary{Input: fr.Path, ByType: map[string]int{}, Issues: []core.Issue{}}
		if fr.Result != nil {
			fs.Records = len(fr.Result.Records)
			fs.ByType = fr.Result.CountByType()
			fs.Issues = append(fs.Issues, fr.Result.Issues...)

			fs.Output = recordsOut
			if fs.Output == "" {
				fs.Output = cc.recordsPath(fr.Path)
			}
			if err := fixedwidth.SaveJSONL(fs.Output, fr.Result.Records); err != nil {
				return err
			}
		}
		if fr.Err != nil {
			fs.Error = fr.Err.Error()
			summary.Failed++
			cc.Logger.Error("decoding aborted", "input", fr.Path, "error", fr.Err)
		}
		cc.Logger.Info("decoded file", "input", fr.Path, "records", fs.Records, "issues", len(fs.Issues), "output", fs.Output)
		summary.Records += fs.Records
		summary.Issues += len(fs.Issues)
		summary.Files = append(summary.Files, fs)
	}

	if err := renderParse(cc.Renderer, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d inputs failed: %w", summary.Failed, len(results), firstError(results))
	}
	return nil
}

func firstError(results []fixedwidth.FileResult) error {
	for _, fr := range results {
		if fr.Err != nil {
			return fr.Err
		}
	}
	return errors.New("unknown failure")
}

func renderParse(r *output.Renderer, s ParseJSONOutput) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(s)
	}

	r.Header(1, fmt.Sprintf("Decoded %d records from %d files", s.Records, len(s.Files)))
	rows := make([][]any, 0, len(s.Files))
	for _, f := range s.Files {
		status := "ok"
		if f.Error != "" {
			status = "aborted"
		}
		rows = append(rows, []any{f.Input, f.Records, formatCounts(f.ByType), len(f.Issues), status, f.Output})
	}
	r.Table([]string{"Input", "Records", "By type", "Issues", "Status", "Output"}, rows)
	r.Println("")

	for _, f := range s.Files {
		if len(f.Issues) == 0 {
			continue
		}
		r.Header(2, "Issues in "+f.Input)
		rows := make([][]any, 0, min(len(f.Issues), maxIssueRows))
		for i, is := range f.Issues {
			if i == maxIssueRows {
				break
			}
			rows = append(rows, []any{is.LineNumber, output.Title(string(is.Kind)), is.Severity.String(), output.Truncate(is.Message, 80)})
		}
		r.Table([]string{"Line", "Kind", "Severity", "Message"}, rows)
		if n := len(f.Issues) - maxIssueRows; n > 0 {
			r.Muted(fmt.Sprintf("... and %d more", n))
		}
		r.Println("")
	}

	if s.Failed > 0 {
		r.Error(fmt.Sprintf("%d input(s) aborted", s.Failed))
	} else if s.Issues == 0 {
		r.Success("No issues found")
	}
	return nil
}

func formatCounts(counts map[string]int) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	out := ""
	for i, name := range names {
		if i > 0 {
			out += " "
		}
		out += name + "=" + strconv.Itoa(counts[name])
	}
	return out
}

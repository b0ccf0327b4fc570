package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplayout/internal/charset"
	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/fixedwidth"
)

// NewSampleCommand creates the sample command.
func NewSampleCommand() *cobra.Command {
	var perType int
	var out string
	cmd := &cobra.Command{
		Use:   "sample <contract>",
		Short: "Generate a synthetic fixed-width file from a contract",
		Long: `Write well-formed fixed-width lines for every record type of a contract,
following its structure rules when it has any. The output is encoded with
--encoding and decodes without issues.`,
		Example: `  leaplayout sample outputs/idp470ra_contract.json --per-type 3 --out sample.txt
  leaplayout sample contract.json --encoding cp037 --out sample.ebc`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			contract, err := core.LoadContract(args[0])
			if err != nil {
				return err
			}
			records := fixedwidth.Sample(contract, perType)

			w := cmd.OutOrStdout()
			if out != "" {
				if dir := filepath.Dir(out); dir != "." {
					if err := os.MkdirAll(dir, 0o750); err != nil {
						return fmt.Errorf("failed to create output directory: %w", err)
					}
				}
				f, err := os.Create(out) //nolint:gosec // G304: path is user input by design
				if err != nil {
					return fmt.Errorf("failed to create sample: %w", err)
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			if err := writeSample(w, contract, records, cc.Cfg.InputEncoding); err != nil {
				return err
			}
			cc.Logger.Info("sample written", "records", len(records), "encoding", cc.Cfg.InputEncoding, "out", out)
			return nil
		},
	}
	cmd.Flags().IntVar(&perType, "per-type", 2, "Records (or invoice blocks) per type")
	cmd.Flags().StringVar(&out, "out", "", "Output file (default: stdout)")
	return cmd
}

func writeSample(w io.Writer, c *core.ContractSpec, records []*core.Record, encoding string) error {
	ew, err := charset.NewWriter(w, encoding)
	if err != nil {
		return err
	}
	if err := fixedwidth.NewEncoder(c).Encode(ew, records); err != nil {
		_ = ew.Close()
		return err
	}
	return ew.Close()
}

package commands

import (
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Contract     string
	ForceExtract bool
	Records      string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}
	cmd := &cobra.Command{
		Use:   "run <source> <input>...",
		Short: "Extract the contract if needed, then decode inputs",
		Long: `Reuse the contract at --contract (default <output-dir>/<program>_contract.json)
when it exists, otherwise extract it from the source and save it. Then decode
every input as the parse command does.`,
		Example: `  leaplayout run IDP470RA.pli FACT0101.txt
  leaplayout run IDP470RA.pli in/*.txt --force-extract --tolerate-structure`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContext(cmd)
			path := opts.Contract
			if path == "" {
				path = cc.contractPath(cc.programFor(args[0]))
			}
			contract, _, err := cc.loadOrExtract(cmd.Context(), args[0], path, opts.ForceExtract)
			if err != nil {
				return err
			}
			return decodeInputs(cmd.Context(), cc, contract, args[1:], opts.Records)
		},
	}
	cmd.Flags().StringVar(&opts.Contract, "contract", "", "Contract path to reuse or write")
	cmd.Flags().BoolVar(&opts.ForceExtract, "force-extract", false, "Rebuild the contract even if it exists")
	cmd.Flags().StringVar(&opts.Records, "records", "", "JSONL output path (single input only)")
	return cmd
}

package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplayout/pkg/extract"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON Schema of the contract artifact",
		Example: `  leaplayout schema > contract.schema.json
  leaplayout schema --out docs/contract.schema.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := extract.SchemaJSON()
			if err != nil {
				return err
			}
			data = append(data, '\n')
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o600); err != nil {
				return fmt.Errorf("failed to write schema: %w", err)
			}
			NewCommandContext(cmd).Renderer.Success("Schema written to " + out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "Write the schema to a file")
	return cmd
}

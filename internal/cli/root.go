// Package cli provides the command-line interface for leaplayout.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplayout/internal/charset"
	"github.com/leapstack-labs/leaplayout/internal/cli/commands"
	"github.com/leapstack-labs/leaplayout/internal/cli/config"
	"github.com/leapstack-labs/leaplayout/internal/cli/output"
	"github.com/leapstack-labs/leaplayout/pkg/dialect"
	"github.com/leapstack-labs/leaplayout/pkg/extract"
)

var cfgFile string

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leaplayout",
		Short: "leaplayout - mainframe record layouts and fixed-width decoding",
		Long: `leaplayout reads record declarations from PL/I programs and COBOL
copybooks, turns them into a JSON record contract, and decodes fixed-width
mainframe files with that contract into JSON Lines.

Decoded documents are checked against a structure grammar (file header,
invoice blocks, detail lines) and every problem is reported with its line.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			cfg, err := config.LoadConfig(cfgFile, cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}

			level := slog.LevelInfo
			if cfg.Verbose {
				level = slog.LevelDebug
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			cmd.SetContext(config.WithLogger(cmd.Context(), logger))

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} {{.Version}}\nBuilt %s (%s)\n", BuildDate, GitCommit))

	defaults := config.Defaults()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: leaplayout.yaml in this or a parent directory)")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	// Extraction
	pf.String("program", "", "Program name recorded in the contract (default: source file name)")
	pf.String("engine", "", "Declaration dialect (auto|pli|cobol)")
	pf.String("source-encoding", "", "Encoding of declaration sources")
	pf.Bool("strict", defaults.Strict, "Require record lengths to equal the line length")
	pf.StringSlice("prefixes", nil, "Structure name prefixes to extract")
	pf.StringSlice("names", nil, "Structure names to extract")
	pf.Bool("preserve-names", false, "Keep structure names that have no record mapping")

	// Structure rules
	pf.String("rules-file", "", "YAML structure rules replacing the default invoice grammar")
	pf.String("order-doc", "", "Ordering document (text, markdown or HTML) to check rule labels against")
	pf.Bool("no-rules", false, "Attach no structure rules")
	pf.Bool("strict-structure", false, "Abort decoding on the first structural issue")

	// Decoding and outputs
	pf.String("encoding", "", "Encoding of fixed-width inputs")
	pf.Bool("fail-fast", defaults.FailFast, "Abort a file on its first bad line instead of collecting issues")
	pf.Bool("tolerate-structure", defaults.TolerateStructure, "Keep structural issues as diagnostics even for strict contracts")
	pf.Int("workers", defaults.Workers, "Inputs decoded concurrently")
	pf.String("output-dir", "", "Directory for contracts and decoded records")
	pf.String("state", "", "Path to the contract cache database")
	pf.Bool("cache", defaults.Cache, "Use the contract cache")

	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes(), cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("engine", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return append([]string{extract.EngineAuto}, dialect.List()...), cobra.ShellCompDirectiveNoFileComp
	})
	encodings := func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return charset.Names(), cobra.ShellCompDirectiveNoFileComp
	}
	_ = rootCmd.RegisterFlagCompletionFunc("encoding", encodings)
	_ = rootCmd.RegisterFlagCompletionFunc("source-encoding", encodings)

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewExtractCommand())
	rootCmd.AddCommand(commands.NewParseCommand())
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewInspectCommand())
	rootCmd.AddCommand(commands.NewSchemaCommand())
	rootCmd.AddCommand(commands.NewRulesCommand())
	rootCmd.AddCommand(commands.NewSampleCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewCacheCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for leaplayout.

To load completions:

Bash:
  $ source <(leaplayout completion bash)

Zsh:
  $ leaplayout completion zsh > "${fpath[1]}/_leaplayout"

Fish:
  $ leaplayout completion fish | source

PowerShell:
  PS> leaplayout completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplayout/internal/cli/output"
	"github.com/leapstack-labs/leaplayout/internal/state"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the contract cache",
		Long: `Contracts built by extract, run, inspect and watch are cached in a SQLite
database (--state, default .leaplayout/cache.db) keyed on the source content
and extraction options.`,
	}
	cmd.AddCommand(newCacheListCommand(), newCacheClearCommand(), newCacheForgetCommand())
	return cmd
}

func withStore(cmd *cobra.Command, fn func(*CommandContext, *state.SQLiteStore) error) error {
	cc := NewCommandContext(cmd)
	store := state.NewSQLiteStore()
	if err := store.Open(cc.Cfg.StatePath); err != nil {
		return fmt.Errorf("failed to open contract cache: %w", err)
	}
	defer func() { _ = store.Close() }()
	return fn(cc, store)
}

func newCacheListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached contracts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(cc *CommandContext, store *state.SQLiteStore) error {
				entries, err := store.List(cmd.Context())
				if err != nil {
					return err
				}
				r := cc.Renderer
				if r.EffectiveMode() == output.ModeJSON {
					return r.JSON(entries)
				}
				r.Header(1, fmt.Sprintf("Cached contracts (%d)", len(entries)))
				if len(entries) == 0 {
					r.Muted("Cache is empty: " + store.Path())
					return nil
				}
				rows := make([][]any, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []any{
						e.Key[:min(12, len(e.Key))], e.Program, e.Dialect, e.RecordCount, e.LineLength,
						output.Truncate(e.SourcePath, 50), e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
					})
				}
				r.Table([]string{"Key", "Program", "Dialect", "Records", "Line length", "Source", "Created"}, rows)
				return nil
			})
		},
	}
}

func newCacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(cc *CommandContext, store *state.SQLiteStore) error {
				n, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				cc.Renderer.Success(fmt.Sprintf("Removed %d cached contract(s)", n))
				return nil
			})
		},
	}
}

func newCacheForgetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "forget <source>...",
		Short: "Remove the cached contracts of sources",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(cc *CommandContext, store *state.SQLiteStore) error {
				var total int64
				for _, source := range args {
					n, err := store.DeleteSource(cmd.Context(), source)
					if err != nil {
						return err
					}
					total += n
				}
				cc.Renderer.Success(fmt.Sprintf("Removed %d cached contract(s)", total))
				return nil
			})
		},
	}
}

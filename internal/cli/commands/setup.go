package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leaplayout/internal/cli/config"
	"github.com/leapstack-labs/leaplayout/internal/cli/output"
	"github.com/leapstack-labs/leaplayout/internal/state"
	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/extract"
	"github.com/leapstack-labs/leaplayout/pkg/fixedwidth"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// getConfig returns the current configuration, or the defaults when the
// command runs outside the root command.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Defaults()
}

// openStore opens the contract cache database. It returns nil when caching
// is disabled.
func (c *CommandContext) openStore() (*state.SQLiteStore, error) {
	if !c.Cfg.Cache {
		return nil, nil
	}
	store := state.NewSQLiteStore()
	if err := store.Open(c.Cfg.StatePath); err != nil {
		return nil, fmt.Errorf("failed to open contract cache: %w", err)
	}
	c.Logger.Debug("contract cache opened", "path", c.Cfg.StatePath)
	return store, nil
}

// newExtractor builds an extractor backed by store, if any.
func (c *CommandContext) newExtractor(store *state.SQLiteStore) *extract.Extractor {
	var cache extract.Cache
	if store != nil {
		cache = store
	}
	return extract.New(extract.Config{Cache: cache, Logger: c.Logger})
}

// extractOptions maps the configuration onto extraction options.
func (c *CommandContext) extractOptions() extract.Options {
	cfg := c.Cfg
	return extract.Options{
		Program:        cfg.Program,
		Engine:         cfg.Engine,
		SourceEncoding: cfg.SourceEncoding,
		Strict:         cfg.Strict,
		Names:          cfg.Names,
		Prefixes:       cfg.Prefixes,
		PreserveNames:  cfg.PreserveNames,
		Rules: extract.RulesOptions{
			Disabled: cfg.NoRules,
			File:     cfg.RulesFile,
			OrderDoc: cfg.OrderDoc,
			Strict:   cfg.StrictStructure,
		},
	}
}

// decodeOptions maps the decoding configuration onto decoder options.
func (c *CommandContext) decodeOptions() fixedwidth.Options {
	return fixedwidth.Options{
		FailFast:          c.Cfg.FailFast,
		TolerateStructure: c.Cfg.TolerateStructure,
		Logger:            c.Logger,
	}
}

// extractSource builds the contract for source, using the cache when enabled.
func (c *CommandContext) extractSource(ctx context.Context, source string) (*extract.Result, error) {
	store, err := c.openStore()
	if err != nil {
		return nil, err
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}
	return c.newExtractor(store).ExtractFile(ctx, source, c.extractOptions())
}

// contractPath returns where the contract of program is written by default.
func (c *CommandContext) contractPath(program string) string {
	return filepath.Join(c.Cfg.OutputDir, strings.ToLower(program)+"_contract.json")
}

// recordsPath returns where the records decoded from input are written.
func (c *CommandContext) recordsPath(input string) string {
	base := filepath.Base(input)
	return filepath.Join(c.Cfg.OutputDir, strings.TrimSuffix(base, filepath.Ext(base))+".jsonl")
}

// loadOrExtract returns the contract at path, building and saving it from
// source when it does not exist or force is set.
func (c *CommandContext) loadOrExtract(ctx context.Context, source, path string, force bool) (*core.ContractSpec, string, error) {
	if path != "" && !force {
		if _, err := os.Stat(path); err == nil {
			contract, err := core.LoadContract(path)
			if err != nil {
				return nil, "", err
			}
			c.Logger.Info("using existing contract", "path", path)
			return contract, path, nil
		}
	}
	res, err := c.extractSource(ctx, source)
	if err != nil {
		return nil, "", err
	}
	if path == "" {
		path = c.contractPath(res.Contract.SourceProgram)
	}
	if err := core.SaveContract(res.Contract, path); err != nil {
		return nil, "", err
	}
	c.Logger.Info("contract saved", "path", path)
	return res.Contract, path, nil
}

// programFor returns the configured program name, or the upper-cased stem
// of source.
func (c *CommandContext) programFor(source string) string {
	if c.Cfg.Program != "" {
		return c.Cfg.Program
	}
	base := filepath.Base(source)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leaplayout/internal/charset"
	"github.com/leapstack-labs/leaplayout/internal/cli/output"
	"github.com/leapstack-labs/leaplayout/pkg/dialect"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	engine := strings.ToLower(c.Engine)
	if engine != "" && engine != DefaultEngine {
		if _, ok := dialect.Get(engine); !ok {
			return fmt.Errorf("unsupported engine %q (allowed: %s, %s)", c.Engine, DefaultEngine, strings.Join(dialect.List(), ", "))
		}
	}
	if _, err := charset.Lookup(c.SourceEncoding); err != nil {
		return fmt.Errorf("source_encoding: %w", err)
	}
	if _, err := charset.Lookup(c.InputEncoding); err != nil {
		return fmt.Errorf("input_encoding: %w", err)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if !output.ValidMode(c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (allowed: %s)", c.OutputFormat, strings.Join(output.Modes(), ", "))
	}
	if c.NoRules && c.RulesFile != "" {
		return fmt.Errorf("no_rules and rules_file are mutually exclusive")
	}
	return nil
}

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Register dialects so engine names validate.
	_ "github.com/leapstack-labs/leaplayout/pkg/dialects/cobol"
	_ "github.com/leapstack-labs/leaplayout/pkg/dialects/pli"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("engine", "", "")
	fs.String("state", "", "")
	fs.String("encoding", "", "")
	fs.String("output-dir", "", "")
	fs.Int("workers", 0, "")
	fs.Bool("strict", true, "")
	fs.StringSlice("prefixes", nil, "")
	fs.Bool("fail-fast", false, "")
	fs.Bool("tolerate-structure", false, "")
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultConfigName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Cleanup(ResetConfig)
	t.Chdir(t.TempDir())
	cwd, err := os.Getwd()
	require.NoError(t, err)

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Empty(t, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())
	assert.Equal(t, cwd, cfg.ProjectRoot)
	assert.Equal(t, DefaultEngine, cfg.Engine)
	assert.Equal(t, DefaultEncoding, cfg.SourceEncoding)
	assert.Equal(t, DefaultEncoding, cfg.InputEncoding)
	assert.True(t, cfg.Strict)
	assert.True(t, cfg.Cache)
	assert.False(t, cfg.FailFast, "decode issues are collected by default")
	assert.False(t, cfg.TolerateStructure)
	assert.False(t, cfg.StrictStructure)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, filepath.Join(cwd, DefaultOutputDir), cfg.OutputDir)
	assert.Equal(t, filepath.Join(cwd, DefaultStateFile), cfg.StatePath)
	assert.Empty(t, cfg.RulesFile)
}

func TestLoadConfig_FileFoundUpward(t *testing.T) {
	t.Cleanup(ResetConfig)
	root := t.TempDir()
	writeConfig(t, root, `program: IDP470RA
engine: pli
prefixes: [DEMAT_, STO_D_]
workers: 2
rules_file: rules/invoice.yaml
fail_fast: true
`)
	sub := filepath.Join(root, "inputs", "2024")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	t.Chdir(sub)
	cwd, err := os.Getwd()
	require.NoError(t, err)
	wantRoot := filepath.Dir(filepath.Dir(cwd))

	cfg, err := LoadConfig("", nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(wantRoot, DefaultConfigName), GetConfigFileUsed())
	assert.Equal(t, wantRoot, cfg.ProjectRoot)
	assert.Equal(t, "IDP470RA", cfg.Program)
	assert.Equal(t, "pli", cfg.Engine)
	assert.Equal(t, []string{"DEMAT_", "STO_D_"}, cfg.Prefixes)
	assert.Equal(t, 2, cfg.Workers)
	assert.True(t, cfg.FailFast)
	assert.False(t, cfg.TolerateStructure, "fail_fast leaves structure handling alone")
	assert.Equal(t, filepath.Join(wantRoot, "rules", "invoice.yaml"), cfg.RulesFile)
	assert.Equal(t, filepath.Join(wantRoot, DefaultOutputDir), cfg.OutputDir)
}

func TestLoadConfig_Precedence(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)
	path := writeConfig(t, dir, "engine: pli\nworkers: 2\ninput_encoding: cp1252\n")

	t.Setenv("LEAPLAYOUT_WORKERS", "8")
	t.Setenv("LEAPLAYOUT_ENGINE", "cobol")
	t.Setenv("LEAPLAYOUT_NAMES", "demat_ent, demat_lig,")
	t.Setenv("LEAPLAYOUT_STRICT", "false")

	t.Run("env overrides file", func(t *testing.T) {
		cfg, err := LoadConfig(path, nil)
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Workers)
		assert.Equal(t, "cobol", cfg.Engine)
		assert.Equal(t, []string{"demat_ent", "demat_lig"}, cfg.Names)
		assert.False(t, cfg.Strict)
		assert.Equal(t, "cp1252", cfg.InputEncoding)
	})

	t.Run("flags override env", func(t *testing.T) {
		flags := newFlags(t, "--workers=3", "--engine=pli", "--state", "cache/x.db",
			"--encoding", "cp037", "--prefixes", "STO_D_", "--tolerate-structure")
		cfg, err := LoadConfig(path, flags)
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.Workers)
		assert.Equal(t, "pli", cfg.Engine)
		assert.Equal(t, "cp037", cfg.InputEncoding)
		assert.Equal(t, []string{"STO_D_"}, cfg.Prefixes)
		assert.Equal(t, "cache/x.db", cfg.StatePath, "flag paths stay relative to the working directory")
		assert.False(t, cfg.Strict, "unchanged flags do not override")
		assert.True(t, cfg.TolerateStructure)
		assert.False(t, cfg.FailFast)
	})
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Cleanup(ResetConfig)
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := LoadConfig(filepath.Join(dir, "missing.yaml"), nil)
	assert.ErrorContains(t, err, "error reading config file")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("engine: [unterminated\n"), 0o600))
	_, err = LoadConfig(bad, nil)
	assert.ErrorContains(t, err, "error reading config file")

	invalid := writeConfig(t, dir, "engine: fortran\n")
	_, err = LoadConfig(invalid, nil)
	assert.ErrorContains(t, err, `unsupported engine "fortran"`)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "explicit cobol", mutate: func(c *Config) { c.Engine = "COBOL" }},
		{name: "empty encodings use the default", mutate: func(c *Config) { c.SourceEncoding, c.InputEncoding = "", "" }},
		{name: "unknown engine", mutate: func(c *Config) { c.Engine = "rpg" }, errSubstr: "unsupported engine"},
		{name: "unknown source encoding", mutate: func(c *Config) { c.SourceEncoding = "ebcdic-martian" }, errSubstr: "source_encoding"},
		{name: "unknown input encoding", mutate: func(c *Config) { c.InputEncoding = "utf-9" }, errSubstr: "input_encoding"},
		{name: "no workers", mutate: func(c *Config) { c.Workers = 0 }, errSubstr: "workers must be at least 1"},
		{name: "unknown output", mutate: func(c *Config) { c.OutputFormat = "yaml" }, errSubstr: "unknown output format"},
		{name: "rules conflict", mutate: func(c *Config) { c.NoRules, c.RulesFile = true, "r.yaml" }, errSubstr: "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(context.Background()))

	logger := GetLogger(context.Background())
	ctx := WithLogger(context.Background(), logger)
	assert.Same(t, logger, GetLogger(ctx))
}

// Package config provides configuration management for the leaplayout CLI.
//
// Values are layered from defaults, a leaplayout.yaml file found in the
// working directory or one of its parents, LEAPLAYOUT_* environment variables
// and explicitly set flags, in increasing order of precedence.
package config

// Config holds all CLI configuration options.
type Config struct {
	// Extraction.
	Program        string   `koanf:"program"`
	Engine         string   `koanf:"engine"`
	SourceEncoding string   `koanf:"source_encoding"`
	Strict         bool     `koanf:"strict"`
	Prefixes       []string `koanf:"prefixes"`
	Names          []string `koanf:"names"`
	PreserveNames  bool     `koanf:"preserve_names"`

	// Structure rules.
	RulesFile       string `koanf:"rules_file"`
	OrderDoc        string `koanf:"order_doc"`
	NoRules         bool   `koanf:"no_rules"`
	StrictStructure bool   `koanf:"strict_structure"`

	// Decoding. Bad lines are collected unless FailFast is set; structural
	// issues abort a strict contract unless TolerateStructure is set.
	InputEncoding     string `koanf:"input_encoding"`
	FailFast          bool   `koanf:"fail_fast"`
	TolerateStructure bool   `koanf:"tolerate_structure"`
	Workers           int    `koanf:"workers"`

	// Outputs and cache.
	OutputDir string `koanf:"output_dir"`
	StatePath string `koanf:"state_path"`
	Cache     bool   `koanf:"cache"`

	Verbose      bool   `koanf:"verbose"`
	OutputFormat string `koanf:"output"`

	// ProjectRoot is the directory holding the config file, or the working
	// directory when there is none. Relative paths are resolved against it.
	ProjectRoot string `koanf:"-"`
}

// Default configuration values.
const (
	DefaultEngine        = "auto"
	DefaultEncoding      = "latin-1"
	DefaultOutputDir     = "outputs"
	DefaultStateFile     = ".leaplayout/cache.db"
	DefaultWorkers       = 4
	DefaultOutput        = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultConfigName    = "leaplayout.yaml"
	alternateConfigName  = "leaplayout.yml"
	environmentVarPrefix = "LEAPLAYOUT_"
)

// Defaults returns the configuration used when nothing else is set.
func Defaults() *Config {
	return &Config{
		Engine:         DefaultEngine,
		SourceEncoding: DefaultEncoding,
		InputEncoding:  DefaultEncoding,
		Strict:         true,
		OutputDir:      DefaultOutputDir,
		StatePath:      DefaultStateFile,
		Cache:          true,
		Workers:        DefaultWorkers,
		OutputFormat:   DefaultOutput,
	}
}

func defaultMap() map[string]any {
	d := Defaults()
	return map[string]any{
		"engine":             d.Engine,
		"source_encoding":    d.SourceEncoding,
		"input_encoding":     d.InputEncoding,
		"fail_fast":          d.FailFast,
		"tolerate_structure": d.TolerateStructure,
		"strict":             d.Strict,
		"output_dir":         d.OutputDir,
		"state_path":         d.StatePath,
		"cache":              d.Cache,
		"workers":            d.Workers,
		"verbose":            false,
		"output":             d.OutputFormat,
	}
}

// Package extract turns declaration sources into contracts: it picks the
// dialect, decodes the source text, consults the contract cache and attaches
// the document structure rules.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leaplayout/internal/charset"
	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/dialect"
	"github.com/leapstack-labs/leaplayout/pkg/layout"

	// Register the built-in dialects.
	_ "github.com/leapstack-labs/leaplayout/pkg/dialects/cobol"
	_ "github.com/leapstack-labs/leaplayout/pkg/dialects/pli"
)

// EngineAuto picks the dialect from the source file extension.
const EngineAuto = "auto"

// fallbackDialect handles sources whose extension no dialect claims.
const fallbackDialect = "pli"

// ErrUnsupportedSource is returned for sources that are not declaration
// text, such as PDF documents.
var ErrUnsupportedSource = errors.New("unsupported source")

// Options describe one extraction.
type Options struct {
	// Program is recorded as source_program. Defaults to the upper-cased
	// source file name without extension.
	Program string
	// Engine is a dialect name or EngineAuto.
	Engine         string
	SourceEncoding string
	Strict         bool
	Names          []string
	Prefixes       []string
	PreserveNames  bool
	Rules          RulesOptions
}

// Config holds the collaborators of an Extractor.
type Config struct {
	// Cache stores built contracts. Nil disables caching.
	Cache  Cache
	Logger *slog.Logger
}

// Extractor builds contracts from declaration sources.
type Extractor struct {
	cache  Cache
	logger *slog.Logger
}

// New creates an extractor.
func New(cfg Config) *Extractor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Extractor{cache: cfg.Cache, logger: logger}
}

// Result is a built contract and what happened while building it.
type Result struct {
	Contract *core.ContractSpec
	Dialect  string
	Key      string
	// Cached reports that the layout came from the cache. Diagnostics are
	// only produced on a fresh build.
	Cached        bool
	Diagnostics   []layout.Diagnostic
	MissingLabels []string
}

// ResolveDialect returns the dialect named by engine, or the one claiming
// the extension of path when engine is empty or EngineAuto.
func ResolveDialect(engine, path string) (*dialect.Dialect, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%w: %s is a PDF; pass the declaration source and use the PDF as ordering document only", ErrUnsupportedSource, path)
	}

	name := strings.ToLower(strings.TrimSpace(engine))
	if name != "" && name != EngineAuto {
		d, ok := dialect.Get(name)
		if !ok {
			return nil, fmt.Errorf("unsupported engine %q (allowed: %s, %s)", engine, EngineAuto, strings.Join(dialect.List(), ", "))
		}
		return d, nil
	}
	if d, ok := dialect.ForPath(path); ok {
		return d, nil
	}
	d, ok := dialect.Get(fallbackDialect)
	if !ok {
		return nil, fmt.Errorf("%w: no dialect registered for %s", dialect.ErrDialectRequired, path)
	}
	return d, nil
}

// ExtractFile reads the source at path and extracts its contract.
func (x *Extractor) ExtractFile(ctx context.Context, path string, opts Options) (*Result, error) {
	if _, err := ResolveDialect(opts.Engine, path); err != nil {
		return nil, err
	}
	source, err := os.ReadFile(path) //nolint:gosec // G304: path is user input by design
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	return x.Extract(ctx, source, path, opts)
}

// Extract builds the contract for raw source bytes. path selects the dialect
// in auto mode and names the program by default.
func (x *Extractor) Extract(ctx context.Context, source []byte, path string, opts Options) (*Result, error) {
	d, err := ResolveDialect(opts.Engine, path)
	if err != nil {
		return nil, err
	}
	if opts.Program == "" {
		opts.Program = programName(path)
	}
	if opts.Program == "" {
		return nil, fmt.Errorf("program name is required when the source has no file name")
	}

	res := &Result{Dialect: d.Name, Key: Key(source, d.Name, opts)}
	x.logger.Info("extracting contract", "source", path, "engine", d.Name, "program", opts.Program)

	contract, err := x.lookup(ctx, res.Key)
	if err != nil {
		return nil, err
	}
	if contract != nil {
		res.Cached = true
		x.logger.Debug("contract cache hit", "key", shortKey(res.Key))
	} else {
		text, err := charset.Decode(source, opts.SourceEncoding)
		if err != nil {
			return nil, err
		}
		built, diags, err := d.Extract(text, opts.Program, opts.Strict, dialect.BuildOptions{
			Filter:        dialect.Filter{Names: opts.Names, Prefixes: opts.Prefixes},
			PreserveNames: opts.PreserveNames,
		})
		res.Diagnostics = diags
		for _, diag := range diags {
			x.logger.Warn("declaration diagnostic", "source", path, "line", diag.Line, "message", diag.Message)
		}
		if err != nil {
			return res, fmt.Errorf("%s: %w", path, err)
		}
		contract = built
		x.store(ctx, res, path, contract)
	}

	attached, missing, err := AttachRules(contract, opts.Rules, x.logger)
	if err != nil {
		return res, err
	}
	res.Contract = attached
	res.MissingLabels = missing
	x.logger.Info("contract built",
		"program", attached.SourceProgram,
		"records", len(attached.RecordTypes),
		"line_length", attached.LineLength,
		"rules", len(attached.StructureRules),
		"cached", res.Cached)
	return res, nil
}

func (x *Extractor) lookup(ctx context.Context, key string) (*core.ContractSpec, error) {
	if x.cache == nil {
		return nil, nil
	}
	c, ok, err := x.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("contract cache: %w", err)
	}
	if !ok {
		x.logger.Debug("contract cache miss", "key", shortKey(key))
		return nil, nil
	}
	return c, nil
}

// store caches a fresh contract. Cache failures are logged only.
func (x *Extractor) store(ctx context.Context, res *Result, path string, c *core.ContractSpec) {
	if x.cache == nil {
		return
	}
	if err := x.cache.Put(ctx, res.Key, res.Dialect, path, c); err != nil {
		x.logger.Warn("failed to cache contract", "error", err)
	}
}

func programName(path string) string {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

func shortKey(key string) string {
	if len(key) > 12 {
		return key[:12]
	}
	return key
}

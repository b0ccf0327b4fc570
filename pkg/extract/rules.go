package extract

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/structure"
)

// RulesOptions select the structure rules attached to a contract.
type RulesOptions struct {
	// Disabled attaches no rules at all.
	Disabled bool
	// File is a YAML rule set replacing the default invoice rules.
	File string
	// OrderDoc is a text, markdown or HTML document describing the expected
	// section order. Labels it does not mention are logged; the rules are
	// never changed by it.
	OrderDoc string
	// Strict makes structural issues abort decoding.
	Strict bool
}

// AttachRules returns a copy of c carrying the selected structure rules and
// the rule labels missing from the ordering document.
func AttachRules(c *core.ContractSpec, opts RulesOptions, logger *slog.Logger) (*core.ContractSpec, []string, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Disabled {
		return c, nil, nil
	}

	source := structure.DefaultSource
	rules := structure.DefaultInvoiceRules()
	if opts.File != "" {
		rs, err := structure.LoadRules(opts.File)
		if err != nil {
			return nil, nil, err
		}
		source, rules = rs.Source, rs.Rules
	}

	var missing []string
	if opts.OrderDoc != "" {
		text, err := ReadOrderDocument(opts.OrderDoc)
		switch {
		case os.IsNotExist(err):
			logger.Warn("ordering document not found", "path", opts.OrderDoc)
		case err != nil:
			logger.Warn("ordering document skipped", "path", opts.OrderDoc, "error", err)
		default:
			source = opts.OrderDoc
			missing = structure.MissingLabels(text, rules)
			if len(missing) > 0 {
				logger.Warn("structure labels missing from ordering document",
					"path", opts.OrderDoc, "labels", strings.Join(missing, ", "))
			}
		}
	}

	out, err := c.WithStructure(source, rules, opts.Strict)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid structure rules: %w", err)
	}
	return out, missing, nil
}

// ReadOrderDocument returns the text of an ordering document. HTML is
// converted to markdown first. PDF is not readable here.
func ReadOrderDocument(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".pdf" {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w: convert %s to text or HTML first", ErrUnsupportedSource, path)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is user input by design
	if err != nil {
		return "", err
	}
	if ext == ".html" || ext == ".htm" {
		md, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return "", fmt.Errorf("failed to convert %s: %w", path, err)
		}
		return md, nil
	}
	return string(data), nil
}

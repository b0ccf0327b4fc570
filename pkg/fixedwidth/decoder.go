// Package fixedwidth decodes and encodes fixed-width lines against a
// contract.
//
// A Decoder is built once per contract and is safe for concurrent use; the
// contract is never mutated. Each line is matched to a record type by its
// selector, sliced into fields and coerced. Per-line problems become
// core.Issue values. The record stream is then checked against the
// contract's structure rules.
package fixedwidth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leaplayout/pkg/core"
	"github.com/leapstack-labs/leaplayout/pkg/structure"
)

// Options control how Decode reacts to issues.
type Options struct {
	// FailFast stops at the first line that cannot be decoded. The default
	// collects the issue and keeps going.
	FailFast bool
	// TolerateStructure keeps structural issues as diagnostics even when the
	// contract asks for strict structure validation.
	TolerateStructure bool
	// Logger receives decode summaries. Nil discards them.
	Logger *slog.Logger
}

// LineError is a line that could not be decoded.
type LineError struct {
	Issue core.Issue
	Err   error
}

func (e *LineError) Error() string {
	return e.Issue.String()
}

// Unwrap returns core.ErrLineLength or core.ErrUnknownRecord.
func (e *LineError) Unwrap() error {
	return e.Err
}

// Result is everything decoded from one input, even when decoding stopped
// early.
type Result struct {
	Records []*core.Record
	Issues  []core.Issue
}

// CountByType returns the number of records per record type.
func (r *Result) CountByType() map[string]int {
	counts := make(map[string]int)
	for _, rec := range r.Records {
		counts[rec.Type]++
	}
	return counts
}

// Decoder decodes lines of one contract.
type Decoder struct {
	contract  *core.ContractSpec
	validator *structure.Validator
}

// NewDecoder returns a decoder for c.
func NewDecoder(c *core.ContractSpec) *Decoder {
	return &Decoder{
		contract:  c,
		validator: structure.New(c.StructureRules),
	}
}

// Contract returns the contract the decoder was built with.
func (d *Decoder) Contract() *core.ContractSpec {
	return d.contract
}

// DecodeLine decodes one physical line, without its line terminator. The
// returned error is a *LineError.
func (d *Decoder) DecodeLine(line string, lineNumber int) (*core.Record, error) {
	chars := []rune(line)
	want := d.contract.LineLength
	if len(chars) != want {
		if d.contract.StrictLengthValidation {
			return nil, lineError(core.ErrLineLength, core.IssueLineLength, lineNumber, line,
				fmt.Sprintf("line length %d, expected %d.", len(chars), want))
		}
		chars = fit(chars, want)
	}

	spec := d.match(chars)
	if spec == nil {
		return nil, lineError(core.ErrUnknownRecord, core.IssueUnknownRecord, lineNumber, line,
			"unknown record type at the configured selector positions.")
	}

	rec := core.NewRecord(spec.Name, lineNumber, len(spec.Fields))
	for _, f := range spec.Fields {
		rec.Set(f.Name, Coerce(string(chars[f.Start-1:f.End()]), f))
	}
	return rec, nil
}

// match returns the first record whose selector matches, or the only record
// of a single-record contract.
func (d *Decoder) match(chars []rune) *core.RecordSpec {
	for i := range d.contract.RecordTypes {
		if d.contract.RecordTypes[i].Selector.Matches(chars) {
			return &d.contract.RecordTypes[i]
		}
	}
	if len(d.contract.RecordTypes) == 1 {
		return &d.contract.RecordTypes[0]
	}
	return nil
}

// fit right-pads with spaces or truncates to n characters.
func fit(chars []rune, n int) []rune {
	if len(chars) > n {
		return chars[:n]
	}
	out := make([]rune, n)
	copy(out, chars)
	for i := len(chars); i < n; i++ {
		out[i] = ' '
	}
	return out
}

func lineError(err error, kind core.IssueKind, lineNumber int, raw, message string) *LineError {
	return &LineError{
		Err: err,
		Issue: core.Issue{
			LineNumber: lineNumber,
			Message:    message,
			RawLine:    raw,
			Kind:       kind,
			Severity:   core.SeverityError,
		},
	}
}

// Decode reads r line by line. Lines are numbered from 1 and their "\n" or
// "\r\n" terminator is dropped.
//
// The returned Result always holds every record decoded so far and every
// issue collected, including when an error is returned. The error is a
// *LineError when FailFast stopped decoding, and wraps core.ErrStructure when
// the contract enforces its structure and the record stream breaks it.
func (d *Decoder) Decode(r io.Reader, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	res := &Result{}
	br := bufio.NewReader(r)
	lineNumber := 0
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return res, fmt.Errorf("failed to read line %d: %w", lineNumber+1, readErr)
		}
		if line == "" && readErr != nil {
			break
		}
		lineNumber++
		line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")

		rec, err := d.DecodeLine(line, lineNumber)
		if err != nil {
			var le *LineError
			if !errors.As(err, &le) {
				return res, err
			}
			res.Issues = append(res.Issues, le.Issue)
			if opts.FailFast {
				return res, le
			}
		} else {
			res.Records = append(res.Records, rec)
		}
		if readErr != nil {
			break
		}
	}

	if n := len(res.Issues); n > 0 {
		logger.Warn("decoding finished with issues", "issues", n, "records", len(res.Records))
	}

	structural := d.validator.Validate(res.Records)
	if len(structural) == 0 {
		return res, nil
	}
	res.Issues = append(res.Issues, structural...)
	logger.Warn("structure validation finished with issues", "issues", len(structural))

	if d.contract.StrictStructureValidation && !opts.TolerateStructure {
		return res, fmt.Errorf("%w: %s", core.ErrStructure, structural[0].String())
	}
	return res, nil
}

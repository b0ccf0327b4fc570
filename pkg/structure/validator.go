// Package structure checks a decoded record stream against an ordered,
// multiplicity-constrained document grammar.
//
// The grammar is read from the structure rules of a contract. The lowest
// file-scope rule names the file header, the lowest invoice-scope rule names
// the record that opens an invoice block, and the invoice-scope rule ordered
// just before the first line-scope rule names the detail record that opens a
// line segment. Every issue is collected; nothing here aborts.
package structure

import (
	"fmt"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// Validator checks record streams against one rule set.
type Validator struct {
	rules []core.StructureRule

	fileRules    []core.StructureRule
	invoiceRules []core.StructureRule
	lineRules    []core.StructureRule

	fileRecords map[string]struct{}
	byRecord    map[string][]core.StructureRule

	fileHeader *core.StructureRule
	header     *core.StructureRule
	detail     *core.StructureRule
	lineOrders map[int]struct{}
}

// New derives the document grammar from rules.
func New(rules []core.StructureRule) *Validator {
	v := &Validator{
		rules:       core.SortRules(rules),
		fileRecords: make(map[string]struct{}),
		byRecord:    make(map[string][]core.StructureRule),
		lineOrders:  make(map[int]struct{}),
	}
	for _, r := range v.rules {
		v.byRecord[r.RecordName] = append(v.byRecord[r.RecordName], r)
		switch r.Scope {
		case core.ScopeFile:
			v.fileRules = append(v.fileRules, r)
			v.fileRecords[r.RecordName] = struct{}{}
		case core.ScopeInvoice:
			v.invoiceRules = append(v.invoiceRules, r)
		case core.ScopeLine:
			v.lineRules = append(v.lineRules, r)
			v.lineOrders[r.OrderIndex] = struct{}{}
		}
	}
	if len(v.fileRules) > 0 {
		v.fileHeader = &v.fileRules[0]
	}
	if len(v.invoiceRules) > 0 {
		v.header = &v.invoiceRules[0]
	}
	if len(v.lineRules) > 0 {
		firstLine := v.lineRules[0].OrderIndex
		for i := range v.invoiceRules {
			r := &v.invoiceRules[i]
			if r.OrderIndex < firstLine && r != v.header {
				v.detail = r
			}
		}
	}
	return v
}

// Validate checks records with the given rules.
func Validate(rules []core.StructureRule, records []*core.Record) []core.Issue {
	return New(rules).Validate(records)
}

// segment counts line-scope records under one detail record.
type segment struct {
	line   int
	counts map[string]int
}

// Validate walks records and returns every structural issue in document
// order: file checks first, then per block the ordering issues followed by
// the occurrence checks of that block and its segments.
func (v *Validator) Validate(records []*core.Record) []core.Issue {
	if len(v.rules) == 0 {
		return nil
	}
	var issues []core.Issue
	if len(records) == 0 {
		return append(issues, issue(0, core.IssueEmpty, "", "No records parsed."))
	}

	issues = v.checkFile(records, issues)
	if v.header == nil {
		return issues
	}

	var (
		blocks  [][]*core.Record
		current []*core.Record
	)
	for _, rec := range records {
		if _, ok := v.fileRecords[rec.Type]; ok {
			continue
		}
		if rec.Type == v.header.RecordName {
			if len(current) > 0 {
				blocks = append(blocks, current)
			}
			current = []*core.Record{rec}
			continue
		}
		if current == nil {
			issues = append(issues, issue(rec.LineNumber, core.IssueOrder, "",
				fmt.Sprintf("Structure order violated: record before first %s (%s).", v.header.Label, rec.Type)))
			continue
		}
		current = append(current, rec)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}

	if len(blocks) == 0 {
		return append(issues, issue(0, core.IssueOccurrence, v.header.Label,
			fmt.Sprintf("Structure rule violated [%s]: no invoice block found.", v.header.Label)))
	}

	for _, block := range blocks {
		issues = v.checkBlock(block, issues)
	}
	return issues
}

func (v *Validator) checkFile(records []*core.Record, issues []core.Issue) []core.Issue {
	for _, rule := range v.fileRules {
		count, first := 0, 0
		for _, rec := range records {
			if rec.Type == rule.RecordName {
				if count == 0 {
					first = rec.LineNumber
				}
				count++
			}
		}
		issues = checkOccurrence(issues, rule, count, first)

		if v.fileHeader != nil && rule.Label == v.fileHeader.Label && count > 0 && records[0].Type != rule.RecordName {
			issues = append(issues, issue(records[0].LineNumber, core.IssueOrder, rule.Label,
				fmt.Sprintf("Structure order violated: first record must be %s.", rule.Label)))
		}
	}
	return issues
}

// resolve picks the rule a record counts under. A record shared by an
// invoice rule and a line rule is a line record once a detail record has
// been seen in the block, regardless of which detail it was meant for.
func (v *Validator) resolve(recordType string, seenDetail bool) (core.StructureRule, bool) {
	candidates := v.byRecord[recordType]
	var invoice, line *core.StructureRule
	for i := range candidates {
		switch candidates[i].Scope {
		case core.ScopeInvoice:
			if invoice == nil {
				invoice = &candidates[i]
			}
		case core.ScopeLine:
			if line == nil {
				line = &candidates[i]
			}
		}
	}
	switch {
	case line != nil && (seenDetail || invoice == nil):
		return *line, true
	case invoice != nil:
		return *invoice, true
	default:
		return core.StructureRule{}, false
	}
}

func (v *Validator) checkBlock(block []*core.Record, issues []core.Issue) []core.Issue {
	headerLine := block[0].LineNumber
	counts := map[string]int{v.header.Label: 1}
	lastOrder := v.header.OrderIndex
	var (
		segments   []*segment
		current    *segment
		seenDetail bool
	)

	for _, rec := range block[1:] {
		if v.detail != nil && rec.Type == v.detail.RecordName {
			seenDetail = true
			current = &segment{line: rec.LineNumber, counts: make(map[string]int)}
			segments = append(segments, current)
			counts[v.detail.Label]++

			order := v.detail.OrderIndex
			if _, inLine := v.lineOrders[lastOrder]; !inLine && order < lastOrder {
				issues = append(issues, issue(rec.LineNumber, core.IssueOrder, v.detail.Label,
					fmt.Sprintf("Structure order violated in invoice block around %s.", v.detail.Label)))
			}
			lastOrder = order
			continue
		}

		rule, ok := v.resolve(rec.Type, seenDetail)
		if !ok || rule.Scope == core.ScopeFile {
			continue
		}
		if rule.Scope == core.ScopeLine {
			if current == nil {
				parent := "detail"
				if v.detail != nil {
					parent = v.detail.Label
				}
				issues = append(issues, issue(rec.LineNumber, core.IssueOccurrence, rule.Label,
					fmt.Sprintf("Structure rule violated [%s]: %s without parent %s.", rule.Label, rec.Type, parent)))
			} else {
				current.counts[rule.Label]++
			}
		} else {
			counts[rule.Label]++
		}

		if rule.OrderIndex < lastOrder {
			issues = append(issues, issue(rec.LineNumber, core.IssueOrder, rule.Label,
				fmt.Sprintf("Structure order violated in invoice block: %s out of expected sequence.", rec.Type)))
		} else {
			lastOrder = rule.OrderIndex
		}
	}

	for _, rule := range v.invoiceRules {
		issues = checkOccurrence(issues, rule, counts[rule.Label], headerLine)
	}
	for _, seg := range segments {
		for _, rule := range v.lineRules {
			issues = checkOccurrence(issues, rule, seg.counts[rule.Label], seg.line)
		}
	}
	return issues
}

func checkOccurrence(issues []core.Issue, rule core.StructureRule, count, line int) []core.Issue {
	if count < rule.MinOccurs {
		issues = append(issues, issue(line, core.IssueOccurrence, rule.Label,
			fmt.Sprintf("Structure rule violated [%s]: minimum %d, found %d.", rule.Label, rule.MinOccurs, count)))
	}
	if rule.MaxOccurs != nil && count > *rule.MaxOccurs {
		issues = append(issues, issue(line, core.IssueOccurrence, rule.Label,
			fmt.Sprintf("Structure rule violated [%s]: maximum %d, found %d.", rule.Label, *rule.MaxOccurs, count)))
	}
	return issues
}

func issue(line int, kind core.IssueKind, label, message string) core.Issue {
	return core.Issue{
		LineNumber: line,
		Message:    message,
		Kind:       kind,
		Label:      label,
		Severity:   core.SeverityWarning,
	}
}

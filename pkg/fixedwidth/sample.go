package fixedwidth

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// Sample builds synthetic records for c.
//
// Without structure rules every record type is emitted perType times in
// declaration order. With rules, perType invoice blocks are emitted that
// follow the rule order: each rule contributes its minimum count, or one
// record when it is optional. Rules naming a record type the contract does
// not declare are skipped.
func Sample(c *core.ContractSpec, perType int) []*core.Record {
	if perType < 1 {
		perType = 1
	}
	g := &sampler{contract: c}
	if len(c.StructureRules) == 0 {
		for i := 0; i < perType; i++ {
			for j := range c.RecordTypes {
				g.emit(&c.RecordTypes[j])
			}
		}
		return g.out
	}

	rules := core.SortRules(c.StructureRules)
	for _, r := range rules {
		if r.Scope == core.ScopeFile {
			g.emitRule(r)
		}
	}
	for i := 0; i < perType; i++ {
		for _, r := range rules {
			if r.Scope != core.ScopeFile {
				g.emitRule(r)
			}
		}
	}
	return g.out
}

type sampler struct {
	contract *core.ContractSpec
	out      []*core.Record
}

func (g *sampler) emitRule(r core.StructureRule) {
	spec, ok := g.contract.Record(r.RecordName)
	if !ok {
		return
	}
	n := r.MinOccurs
	if n == 0 {
		n = 1
	}
	for i := 0; i < n; i++ {
		g.emit(spec)
	}
}

func (g *sampler) emit(spec *core.RecordSpec) {
	seq := int64(len(g.out) + 1)
	rec := core.NewRecord(spec.Name, int(seq), len(spec.Fields))
	for _, f := range spec.Fields {
		rec.Set(f.Name, sampleValue(f, seq))
	}
	g.out = append(g.out, rec)
}

func sampleValue(f core.FieldSpec, seq int64) any {
	switch f.Type {
	case core.FieldInteger, core.FieldDecimal:
		digits := f.Length
		if digits > 18 {
			digits = 18
		}
		limit := int64(1)
		for i := 0; i < digits; i++ {
			limit *= 10
		}
		n := (seq * 12345) % limit
		if f.Type == core.FieldInteger {
			return n
		}
		return decimal.New(n, int32(-f.Scale()))
	case core.FieldSign:
		return "+"
	case core.FieldDate:
		return clip("20240101", f.Length)
	default:
		return clip(strings.ReplaceAll(f.Name, "_", ""), f.Length)
	}
}

func clip(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n])
	}
	return s
}

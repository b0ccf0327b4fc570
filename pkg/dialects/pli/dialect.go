package pli

import (
	"strings"

	"github.com/leapstack-labs/leaplayout/pkg/dialect"
)

// PLI is the PL/I dialect instance.
var PLI = dialect.New(Config).
	Parser(Parse).
	Naming(RecordName).
	Selector(dialect.NamePrefixSelector(selectorLength)).
	Normalize(strings.ToUpper).
	Build()

func init() {
	dialect.Register(PLI)
}

// RecordName maps DEMAT_X and STO_D_X structures to record X. The shared
// template structures produce no record. Other names are kept only when
// preserve is set.
func RecordName(structure string, preserve bool) (string, bool) {
	upper := strings.ToUpper(structure)
	if _, ok := templateOnly[upper]; ok {
		return "", false
	}
	for _, prefix := range recordPrefixes {
		if name, ok := strings.CutPrefix(upper, prefix); ok && name != "" {
			return name, true
		}
	}
	if preserve {
		return upper, true
	}
	return "", false
}

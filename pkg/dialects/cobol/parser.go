package cobol

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaplayout/pkg/layout"
	"github.com/leapstack-labs/leaplayout/pkg/picture"
)

var (
	itemRe      = regexp.MustCompile(`(?i)^\s*(\d{1,2})\s+([A-Z0-9][A-Z0-9-]*)(.*)$`)
	picRe       = regexp.MustCompile(`\bPIC(?:TURE)?\s+(?:IS\s+)?(\S+)`)
	usageRe     = regexp.MustCompile(`\b(?:USAGE\s+(?:IS\s+)?)?(COMP(?:UTATIONAL)?(?:-[1-5])?|BINARY|DISPLAY|PACKED-DECIMAL)\b`)
	occursRe    = regexp.MustCompile(`\bOCCURS\s+(\d+)(?:\s+TO\s+(\d+))?`)
	redefinesRe = regexp.MustCompile(`\bREDEFINES\s+`)
	valueRe     = regexp.MustCompile(`(?i)\bVALUES?\s+(?:IS\s+|ARE\s+)?(?:'([^']*)'|"([^"]*)")`)
)

// Parse reads a copybook into one tree per 01 record.
//
// Fixed-format sources have their sequence area, indicator column and
// identification area removed; comment lines and *> comments are dropped.
// Entries are split at period terminators and may span lines.
func Parse(text string) (*layout.Source, error) {
	lines := strings.Split(text, "\n")
	fixed := isFixedFormat(lines)

	var (
		b           layout.TreeBuilder
		pending     strings.Builder
		pendingLine int
	)
	flush := func(stmt string, lineNo int) {
		if strings.TrimSpace(stmt) != "" {
			addEntry(&b, stmt, lineNo)
		}
	}

	for i, raw := range lines {
		lineNo := i + 1
		code, ok := normalizeLine(raw, fixed)
		if !ok || strings.TrimSpace(code) == "" {
			continue
		}
		if strings.TrimSpace(pending.String()) == "" {
			pending.Reset()
			pendingLine = lineNo
		}
		pending.WriteString(" ")
		pending.WriteString(code)

		buf := pending.String()
		for {
			end := terminator(buf)
			if end < 0 {
				break
			}
			flush(buf[:end], pendingLine)
			buf = buf[end+1:]
			pendingLine = lineNo
		}
		pending.Reset()
		pending.WriteString(buf)
	}
	flush(pending.String(), pendingLine)

	return b.Source(), nil
}

// isFixedFormat reports whether the source uses the fixed reference format.
// Every non-blank line needs a sequence area of digits or spaces and a valid
// indicator column. Entries must start in the code area: a level number in
// the first seven columns means an indented free-format source.
func isFixedFormat(lines []string) bool {
	inCodeArea := false
	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		for j := 0; j < 6 && j < len(line); j++ {
			if c := line[j]; c != ' ' && (c < '0' || c > '9') {
				return false
			}
		}
		if len(line) <= 6 {
			continue
		}
		if !strings.ContainsRune(" *-/dD", rune(line[6])) {
			return false
		}
		if line[6] != ' ' && line[6] != '-' {
			continue
		}
		code := line[7:]
		if itemRe.MatchString(code) {
			inCodeArea = true
			continue
		}
		if itemRe.MatchString(line) {
			return false
		}
	}
	return inCodeArea
}

// normalizeLine returns the code part of a source line. ok is false for
// comment and debugging lines.
func normalizeLine(raw string, fixed bool) (string, bool) {
	line := strings.TrimRight(raw, "\r\n")
	if fixed {
		if len(line) <= 7 {
			return "", false
		}
		switch line[6] {
		case '*', '/', 'D', 'd':
			return "", false
		}
		end := len(line)
		if end > 72 {
			end = 72
		}
		line = line[7:end]
	} else if strings.HasPrefix(strings.TrimSpace(line), "*") {
		return "", false
	}
	if idx := strings.Index(line, "*>"); idx >= 0 {
		line = line[:idx]
	}
	return strings.TrimRight(line, " \t"), true
}

// terminator returns the index of the first period ending an entry: outside
// quotes and followed by whitespace or the end of the buffer.
func terminator(buf string) int {
	var quote byte
	for i := 0; i < len(buf); i++ {
		c := buf[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '.':
			if i+1 == len(buf) || buf[i+1] == ' ' || buf[i+1] == '\t' {
				return i
			}
		}
	}
	return -1
}

func addEntry(b *layout.TreeBuilder, stmt string, lineNo int) {
	m := itemRe.FindStringSubmatch(stmt)
	if m == nil {
		if trimmed := strings.TrimSpace(stmt); trimmed != "" && trimmed[0] >= '0' && trimmed[0] <= '9' {
			b.Warnf(lineNo, "malformed entry %q", trimmed)
		}
		return
	}
	level, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	if _, ignored := ignoredLevels[level]; ignored {
		return
	}

	name, rest := m[2], m[3]
	if _, isClause := clauseKeywords[strings.ToUpper(name)]; isClause {
		rest = name + rest
		name = "FILLER"
	}
	upper := strings.ToUpper(rest)
	clauses := stripLiterals(upper)

	n := &layout.Node{
		Level:     level,
		Name:      NormalizeName(name),
		Occurs:    parseOccurs(clauses),
		Remainder: strings.TrimSpace(upper),
		Redefines: redefinesRe.MatchString(clauses),
		Line:      lineNo,
	}
	if vm := valueRe.FindStringSubmatch(rest); vm != nil {
		n.Value = vm[1] + vm[2]
	}

	usage := picture.Display
	if um := usageRe.FindStringSubmatch(clauses); um != nil {
		usage = picture.ParseUsage(um[1])
	}
	if pm := picRe.FindStringSubmatch(clauses); pm != nil {
		res, ok := picture.Evaluate(pm[1], usage)
		if ok {
			n.Storage = &res
		} else {
			b.Warnf(lineNo, "unrecognized picture %q for %s", pm[1], n.Name)
			n.Skip = true
		}
	} else if usage == picture.Float4 || usage == picture.Float8 {
		if res, ok := picture.EvaluateUsage(usage); ok {
			n.Storage = &res
		}
	}

	if level == 1 {
		root := n
		if !n.IsGroup() || n.Skip {
			// Elementary record: the item is its own single field.
			root = &layout.Node{Level: 1, Name: n.Name, Occurs: 1, Transparent: true, Line: lineNo}
			n.Level = 2
			b.Start(root)
			b.Add(n)
			return
		}
		b.Start(root)
		return
	}
	if !b.Add(n) {
		b.Warnf(lineNo, "item %s is outside a 01 record", n.Name)
	}
}

// stripLiterals blanks the contents of quoted literals so clause keywords
// inside VALUE strings are not matched.
func stripLiterals(s string) string {
	out := []byte(s)
	var quote byte
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else {
				out[i] = ' '
			}
		case c == '\'' || c == '"':
			quote = c
		}
	}
	return string(out)
}

func parseOccurs(upper string) int {
	m := occursRe.FindStringSubmatch(upper)
	if m == nil {
		return 1
	}
	occurs, _ := strconv.Atoi(m[1])
	if m[2] != "" {
		if maximum, _ := strconv.Atoi(m[2]); maximum > occurs {
			occurs = maximum
		}
	}
	if occurs < 1 {
		return 1
	}
	return occurs
}

package pli

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leaplayout/pkg/layout"
	"github.com/leapstack-labs/leaplayout/pkg/picture"
)

var (
	trailingSeqRe = regexp.MustCompile(`\s+\d{5,}\s*$`)
	structRe      = regexp.MustCompile(`(?i)\b(?:DCL|DECLARE)\s+0?1\s+([A-Z0-9_#@$]+)`)
	itemRe        = regexp.MustCompile(`(?i)^\s*(\d+)\s+([A-Z0-9_#@$]+)\s*(.*)$`)
	dimRe         = regexp.MustCompile(`^\(\s*(\d+)\s*\)`)
	charRe        = regexp.MustCompile(`(?i)\bCHAR(?:ACTER)?\s*\(\s*(\d+)\s*\)`)
	picRe         = regexp.MustCompile(`(?i)\bPIC(?:TURE)?\s*'([^']+)'`)
	decRe         = regexp.MustCompile(`(?i)\b(?:DEC(?:IMAL)?\s+FIXED|FIXED\s+DEC(?:IMAL)?)\s*\(\s*(\d+)(?:\s*,\s*(\d+))?\s*\)`)
	binRe         = regexp.MustCompile(`(?i)\b(?:BIN(?:ARY)?\s+FIXED|FIXED\s+BIN(?:ARY)?)\s*\(\s*(\d+)\s*\)`)
	likeRe        = regexp.MustCompile(`(?i)\bLIKE\s+([A-Z0-9_#@$]+)\.([A-Z0-9_#@$]+)\b`)
	initRe        = regexp.MustCompile(`(?i)\bINIT(?:IAL)?\s*\(\s*'([^']*)'\s*\)`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

// Parse reads PL/I source text into one tree per level-1 structure.
//
// Each physical line is normalized, its /* */ comments become the
// description of the first item declared on it, and the rest is split into
// items at top-level commas. A semicolon ends the current structure.
func Parse(text string) (*layout.Source, error) {
	var (
		b         layout.TreeBuilder
		inComment bool
	)

	for i, raw := range strings.Split(text, "\n") {
		lineNo := i + 1
		line := normalizeLine(raw)
		if strings.TrimSpace(line) == "" {
			continue
		}

		var comments []string
		var code string
		code, comments, inComment = scanComments(line, inComment)
		description := firstComment(comments)

		for _, seg := range splitItems(code) {
			item := strings.TrimSpace(seg.text)
			switch {
			case item == "":
			case structRe.MatchString(item):
				startStructure(&b, item, description, lineNo)
				description = ""
			case b.Open():
				if !addItem(&b, item, description, lineNo) {
					b.Warnf(lineNo, "unrecognized declaration %q", item)
				}
				description = ""
			}
			if seg.terminated {
				b.Close()
			}
		}
	}

	src := b.Source()
	for _, root := range src.Trees {
		markFirstLevel(root)
	}
	return src, nil
}

// normalizeLine strips the line end, a trailing sequence number and a
// carriage-control digit in column 1.
func normalizeLine(raw string) string {
	line := strings.TrimRight(raw, "\r\n")
	line = trailingSeqRe.ReplaceAllString(line, "")
	if line != "" && line[0] >= '0' && line[0] <= '9' {
		line = line[1:]
	}
	return strings.TrimRight(line, " \t")
}

// scanComments separates code from /* */ comments. open carries an
// unterminated comment across lines.
func scanComments(line string, open bool) (string, []string, bool) {
	var (
		code     strings.Builder
		comments []string
	)
	rest := line
	for rest != "" {
		if open {
			end := strings.Index(rest, "*/")
			if end < 0 {
				comments = append(comments, rest)
				return code.String(), comments, true
			}
			comments = append(comments, rest[:end])
			rest = rest[end+2:]
			open = false
			code.WriteByte(' ')
			continue
		}
		start := strings.Index(rest, "/*")
		if start < 0 {
			code.WriteString(rest)
			break
		}
		code.WriteString(rest[:start])
		rest = rest[start+2:]
		open = true
	}
	return code.String(), comments, open
}

func firstComment(comments []string) string {
	for _, c := range comments {
		if c = strings.TrimSpace(spaceRe.ReplaceAllString(c, " ")); c != "" {
			return c
		}
	}
	return ""
}

type segment struct {
	text       string
	terminated bool
}

// splitItems splits code at commas and semicolons outside parentheses and
// quotes.
func splitItems(code string) []segment {
	var (
		out    []segment
		depth  int
		quoted bool
		start  int
	)
	for i := 0; i < len(code); i++ {
		switch c := code[i]; {
		case c == '\'':
			quoted = !quoted
		case quoted:
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && (c == ',' || c == ';'):
			out = append(out, segment{text: code[start:i], terminated: c == ';'})
			start = i + 1
		}
	}
	if start < len(code) {
		out = append(out, segment{text: code[start:]})
	}
	return out
}

func startStructure(b *layout.TreeBuilder, text, description string, lineNo int) {
	loc := structRe.FindStringSubmatchIndex(text)
	name := strings.ToUpper(text[loc[2]:loc[3]])
	root := &layout.Node{Level: 1, Name: name, Occurs: 1, Description: description, Line: lineNo}
	b.Start(root)

	remainder := text[loc[1]:]
	if storage, ok := parseStorage(remainder); ok {
		b.Add(&layout.Node{
			Level:     2,
			Name:      "VALUE",
			Occurs:    1,
			Remainder: strings.TrimSpace(remainder),
			Storage:   &storage,
			Line:      lineNo,
		})
	}
}

func addItem(b *layout.TreeBuilder, text, description string, lineNo int) bool {
	m := itemRe.FindStringSubmatch(text)
	if m == nil {
		return false
	}
	level, err := strconv.Atoi(m[1])
	if err != nil {
		return false
	}
	remainder := strings.TrimSpace(m[3])
	n := &layout.Node{
		Level:       level,
		Name:        strings.ToUpper(m[2]),
		Occurs:      1,
		Description: description,
		Line:        lineNo,
	}
	if dm := dimRe.FindStringSubmatch(remainder); dm != nil {
		n.Occurs, _ = strconv.Atoi(dm[1])
		remainder = strings.TrimSpace(remainder[len(dm[0]):])
	}
	n.Remainder = remainder

	if storage, ok := parseStorage(remainder); ok {
		n.Storage = &storage
	} else if lm := likeRe.FindStringSubmatch(remainder); lm != nil {
		n.Template = &layout.TemplateRef{Structure: strings.ToUpper(lm[1]), Group: strings.ToUpper(lm[2])}
	}
	if im := initRe.FindStringSubmatch(remainder); im != nil {
		n.Value = im[1]
	}
	return b.Add(n)
}

// parseStorage recognizes CHAR, PIC, DEC FIXED and BIN FIXED clauses in that
// order of precedence.
func parseStorage(remainder string) (picture.Result, bool) {
	if m := charRe.FindStringSubmatch(remainder); m != nil {
		n, _ := strconv.Atoi(m[1])
		return picture.Char(n)
	}
	if m := picRe.FindStringSubmatch(remainder); m != nil {
		return picture.EvaluateStyle(m[1], picture.Display, picture.Prefix)
	}
	if m := decRe.FindStringSubmatch(remainder); m != nil {
		p, _ := strconv.Atoi(m[1])
		q := 0
		if m[2] != "" {
			q, _ = strconv.Atoi(m[2])
		}
		return picture.FixedDecimal(p, q)
	}
	if m := binRe.FindStringSubmatch(remainder); m != nil {
		p, _ := strconv.Atoi(m[1])
		return picture.FixedBinary(p)
	}
	return picture.Result{}, false
}

// markFirstLevel applies the ID and GS conventions to groups directly under
// a structure.
func markFirstLevel(root *layout.Node) {
	for _, c := range root.Children {
		switch c.Name {
		case skippedGroup:
			c.Skip = true
		case transparentGroup:
			if c.IsGroup() {
				c.Transparent = true
			}
		}
	}
}

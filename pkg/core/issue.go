package core

import "fmt"

// IssueKind classifies a non-fatal diagnostic.
type IssueKind string

// Issue kinds.
const (
	IssueLineLength    IssueKind = "line_length"
	IssueUnknownRecord IssueKind = "unknown_record"
	IssueOccurrence    IssueKind = "occurrence"
	IssueOrder         IssueKind = "order"
	IssueEmpty         IssueKind = "empty"
)

// Issue is a non-fatal diagnostic collected while decoding or validating.
// LineNumber is 1-based; 0 means the issue is not tied to a single line.
type Issue struct {
	LineNumber int       `json:"line_number"`
	Message    string    `json:"message"`
	RawLine    string    `json:"raw_line,omitempty"`
	Kind       IssueKind `json:"kind,omitempty"`
	Label      string    `json:"label,omitempty"`
	Severity   Severity  `json:"severity"`
}

func (i Issue) String() string {
	if i.LineNumber > 0 {
		return fmt.Sprintf("line %d: %s", i.LineNumber, i.Message)
	}
	return i.Message
}

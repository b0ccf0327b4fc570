// Package state persists built contracts in SQLite so that unchanged sources
// are not re-extracted.
//
// Entries are keyed by a digest of the source content and extraction
// options computed by the caller. The store never interprets the key.
package state

import "time"

// Entry describes one cached contract.
type Entry struct {
	ID          string    `json:"id"`
	Key         string    `json:"key"`
	Program     string    `json:"program"`
	Dialect     string    `json:"dialect"`
	SourcePath  string    `json:"source_path"`
	LineLength  int       `json:"line_length"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

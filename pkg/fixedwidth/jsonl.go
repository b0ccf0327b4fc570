package fixedwidth

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leaplayout/pkg/core"
)

// WriteJSONL writes one JSON object per record. Keys follow the record
// layout after record_type and line_number; non-ASCII text is kept as is.
func WriteJSONL(w io.Writer, records []*core.Record) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to encode line %d: %w", rec.LineNumber, err)
		}
	}
	return bw.Flush()
}

// ReadJSONL reads records written by WriteJSONL. Blank lines are skipped;
// numbers come back as json.Number.
func ReadJSONL(r io.Reader) ([]*core.Record, error) {
	var records []*core.Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		rec := &core.Record{}
		if err := json.Unmarshal(line, rec); err != nil {
			return nil, fmt.Errorf("jsonl line %d: %w", n, err)
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jsonl: %w", err)
	}
	return records, nil
}

// SaveJSONL writes records to path, creating parent directories.
func SaveJSONL(path string, records []*core.Record) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteJSONL(f, records); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

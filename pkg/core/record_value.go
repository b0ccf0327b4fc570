package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Reserved keys of a decoded record in its flat serialized form.
const (
	KeyRecordType = "record_type"
	KeyLineNumber = "line_number"
)

// Record is one decoded line: its record type, its source line number and the
// coerced value of every field of the matched RecordSpec, in layout order.
type Record struct {
	Type       string
	LineNumber int
	names      []string
	values     map[string]any
}

// NewRecord creates an empty record of the given type.
func NewRecord(recordType string, lineNumber int, capacity int) *Record {
	return &Record{
		Type:       recordType,
		LineNumber: lineNumber,
		names:      make([]string, 0, capacity),
		values:     make(map[string]any, capacity),
	}
}

// Set assigns a field value, appending the name on first use.
func (r *Record) Set(name string, value any) {
	if _, ok := r.values[name]; !ok {
		r.names = append(r.names, name)
	}
	r.values[name] = value
}

// Get returns a field value and whether the field exists.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Names returns the field names in layout order.
func (r *Record) Names() []string {
	return append([]string(nil), r.names...)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	return len(r.names)
}

// MarshalJSON writes a flat object: the reserved keys followed by every field
// in layout order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKV := func(first bool, key string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	if err := writeKV(true, KeyRecordType, r.Type); err != nil {
		return nil, err
	}
	if err := writeKV(false, KeyLineNumber, r.LineNumber); err != nil {
		return nil, err
	}
	for _, name := range r.names {
		if name == KeyRecordType || name == KeyLineNumber {
			continue
		}
		if err := writeKV(false, name, r.values[name]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat object back, keeping key order. Numbers are kept
// as json.Number.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record must be a JSON object")
	}
	r.names = nil
	r.values = make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		switch key {
		case KeyRecordType:
			r.Type, _ = value.(string)
		case KeyLineNumber:
			if n, ok := value.(json.Number); ok {
				v, err := n.Int64()
				if err != nil {
					return fmt.Errorf("invalid line_number: %w", err)
				}
				r.LineNumber = int(v)
			}
		default:
			r.Set(key, value)
		}
	}
	_, err = dec.Token()
	return err
}

// Package charset maps encoding names to the single-byte code pages used by
// mainframe sources and data files.
package charset

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Default is the encoding assumed when none is configured.
const Default = "latin-1"

var encodings = map[string]encoding.Encoding{
	"latin-1":      charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso-8859-1":   charmap.ISO8859_1,
	"iso-8859-15":  charmap.ISO8859_15,
	"latin-9":      charmap.ISO8859_15,
	"cp1252":       charmap.Windows1252,
	"windows-1252": charmap.Windows1252,
	"cp850":        charmap.CodePage850,
	"ibm850":       charmap.CodePage850,
	"cp037":        charmap.CodePage037,
	"ibm037":       charmap.CodePage037,
	"cp1047":       charmap.CodePage1047,
	"ibm1047":      charmap.CodePage1047,
	"utf-8":        unicode.UTF8,
	"utf8":         unicode.UTF8,
}

// Lookup returns the encoding registered under name. An empty name is the
// default encoding.
func Lookup(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = Default
	}
	enc, ok := encodings[key]
	if !ok {
		return nil, fmt.Errorf("unknown encoding %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return enc, nil
}

// Names returns every supported encoding name, sorted.
func Names() []string {
	names := make([]string, 0, len(encodings))
	for name := range encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewReader wraps r so that it yields UTF-8 text.
func NewReader(r io.Reader, name string) (io.Reader, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}

// NewWriter wraps w so that UTF-8 text is written in the named encoding.
// Characters the code page cannot represent fail the write. Close flushes
// pending output without closing w.
func NewWriter(w io.Writer, name string) (io.WriteCloser, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return transform.NewWriter(w, enc.NewEncoder()), nil
}

// Decode converts raw bytes to UTF-8 text.
func Decode(raw []byte, name string) (string, error) {
	enc, err := Lookup(name)
	if err != nil {
		return "", err
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s text: %w", name, err)
	}
	return string(out), nil
}

// Encode converts UTF-8 text to the named encoding.
func Encode(text, name string) ([]byte, error) {
	enc, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	out, err := enc.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s text: %w", name, err)
	}
	return out, nil
}

package charset

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	for _, name := range []string{"", "latin-1", "LATIN1", " cp1252 ", "cp037", "cp1047", "cp850", "utf-8"} {
		_, err := Lookup(name)
		assert.NoError(t, err, name)
	}

	_, err := Lookup("ebcdic-klingon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cp037")
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		encoding string
		raw      []byte
		want     string
	}{
		{"latin-1 accent", "latin-1", []byte{'D', 0xE9, 'b', 'i', 't'}, "Débit"},
		{"cp1252 euro", "cp1252", []byte{0x80, '1', '0'}, "€10"},
		{"ebcdic letters", "cp037", []byte{0xC5, 0xD5, 0xE3}, "ENT"},
		{"ebcdic digits", "cp1047", []byte{0xF0, 0xF1, 0xF5}, "015"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.raw, tt.encoding)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			// Single-byte code pages keep one character per byte.
			assert.Len(t, []rune(got), len(tt.raw))
		})
	}
}

func TestReaderWriterRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, "cp037")
	require.NoError(t, err)
	_, err = io.WriteString(w, "ENT0001 Société")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.Equal(t, 15, buf.Len())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), "cp037")
	require.NoError(t, err)
	text, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "ENT0001 Société", string(text))
}

func TestEncode_Unrepresentable(t *testing.T) {
	_, err := Encode(strings.Repeat("€", 2), "latin-1")
	assert.Error(t, err)
}

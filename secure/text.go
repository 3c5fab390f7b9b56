package secure

import (
	"golang.org/x/text/encoding/unicode"
)

// Entry text crosses the cipher boundary as UTF-16 with a byte order mark,
// big-endian by default. The choice is a compatibility contract with
// previously written envelopes: the MAC is computed over these bytes, so the
// encoding must stay fixed and reversible.
var entryEncoding = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)

// EncodeText converts entry text to its fixed multi-byte wire encoding.
func EncodeText(s string) ([]byte, error) {
	return entryEncoding.NewEncoder().Bytes([]byte(s))
}

// DecodeText reverses EncodeText.
func DecodeText(b []byte) (string, error) {
	decoded, err := entryEncoding.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

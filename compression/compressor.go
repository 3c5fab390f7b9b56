// Package compression provides the pluggable compressors applied to entry
// text before encryption. Compressed bytes are what the cipher sees, so a
// compressor must be fully reversible; anything lossy would corrupt entries
// silently.
package compression

import (
	"fmt"
	"strings"
)

// Compressor compresses entry bytes before encryption and reverses the
// transformation after decryption.
type Compressor interface {
	Name() string
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// Get resolves a compressor by its configured algorithm name. An empty name
// and "NONE" both resolve to the NullCompressor.
func Get(name string) (Compressor, error) {
	switch normalize(name) {
	case "GZ", "GZIP":
		return newGzipCompressor(), nil
	case "ZLIB":
		return newZlibCompressor(), nil
	case "ZSTD":
		return newZstdCompressor()
	case "NONE", "":
		return NullCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression algorithm: %s", name)
	}
}

// NullCompressor passes data through unchanged. It is the fallback when the
// configured compressor cannot be constructed, and the reading side for
// envelopes written without compression.
type NullCompressor struct{}

func (NullCompressor) Name() string { return "NONE" }

func (NullCompressor) Compress(data []byte) ([]byte, error) { return data, nil }

func (NullCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

package secure

import (
	"crypto/rand"
	"errors"
	"fmt"
)

// Padding fills the final block of a plaintext before block-chained
// encryption and strips it again after decryption. Unpad must reject any
// structurally invalid padding; a padding failure after decryption is the
// cipher-level symptom of a wrong key or tampered ciphertext.
type Padding interface {
	Name() string
	Pad(data []byte, blockSize int) ([]byte, error)
	Unpad(data []byte, blockSize int) ([]byte, error)
}

// paddingByName resolves a padding token. PKCS5 is accepted as the common
// alias for PKCS7.
func paddingByName(name string) (Padding, error) {
	switch normalizeToken(name) {
	case "PKCS7", "PKCS5", "PKCS7PADDING":
		return pkcs7Padding{}, nil
	case "X923", "ANSIX923":
		return x923Padding{}, nil
	case "ISO10126", "ISO10126D2":
		return iso10126Padding{}, nil
	case "NOPADDING", "NONE":
		return noPadding{}, nil
	default:
		return nil, ConfigurationError{Token: name, Reason: "unknown padding scheme"}
	}
}

type pkcs7Padding struct{}

func (pkcs7Padding) Name() string { return "PKCS7" }

func (pkcs7Padding) Pad(data []byte, blockSize int) ([]byte, error) {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded, nil
}

func (pkcs7Padding) Unpad(data []byte, blockSize int) ([]byte, error) {
	n, err := trailerLength(data, blockSize)
	if err != nil {
		return nil, err
	}
	// every padding byte must equal the count
	for _, b := range data[len(data)-n:] {
		if b != byte(n) {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return data[:len(data)-n], nil
}

// x923Padding zero-fills and stores the count in the final byte.
type x923Padding struct{}

func (x923Padding) Name() string { return "X923" }

func (x923Padding) Pad(data []byte, blockSize int) ([]byte, error) {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	padded[len(padded)-1] = byte(n)
	return padded, nil
}

func (x923Padding) Unpad(data []byte, blockSize int) ([]byte, error) {
	n, err := trailerLength(data, blockSize)
	if err != nil {
		return nil, err
	}
	for _, b := range data[len(data)-n : len(data)-1] {
		if b != 0 {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return data[:len(data)-n], nil
}

// iso10126Padding random-fills and stores the count in the final byte. Only
// the count byte is validated on removal.
type iso10126Padding struct{}

func (iso10126Padding) Name() string { return "ISO10126" }

func (iso10126Padding) Pad(data []byte, blockSize int) ([]byte, error) {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	if _, err := rand.Read(padded[len(data) : len(padded)-1]); err != nil {
		return nil, fmt.Errorf("failed to generate padding: %w", err)
	}
	padded[len(padded)-1] = byte(n)
	return padded, nil
}

func (iso10126Padding) Unpad(data []byte, blockSize int) ([]byte, error) {
	n, err := trailerLength(data, blockSize)
	if err != nil {
		return nil, err
	}
	return data[:len(data)-n], nil
}

type noPadding struct{}

func (noPadding) Name() string { return "NoPadding" }

func (noPadding) Pad(data []byte, blockSize int) ([]byte, error) {
	if len(data)%blockSize != 0 {
		return nil, errors.New("plaintext length is not a multiple of the block size")
	}
	return data, nil
}

func (noPadding) Unpad(data []byte, blockSize int) ([]byte, error) {
	return data, nil
}

func trailerLength(data []byte, blockSize int) (int, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return 0, errors.New("padded data length is not a multiple of the block size")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return 0, errors.New("invalid padding length")
	}
	return n, nil
}

package secure

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"
	"strings"

	"golang.org/x/crypto/sha3"
)

// digestByName resolves a digest token to a hash constructor. Tokens are
// case-insensitive and tolerate a dash between family and width, so both
// "SHA512" and "SHA-512" resolve.
func digestByName(name string) (func() hash.Hash, error) {
	switch normalizeToken(name) {
	case "SHA1":
		return sha1.New, nil
	case "SHA224":
		return sha256.New224, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA384":
		return sha512.New384, nil
	case "SHA512":
		return sha512.New, nil
	case "SHA3256":
		return sha3.New256, nil
	case "SHA3512":
		return sha3.New512, nil
	default:
		return nil, ConfigurationError{Token: name, Reason: "unknown digest algorithm"}
	}
}

// DigestSize returns the output size in bytes of the named digest.
func DigestSize(name string) (int, error) {
	newHash, err := digestByName(name)
	if err != nil {
		return 0, err
	}
	return newHash().Size(), nil
}

func normalizeToken(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.ReplaceAll(s, "-", "")
}

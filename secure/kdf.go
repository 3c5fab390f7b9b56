package secure

import (
	"golang.org/x/crypto/pbkdf2"
)

// DeriveKey derives a master key from a password and a persisted salt using
// PBKDF2 over the named digest. The derivation is deterministic: identical
// inputs always produce identical output bytes, which is what keeps envelopes
// decryptable across sessions as long as the salt is stable.
//
// When length is zero or negative the output length defaults to the digest
// size, matching the original scheme which derived digestSize bytes of master
// key material.
func DeriveKey(password, salt []byte, iterations, length int, digest string) ([]byte, error) {
	newHash, err := digestByName(digest)
	if err != nil {
		return nil, err
	}
	if iterations <= 0 {
		return nil, ConfigurationError{Token: "kdf.iterations", Reason: "iteration count must be positive"}
	}
	if len(salt) == 0 {
		return nil, ConfigurationError{Token: "kdf.salt", Reason: "salt must not be empty"}
	}
	if length <= 0 {
		length = newHash().Size()
	}
	return pbkdf2.Key(password, salt, iterations, length, newHash), nil
}

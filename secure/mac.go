package secure

import (
	"crypto/hmac"
	"fmt"
	"hash"
)

// Mac is the keyed integrity engine. The only construction currently
// supported is HMAC over a configurable digest; the digest defaults to
// SHA-512 when left empty.
//
// The MAC is keyed independently from the cipher and serves as a pure
// integrity tag, not a nonce-based construction, so its IV is fixed to an
// all-zero buffer. HMAC takes no nonce at all, which makes that buffer zero
// bytes long here; SetIV exists to keep the engine contract explicit and
// rejects anything that is not all zero. Do not confuse this with the block
// cipher's per-encryption IV.
//
// HMAC accepts keys of arbitrary length, which the key expansion relies on
// when it keys the engine with the raw master key.
type Mac struct {
	macType string
	digest  string
	newHash func() hash.Hash
	key     []byte
}

// NewMac resolves a keyed-MAC construction from its type and digest tokens.
func NewMac(macType, digest string) (*Mac, error) {
	if normalizeToken(macType) != "HMAC" {
		return nil, ConfigurationError{Token: macType, Reason: "unknown MAC type"}
	}
	if digest == "" {
		digest = "SHA512"
	}
	newHash, err := digestByName(digest)
	if err != nil {
		return nil, err
	}
	return &Mac{
		macType: "HMAC",
		digest:  normalizeToken(digest),
		newHash: newHash,
	}, nil
}

// KeySize returns the sub-key length in bytes derived for this engine, which
// equals the digest output size.
func (m *Mac) KeySize() int { return m.newHash().Size() }

// IVSize returns the nonce length required by the construction. HMAC needs
// none.
func (m *Mac) IVSize() int { return 0 }

// SetKey installs the MAC key. The key bytes are copied.
func (m *Mac) SetKey(key []byte) {
	m.key = make([]byte, len(key))
	copy(m.key, key)
}

// SetIV installs the MAC nonce, which for this construction must be the
// all-zero buffer of IVSize length.
func (m *Mac) SetIV(iv []byte) error {
	if len(iv) != m.IVSize() {
		return fmt.Errorf("mac iv must be %d bytes, got %d", m.IVSize(), len(iv))
	}
	for _, b := range iv {
		if b != 0 {
			return fmt.Errorf("mac iv must be all zero")
		}
	}
	return nil
}

// CalculateMac computes the authentication tag over data. The result is
// deterministic in the installed key and the data.
func (m *Mac) CalculateMac(data []byte) []byte {
	h := hmac.New(m.newHash, m.key)
	h.Write(data)
	return h.Sum(nil)
}

// EqualMac compares two tags in constant time.
func EqualMac(a, b []byte) bool {
	return hmac.Equal(a, b)
}

// Wipe clears the installed key from the engine.
func (m *Mac) Wipe() {
	for i := range m.key {
		m.key[i] = 0
	}
	m.key = nil
}

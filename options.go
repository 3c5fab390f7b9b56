package vsdiary

import (
	"fmt"
	"strconv"

	"github.com/noelwhite1/vsDiaryWriter/internal/misc"
	"github.com/noelwhite1/vsDiaryWriter/secure"
)

// Configuration keys for the opaque key/value surface consumed by
// ConfigFromMap. How the map is populated (file, environment, flags) is the
// caller's concern.
const (
	ConfigEncryptionAlgorithm = "encryption.algorithm"
	ConfigEncryptionMode      = "encryption.mode"
	ConfigEncryptionPadding   = "encryption.padding"
	ConfigMACType             = "mac.type"
	ConfigMACDigest           = "mac.algorithm"
	ConfigKDFDigest           = "kdf.algorithm"
	ConfigKDFIterations       = "kdf.iterations"
	ConfigCompression         = "compression.algorithm"
)

// Config carries the resolved cipher suite for a codec session. It is passed
// explicitly into NewCodec; there is no ambient or global configuration
// state. Sensitive material (password, keys, salt) never appears here.
type Config struct {
	// Cipher suite, combined into an ALGORITHM/MODE/PADDING specifier.
	EncryptionAlgorithm string `json:"encryption_algorithm"`
	EncryptionMode      string `json:"encryption_mode"`
	EncryptionPadding   string `json:"encryption_padding"`

	// Keyed MAC construction used for envelope integrity tags.
	MACType   string `json:"mac_type"`
	MACDigest string `json:"mac_digest"`

	// Password-based derivation of the master key.
	KDFDigest     string `json:"kdf_digest"`
	KDFIterations int    `json:"kdf_iterations"`

	// Compression applied to entry bytes before encryption. An unknown or
	// unconstructible name falls back to no compression at codec setup; the
	// fallback is logged, not fatal.
	Compression string `json:"compression"`

	// SaltLength is the salt size generated on first use. Existing salts are
	// loaded at whatever length they were written with.
	SaltLength int `json:"salt_length"`

	// LegacyKeyExpansion selects the legacy journal scheme's exact key
	// expansion byte layout instead of the standard chained construction.
	// Required to decode envelopes written by that scheme; leave off for
	// anything new.
	LegacyKeyExpansion bool `json:"legacy_key_expansion"`
}

// DefaultConfig returns the reference cipher suite: AES-256/CBC/PKCS7,
// HMAC-SHA512 tags, PBKDF2-SHA256 at the reference iteration count, and gzip
// compression.
func DefaultConfig() Config {
	return Config{
		EncryptionAlgorithm: "AES-256",
		EncryptionMode:      "CBC",
		EncryptionPadding:   "PKCS7",
		MACType:             "HMAC",
		MACDigest:           "SHA512",
		KDFDigest:           "SHA256",
		KDFIterations:       misc.KDFIterations,
		Compression:         "GZ",
		SaltLength:          misc.SaltSize,
	}
}

// ConfigFromMap overlays the opaque key/value configuration surface onto the
// defaults. Unknown keys are ignored; a non-numeric iteration count is an
// error.
func ConfigFromMap(m map[string]string) (Config, error) {
	cfg := DefaultConfig()
	if v, ok := m[ConfigEncryptionAlgorithm]; ok {
		cfg.EncryptionAlgorithm = v
	}
	if v, ok := m[ConfigEncryptionMode]; ok {
		cfg.EncryptionMode = v
	}
	if v, ok := m[ConfigEncryptionPadding]; ok {
		cfg.EncryptionPadding = v
	}
	if v, ok := m[ConfigMACType]; ok {
		cfg.MACType = v
	}
	if v, ok := m[ConfigMACDigest]; ok {
		cfg.MACDigest = v
	}
	if v, ok := m[ConfigKDFDigest]; ok {
		cfg.KDFDigest = v
	}
	if v, ok := m[ConfigKDFIterations]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s value %q: %w", ConfigKDFIterations, v, err)
		}
		cfg.KDFIterations = n
	}
	if v, ok := m[ConfigCompression]; ok {
		cfg.Compression = v
	}
	return cfg, nil
}

// ModeSpec combines the cipher suite fields into the three-part specifier
// consumed by the cipher engine.
func (c Config) ModeSpec() string {
	return c.EncryptionAlgorithm + "/" + c.EncryptionMode + "/" + c.EncryptionPadding
}

// Validate resolves every configured token. It returns a
// secure.ConfigurationError for the first token that cannot be resolved;
// codec construction refuses configurations that fail here.
func (c Config) Validate() error {
	if _, err := secure.NewBlockCipher(c.ModeSpec()); err != nil {
		return err
	}
	if _, err := secure.NewMac(c.MACType, c.MACDigest); err != nil {
		return err
	}
	if _, err := secure.DigestSize(c.KDFDigest); err != nil {
		return err
	}
	if c.KDFIterations <= 0 {
		return secure.ConfigurationError{Token: ConfigKDFIterations, Reason: "iteration count must be positive"}
	}
	if c.SaltLength <= 0 {
		return secure.ConfigurationError{Token: "salt_length", Reason: "salt length must be positive"}
	}
	return nil
}

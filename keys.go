package vsdiary

import (
	"bytes"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/noelwhite1/vsDiaryWriter/persist"
	"github.com/noelwhite1/vsDiaryWriter/secure"
)

// Context strings for sub-key derivation. They are encoded to the same
// UTF-16 wire encoding as entry text before use, which is part of the
// compatibility contract with previously derived keys.
const (
	encryptionKeyInfo = "Encryption Key"
	macKeyInfo        = "Mac Key"

	encryptionKeyOctet byte = 0x01
	macKeyOctet        byte = 0x02
)

// SetPassword derives the session's key material from the password and binds
// it to the codec engines.
//
// The flow is: ensure a persisted salt (generating and persisting one before
// the first derivation if none exists), run the password KDF to obtain the
// master key, then expand the master key into an encryption sub-key and a MAC
// sub-key with domain-separated context strings and counter octets. The MAC
// sub-key derivation chains the encryption sub-key into its first round, so
// both keys come from one master secret yet can never collide.
//
// Sub-keys are sealed into memguard enclaves and only opened briefly per
// operation; the master key and all intermediate buffers are wiped before
// this method returns. Any salt I/O failure aborts the whole setup: deriving
// from an ephemeral salt would make previously encrypted entries permanently
// undecryptable.
func (c *Codec) SetPassword(password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.New("codec is closed")
	}
	if password == "" {
		return errors.New("password cannot be empty")
	}

	salt, err := c.ensureSalt()
	if err != nil {
		c.audit.Log("set_password", false, map[string]interface{}{
			"error": "salt unavailable",
		})
		return err
	}

	passwordBytes := []byte(password)
	defer memguard.WipeBytes(passwordBytes)

	// Master key length follows the KDF digest size.
	masterKey, err := secure.DeriveKey(passwordBytes, salt, c.cfg.KDFIterations, 0, c.cfg.KDFDigest)
	if err != nil {
		c.audit.Log("set_password", false, map[string]interface{}{
			"error": "key derivation failed",
		})
		return err
	}
	defer memguard.WipeBytes(masterKey)

	encKey, macKey, err := c.expandSubKeys(masterKey)
	if err != nil {
		c.audit.Log("set_password", false, map[string]interface{}{
			"error": "key expansion failed",
		})
		return err
	}

	if err = c.mac.SetIV(make([]byte, c.mac.IVSize())); err != nil {
		memguard.WipeBytes(encKey)
		memguard.WipeBytes(macKey)
		return secure.CipherError{Op: "setup", Err: err}
	}

	// NewEnclave wipes its input buffer after sealing.
	c.encKeyEnclave = memguard.NewEnclave(encKey)
	c.macKeyEnclave = memguard.NewEnclave(macKey)

	c.audit.Log("set_password", true, map[string]interface{}{
		"kdf_digest":     c.cfg.KDFDigest,
		"kdf_iterations": c.cfg.KDFIterations,
		"salt_length":    len(salt),
		"legacy_layout":  c.cfg.LegacyKeyExpansion,
	})

	return nil
}

// expandSubKeys turns the master key into the encryption and MAC sub-keys.
// The expansion PRF is fixed to HMAC-SHA512 independently of the configured
// tag MAC; changing it would change every derived key.
func (c *Codec) expandSubKeys(masterKey []byte) (encKey, macKey []byte, err error) {
	prf, err := secure.NewMac("HMAC", "SHA512")
	if err != nil {
		return nil, nil, err
	}
	defer prf.Wipe()

	encInfo, err := secure.EncodeText(encryptionKeyInfo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode context string: %w", err)
	}
	macInfo, err := secure.EncodeText(macKeyInfo)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode context string: %w", err)
	}

	if c.cfg.LegacyKeyExpansion {
		encKey = prf.ExpandLegacy(masterKey, nil, encInfo, encryptionKeyOctet, c.cipher.KeySize())
		macKey = prf.ExpandLegacy(masterKey, encKey, macInfo, macKeyOctet, c.mac.KeySize())
	} else {
		encKey = prf.Expand(masterKey, nil, encInfo, encryptionKeyOctet, c.cipher.KeySize())
		macKey = prf.Expand(masterKey, encKey, macInfo, macKeyOctet, c.mac.KeySize())
	}

	// Domain separation invariant.
	if bytes.Equal(encKey, macKey) {
		memguard.WipeBytes(encKey)
		memguard.WipeBytes(macKey)
		return nil, nil, secure.CipherError{Op: "expand", Err: errors.New("sub-keys are not independent")}
	}

	return encKey, macKey, nil
}

// ensureSalt loads the persisted KDF salt, generating and persisting a fresh
// one if none exists yet. The new salt is written before it is ever used for
// derivation; if the write fails, no key material is produced from it.
func (c *Codec) ensureSalt() ([]byte, error) {
	exists, err := c.store.Exists()
	if err != nil {
		return nil, persist.SaltIOError{Op: "check", Err: err}
	}

	if exists {
		salt, err := c.store.Load()
		if err != nil {
			return nil, persist.SaltIOError{Op: "read", Err: err}
		}
		return salt, nil
	}

	salt := make([]byte, c.cfg.SaltLength)
	if _, err = rand.Read(salt); err != nil {
		return nil, persist.SaltIOError{Op: "write", Err: fmt.Errorf("failed to generate salt: %w", err)}
	}
	if err = c.store.Save(salt); err != nil {
		return nil, persist.SaltIOError{Op: "write", Err: err}
	}

	c.audit.Log("create_salt", true, map[string]interface{}{
		"salt_length": len(salt),
		"store_type":  c.store.GetType(),
	})

	return salt, nil
}

// Close discards the session's key material. The codec cannot be used again
// afterwards; a new codec with a fresh SetPassword is required.
func (c *Codec) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.encKeyEnclave = nil
	c.macKeyEnclave = nil
	c.mac.Wipe()
	c.closed = true

	c.audit.Log("close_codec", true, nil)
	return nil
}

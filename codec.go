// Package vsdiary implements the authenticated-encryption pipeline that
// protects journal entry text at rest. A password and a persisted salt are
// stretched into a master key, the master key is expanded into independent
// encryption and MAC sub-keys, and each entry field is compressed, encrypted
// with a fresh random IV, and authenticated into a textual envelope of the
// form
//
//	base64(iv) $ base64(ciphertext) $ base64(mac)
//
// Decoding is fail-closed: the MAC is verified before any decryption is
// attempted, so tampered or wrongly keyed envelopes are rejected without ever
// touching cipher or padding internals.
package vsdiary

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/awnumar/memguard"

	"github.com/noelwhite1/vsDiaryWriter/audit"
	"github.com/noelwhite1/vsDiaryWriter/compression"
	"github.com/noelwhite1/vsDiaryWriter/persist"
	"github.com/noelwhite1/vsDiaryWriter/secure"
)

const envelopeSeparator = "$"

// Entry is one journal record. Subject and Content carry either plaintext or
// envelope text depending on which side of EncryptEntry/DecryptEntry the
// value is on; ID and Date pass through untouched.
type Entry struct {
	ID      int64     `json:"id"`
	Date    time.Time `json:"date"`
	Subject string    `json:"subject"`
	Content string    `json:"content"`
}

// Codec encodes and decodes entry fields using a cipher suite resolved once
// at construction. Key material lives in memguard enclaves bound by
// SetPassword and is only opened briefly per operation.
//
// A Codec is safe for concurrent use; operations serialize on an internal
// mutex because the MAC engine is keyed per operation. Callers needing
// parallel bulk encoding should create one Codec per worker over the same
// salt store.
type Codec struct {
	cfg        Config
	cipher     *secure.BlockCipher
	mac        *secure.Mac
	compressor compression.Compressor
	store      persist.SaltStore
	audit      audit.Logger

	mu            sync.Mutex
	encKeyEnclave *memguard.Enclave
	macKeyEnclave *memguard.Enclave
	closed        bool
}

// NewCodec resolves the configured cipher suite and binds the codec to a salt
// store. Unresolvable algorithm, mode, padding or digest tokens fail
// construction with a secure.ConfigurationError. An unknown compression name
// is the one non-fatal case: the codec falls back to no compression and logs
// the substitution.
//
// auditLogger may be nil, in which case auditing is disabled.
func NewCodec(cfg Config, store persist.SaltStore, auditLogger audit.Logger) (*Codec, error) {
	if store == nil {
		return nil, errors.New("salt store is required")
	}
	if auditLogger == nil {
		auditLogger = audit.NewNoOpLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	blockCipher, err := secure.NewBlockCipher(cfg.ModeSpec())
	if err != nil {
		return nil, err
	}
	mac, err := secure.NewMac(cfg.MACType, cfg.MACDigest)
	if err != nil {
		return nil, err
	}

	compressor, err := compression.Get(cfg.Compression)
	if err != nil {
		auditLogger.Log("compressor_fallback", true, map[string]interface{}{
			"requested": cfg.Compression,
			"error":     err.Error(),
		})
		compressor = compression.NullCompressor{}
	}

	c := &Codec{
		cfg:        cfg,
		cipher:     blockCipher,
		mac:        mac,
		compressor: compressor,
		store:      store,
		audit:      auditLogger,
	}

	auditLogger.Log("configure_codec", true, map[string]interface{}{
		"mode_spec":   cfg.ModeSpec(),
		"mac":         cfg.MACType + "-" + cfg.MACDigest,
		"compression": compressor.Name(),
		"store_type":  store.GetType(),
	})

	return c, nil
}

// Encode transforms one plaintext field into its envelope. The field text is
// converted to its fixed wire encoding, compressed, encrypted under a fresh
// random IV, and the base64 iv$ciphertext payload is authenticated with the
// MAC sub-key. No partial envelope is ever returned: any failure yields an
// empty string and an error.
func (c *Codec) Encode(plaintext string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return "", err
	}

	encoded, err := secure.EncodeText(plaintext)
	if err != nil {
		return "", fmt.Errorf("failed to encode entry text: %w", err)
	}

	compressed, err := c.compressor.Compress(encoded)
	if err != nil {
		c.audit.Log("encode_field", false, map[string]interface{}{
			"error": "compression failed",
		})
		return "", fmt.Errorf("failed to compress entry text: %w", err)
	}

	var iv, ciphertext []byte
	err = c.withKey(c.encKeyEnclave, func(key []byte) error {
		var encErr error
		iv, ciphertext, encErr = c.cipher.Encrypt(key, compressed)
		return encErr
	})
	if err != nil {
		c.audit.Log("encode_field", false, map[string]interface{}{
			"error": "encryption failed",
		})
		return "", err
	}

	payload := base64.StdEncoding.EncodeToString(iv) +
		envelopeSeparator +
		base64.StdEncoding.EncodeToString(ciphertext)

	tag, err := c.authenticate(payload)
	if err != nil {
		c.audit.Log("encode_field", false, map[string]interface{}{
			"error": "mac computation failed",
		})
		return "", err
	}

	envelope := payload + envelopeSeparator + base64.StdEncoding.EncodeToString(tag)

	c.audit.Log("encode_field", true, map[string]interface{}{
		"plaintext_size": len(plaintext),
		"envelope_size":  len(envelope),
	})

	return envelope, nil
}

// Decode reverses Encode. The envelope is split into exactly three segments
// (anything else is a FormatError), the MAC over iv$ciphertext is recomputed
// and compared in constant time before any base64 decoding of the ciphertext
// or decryption takes place, and only an authenticated payload proceeds to
// decrypt, decompress and text decode. A mismatching or undecodable tag is an
// IntegrityError.
func (c *Codec) Decode(envelope string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ready(); err != nil {
		return "", err
	}

	parts := strings.Split(envelope, envelopeSeparator)
	if len(parts) != 3 {
		return "", FormatError{Reason: fmt.Sprintf("expected 3 segments, got %d", len(parts))}
	}
	for i, part := range parts {
		if part == "" {
			return "", FormatError{Reason: fmt.Sprintf("segment %d is empty", i+1)}
		}
	}

	payload := parts[0] + envelopeSeparator + parts[1]
	expected, err := c.authenticate(payload)
	if err != nil {
		return "", err
	}

	// A tag segment that does not even decode counts as tampering, not as a
	// format problem: the envelope shape itself is fine.
	given, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		c.audit.Log("decode_field", false, map[string]interface{}{
			"error": "mac verification failed",
		})
		return "", IntegrityError{}
	}
	if !secure.EqualMac(expected, given) {
		c.audit.Log("decode_field", false, map[string]interface{}{
			"error": "mac verification failed",
		})
		return "", IntegrityError{}
	}

	iv, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", FormatError{Reason: "iv segment is not valid base64"}
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", FormatError{Reason: "ciphertext segment is not valid base64"}
	}

	var compressed []byte
	err = c.withKey(c.encKeyEnclave, func(key []byte) error {
		var decErr error
		compressed, decErr = c.cipher.Decrypt(key, iv, ciphertext)
		return decErr
	})
	if err != nil {
		c.audit.Log("decode_field", false, map[string]interface{}{
			"error": "decryption failed",
		})
		return "", err
	}

	encoded, err := c.compressor.Decompress(compressed)
	if err != nil {
		c.audit.Log("decode_field", false, map[string]interface{}{
			"error": "decompression failed",
		})
		return "", secure.CipherError{Op: "decompress", Err: err}
	}

	plaintext, err := secure.DecodeText(encoded)
	if err != nil {
		return "", secure.CipherError{Op: "decode", Err: err}
	}

	c.audit.Log("decode_field", true, map[string]interface{}{
		"envelope_size": len(envelope),
	})

	return plaintext, nil
}

// EncryptEntry encodes the subject and content fields of an entry, leaving ID
// and Date untouched. The input entry is not modified.
func (c *Codec) EncryptEntry(e Entry) (Entry, error) {
	subject, err := c.Encode(e.Subject)
	if err != nil {
		return Entry{}, fmt.Errorf("cannot encrypt entry: %w", err)
	}
	content, err := c.Encode(e.Content)
	if err != nil {
		return Entry{}, fmt.Errorf("cannot encrypt entry: %w", err)
	}
	return Entry{ID: e.ID, Date: e.Date, Subject: subject, Content: content}, nil
}

// DecryptEntry reverses EncryptEntry.
func (c *Codec) DecryptEntry(e Entry) (Entry, error) {
	subject, err := c.Decode(e.Subject)
	if err != nil {
		return Entry{}, fmt.Errorf("cannot decrypt entry: %w", err)
	}
	content, err := c.Decode(e.Content)
	if err != nil {
		return Entry{}, fmt.Errorf("cannot decrypt entry: %w", err)
	}
	return Entry{ID: e.ID, Date: e.Date, Subject: subject, Content: content}, nil
}

// authenticate computes the MAC tag over the wire encoding of payload using
// the MAC sub-key. The engine is keyed only for the duration of the call.
func (c *Codec) authenticate(payload string) ([]byte, error) {
	macBytes, err := secure.EncodeText(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mac input: %w", err)
	}

	var tag []byte
	err = c.withKey(c.macKeyEnclave, func(key []byte) error {
		c.mac.SetKey(key)
		defer c.mac.Wipe()
		tag = c.mac.CalculateMac(macBytes)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tag, nil
}

// withKey opens an enclave, hands the key bytes to fn, and destroys the
// buffer again before returning.
func (c *Codec) withKey(enclave *memguard.Enclave, fn func(key []byte) error) error {
	buf, err := enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to access key material: %w", err)
	}
	defer buf.Destroy()
	return fn(buf.Bytes())
}

func (c *Codec) ready() error {
	if c.closed {
		return errors.New("codec is closed")
	}
	if c.encKeyEnclave == nil || c.macKeyEnclave == nil {
		return errors.New("no password bound: call SetPassword first")
	}
	return nil
}

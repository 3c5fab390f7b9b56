package vsdiary

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noelwhite1/vsDiaryWriter/persist"
	"github.com/noelwhite1/vsDiaryWriter/secure"
)

const testPassword = "correct horse"

func newTestCodec(t *testing.T, cfg Config) (*Codec, persist.SaltStore) {
	t.Helper()
	store, err := persist.NewFileSaltStore(filepath.Join(t.TempDir(), "derivation.salt"))
	require.NoError(t, err)

	codec, err := NewCodec(cfg, store, nil)
	require.NoError(t, err)
	require.NoError(t, codec.SetPassword(testPassword))
	t.Cleanup(func() { codec.Close() })
	return codec, store
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	codec, _ := newTestCodec(t, DefaultConfig())

	cases := []string{
		"Hello, Journal!",
		"",
		"Special chars: !@#$%^&*()_+{}|",
		"Unicode: こんにちは",
		"Dollar $igns insi$de the plain$text",
		strings.Repeat("A very long diary entry. ", 500),
	}

	for i, plaintext := range cases {
		envelope, err := codec.Encode(plaintext)
		require.NoError(t, err, "case %d", i)

		decoded, err := codec.Decode(envelope)
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, plaintext, decoded, "case %d", i)
	}
}

// The concrete scenario: AES-256/CBC/PKCS7 with HMAC-SHA512 tags and a fixed
// all-zero salt.
func TestReferenceScenario(t *testing.T) {
	store, err := persist.NewFileSaltStore(filepath.Join(t.TempDir(), "derivation.salt"))
	require.NoError(t, err)
	require.NoError(t, store.Save(make([]byte, 16)))

	cfg := DefaultConfig()
	codec, err := NewCodec(cfg, store, nil)
	require.NoError(t, err)
	defer codec.Close()
	require.NoError(t, codec.SetPassword("correct horse"))

	envelope, err := codec.Encode("Hello, Journal!")
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(envelope, "$"), "exactly two separators")
	parts := strings.Split(envelope, "$")
	require.Len(t, parts, 3)
	for i, part := range parts {
		assert.NotEmpty(t, part, "segment %d", i+1)
	}

	decoded, err := codec.Decode(envelope)
	require.NoError(t, err)
	assert.Equal(t, "Hello, Journal!", decoded)
}

func flipChar(t *testing.T, s string, index int) string {
	t.Helper()
	replacement := byte('A')
	if s[index] == 'A' {
		replacement = 'B'
	}
	return s[:index] + string(replacement) + s[index+1:]
}

func TestTamperDetection(t *testing.T) {
	codec, _ := newTestCodec(t, DefaultConfig())

	envelope, err := codec.Encode("an entry worth protecting")
	require.NoError(t, err)
	parts := strings.Split(envelope, "$")
	require.Len(t, parts, 3)

	ivEnd := len(parts[0])
	ctEnd := ivEnd + 1 + len(parts[1])

	// Flip one character in each segment in turn. Every flip must surface as
	// an integrity failure, never as altered plaintext.
	tamperPoints := []int{
		ivEnd / 2,                 // iv segment
		ivEnd + 1,                 // first ciphertext character
		ivEnd + 1 + len(parts[1])/2, // middle of the ciphertext
		ctEnd + 1 + len(parts[2])/2, // mac segment
	}

	for _, index := range tamperPoints {
		tampered := flipChar(t, envelope, index)
		if tampered == envelope {
			continue
		}
		decoded, err := codec.Decode(tampered)
		require.Error(t, err, "tamper at index %d", index)
		assert.Empty(t, decoded)

		var integrityErr IntegrityError
		assert.ErrorAs(t, err, &integrityErr, "tamper at index %d", index)
	}
}

func TestWrongPasswordFailsClosed(t *testing.T) {
	saltPath := filepath.Join(t.TempDir(), "derivation.salt")

	store1, err := persist.NewFileSaltStore(saltPath)
	require.NoError(t, err)
	codec1, err := NewCodec(DefaultConfig(), store1, nil)
	require.NoError(t, err)
	require.NoError(t, codec1.SetPassword("correct horse"))
	defer codec1.Close()

	envelope, err := codec1.Encode("secret entry")
	require.NoError(t, err)

	store2, err := persist.NewFileSaltStore(saltPath)
	require.NoError(t, err)
	codec2, err := NewCodec(DefaultConfig(), store2, nil)
	require.NoError(t, err)
	require.NoError(t, codec2.SetPassword("battery staple"))
	defer codec2.Close()

	decoded, err := codec2.Decode(envelope)
	require.Error(t, err)
	assert.Empty(t, decoded)

	var integrityErr IntegrityError
	assert.ErrorAs(t, err, &integrityErr, "wrong keys must fail mac verification before decryption")
}

func TestSaltPersistenceAcrossSessions(t *testing.T) {
	saltPath := filepath.Join(t.TempDir(), "derivation.salt")

	store1, err := persist.NewFileSaltStore(saltPath)
	require.NoError(t, err)
	codec1, err := NewCodec(DefaultConfig(), store1, nil)
	require.NoError(t, err)
	require.NoError(t, codec1.SetPassword(testPassword))

	firstSalt, err := store1.Load()
	require.NoError(t, err)
	assert.Len(t, firstSalt, 16, "first run creates a salt of the configured length")

	envelope, err := codec1.Encode("written in session one")
	require.NoError(t, err)
	require.NoError(t, codec1.Close())

	// A second session over the same store must load the identical salt and
	// be able to read envelopes from the first.
	store2, err := persist.NewFileSaltStore(saltPath)
	require.NoError(t, err)
	secondSalt, err := store2.Load()
	require.NoError(t, err)
	assert.Equal(t, firstSalt, secondSalt)

	codec2, err := NewCodec(DefaultConfig(), store2, nil)
	require.NoError(t, err)
	defer codec2.Close()
	require.NoError(t, codec2.SetPassword(testPassword))

	decoded, err := codec2.Decode(envelope)
	require.NoError(t, err)
	assert.Equal(t, "written in session one", decoded)
}

func TestMalformedEnvelopes(t *testing.T) {
	codec, _ := newTestCodec(t, DefaultConfig())

	cases := []string{
		"onlyone$separator",
		"noseparatorsatall",
		"a$b$c$d",
		"$missing$iv",
		"missing$$ciphertext",
		"missing$mac$",
	}

	for _, envelope := range cases {
		decoded, err := codec.Decode(envelope)
		require.Error(t, err, "envelope %q", envelope)
		assert.Empty(t, decoded)

		var formatErr FormatError
		assert.ErrorAs(t, err, &formatErr, "envelope %q must fail with a format error", envelope)
	}
}

func TestStreamModeRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EncryptionMode = "CTR"
	cfg.EncryptionPadding = "NoPadding"

	codec, _ := newTestCodec(t, cfg)

	envelope, err := codec.Encode("stream mode entry")
	require.NoError(t, err)
	decoded, err := codec.Decode(envelope)
	require.NoError(t, err)
	assert.Equal(t, "stream mode entry", decoded)
}

func TestLegacyKeyExpansionRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LegacyKeyExpansion = true

	codec, _ := newTestCodec(t, cfg)

	envelope, err := codec.Encode("written by the old scheme")
	require.NoError(t, err)
	decoded, err := codec.Decode(envelope)
	require.NoError(t, err)
	assert.Equal(t, "written by the old scheme", decoded)
}

func TestLegacyAndStandardExpansionDisagree(t *testing.T) {
	saltPath := filepath.Join(t.TempDir(), "derivation.salt")

	store1, err := persist.NewFileSaltStore(saltPath)
	require.NoError(t, err)
	legacyCfg := DefaultConfig()
	legacyCfg.LegacyKeyExpansion = true
	legacy, err := NewCodec(legacyCfg, store1, nil)
	require.NoError(t, err)
	require.NoError(t, legacy.SetPassword(testPassword))
	defer legacy.Close()

	envelope, err := legacy.Encode("legacy envelope")
	require.NoError(t, err)

	store2, err := persist.NewFileSaltStore(saltPath)
	require.NoError(t, err)
	standard, err := NewCodec(DefaultConfig(), store2, nil)
	require.NoError(t, err)
	require.NoError(t, standard.SetPassword(testPassword))
	defer standard.Close()

	_, err = standard.Decode(envelope)
	require.Error(t, err, "the two layouts must derive different keys")
}

func TestCompressorFallback(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Compression = "BZ9" // not a known algorithm

	codec, _ := newTestCodec(t, cfg)

	envelope, err := codec.Encode("still works without compression")
	require.NoError(t, err)
	decoded, err := codec.Decode(envelope)
	require.NoError(t, err)
	assert.Equal(t, "still works without compression", decoded)
}

func TestEnvelopesAreRandomizedPerCall(t *testing.T) {
	codec, _ := newTestCodec(t, DefaultConfig())

	first, err := codec.Encode("same plaintext")
	require.NoError(t, err)
	second, err := codec.Encode("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "fresh ivs must randomize envelopes")

	// Both must still decode.
	for _, envelope := range []string{first, second} {
		decoded, err := codec.Decode(envelope)
		require.NoError(t, err)
		assert.Equal(t, "same plaintext", decoded)
	}
}

func TestEncryptDecryptEntry(t *testing.T) {
	codec, _ := newTestCodec(t, DefaultConfig())

	entry := Entry{
		ID:      42,
		Date:    time.Date(2016, time.March, 9, 21, 30, 0, 0, time.UTC),
		Subject: "A quiet day",
		Content: "Nothing much happened, which was the point.",
	}

	encrypted, err := codec.EncryptEntry(entry)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, encrypted.ID)
	assert.Equal(t, entry.Date, encrypted.Date)
	assert.NotEqual(t, entry.Subject, encrypted.Subject)
	assert.NotEqual(t, entry.Content, encrypted.Content)
	assert.Equal(t, 2, strings.Count(encrypted.Subject, "$"))
	assert.Equal(t, 2, strings.Count(encrypted.Content, "$"))

	decrypted, err := codec.DecryptEntry(encrypted)
	require.NoError(t, err)
	assert.Equal(t, entry, decrypted)
}

func TestDecodeWithCipherSuiteVariants(t *testing.T) {
	suites := []struct {
		algorithm string
		mode      string
		padding   string
	}{
		{"AES-128", "CBC", "PKCS7"},
		{"AES-256", "CBC", "X923"},
		{"Twofish", "CBC", "PKCS7"},
		{"Blowfish", "CBC", "PKCS7"},
	}

	for _, suite := range suites {
		t.Run(suite.algorithm+"/"+suite.mode+"/"+suite.padding, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.EncryptionAlgorithm = suite.algorithm
			cfg.EncryptionMode = suite.mode
			cfg.EncryptionPadding = suite.padding

			codec, _ := newTestCodec(t, cfg)
			envelope, err := codec.Encode("suite variant entry")
			require.NoError(t, err)
			decoded, err := codec.Decode(envelope)
			require.NoError(t, err)
			assert.Equal(t, "suite variant entry", decoded)
		})
	}
}

func TestNewCodecRejectsBadConfiguration(t *testing.T) {
	store, err := persist.NewFileSaltStore(filepath.Join(t.TempDir(), "derivation.salt"))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.EncryptionAlgorithm = "ROT13"
	_, err = NewCodec(cfg, store, nil)
	var confErr secure.ConfigurationError
	require.ErrorAs(t, err, &confErr)

	_, err = NewCodec(DefaultConfig(), nil, nil)
	require.Error(t, err, "salt store is mandatory")
}

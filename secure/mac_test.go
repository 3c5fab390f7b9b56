package secure

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Vector from RFC 4231, test case 1.
func TestHmacSha512ReferenceVector(t *testing.T) {
	m, err := NewMac("HMAC", "SHA512")
	require.NoError(t, err)

	m.SetKey(bytes.Repeat([]byte{0x0b}, 20))
	tag := m.CalculateMac([]byte("Hi There"))

	expected := "87aa7cdea5ef619d4ff0b4241a1d6cb0" +
		"2379f4e2ce4ec2787ad0b30545e17cde" +
		"daa833b7d6b8a702038b274eaea3f4e4" +
		"be9d914eeb61f1702e696c203a126854"
	assert.Equal(t, expected, hex.EncodeToString(tag))
}

func TestMacDeterministicInKeyAndData(t *testing.T) {
	m, err := NewMac("HMAC", "SHA512")
	require.NoError(t, err)

	m.SetKey([]byte("key one"))
	first := m.CalculateMac([]byte("payload"))
	second := m.CalculateMac([]byte("payload"))
	assert.Equal(t, first, second)

	other := m.CalculateMac([]byte("payloae"))
	assert.NotEqual(t, first, other)

	m.SetKey([]byte("key two"))
	rekeyed := m.CalculateMac([]byte("payload"))
	assert.NotEqual(t, first, rekeyed)
}

func TestMacAcceptsArbitraryKeyLengths(t *testing.T) {
	m, err := NewMac("HMAC", "SHA512")
	require.NoError(t, err)

	// The key expansion keys the engine with raw master keys of digest
	// length and beyond; HMAC must take all of them.
	for _, n := range []int{1, 32, 64, 200} {
		m.SetKey(bytes.Repeat([]byte{0x42}, n))
		tag := m.CalculateMac([]byte("data"))
		assert.Len(t, tag, 64)
	}
}

func TestMacDigestDefaultsToSha512(t *testing.T) {
	m, err := NewMac("HMAC", "")
	require.NoError(t, err)
	assert.Equal(t, 64, m.KeySize())
}

func TestMacIvMustBeZero(t *testing.T) {
	m, err := NewMac("HMAC", "SHA512")
	require.NoError(t, err)

	assert.NoError(t, m.SetIV(make([]byte, m.IVSize())))
	assert.Error(t, m.SetIV([]byte{0x00, 0x01}))
}

func TestMacUnknownTypeRejected(t *testing.T) {
	_, err := NewMac("CMAC", "SHA256")
	var confErr ConfigurationError
	require.ErrorAs(t, err, &confErr)

	_, err = NewMac("HMAC", "WHIRLPOOL9")
	require.ErrorAs(t, err, &confErr)
}

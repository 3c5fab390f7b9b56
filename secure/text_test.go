package secure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextRoundTrip(t *testing.T) {
	cases := []string{
		"",
		"Hello, Journal!",
		"Unicode: こんにちは",
		"Emoji outside the BMP: \U0001F512",
		"Special chars: !@#$%^&*()_+{}|",
	}

	for _, s := range cases {
		encoded, err := EncodeText(s)
		require.NoError(t, err)

		decoded, err := DecodeText(encoded)
		require.NoError(t, err)
		assert.Equal(t, s, decoded, "round trip of %q", s)
	}
}

func TestTextEncodingIsFixedMultiByte(t *testing.T) {
	encoded, err := EncodeText("A")
	require.NoError(t, err)

	// Big-endian UTF-16 with a byte order mark: the MAC input layout depends
	// on these exact bytes.
	assert.Equal(t, []byte{0xFE, 0xFF, 0x00, 'A'}, encoded)
}

func TestTextEncodingDeterministic(t *testing.T) {
	first, err := EncodeText("same input")
	require.NoError(t, err)
	second, err := EncodeText("same input")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

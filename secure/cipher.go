package secure

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/des"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/blowfish"
	"golang.org/x/crypto/cast5"
	"golang.org/x/crypto/twofish"
)

// BlockCipher is the field encryption engine. It is resolved once from a
// three-part mode specifier of the form ALGORITHM/MODE/PADDING, for example
// "AES-256/CBC/PKCS7", and is then safe for reuse across operations: keys and
// IVs travel as call parameters, the engine itself holds no per-operation
// state.
//
// Encrypt draws a fresh random IV sized to the cipher's block size on every
// call. The IV is not secret and must be stored alongside the ciphertext so
// Decrypt can be handed the same value.
type BlockCipher struct {
	algorithm string
	mode      string
	padding   Padding

	keySize   int
	blockSize int
	newCipher func(key []byte) (cipher.Block, error)
}

// NewBlockCipher parses a mode specifier into a concrete cipher suite. Any
// token that does not resolve yields a ConfigurationError.
func NewBlockCipher(modeSpec string) (*BlockCipher, error) {
	parts := strings.Split(modeSpec, "/")
	if len(parts) != 3 {
		return nil, ConfigurationError{Token: modeSpec, Reason: "mode specifier must have the form ALGORITHM/MODE/PADDING"}
	}

	bc := &BlockCipher{}
	if err := bc.resolveAlgorithm(parts[0]); err != nil {
		return nil, err
	}

	switch normalizeToken(parts[1]) {
	case "CBC", "CFB", "OFB", "CTR":
		bc.mode = normalizeToken(parts[1])
	default:
		return nil, ConfigurationError{Token: parts[1], Reason: "unknown chaining mode"}
	}

	padding, err := paddingByName(parts[2])
	if err != nil {
		return nil, err
	}
	bc.padding = padding

	return bc, nil
}

func (bc *BlockCipher) resolveAlgorithm(token string) error {
	switch normalizeToken(token) {
	case "AES", "AES256":
		bc.keySize, bc.blockSize, bc.newCipher = 32, aes.BlockSize, aes.NewCipher
	case "AES192":
		bc.keySize, bc.blockSize, bc.newCipher = 24, aes.BlockSize, aes.NewCipher
	case "AES128":
		bc.keySize, bc.blockSize, bc.newCipher = 16, aes.BlockSize, aes.NewCipher
	case "DES":
		bc.keySize, bc.blockSize, bc.newCipher = 8, des.BlockSize, des.NewCipher
	case "DESEDE", "3DES", "TRIPLEDES":
		bc.keySize, bc.blockSize, bc.newCipher = 24, des.BlockSize, des.NewTripleDESCipher
	case "BLOWFISH":
		bc.keySize, bc.blockSize = 32, blowfish.BlockSize
		bc.newCipher = func(key []byte) (cipher.Block, error) { return blowfish.NewCipher(key) }
	case "TWOFISH":
		bc.keySize, bc.blockSize = 32, twofish.BlockSize
		bc.newCipher = func(key []byte) (cipher.Block, error) { return twofish.NewCipher(key) }
	case "CAST5":
		bc.keySize, bc.blockSize = 16, cast5.BlockSize
		bc.newCipher = func(key []byte) (cipher.Block, error) { return cast5.NewCipher(key) }
	default:
		return ConfigurationError{Token: token, Reason: "unknown encryption algorithm"}
	}
	bc.algorithm = normalizeToken(token)
	return nil
}

// KeySize returns the key length in bytes required by the resolved algorithm.
func (bc *BlockCipher) KeySize() int { return bc.keySize }

// BlockSize returns the cipher block size in bytes, which is also the IV size.
func (bc *BlockCipher) BlockSize() int { return bc.blockSize }

// Encrypt encrypts plaintext under key with a freshly generated random IV and
// returns both. Padding is applied for block-chained modes; stream modes
// (CFB, OFB, CTR) encrypt the plaintext as-is.
func (bc *BlockCipher) Encrypt(key, plaintext []byte) (iv, ciphertext []byte, err error) {
	block, err := bc.initBlock(key)
	if err != nil {
		return nil, nil, err
	}

	iv = make([]byte, bc.blockSize)
	if _, err = rand.Read(iv); err != nil {
		return nil, nil, CipherError{Op: "encrypt", Err: fmt.Errorf("failed to generate iv: %w", err)}
	}

	switch bc.mode {
	case "CBC":
		padded, perr := bc.padding.Pad(plaintext, bc.blockSize)
		if perr != nil {
			return nil, nil, CipherError{Op: "encrypt", Err: perr}
		}
		ciphertext = make([]byte, len(padded))
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	default:
		ciphertext = make([]byte, len(plaintext))
		bc.stream(block, iv, true).XORKeyStream(ciphertext, plaintext)
	}

	return iv, ciphertext, nil
}

// Decrypt initializes the cipher for decryption with the supplied IV and
// returns the unpadded plaintext. Malformed padded structure after block
// decryption signals tampering or a wrong key and surfaces as a CipherError
// without revealing internal cipher state.
func (bc *BlockCipher) Decrypt(key, iv, ciphertext []byte) ([]byte, error) {
	block, err := bc.initBlock(key)
	if err != nil {
		return nil, err
	}
	if len(iv) != bc.blockSize {
		return nil, CipherError{Op: "decrypt", Err: fmt.Errorf("iv must be %d bytes, got %d", bc.blockSize, len(iv))}
	}

	switch bc.mode {
	case "CBC":
		if len(ciphertext) == 0 || len(ciphertext)%bc.blockSize != 0 {
			return nil, CipherError{Op: "decrypt", Err: errors.New("ciphertext length is not a multiple of the block size")}
		}
		padded := make([]byte, len(ciphertext))
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ciphertext)
		plaintext, perr := bc.padding.Unpad(padded, bc.blockSize)
		if perr != nil {
			return nil, CipherError{Op: "decrypt", Err: perr}
		}
		return plaintext, nil
	default:
		plaintext := make([]byte, len(ciphertext))
		bc.stream(block, iv, false).XORKeyStream(plaintext, ciphertext)
		return plaintext, nil
	}
}

func (bc *BlockCipher) initBlock(key []byte) (cipher.Block, error) {
	if len(key) != bc.keySize {
		return nil, CipherError{Op: "init", Err: fmt.Errorf("%s requires a %d byte key, got %d", bc.algorithm, bc.keySize, len(key))}
	}
	block, err := bc.newCipher(key)
	if err != nil {
		return nil, CipherError{Op: "init", Err: err}
	}
	return block, nil
}

func (bc *BlockCipher) stream(block cipher.Block, iv []byte, encrypt bool) cipher.Stream {
	switch bc.mode {
	case "CFB":
		if encrypt {
			return cipher.NewCFBEncrypter(block, iv)
		}
		return cipher.NewCFBDecrypter(block, iv)
	case "OFB":
		return cipher.NewOFB(block, iv)
	default: // CTR
		return cipher.NewCTR(block, iv)
	}
}

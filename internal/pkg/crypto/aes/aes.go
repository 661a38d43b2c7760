// chunkvault/internal/pkg/crypto/aes/aes.go
package aes

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"

	pkcs7 "github.com/mergermarket/go-pkcs7"
)

const (
	IVSize  = aes.BlockSize // CBC IV is one block
	KeySize = 32            // AES-256
)

// ErrInvalidPadding is returned when a decrypted chunk does not end in
// well-formed PKCS#7 padding, which is what a wrong key usually produces.
var ErrInvalidPadding = errors.New("invalid padding")

// AESEncryptor encrypts chunks with AES in CBC mode and PKCS#7 padding.
type AESEncryptor struct {
	keySize int
}

func NewAESEncryptor(keySize int) *AESEncryptor {
	return &AESEncryptor{
		keySize: keySize,
	}
}

func (e *AESEncryptor) GenerateIV() ([]byte, error) {
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	return iv, nil
}

func (e *AESEncryptor) EncryptChunk(chunk []byte, key []byte, iv []byte) ([]byte, error) {
	block, err := e.newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	padded, err := pkcs7.Pad(chunk, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("failed to pad chunk: %w", err)
	}

	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

func (e *AESEncryptor) DecryptChunk(encryptedChunk []byte, key []byte, iv []byte) ([]byte, error) {
	block, err := e.newBlock(key, iv)
	if err != nil {
		return nil, err
	}

	if len(encryptedChunk) == 0 || len(encryptedChunk)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("invalid ciphertext size: %d is not a positive multiple of %d", len(encryptedChunk), aes.BlockSize)
	}

	plaintext := make([]byte, len(encryptedChunk))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, encryptedChunk)

	return unpad(plaintext)
}

// unpad strips PKCS#7 padding after checking that the pad length is in
// [1, BlockSize] and that every pad byte carries it.
func unpad(plaintext []byte) ([]byte, error) {
	n := len(plaintext)
	if n == 0 || n%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidPadding, n)
	}
	pad := int(plaintext[n-1])
	if pad == 0 || pad > aes.BlockSize {
		return nil, fmt.Errorf("%w: pad length %d", ErrInvalidPadding, pad)
	}
	for _, b := range plaintext[n-pad:] {
		if int(b) != pad {
			return nil, fmt.Errorf("%w: mismatched pad byte", ErrInvalidPadding)
		}
	}

	unpadded, err := pkcs7.Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPadding, err)
	}
	return unpadded, nil
}

func (e *AESEncryptor) newBlock(key []byte, iv []byte) (cipher.Block, error) {
	if len(key) != e.keySize {
		return nil, fmt.Errorf("invalid key size: expected %d, got %d", e.keySize, len(key))
	}
	if len(iv) != IVSize {
		return nil, fmt.Errorf("invalid IV size: expected %d, got %d", IVSize, len(iv))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return block, nil
}

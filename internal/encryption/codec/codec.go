// Package codec encodes and decodes the stored byte layout of a single chunk.
//
// Current format: marker(1) || IV(16) || AES-256-CBC ciphertext.
// Legacy format: bare AES-256-CBC ciphertext whose key and IV were derived
// from a password with EVP_BytesToKey. Legacy chunks are only ever read.
package codec

import (
	"fmt"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/core/ports"
	"chunkvault/internal/pkg/crypto/aes"
	"chunkvault/internal/pkg/crypto/kdf"
)

type Codec struct {
	encryptor *aes.AESEncryptor
}

func New() *Codec {
	return &Codec{
		encryptor: aes.NewAESEncryptor(kdf.KeySize),
	}
}

// Encode encrypts plaintext into a current-format chunk under a fresh IV.
func (c *Codec) Encode(plaintext []byte, key kdf.Key) ([]byte, error) {
	iv, err := c.encryptor.GenerateIV()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEncode, err)
	}

	ciphertext, err := c.encryptor.EncryptChunk(plaintext, key[:], iv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEncode, err)
	}

	return append(makeChunkHeader(iv), ciphertext...), nil
}

// Decode decrypts a chunk of either format, picking the format from the
// marker byte.
func (c *Codec) Decode(wire []byte, material kdf.Material) ([]byte, error) {
	plaintext, _, err := c.DecodeFormat(wire, material, domain.FormatUnknown)
	return plaintext, err
}

// DecodeFormat decrypts a chunk. A known hint selects the decode path
// outright; FormatUnknown falls back to Sniff. The returned format is the
// path that produced the plaintext.
func (c *Codec) DecodeFormat(wire []byte, material kdf.Material, hint domain.Format) ([]byte, domain.Format, error) {
	if len(wire) == 0 {
		return nil, domain.FormatUnknown, &domain.DecodeError{Reason: "empty input"}
	}

	format := hint
	if format == domain.FormatUnknown {
		format = Sniff(wire)
	}

	switch format {
	case domain.FormatCurrent:
		plaintext, err := c.decodeCurrent(wire, material.Key)
		return plaintext, format, err
	case domain.FormatLegacy:
		plaintext, err := c.decodeLegacy(wire, material)
		return plaintext, format, err
	default:
		return nil, format, &domain.DecodeError{
			Reason: fmt.Sprintf("unsupported format %d", format),
			Length: len(wire),
			Prefix: leadingBytes(wire),
		}
	}
}

func (c *Codec) decodeCurrent(wire []byte, key kdf.Key) ([]byte, error) {
	if len(wire) < MinCurrentSize || wire[0] != Marker {
		return nil, &domain.DecodeError{
			Reason: "malformed current-format header",
			Length: len(wire),
			Prefix: leadingBytes(wire),
		}
	}

	iv, ciphertext := splitChunkHeader(wire)
	plaintext, err := c.encryptor.DecryptChunk(ciphertext, key[:], iv)
	if err != nil {
		return nil, &domain.DecodeError{
			Reason: "current-format decryption failed",
			Length: len(wire),
			Prefix: leadingBytes(wire),
			Err:    err,
		}
	}
	return plaintext, nil
}

// decodeLegacy tries the raw secret as the password first, then the hex text
// of the derived key, which an intermediate release used.
func (c *Codec) decodeLegacy(wire []byte, material kdf.Material) ([]byte, error) {
	plaintext, errRaw := aes.DecryptLegacy(wire, material.Secret)
	if errRaw == nil {
		return plaintext, nil
	}

	plaintext, errHex := aes.DecryptLegacy(wire, []byte(material.Key.Hex()))
	if errHex == nil {
		return plaintext, nil
	}

	return nil, &domain.DecodeError{
		Reason: "legacy decryption failed with both password variants",
		Length: len(wire),
		Prefix: leadingBytes(wire),
		Err:    errHex,
	}
}

var _ ports.ChunkCodec = (*Codec)(nil)

// Package kdf derives fixed-width AES keys from configured secrets.
package kdf

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// KeySize is the length of a derived key in bytes (AES-256).
const KeySize = sha256.Size

var ErrEmptySecret = errors.New("encryption secret is empty")

// Key is a derived AES-256 key. It is never persisted.
type Key [KeySize]byte

// Hex returns the lowercase hex text of the key.
func (k Key) Hex() string {
	return hex.EncodeToString(k[:])
}

// Derive hashes secret into a Key. Identical secrets always yield identical
// keys.
func Derive(secret []byte) (Key, error) {
	if len(secret) == 0 {
		return Key{}, ErrEmptySecret
	}
	return sha256.Sum256(secret), nil
}

// Material bundles the raw secret with its derived key for the duration of a
// single operation. Decoding legacy chunks needs both.
type Material struct {
	Secret []byte
	Key    Key
}

func NewMaterial(secret []byte) (Material, error) {
	key, err := Derive(secret)
	if err != nil {
		return Material{}, err
	}
	return Material{Secret: secret, Key: key}, nil
}

// String hides the secret from fmt and loggers.
func (m Material) String() string {
	return "kdf.Material{redacted}"
}

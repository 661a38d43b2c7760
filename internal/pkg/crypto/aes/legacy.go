package aes

import (
	"crypto/md5"
	"fmt"
)

// BytesToKey reproduces OpenSSL's EVP_BytesToKey with MD5, a single
// iteration and no salt. Chunks from the legacy scheme were encrypted with a
// key and IV both derived from a password this way, so the IV was never
// stored.
func BytesToKey(password []byte) (key []byte, iv []byte) {
	var (
		derived []byte
		prev    []byte
	)
	for len(derived) < KeySize+IVSize {
		h := md5.New()
		h.Write(prev)
		h.Write(password)
		prev = h.Sum(nil)
		derived = append(derived, prev...)
	}
	return derived[:KeySize], derived[KeySize : KeySize+IVSize]
}

// EncryptLegacy produces a legacy-format chunk. Nothing in the write path
// uses it; it exists so the read path can be exercised and for tooling.
func EncryptLegacy(plaintext []byte, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("legacy password is empty")
	}
	key, iv := BytesToKey(password)
	return NewAESEncryptor(KeySize).EncryptChunk(plaintext, key, iv)
}

func DecryptLegacy(ciphertext []byte, password []byte) ([]byte, error) {
	if len(password) == 0 {
		return nil, fmt.Errorf("legacy password is empty")
	}
	key, iv := BytesToKey(password)
	return NewAESEncryptor(KeySize).DecryptChunk(ciphertext, key, iv)
}

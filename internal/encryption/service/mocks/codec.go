package mocks

import (
	"chunkvault/internal/core/domain"
	"chunkvault/internal/pkg/crypto/kdf"
)

type MockCodec struct {
	EncodeFunc       func(plaintext []byte, key kdf.Key) ([]byte, error)
	DecodeFormatFunc func(wire []byte, material kdf.Material, hint domain.Format) ([]byte, domain.Format, error)
}

// NewMockCodec returns a codec that stores plaintext unchanged.
func NewMockCodec() *MockCodec {
	return &MockCodec{
		EncodeFunc: func(plaintext []byte, key kdf.Key) ([]byte, error) {
			return append([]byte(nil), plaintext...), nil
		},
		DecodeFormatFunc: func(wire []byte, material kdf.Material, hint domain.Format) ([]byte, domain.Format, error) {
			return append([]byte(nil), wire...), domain.FormatCurrent, nil
		},
	}
}

func (m *MockCodec) Encode(plaintext []byte, key kdf.Key) ([]byte, error) {
	return m.EncodeFunc(plaintext, key)
}

func (m *MockCodec) DecodeFormat(wire []byte, material kdf.Material, hint domain.Format) ([]byte, domain.Format, error) {
	return m.DecodeFormatFunc(wire, material, hint)
}

// chunkvault/internal/core/ports/encryption.go
package ports

import (
	"context"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/pkg/crypto/kdf"
)

// ChunkCodec turns plaintext windows into stored chunk bytes and back.
type ChunkCodec interface {
	Encode(plaintext []byte, key kdf.Key) ([]byte, error)
	DecodeFormat(wire []byte, material kdf.Material, hint domain.Format) ([]byte, domain.Format, error)
}

// ChunkStore persists encrypted chunks keyed by file and sequence index.
type ChunkStore interface {
	Put(ctx context.Context, fileID string, index int, data []byte) (string, error)
	Get(ctx context.Context, location string) ([]byte, error)
	Delete(ctx context.Context, location string) error
	DeleteAll(ctx context.Context, fileID string) error
}

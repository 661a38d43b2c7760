// chunkvault/internal/core/domain/types.go
package domain

import (
	"io"
	"time"
)

// Format identifies how a stored chunk was encrypted.
type Format uint8

const (
	// FormatUnknown means the format was not recorded; decoders fall back to
	// inspecting the marker byte.
	FormatUnknown Format = 0
	// FormatCurrent is marker(1) || IV(16) || AES-256-CBC ciphertext.
	FormatCurrent Format = 1
	// FormatLegacy is bare ciphertext with a password-derived IV.
	FormatLegacy Format = 2
)

func (f Format) String() string {
	switch f {
	case FormatCurrent:
		return "current"
	case FormatLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ChunkReference locates one encrypted chunk of a file.
type ChunkReference struct {
	FileID   string `json:"file_id"`
	Index    int    `json:"index"`
	Location string `json:"location"`
	Size     int64  `json:"size,omitempty"` // plaintext bytes, 0 if not recorded
	Format   Format `json:"format,omitempty"`
}

// FileRecord is the metadata entry kept by the caller for an ingested file.
type FileRecord struct {
	ID           string           `json:"id"`
	OriginalName string           `json:"original_name"`
	ContentType  string           `json:"content_type,omitempty"`
	Size         int64            `json:"size"`
	ChunkSize    int              `json:"chunk_size"`
	Chunks       []ChunkReference `json:"chunks"`
	CreatedAt    time.Time        `json:"created_at"`
}

type IngestInput struct {
	Reader    io.Reader
	FileID    string // generated when empty
	ChunkSize int
	Secret    []byte
}

type IngestOutput struct {
	FileID string
	Refs   []ChunkReference
	Size   int64
}

type RetrieveInput struct {
	Refs   []ChunkReference
	Secret []byte
}

type UpgradeOutput struct {
	Refs     []ChunkReference
	Upgraded int
}

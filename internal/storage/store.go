package storage

import (
	"errors"
	"fmt"
	"strings"

	"chunkvault/internal/core/ports"
)

// Store is implemented by every chunk backend.
type Store = ports.ChunkStore

var (
	// ErrNotFound is returned by Get when no blob exists at a location.
	ErrNotFound = errors.New("chunk not found")
	// ErrInvalidLocation is returned for locations the backend did not issue.
	ErrInvalidLocation = errors.New("invalid chunk location")
)

// Config holds configuration for storage backends
type Config struct {
	Backend     string // fs, s3 or badger
	Root        string // fs and badger directory
	BucketName  string
	Region      string
	ChunkPrefix string
}

// DeleteError is returned by DeleteAll when some chunks of a file could not
// be removed. Callers must keep the file's metadata until a retry succeeds.
type DeleteError struct {
	FileID    string
	Remaining []string
	Err       error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("failed to delete %d chunk(s) of file %s: %v", len(e.Remaining), e.FileID, e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

// ChunkName is the per-chunk object name shared by the backends.
func ChunkName(index int) string {
	return fmt.Sprintf("chunk_%08d.enc", index)
}

// ValidateFileID rejects identifiers that could escape a backend namespace.
func ValidateFileID(fileID string) error {
	if fileID == "" {
		return fmt.Errorf("file id is empty")
	}
	if fileID == "." || fileID == ".." || strings.ContainsAny(fileID, `/\`) || strings.ContainsRune(fileID, 0) {
		return fmt.Errorf("invalid file id %q", fileID)
	}
	return nil
}

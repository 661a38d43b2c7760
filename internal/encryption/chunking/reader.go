package chunking

import (
	"errors"
	"fmt"
	"io"
)

const (
	DefaultChunkSize = 1024 * 1024      // 1MB default chunk size
	MinChunkSize     = 1                // any positive window is valid
	MaxChunkSize     = 64 * 1024 * 1024
)

// ChunkReader splits a stream into fixed-size windows. Every window except
// possibly the last is exactly chunkSize bytes.
type ChunkReader struct {
	reader    io.Reader
	chunkSize int
	buf       []byte
	index     int
	total     int64
	done      bool
}

func ValidateChunkSize(size int) error {
	if size < MinChunkSize || size > MaxChunkSize {
		return fmt.Errorf("invalid chunk size %d: must be between %d and %d bytes", size, MinChunkSize, MaxChunkSize)
	}
	return nil
}

func NewChunkReader(reader io.Reader, chunkSize int) (*ChunkReader, error) {
	if err := ValidateChunkSize(chunkSize); err != nil {
		return nil, err
	}

	return &ChunkReader{
		reader:    reader,
		chunkSize: chunkSize,
	}, nil
}

// Next returns the next window and its sequence index. The returned slice is
// only valid until the following call. io.EOF signals the input is
// exhausted; an empty input yields io.EOF on the first call.
func (r *ChunkReader) Next() ([]byte, int, error) {
	if r.done {
		return nil, r.index, io.EOF
	}
	if r.buf == nil {
		r.buf = make([]byte, r.chunkSize)
	}

	n, err := io.ReadFull(r.reader, r.buf)
	switch {
	case errors.Is(err, io.EOF):
		r.done = true
		return nil, r.index, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		r.done = true
	case err != nil:
		return nil, r.index, fmt.Errorf("failed to read chunk %d: %w", r.index, err)
	}

	index := r.index
	r.index++
	r.total += int64(n)
	return r.buf[:n], index, nil
}

// Count is the number of windows returned so far.
func (r *ChunkReader) Count() int {
	return r.index
}

// Total is the number of bytes returned so far.
func (r *ChunkReader) Total() int64 {
	return r.total
}

func (r *ChunkReader) ChunkSize() int {
	return r.chunkSize
}

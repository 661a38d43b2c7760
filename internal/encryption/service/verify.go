package service

import (
	"errors"
	"fmt"

	"chunkvault/internal/core/domain"
)

type refError struct {
	index int
	err   error
}

func (e *refError) Error() string { return fmt.Sprintf("chunk %d: %v", e.index, e.err) }

func (e *refError) Unwrap() error { return e.err }

// VerifyRefs checks that refs describe one file as a contiguous sequence
// starting at index 0. When size is non-negative and every ref records its
// plaintext size, the sizes must add up to size.
func VerifyRefs(refs []domain.ChunkReference, size int64) error {
	var (
		total    int64
		allSized = true
	)
	for i, ref := range refs {
		if ref.Index != i {
			return &refError{index: i, err: fmt.Errorf("%w: position %d holds index %d", ErrOutOfOrder, i, ref.Index)}
		}
		if ref.FileID != refs[0].FileID {
			return &refError{index: i, err: fmt.Errorf("mixed file ids %q and %q", refs[0].FileID, ref.FileID)}
		}
		if ref.Location == "" {
			return &refError{index: i, err: errors.New("empty location")}
		}
		if ref.Size <= 0 {
			allSized = false
		}
		total += ref.Size
	}

	if size >= 0 && allSized && total != size {
		return fmt.Errorf("chunk sizes add up to %d bytes, record says %d", total, size)
	}
	if size == 0 && len(refs) > 0 {
		return fmt.Errorf("record says 0 bytes but lists %d chunk(s)", len(refs))
	}
	return nil
}

func badIndex(err error) int {
	var re *refError
	if errors.As(err, &re) {
		return re.index
	}
	return -1
}

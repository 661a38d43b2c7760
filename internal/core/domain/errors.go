package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEncode   = errors.New("encode failure")
	ErrDecode   = errors.New("decode failure")
	ErrStore    = errors.New("store failure")
	ErrIngest   = errors.New("ingest failure")
	ErrRetrieve = errors.New("retrieve failure")
)

// DecodeError describes a chunk that could not be decrypted. It carries
// enough to diagnose the blob but never any key material.
type DecodeError struct {
	Reason string
	Length int
	Prefix []byte // up to 4 leading bytes of the chunk
	Err    error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("decode failure: %s (length=%d, leading=%x)", e.Reason, e.Length, e.Prefix)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// StoreError reports a failed blob operation.
type StoreError struct {
	Op       string
	FileID   string
	Index    int
	Location string
	Err      error
}

func (e *StoreError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("store failure: %s %s: %v", e.Op, e.Location, e.Err)
	}
	return fmt.Sprintf("store failure: %s %s/%d: %v", e.Op, e.FileID, e.Index, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// IngestError is returned when an ingest could not complete. Every chunk it
// wrote has been rolled back unless RollbackErr is set.
type IngestError struct {
	FileID      string
	Index       int // chunk being processed when the failure happened
	Err         error
	RollbackErr error
}

func (e *IngestError) Error() string {
	msg := fmt.Sprintf("ingest failure: file %s at chunk %d: %v", e.FileID, e.Index, e.Err)
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback incomplete: %v)", e.RollbackErr)
	}
	return msg
}

func (e *IngestError) Unwrap() error { return e.Err }

func (e *IngestError) Is(target error) bool { return target == ErrIngest }

// RetrieveError is returned by a stream once a chunk cannot be produced.
type RetrieveError struct {
	FileID string
	Index  int
	Err    error
}

func (e *RetrieveError) Error() string {
	return fmt.Sprintf("retrieve failure: file %s at chunk %d: %v", e.FileID, e.Index, e.Err)
}

func (e *RetrieveError) Unwrap() error { return e.Err }

func (e *RetrieveError) Is(target error) bool { return target == ErrRetrieve }

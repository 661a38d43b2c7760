package service

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/core/ports"
	"chunkvault/internal/pkg/crypto/kdf"
)

// Retrieve returns a lazy stream over the plaintext of refs. Nothing is read
// from the store until the stream is consumed.
func (s *EncryptionService) Retrieve(ctx context.Context, input domain.RetrieveInput) (*Stream, error) {
	fileID := ""
	if len(input.Refs) > 0 {
		fileID = input.Refs[0].FileID
	}
	if err := VerifyRefs(input.Refs, -1); err != nil {
		return nil, &domain.RetrieveError{FileID: fileID, Index: badIndex(err), Err: err}
	}
	material, err := s.material(input.Secret)
	if err != nil {
		return nil, &domain.RetrieveError{FileID: fileID, Err: fmt.Errorf("%w: %w", domain.ErrDecode, err)}
	}

	return &Stream{
		ctx:      ctx,
		fileID:   fileID,
		refs:     input.Refs,
		material: material,
		codec:    s.codec,
		store:    s.store,
		log:      s.log.WithField("file_id", fileID),
	}, nil
}

// Stream yields a file's plaintext one chunk at a time, strictly in index
// order. It is single-pass: once it returns an error, including io.EOF, every
// later call returns the same error. A fresh Retrieve is needed to start
// over. Close stops the stream; the store handle of a chunk is released
// before Next returns, so an abandoned stream holds no store resources.
type Stream struct {
	ctx      context.Context
	fileID   string
	refs     []domain.ChunkReference
	material kdf.Material
	codec    ports.ChunkCodec
	store    ports.ChunkStore
	log      *logrus.Entry

	next    int
	pending []byte
	err     error
	legacy  int
	written int64
}

// Next returns the plaintext of the next chunk, or io.EOF after the last.
func (st *Stream) Next() ([]byte, error) {
	if st.err != nil {
		return nil, st.err
	}
	if st.next >= len(st.refs) {
		st.finish()
		return nil, io.EOF
	}
	if err := st.ctx.Err(); err != nil {
		return nil, st.fail(err)
	}

	ref := st.refs[st.next]
	wire, err := st.store.Get(st.ctx, ref.Location)
	if err != nil {
		return nil, st.fail(err)
	}

	plaintext, format, err := st.codec.DecodeFormat(wire, st.material, ref.Format)
	if err != nil {
		return nil, st.fail(err)
	}
	if ref.Size > 0 && int64(len(plaintext)) != ref.Size {
		return nil, st.fail(fmt.Errorf("%w: got %d, want %d", ErrSizeChanged, len(plaintext), ref.Size))
	}
	if format == domain.FormatLegacy {
		st.legacy++
		st.log.WithField("chunk_index", ref.Index).Warn("decoded legacy-format chunk")
	}

	st.next++
	st.written += int64(len(plaintext))
	return plaintext, nil
}

// Read implements io.Reader over the concatenated chunk plaintexts.
func (st *Stream) Read(p []byte) (int, error) {
	for len(st.pending) == 0 {
		chunk, err := st.Next()
		if err != nil {
			return 0, err
		}
		st.pending = chunk
	}
	n := copy(p, st.pending)
	st.pending = st.pending[n:]
	return n, nil
}

// WriteTo copies the remaining plaintext to w chunk by chunk.
func (st *Stream) WriteTo(w io.Writer) (int64, error) {
	var total int64
	if len(st.pending) > 0 {
		n, err := w.Write(st.pending)
		total += int64(n)
		st.pending = st.pending[n:]
		if err != nil {
			return total, st.fail(err)
		}
	}
	for {
		chunk, err := st.Next()
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		n, err := w.Write(chunk)
		total += int64(n)
		if err != nil {
			return total, st.fail(err)
		}
	}
}

// Close stops the stream and drops its key material. It is safe to call more
// than once.
func (st *Stream) Close() error {
	if st.err == nil {
		st.err = ErrClosed
	}
	st.pending = nil
	st.material = kdf.Material{}
	return nil
}

// Index is the index of the next chunk the stream will produce.
func (st *Stream) Index() int {
	return st.next
}

// Len is the number of chunks the stream covers.
func (st *Stream) Len() int {
	return len(st.refs)
}

func (st *Stream) fail(err error) error {
	index := st.next
	if index < len(st.refs) {
		index = st.refs[index].Index
	}
	st.err = &domain.RetrieveError{FileID: st.fileID, Index: index, Err: err}
	st.pending = nil
	st.material = kdf.Material{}
	st.log.WithField("chunk_index", index).WithError(err).Error("retrieve aborted")
	return st.err
}

func (st *Stream) finish() {
	st.err = io.EOF
	st.material = kdf.Material{}
	st.log.WithFields(logrus.Fields{
		"chunks": len(st.refs),
		"bytes":  st.written,
		"legacy": st.legacy,
	}).Info("retrieve complete")
}

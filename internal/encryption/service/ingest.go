package service

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/encryption/chunking"
)

// Ingest splits input into windows, encrypts and stores each one in index
// order, and returns the ordered chunk references. It is all-or-nothing: on
// any failure, including cancellation, every chunk written for the file is
// removed before the error is returned.
func (s *EncryptionService) Ingest(ctx context.Context, input domain.IngestInput) (*domain.IngestOutput, error) {
	fileID := input.FileID
	if fileID == "" {
		fileID = uuid.NewString()
	}
	chunkSize := input.ChunkSize
	if chunkSize == 0 {
		chunkSize = s.config.ChunkSize
	}

	if input.Reader == nil {
		return nil, &domain.IngestError{FileID: fileID, Err: ErrNoReader}
	}
	material, err := s.material(input.Secret)
	if err != nil {
		return nil, &domain.IngestError{FileID: fileID, Err: fmt.Errorf("%w: %w", domain.ErrEncode, err)}
	}
	reader, err := chunking.NewChunkReader(input.Reader, chunkSize)
	if err != nil {
		return nil, &domain.IngestError{FileID: fileID, Err: err}
	}

	logger := s.log.WithField("file_id", fileID)
	var refs []domain.ChunkReference

	for {
		if err := ctx.Err(); err != nil {
			return nil, s.rollback(ctx, fileID, reader.Count(), refs, err)
		}

		window, index, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, s.rollback(ctx, fileID, index, refs, err)
		}

		wire, err := s.codec.Encode(window, material.Key)
		if err != nil {
			return nil, s.rollback(ctx, fileID, index, refs, err)
		}

		location, err := s.store.Put(ctx, fileID, index, wire)
		if err != nil {
			return nil, s.rollback(ctx, fileID, index, refs, err)
		}

		refs = append(refs, domain.ChunkReference{
			FileID:   fileID,
			Index:    index,
			Location: location,
			Size:     int64(len(window)),
			Format:   domain.FormatCurrent,
		})
		logger.WithFields(logrus.Fields{
			"chunk_index": index,
			"bytes":       len(window),
		}).Debug("ingested chunk")
	}

	logger.WithFields(logrus.Fields{
		"chunks":     len(refs),
		"bytes":      reader.Total(),
		"chunk_size": reader.ChunkSize(),
	}).Info("ingest complete")

	return &domain.IngestOutput{
		FileID: fileID,
		Refs:   refs,
		Size:   reader.Total(),
	}, nil
}

// rollback deletes every chunk written so far, newest first, then sweeps the
// file's namespace for anything a failed Put may have left behind. It runs
// on a context that ignores the caller's cancellation.
func (s *EncryptionService) rollback(ctx context.Context, fileID string, index int, written []domain.ChunkReference, cause error) error {
	cleanupCtx := context.WithoutCancel(ctx)
	logger := s.log.WithFields(logrus.Fields{
		"file_id":     fileID,
		"chunk_index": index,
		"chunks":      len(written),
	})
	logger.WithError(cause).Warn("ingest failed, rolling back")

	var errs error
	for i := len(written) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, s.store.Delete(cleanupCtx, written[i].Location))
	}
	errs = multierr.Append(errs, s.store.DeleteAll(cleanupCtx, fileID))

	if errs != nil {
		logger.WithError(errs).Error("rollback incomplete")
	}
	return &domain.IngestError{
		FileID:      fileID,
		Index:       index,
		Err:         cause,
		RollbackErr: errs,
	}
}

package service

import (
	"context"

	"chunkvault/internal/storage"
)

// Purge deletes every chunk of fileID. It is idempotent: purging a file that
// has no chunks, or was already purged, succeeds. If some chunks survive the
// error wraps a *storage.DeleteError naming them, and the caller must keep
// the file record until a retry succeeds.
func (s *EncryptionService) Purge(ctx context.Context, fileID string) error {
	if err := storage.ValidateFileID(fileID); err != nil {
		return err
	}
	logger := s.log.WithField("file_id", fileID)

	if err := s.store.DeleteAll(ctx, fileID); err != nil {
		logger.WithError(err).Error("purge incomplete")
		return err
	}

	logger.Info("purge complete")
	return nil
}

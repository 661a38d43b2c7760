package service

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"chunkvault/internal/core/domain"
)

// Upgrade rewrites every legacy-format chunk of a file in the current format
// and records the format on every reference. The returned refs replace the
// caller's; they are returned even on error, covering the chunks rewritten
// before the failure. The file must not be read or written concurrently.
func (s *EncryptionService) Upgrade(ctx context.Context, input domain.RetrieveInput) (*domain.UpgradeOutput, error) {
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

	out := &domain.UpgradeOutput{
		Refs: append([]domain.ChunkReference(nil), input.Refs...),
	}
	logger := s.log.WithField("file_id", fileID)

	for i := range out.Refs {
		ref := &out.Refs[i]
		fail := func(err error) (*domain.UpgradeOutput, error) {
			return out, &domain.RetrieveError{FileID: fileID, Index: ref.Index, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		wire, err := s.store.Get(ctx, ref.Location)
		if err != nil {
			return fail(err)
		}
		plaintext, format, err := s.codec.DecodeFormat(wire, material, ref.Format)
		if err != nil {
			return fail(err)
		}

		ref.Size = int64(len(plaintext))
		if format != domain.FormatLegacy {
			ref.Format = format
			continue
		}

		upgraded, err := s.codec.Encode(plaintext, material.Key)
		if err != nil {
			return fail(err)
		}
		location, err := s.store.Put(ctx, fileID, ref.Index, upgraded)
		if err != nil {
			return fail(err)
		}
		if location != ref.Location {
			if err := s.store.Delete(ctx, ref.Location); err != nil {
				logger.WithError(err).WithField("chunk_index", ref.Index).Warn("failed to remove superseded chunk")
			}
		}
		ref.Location = location
		ref.Format = domain.FormatCurrent
		out.Upgraded++

		logger.WithField("chunk_index", ref.Index).Debug("upgraded legacy chunk")
	}

	logger.WithFields(logrus.Fields{
		"chunks":   len(out.Refs),
		"upgraded": out.Upgraded,
	}).Info("upgrade complete")
	return out, nil
}

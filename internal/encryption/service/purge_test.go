package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkvault/internal/core/domain"
	"chunkvault/internal/encryption/codec"
	"chunkvault/internal/storage"
	"chunkvault/internal/storage/fs"
)

func TestPurge(t *testing.T) {
	s, err := fs.New(t.TempDir(), nil)
	require.NoError(t, err)
	svc, _ := newTestService(codec.New(), s, 4)
	ctx := context.Background()

	out := ingest(t, svc, payload(20))
	keep := ingest(t, svc, payload(6))

	require.NoError(t, svc.Purge(ctx, out.FileID))
	locations, err := s.Locations(ctx, out.FileID)
	require.NoError(t, err)
	assert.Empty(t, locations)

	// purging again, or purging a file that never existed, succeeds
	assert.NoError(t, svc.Purge(ctx, out.FileID))
	assert.NoError(t, svc.Purge(ctx, "never-ingested"))

	stream, err := svc.Retrieve(ctx, domain.RetrieveInput{Refs: out.Refs, Secret: testSecret})
	require.NoError(t, err)
	_, err = stream.Next()
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Equal(t, payload(6), retrieveAll(t, svc, keep.Refs, testSecret))
}

func TestPurge_InvalidFileID(t *testing.T) {
	svc, store := newMockService(4)
	for _, id := range []string{"", "../etc", "a/b"} {
		assert.Error(t, svc.Purge(context.Background(), id), id)
	}
	assert.Empty(t, store.Deletes)
}

func TestPurge_PartialFailure(t *testing.T) {
	svc, store := newMockService(4)
	ctx := context.Background()
	out := ingest(t, svc, payload(8))

	store.DeleteAllFunc = func(fileID string) error {
		return errors.New("throttled")
	}
	err := svc.Purge(ctx, out.FileID)
	assert.ErrorIs(t, err, domain.ErrStore)

	var deleteErr *storage.DeleteError
	require.ErrorAs(t, err, &deleteErr)
	assert.Equal(t, out.FileID, deleteErr.FileID)
	assert.Equal(t, []string{out.Refs[0].Location, out.Refs[1].Location}, deleteErr.Remaining)

	// a retry after the fault clears finishes the job
	store.DeleteAllFunc = nil
	require.NoError(t, svc.Purge(ctx, out.FileID))
	assert.Empty(t, store.Locations(out.FileID))
}

package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunkvault/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(StoreConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	loc, err := s.Put(ctx, "file-1", 7, []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, "chunk/file-1/00000007", loc)

	got, err := s.Get(ctx, loc)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestStore_GetMissing(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "chunk/file-1/00000000")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.Get(context.Background(), "something/else")
	assert.ErrorIs(t, err, storage.ErrInvalidLocation)
}

func TestStore_DeleteAll(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i := 0; i < 12; i++ {
		_, err := s.Put(ctx, "file-1", i, []byte{byte(i)})
		require.NoError(t, err)
	}
	// shares a textual prefix with file-1 but is a different file
	_, err := s.Put(ctx, "file-10", 0, []byte("keep"))
	require.NoError(t, err)

	locations, err := s.Locations(ctx, "file-1")
	require.NoError(t, err)
	require.Len(t, locations, 12)
	assert.Equal(t, "chunk/file-1/00000000", locations[0])
	assert.Equal(t, "chunk/file-1/00000011", locations[11])

	require.NoError(t, s.DeleteAll(ctx, "file-1"))

	locations, err = s.Locations(ctx, "file-1")
	require.NoError(t, err)
	assert.Empty(t, locations)

	locations, err = s.Locations(ctx, "file-10")
	require.NoError(t, err)
	assert.Len(t, locations, 1)

	require.NoError(t, s.DeleteAll(ctx, "file-1"))
	require.NoError(t, s.DeleteAll(ctx, "unknown"))
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	loc, err := s.Put(ctx, "file-1", 0, []byte("x"))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, loc))
	require.NoError(t, s.Delete(ctx, loc))

	_, err = s.Get(ctx, loc)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
